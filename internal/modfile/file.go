// Package modfile reads and writes modules in two interchangeable formats:
// a YAML text format meant for hand-written fixtures and review, and a
// compact gob binary format. Both carry the same File document.
package modfile

// File is the serialized form of a module. It holds no pointers between
// declarations: instructions name their operands by reference string.
//
// Member references take one of these forms:
//
//	Type::name              field, or the only method with that name
//	Type::Name(t1, t2)      method by parameter types
//	@id                     member declared with an explicit id
//
// Parameter type lists are split on commas, so type names in signatures
// must not contain any.
type File struct {
	Module     string      `yaml:"module"`
	Mvid       string      `yaml:"mvid,omitempty"`
	References []Reference `yaml:"references,omitempty"`
	Externals  []TypeDecl  `yaml:"externals,omitempty"`
	Types      []TypeDecl  `yaml:"types,omitempty"`
}

type Reference struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version,omitempty"`
}

type TypeDecl struct {
	Namespace string       `yaml:"namespace,omitempty"`
	Name      string       `yaml:"name"`
	Enum      bool         `yaml:"enum,omitempty"`
	Reference string       `yaml:"reference,omitempty"`
	Fields    []FieldDecl  `yaml:"fields,omitempty"`
	Methods   []MethodDecl `yaml:"methods,omitempty"`
}

type FieldDecl struct {
	ID     string `yaml:"id,omitempty"`
	Name   string `yaml:"name"`
	Type   string `yaml:"type,omitempty"`
	Static bool   `yaml:"static,omitempty"`
	Const  *int64 `yaml:"const,omitempty"`

	// HasConst keeps a zero Const alive through gob, which does not
	// transmit pointers to zero values.
	HasConst bool `yaml:"-"`
}

type Param struct {
	Name string `yaml:"name,omitempty"`
	Type string `yaml:"type"`
}

type MethodDecl struct {
	ID      string  `yaml:"id,omitempty"`
	Name    string  `yaml:"name"`
	Static  bool    `yaml:"static,omitempty"`
	Params  []Param `yaml:"params,omitempty"`
	Returns string  `yaml:"returns,omitempty"`

	// Body is nil for methods without an instruction stream (externals,
	// abstract methods). An empty list is an empty body.
	Body *BodyDecl `yaml:"body,omitempty"`
}

type Local struct {
	Name string `yaml:"name,omitempty"`
	Type string `yaml:"type"`
}

type BodyDecl struct {
	Locals []Local `yaml:"locals,omitempty"`
	Code   []Instr `yaml:"code"`
}

// Instr is one instruction. At most one operand field may be set.
type Instr struct {
	Label  string  `yaml:"label,omitempty"`
	Op     string  `yaml:"op"`
	Int    *int64  `yaml:"int,omitempty"`
	Str    *string `yaml:"str,omitempty"`
	Field  string  `yaml:"field,omitempty"`
	Method string  `yaml:"method,omitempty"`
	Type   string  `yaml:"type,omitempty"`
	Target string  `yaml:"target,omitempty"`
	Doc    string  `yaml:"doc,omitempty"`
	Line   int     `yaml:"line,omitempty"`

	// Has records which pointer operands are set, for the binary format.
	Has operandBits `yaml:"-"`
}

type operandBits uint8

const (
	hasInt operandBits = 1 << iota
	hasStr
)

// each visits every field and instruction declaration in f
func (f *File) each(field func(*FieldDecl), instr func(*Instr)) {
	for _, decls := range [][]TypeDecl{f.Externals, f.Types} {
		for i := range decls {
			td := &decls[i]
			for j := range td.Fields {
				field(&td.Fields[j])
			}
			for j := range td.Methods {
				body := td.Methods[j].Body
				if body == nil {
					continue
				}
				for k := range body.Code {
					instr(&body.Code[k])
				}
			}
		}
	}
}
