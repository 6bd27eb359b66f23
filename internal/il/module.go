package il

import (
	"strings"

	"github.com/google/uuid"
)

// Module is the unit being rewritten: the types it declares, the types it
// uses from elsewhere, and the external components it references.
type Module struct {
	Name string

	// Mvid identifies this particular build of the module.
	Mvid uuid.UUID

	References []*Reference

	// Types declared by this module. Nested types appear here too, with
	// their outer type encoded in the name ("Program/<>c").
	Types []*Type

	// Externals are types defined in referenced components. Their methods
	// have no bodies.
	Externals []*Type
}

// Reference names an external component the module depends on
type Reference struct {
	Name    string
	Version string
}

// Type is a type declaration
type Type struct {
	Namespace string
	Name      string
	IsEnum    bool
	Fields    []*Field
	Methods   []*Method

	// Reference is the owning component name for external types.
	Reference string
}

// Field is a field declaration
type Field struct {
	Name          string
	FieldType     string
	Static        bool
	DeclaringType *Type

	// Constant holds the literal value of enum members.
	Constant *int64
}

// Param is a formal method parameter
type Param struct {
	Name string
	Type string
}

// Method is a method declaration. Body is nil for external or abstract methods.
type Method struct {
	Name          string
	DeclaringType *Type
	Params        []Param
	ReturnType    string
	Static        bool
	Body          *Body
}

// NewModule creates an empty module with a fresh Mvid
func NewModule(name string) *Module {
	return &Module{Name: name, Mvid: uuid.New()}
}

// FullName returns the namespace-qualified type name
func (t *Type) FullName() string {
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + "." + t.Name
}

// AddField declares a field on t
func (t *Type) AddField(f *Field) *Field {
	f.DeclaringType = t
	t.Fields = append(t.Fields, f)
	return f
}

// AddMethod declares a method on t
func (t *Type) AddMethod(m *Method) *Method {
	m.DeclaringType = t
	t.Methods = append(t.Methods, m)
	return m
}

// RemoveMethod detaches m from t. It reports whether m was declared there.
func (t *Type) RemoveMethod(m *Method) bool {
	for i, candidate := range t.Methods {
		if candidate == m {
			t.Methods = append(t.Methods[:i], t.Methods[i+1:]...)
			m.DeclaringType = nil
			return true
		}
	}
	return false
}

// RemoveField detaches f from t. It reports whether f was declared there.
func (t *Type) RemoveField(f *Field) bool {
	for i, candidate := range t.Fields {
		if candidate == f {
			t.Fields = append(t.Fields[:i], t.Fields[i+1:]...)
			f.DeclaringType = nil
			return true
		}
	}
	return false
}

// FullName returns "Type::field"
func (f *Field) FullName() string {
	if f.DeclaringType == nil {
		return f.Name
	}
	return f.DeclaringType.FullName() + "::" + f.Name
}

// FullName returns "Type::Method(params):return"
func (m *Method) FullName() string {
	var sb strings.Builder
	if m.DeclaringType != nil {
		sb.WriteString(m.DeclaringType.FullName())
		sb.WriteString("::")
	}
	sb.WriteString(m.Name)
	sb.WriteByte('(')
	for i, p := range m.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.Type)
	}
	sb.WriteByte(')')
	if m.ReturnType != "" {
		sb.WriteByte(':')
		sb.WriteString(m.ReturnType)
	}
	return sb.String()
}

// Returns reports whether calling m leaves a value on the stack
func (m *Method) Returns() bool {
	return m.ReturnType != "" && m.ReturnType != "void"
}

// HasBody reports whether m carries an instruction stream
func (m *Method) HasBody() bool {
	return m.Body != nil
}

// FindType looks a declared or external type up by full name
func (mod *Module) FindType(fullName string) *Type {
	for _, t := range mod.Types {
		if t.FullName() == fullName {
			return t
		}
	}
	for _, t := range mod.Externals {
		if t.FullName() == fullName {
			return t
		}
	}
	return nil
}

// Methods enumerates every method declared by the module that has a body,
// in declaration order.
func (mod *Module) Methods() []*Method {
	var out []*Method
	for _, t := range mod.Types {
		for _, m := range t.Methods {
			if m.HasBody() {
				out = append(out, m)
			}
		}
	}
	return out
}

// FindReference returns the reference with the given component name
func (mod *Module) FindReference(name string) *Reference {
	for _, r := range mod.References {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// RemoveReference drops the reference to the named component. It reports
// whether such a reference existed.
func (mod *Module) RemoveReference(name string) bool {
	for i, r := range mod.References {
		if r.Name == name {
			mod.References = append(mod.References[:i], mod.References[i+1:]...)
			return true
		}
	}
	return false
}
