package modfile

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/funvibe/nameof/internal/il"
)

const samplePath = "testdata/sample.nmod.yaml"

func loadSample(t *testing.T) *il.Module {
	t.Helper()
	mod, err := Load(samplePath)
	if err != nil {
		t.Fatalf("failed to load sample: %v", err)
	}
	return mod
}

func TestLoadSample(t *testing.T) {
	mod := loadSample(t)

	if mod.Name != "Sample" {
		t.Errorf("wrong module name %q", mod.Name)
	}
	if mod.Mvid.String() != "0b8d7f8e-3a52-4c1e-9a57-2f4e0c6d1b90" {
		t.Errorf("wrong mvid %s", mod.Mvid)
	}
	if len(mod.References) != 2 || len(mod.Externals) != 4 || len(mod.Types) != 2 {
		t.Fatalf("unexpected shape: %d refs, %d externals, %d types",
			len(mod.References), len(mod.Externals), len(mod.Types))
	}

	name := mod.FindType("Name")
	if name == nil || name.Reference != "Name.Of" || len(name.Methods) != 2 {
		t.Fatalf("marker type not loaded correctly: %+v", name)
	}

	prog := mod.FindType("Sample.Program")
	var main *il.Method
	for _, m := range prog.Methods {
		if m.Name == "Main" {
			main = m
		}
	}
	if main == nil || main.Body == nil {
		t.Fatalf("Main not loaded")
	}
	b := main.Body
	if b.Len() != 23 {
		t.Errorf("expected 23 instructions, got %d", b.Len())
	}
	if len(b.Locals) != 2 || b.Locals[0].Name != "count" {
		t.Errorf("locals not loaded: %+v", b.Locals)
	}

	// the overload is picked by signature
	third := b.At(b.IDs()[2])
	if third.Operand.Method != name.Methods[0] {
		t.Errorf("Name::Of(object) resolved to %v", third.Operand.Method)
	}

	var brtrue, call il.InstrID = il.NoInstr, il.NoInstr
	for _, id := range b.IDs() {
		in := b.At(id)
		switch {
		case in.OpCode == il.OP_BRTRUE:
			brtrue = id
		case in.OpCode == il.OP_CALL && in.Operand.Method == name.Methods[1]:
			call = id
		}
	}
	if brtrue == il.NoInstr || b.At(brtrue).Operand.Target != call {
		t.Errorf("branch label not resolved to the lazy marker call")
	}

	// documents carry over to later lines
	loc := b.At(b.IDs()[4]).Loc
	if loc == nil || loc.Document != "Program.cs" || loc.Line != 10 {
		t.Errorf("wrong location %v", loc)
	}
	if b.At(b.IDs()[1]).Loc != nil {
		t.Errorf("instruction without a line got a location")
	}
}

func TestRoundTrip(t *testing.T) {
	for _, format := range []Format{Text, Binary} {
		t.Run(format.String(), func(t *testing.T) {
			mod := loadSample(t)
			want := il.DisassembleModule(mod)

			data, err := Encode(mod, format)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if got := IsBinary(data); got != (format == Binary) {
				t.Errorf("IsBinary=%v for %s", got, format)
			}
			back, err := Decode(data)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if back.Mvid != mod.Mvid {
				t.Errorf("mvid changed: %s != %s", back.Mvid, mod.Mvid)
			}
			if got := il.DisassembleModule(back); got != want {
				t.Errorf("round trip mismatch.\nwant:\n%s\ngot:\n%s", want, got)
			}
		})
	}
}

func TestSaveRefreshesMvid(t *testing.T) {
	mod := loadSample(t)
	before := mod.Mvid

	dir := t.TempDir()
	for _, name := range []string{"out.nmod", "out.nmod.yaml"} {
		path := filepath.Join(dir, name)
		n, err := Save(path, mod)
		if err != nil {
			t.Fatalf("Save %s failed: %v", name, err)
		}
		if n == 0 {
			t.Errorf("Save %s reported 0 bytes", name)
		}
		back, err := Load(path)
		if err != nil {
			t.Fatalf("Load %s failed: %v", name, err)
		}
		if back.Mvid == before {
			t.Errorf("%s kept the old mvid", name)
		}
		if back.Mvid != mod.Mvid {
			t.Errorf("%s: saved mvid %s, module has %s", name, back.Mvid, mod.Mvid)
		}
	}
}

func TestDuplicateMembersGetIDs(t *testing.T) {
	mod := il.NewModule("Twins")
	c := &il.Type{Namespace: "Sample", Name: "Program/<>c"}
	mod.Types = append(mod.Types, c)
	a := c.AddMethod(&il.Method{Name: "<Run>b__0_0", ReturnType: "object", Body: il.NewBody()})
	b := c.AddMethod(&il.Method{Name: "<Run>b__0_0", ReturnType: "object", Body: il.NewBody()})
	fa := c.AddField(&il.Field{Name: "<>9__0_0", Static: true})
	fb := c.AddField(&il.Field{Name: "<>9__0_0", Static: true})
	a.Body.Emit(il.OP_LDSFLD, il.FieldOperand(fb))
	a.Body.Emit(il.OP_RET, il.NoOperand())
	b.Body.Emit(il.OP_LDNULL, il.NoOperand())
	b.Body.Emit(il.OP_LDFTN, il.MethodOperand(a))
	b.Body.Emit(il.OP_STSFLD, il.FieldOperand(fa))
	b.Body.Emit(il.OP_RET, il.NoOperand())

	data, err := Encode(mod, Text)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !strings.Contains(string(data), "@m1") || !strings.Contains(string(data), "@f2") {
		t.Errorf("expected id reference in:\n%s", data)
	}

	back, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	bc := back.Types[0]
	ba, bb := bc.Methods[0], bc.Methods[1]
	if got := ba.Body.At(ba.Body.First()).Operand.Field; got != bc.Fields[1] {
		t.Errorf("field identity lost")
	}
	ftn := bb.Body.At(bb.Body.Next(bb.Body.First())).Operand.Method
	if ftn != ba {
		t.Errorf("method identity lost")
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "no module name",
			yaml: "types: []\n",
			want: "module name is required",
		},
		{
			name: "unknown key",
			yaml: "module: M\nbogus: 1\n",
			want: "bogus",
		},
		{
			name: "unknown opcode",
			yaml: `module: M
types:
  - name: T
    methods:
      - name: Run
        body:
          code:
            - op: jmp
`,
			want: "jmp",
		},
		{
			name: "undefined label",
			yaml: `module: M
types:
  - name: T
    methods:
      - name: Run
        body:
          code:
            - op: br
              target: nowhere
`,
			want: `undefined label "nowhere"`,
		},
		{
			name: "two operands",
			yaml: `module: M
types:
  - name: T
    methods:
      - name: Run
        body:
          code:
            - op: ldc.i4
              int: 1
              str: one
`,
			want: "more than one operand",
		},
		{
			name: "ambiguous overload",
			yaml: `module: M
types:
  - name: T
    methods:
      - name: F
        params: [{type: int32}]
      - name: F
        params: [{type: string}]
      - name: Run
        body:
          code:
            - op: call
              method: T::F
`,
			want: "ambiguous method",
		},
		{
			name: "unknown type",
			yaml: `module: M
types:
  - name: T
    methods:
      - name: Run
        body:
          code:
            - op: ldtoken
              type: Missing
`,
			want: `unknown type "Missing"`,
		},
		{
			name: "external with body",
			yaml: `module: M
externals:
  - name: X
    reference: Lib
    methods:
      - name: F
        body:
          code: []
`,
			want: "has a body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.yaml))
			if err == nil {
				t.Fatalf("expected error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not contain %q", err, tt.want)
			}
		})
	}
}

func TestDecodeBinaryErrors(t *testing.T) {
	if _, err := DecodeBinary([]byte("NOF")); err == nil {
		t.Errorf("short data accepted")
	}
	if _, err := DecodeBinary([]byte("XXXX\x01")); err == nil {
		t.Errorf("bad magic accepted")
	}
	_, err := DecodeBinary([]byte("NOFM\x07"))
	if err == nil || !strings.Contains(err.Error(), "unsupported module version: 7") {
		t.Errorf("unexpected error for future version: %v", err)
	}
}

func TestFormatFor(t *testing.T) {
	tests := map[string]Format{
		"a.nmod":      Binary,
		"a.nmod.yaml": Text,
		"a.yml":       Text,
		"a":           Text,
	}
	for path, want := range tests {
		if got := FormatFor(path); got != want {
			t.Errorf("FormatFor(%q) = %s, want %s", path, got, want)
		}
	}
}
