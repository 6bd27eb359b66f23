package weaver

import (
	"testing"

	"github.com/funvibe/nameof/internal/config"
	"github.com/funvibe/nameof/internal/il"
)

// fixture is a small module shaped like compiler output referencing the
// marker component.
type fixture struct {
	mod *il.Module

	of             *il.Method // Name::Of(object):string
	ofLazy         *il.Method // Name::Of(System.Func`1):string
	other          *il.Method // Name::Other():string, not a marker
	funcCtor       *il.Method // System.Func`1::.ctor(object, native int)
	typeFromHandle *il.Method
	int32          *il.Type

	prog *il.Type
}

func newFixture() *fixture {
	mod := il.NewModule("Sample")
	mod.References = []*il.Reference{
		{Name: "Name.Of", Version: "1.0.0"},
		{Name: "System.Runtime", Version: "8.0.0"},
	}

	f := &fixture{mod: mod}

	name := &il.Type{Name: "Name", Reference: "Name.Of"}
	f.of = name.AddMethod(&il.Method{Name: "Of", Static: true,
		Params: []il.Param{{Name: "obj", Type: "object"}}, ReturnType: "string"})
	f.ofLazy = name.AddMethod(&il.Method{Name: "Of", Static: true,
		Params: []il.Param{{Name: "expression", Type: "System.Func`1"}}, ReturnType: "string"})
	f.other = name.AddMethod(&il.Method{Name: "Other", Static: true, ReturnType: "string"})

	fn := &il.Type{Namespace: "System", Name: "Func`1", Reference: "System.Runtime"}
	f.funcCtor = fn.AddMethod(&il.Method{Name: ".ctor",
		Params: []il.Param{{Name: "object", Type: "object"}, {Name: "method", Type: "native int"}}, ReturnType: "void"})

	sysType := &il.Type{Namespace: "System", Name: "Type", Reference: "System.Runtime"}
	f.typeFromHandle = sysType.AddMethod(&il.Method{Name: "GetTypeFromHandle", Static: true,
		Params: []il.Param{{Name: "handle", Type: "System.RuntimeTypeHandle"}}, ReturnType: "System.Type"})

	f.int32 = &il.Type{Namespace: "System", Name: "Int32", Reference: "System.Runtime"}

	mod.Externals = []*il.Type{name, fn, sysType, f.int32}
	f.prog = f.addType("Sample", "Program")
	return f
}

func (f *fixture) addType(ns, name string) *il.Type {
	t := &il.Type{Namespace: ns, Name: name}
	f.mod.Types = append(f.mod.Types, t)
	return t
}

func (f *fixture) method(t *il.Type, name string, static bool, params ...il.Param) *il.Method {
	return t.AddMethod(&il.Method{Name: name, Static: static, Params: params, ReturnType: "void", Body: il.NewBody()})
}

// closure declares a compiler-generated lambda returning object on t
func (f *fixture) closure(t *il.Type, name string, static bool) *il.Method {
	m := f.method(t, name, static)
	m.ReturnType = "object"
	return m
}

// markerUse appends "pop; ret" after the marker call the caller emitted
func markerUse(b *il.Body) {
	b.Emit(il.OP_POP, il.NoOperand())
	b.Emit(il.OP_RET, il.NoOperand())
}

func newTestWeaver() *Weaver {
	return New(config.Default().Marker, nil)
}

func opsOf(b *il.Body) []il.Opcode {
	var ops []il.Opcode
	for _, id := range b.IDs() {
		ops = append(ops, b.At(id).OpCode)
	}
	return ops
}

func assertOps(t *testing.T, b *il.Body, want ...il.Opcode) {
	t.Helper()
	got := opsOf(b)
	if len(got) != len(want) {
		t.Fatalf("wrong body. got=%v, want=%v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("wrong body at %d. got=%v, want=%v", i, got, want)
		}
	}
}

func hasMethod(t *il.Type, m *il.Method) bool {
	for _, candidate := range t.Methods {
		if candidate == m {
			return true
		}
	}
	return false
}

func hasField(t *il.Type, f *il.Field) bool {
	for _, candidate := range t.Fields {
		if candidate == f {
			return true
		}
	}
	return false
}
