package patterns

import (
	"strings"

	"github.com/funvibe/nameof/internal/il"
)

// Marker identifies the method whose calls are rewritten
type Marker struct {
	Type   string // full name of the declaring type, e.g. "Name"
	Method string // e.g. "Of"
}

// IsMarker reports whether m is (an overload of) the marker method
func (mk Marker) IsMarker(m *il.Method) bool {
	return m != nil && m.DeclaringType != nil &&
		m.Name == mk.Method && m.DeclaringType.FullName() == mk.Type
}

// IsMarkerCall reports whether in calls the marker method
func (mk Marker) IsMarkerCall(in *il.Instruction) bool {
	return in.OpCode == il.OP_CALL && mk.IsMarker(in.Operand.Method)
}

// IsCompilerGenerated reports whether a member name was synthesized by the
// compiler ("<Main>b__0_0", "<>c", "<x>5__1").
func IsCompilerGenerated(name string) bool {
	return strings.HasPrefix(name, "<")
}

func (mk Marker) markerCall() Predicate {
	return func(_ Context, in *il.Instruction) bool {
		return mk.IsMarker(in.Operand.Method)
	}
}

// branchTarget returns the live instruction a branch jumps to, or nil
func branchTarget(ctx Context, in *il.Instruction) *il.Instruction {
	if in.Operand.Kind != il.OperandTarget || !ctx.Body().Has(in.Operand.Target) {
		return nil
	}
	return ctx.Body().At(in.Operand.Target)
}

// branchesToMarkerCall matches the cache test that skips delegate creation
// and lands on the marker call itself.
func (mk Marker) branchesToMarkerCall() Predicate {
	return func(ctx Context, in *il.Instruction) bool {
		t := branchTarget(ctx, in)
		return t != nil && mk.IsMarkerCall(t)
	}
}

// branchesToCacheLoad matches the legacy cache test, which lands on the
// reload of the cache field.
func branchesToCacheLoad(ctx Context, in *il.Instruction) bool {
	t := branchTarget(ctx, in)
	return t != nil && t.OpCode == il.OP_LDSFLD && delegateCache(ctx, t)
}

func isThis(ctx Context, in *il.Instruction) bool {
	return in.Operand.Int == 0 && !ctx.Method().Static
}

func notThis(ctx Context, in *il.Instruction) bool {
	return !isThis(ctx, in)
}

func getter(static bool) Predicate {
	return func(_ Context, in *il.Instruction) bool {
		m := in.Operand.Method
		return m != nil && m.Static == static && len(m.Params) == 0 &&
			strings.HasPrefix(m.Name, "get_") && m.Returns()
	}
}

func closure(_ Context, in *il.Instruction) bool {
	m := in.Operand.Method
	return m != nil && IsCompilerGenerated(m.Name)
}

func notClosure(_ Context, in *il.Instruction) bool {
	m := in.Operand.Method
	return m != nil && !IsCompilerGenerated(m.Name)
}

func delegateCtor(_ Context, in *il.Instruction) bool {
	m := in.Operand.Method
	return m != nil && m.Name == ".ctor" && len(m.Params) == 2
}

// delegateCache matches the static fields compilers use to cache delegates
// for non-capturing lambdas ("<>9__0_0", "CS$<>9__CachedAnonymousMethodDelegate1").
func delegateCache(_ Context, in *il.Instruction) bool {
	f := in.Operand.Field
	return f != nil && f.Static && strings.Contains(f.Name, "<>9__")
}

// closureSingleton matches the "<>9" instance of a closure container type
func closureSingleton(_ Context, in *il.Instruction) bool {
	f := in.Operand.Field
	return f != nil && f.Static && f.Name == "<>9"
}

// hoistedThis matches the display-class field holding the enclosing "this"
func hoistedThis(_ Context, in *il.Instruction) bool {
	f := in.Operand.Field
	return f != nil && strings.HasSuffix(f.Name, "__this")
}

func typeFromHandle(_ Context, in *il.Instruction) bool {
	m := in.Operand.Method
	return m != nil && m.Static && m.Name == "GetTypeFromHandle" &&
		m.DeclaringType != nil && m.DeclaringType.FullName() == "System.Type"
}

func enumBox(_ Context, in *il.Instruction) bool {
	return in.Operand.Type != nil && in.Operand.Type.IsEnum
}
