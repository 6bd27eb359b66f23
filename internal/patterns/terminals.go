package patterns

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/funvibe/nameof/internal/il"
)

// TerminalKind selects how the final name is extracted from the instruction
// bound to a template's terminal element.
type TerminalKind byte

const (
	TermNone    TerminalKind = iota
	TermLocal                // ldloc: debug name of the local slot
	TermParam                // ldarg: parameter name
	TermField                // ldfld/ldsfld: field name, unwrapping "<name>" hoisting
	TermGetter               // call get_X: property name X
	TermMethod               // ldftn/ldvirtftn: method name
	TermType                 // ldtoken: type name
	TermEnum                 // ldc.i4 followed by box Enum: member with that value
	TermClosure              // ldftn of a compiler-generated closure: name from its body
	termKindCount
)

var termNames = [termKindCount]string{
	TermNone:    "none",
	TermLocal:   "local",
	TermParam:   "param",
	TermField:   "field",
	TermGetter:  "getter",
	TermMethod:  "method",
	TermType:    "type",
	TermEnum:    "enum",
	TermClosure: "closure",
}

func (k TerminalKind) String() string {
	if k < termKindCount {
		return termNames[k]
	}
	return fmt.Sprintf("terminal(%d)", byte(k))
}

// ErrNoName is returned by terminals that cannot produce a name
var ErrNoName = errors.New("terminal did not yield a name")

// TerminalFunc extracts a name from the instruction at id
type TerminalFunc func(ctx Context, id il.InstrID) (string, error)

var terminals = [termKindCount]TerminalFunc{
	TermLocal:   localName,
	TermParam:   paramName,
	TermField:   fieldName,
	TermGetter:  getterName,
	TermMethod:  methodName,
	TermType:    typeName,
	TermEnum:    enumMemberName,
	TermClosure: closureName,
}

// Extract runs the terminal behaviour selected by k
func (k TerminalKind) Extract(ctx Context, id il.InstrID) (string, error) {
	if k == TermNone || k >= termKindCount {
		return "", fmt.Errorf("no terminal behaviour for %s", k)
	}
	return terminals[k](ctx, id)
}

// ActionKind selects a side effect fired when an element matches
type ActionKind byte

const (
	ActNone ActionKind = iota
	// ActCandidateField registers the instruction's field operand as a
	// removal candidate (delegate cache fields written only by the matched run).
	ActCandidateField
	actionKindCount
)

var actions = [actionKindCount]func(ctx Context, in *il.Instruction){
	ActCandidateField: func(ctx Context, in *il.Instruction) {
		if in.Operand.Field != nil {
			ctx.AddCandidateField(in.Operand.Field)
		}
	},
}

// Apply fires the action selected by k
func (k ActionKind) Apply(ctx Context, in *il.Instruction) {
	if k == ActNone || k >= actionKindCount {
		return
	}
	actions[k](ctx, in)
}

var hoistedName = regexp.MustCompile(`<(?P<name>[^>]+)>`)

// MemberName returns the source-level name behind a compiler-generated
// member name: "<count>5__2" yields "count". Names without a bracket group
// are returned unchanged.
func MemberName(raw string) string {
	m := hoistedName.FindStringSubmatch(raw)
	if m == nil {
		return raw
	}
	return m[hoistedName.SubexpIndex("name")]
}

func localName(ctx Context, id il.InstrID) (string, error) {
	in := ctx.Body().At(id)
	idx := int(in.Operand.Int)
	locals := ctx.Body().Locals
	if idx < 0 || idx >= len(locals) {
		return "", fmt.Errorf("local slot %d out of range: %w", idx, ErrNoName)
	}
	if locals[idx].Name == "" {
		return "", fmt.Errorf("local slot %d has no debug name: %w", idx, ErrNoName)
	}
	return locals[idx].Name, nil
}

func paramName(ctx Context, id il.InstrID) (string, error) {
	in := ctx.Body().At(id)
	m := ctx.Method()
	idx := int(in.Operand.Int)
	if !m.Static {
		idx--
	}
	if idx < 0 || idx >= len(m.Params) {
		return "", fmt.Errorf("argument %d of %s: %w", in.Operand.Int, m.Name, ErrNoName)
	}
	return m.Params[idx].Name, nil
}

func fieldName(ctx Context, id il.InstrID) (string, error) {
	f := ctx.Body().At(id).Operand.Field
	if f == nil {
		return "", ErrNoName
	}
	return MemberName(f.Name), nil
}

func getterName(ctx Context, id il.InstrID) (string, error) {
	m := ctx.Body().At(id).Operand.Method
	if m == nil || !strings.HasPrefix(m.Name, "get_") {
		return "", ErrNoName
	}
	return strings.TrimPrefix(m.Name, "get_"), nil
}

func methodName(ctx Context, id il.InstrID) (string, error) {
	m := ctx.Body().At(id).Operand.Method
	if m == nil {
		return "", ErrNoName
	}
	return m.Name, nil
}

func typeName(ctx Context, id il.InstrID) (string, error) {
	t := ctx.Body().At(id).Operand.Type
	if t == nil {
		return "", ErrNoName
	}
	name := t.Name
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.IndexByte(name, '`'); i >= 0 {
		name = name[:i]
	}
	return name, nil
}

func enumMemberName(ctx Context, id il.InstrID) (string, error) {
	body := ctx.Body()
	value := body.At(id).Operand.Int
	next := body.Next(id)
	if next == il.NoInstr {
		return "", ErrNoName
	}
	enum := body.At(next).Operand.Type
	if enum == nil || !enum.IsEnum {
		return "", ErrNoName
	}
	for _, f := range enum.Fields {
		if f.Static && f.Constant != nil && *f.Constant == value {
			return f.Name, nil
		}
	}
	return "", fmt.Errorf("%s has no member with value %d: %w", enum.FullName(), value, ErrNoName)
}

func closureName(ctx Context, id il.InstrID) (string, error) {
	m := ctx.Body().At(id).Operand.Method
	if m == nil {
		return "", ErrNoName
	}
	return ctx.AnalyzeClosure(m)
}
