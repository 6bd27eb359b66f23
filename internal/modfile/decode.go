package modfile

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/funvibe/nameof/internal/il"

	"github.com/google/uuid"
)

// resolver turns reference strings back into declarations
type resolver struct {
	types   map[string]*il.Type
	methods map[string]*il.Method
	fields  map[string]*il.Field
}

type pendingBody struct {
	method *il.Method
	decl   *BodyDecl
}

// ToModule builds the in-memory module described by f. Declarations are
// created first so that instructions may refer to members declared later.
func ToModule(f *File) (*il.Module, error) {
	if f.Module == "" {
		return nil, errors.New("module name is required")
	}
	mod := &il.Module{Name: f.Module}
	if f.Mvid != "" {
		id, err := uuid.Parse(f.Mvid)
		if err != nil {
			return nil, fmt.Errorf("invalid mvid %q: %w", f.Mvid, err)
		}
		mod.Mvid = id
	} else {
		mod.Mvid = uuid.New()
	}
	for _, ref := range f.References {
		if ref.Name == "" {
			return nil, errors.New("reference without a name")
		}
		mod.References = append(mod.References, &il.Reference{Name: ref.Name, Version: ref.Version})
	}

	r := &resolver{
		types:   make(map[string]*il.Type),
		methods: make(map[string]*il.Method),
		fields:  make(map[string]*il.Field),
	}

	var bodies []pendingBody
	var err error
	if mod.Externals, err = r.declare(f.Externals, true, &bodies); err != nil {
		return nil, err
	}
	if mod.Types, err = r.declare(f.Types, false, &bodies); err != nil {
		return nil, err
	}

	for _, p := range bodies {
		if err := r.body(p.method, p.decl); err != nil {
			return nil, fmt.Errorf("%s: %w", p.method.FullName(), err)
		}
	}
	return mod, nil
}

func (r *resolver) declare(decls []TypeDecl, external bool, bodies *[]pendingBody) ([]*il.Type, error) {
	var out []*il.Type
	for _, td := range decls {
		t := &il.Type{Namespace: td.Namespace, Name: td.Name, IsEnum: td.Enum, Reference: td.Reference}
		if td.Name == "" {
			return nil, errors.New("type without a name")
		}
		if _, dup := r.types[t.FullName()]; dup {
			return nil, fmt.Errorf("type %s declared twice", t.FullName())
		}
		if external && t.Reference == "" {
			return nil, fmt.Errorf("external type %s has no reference", t.FullName())
		}
		r.types[t.FullName()] = t

		for _, fd := range td.Fields {
			fld := t.AddField(&il.Field{Name: fd.Name, FieldType: fd.Type, Static: fd.Static, Constant: fd.Const})
			if err := register(r.fields, fd.ID, fld); err != nil {
				return nil, err
			}
		}
		for _, md := range td.Methods {
			m := &il.Method{Name: md.Name, Static: md.Static, ReturnType: md.Returns}
			for _, p := range md.Params {
				m.Params = append(m.Params, il.Param{Name: p.Name, Type: p.Type})
			}
			t.AddMethod(m)
			if err := register(r.methods, md.ID, m); err != nil {
				return nil, err
			}
			if md.Body == nil {
				continue
			}
			if external {
				return nil, fmt.Errorf("external method %s has a body", m.FullName())
			}
			m.Body = il.NewBody()
			*bodies = append(*bodies, pendingBody{method: m, decl: md.Body})
		}
		out = append(out, t)
	}
	return out, nil
}

func register[T any](ids map[string]T, id string, v T) error {
	if id == "" {
		return nil
	}
	if _, dup := ids[id]; dup {
		return fmt.Errorf("member id %q used twice", id)
	}
	ids[id] = v
	return nil
}

func (r *resolver) body(m *il.Method, decl *BodyDecl) error {
	b := m.Body
	for _, l := range decl.Locals {
		b.Locals = append(b.Locals, il.Local{Name: l.Name, Type: l.Type})
	}

	labels := make(map[string]il.InstrID)
	ids := make([]il.InstrID, len(decl.Code))
	doc := ""
	for i, in := range decl.Code {
		op, err := il.ParseOpcode(in.Op)
		if err != nil {
			return fmt.Errorf("instruction %d: %w", i, err)
		}
		operand, err := r.operand(op, in)
		if err != nil {
			return fmt.Errorf("instruction %d (%s): %w", i, in.Op, err)
		}

		// A line without a document continues the previous one.
		var loc *il.SourceLoc
		if in.Doc != "" {
			doc = in.Doc
		}
		if in.Line > 0 {
			loc = &il.SourceLoc{Document: doc, Line: in.Line}
		}
		ids[i] = b.EmitAt(op, operand, loc)

		if in.Label != "" {
			if _, dup := labels[in.Label]; dup {
				return fmt.Errorf("label %q defined twice", in.Label)
			}
			labels[in.Label] = ids[i]
		}
	}

	for i, in := range decl.Code {
		if in.Target == "" {
			continue
		}
		target, ok := labels[in.Target]
		if !ok {
			return fmt.Errorf("instruction %d: undefined label %q", i, in.Target)
		}
		b.At(ids[i]).Operand = il.TargetOperand(target)
	}
	return nil
}

func (r *resolver) operand(op il.Opcode, in Instr) (il.Operand, error) {
	set := 0
	if in.Int != nil {
		set++
	}
	if in.Str != nil {
		set++
	}
	for _, s := range []string{in.Field, in.Method, in.Type, in.Target} {
		if s != "" {
			set++
		}
	}
	if set > 1 {
		return il.Operand{}, errors.New("more than one operand")
	}
	if il.IsBranch(op) != (in.Target != "") {
		return il.Operand{}, errors.New("branches, and only branches, take a target label")
	}

	switch {
	case in.Int != nil:
		return il.IntOperand(*in.Int), nil
	case in.Str != nil:
		return il.StringOperand(*in.Str), nil
	case in.Field != "":
		f, err := r.field(in.Field)
		if err != nil {
			return il.Operand{}, err
		}
		return il.FieldOperand(f), nil
	case in.Method != "":
		m, err := r.method(in.Method)
		if err != nil {
			return il.Operand{}, err
		}
		return il.MethodOperand(m), nil
	case in.Type != "":
		t, ok := r.types[in.Type]
		if !ok {
			return il.Operand{}, fmt.Errorf("unknown type %q", in.Type)
		}
		return il.TypeOperand(t), nil
	case in.Target != "":
		// resolved once all labels are known
		return il.TargetOperand(il.NoInstr), nil
	}
	return il.NoOperand(), nil
}

func (r *resolver) owner(ref string) (*il.Type, string, error) {
	typeName, member, ok := strings.Cut(ref, "::")
	if !ok {
		return nil, "", fmt.Errorf("malformed member reference %q", ref)
	}
	t, ok := r.types[typeName]
	if !ok {
		return nil, "", fmt.Errorf("unknown type %q in %q", typeName, ref)
	}
	return t, member, nil
}

func (r *resolver) field(ref string) (*il.Field, error) {
	if id, ok := strings.CutPrefix(ref, "@"); ok {
		f, ok := r.fields[id]
		if !ok {
			return nil, fmt.Errorf("unknown field id %q", id)
		}
		return f, nil
	}
	t, name, err := r.owner(ref)
	if err != nil {
		return nil, err
	}
	var found *il.Field
	for _, f := range t.Fields {
		if f.Name != name {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("ambiguous field %q, refer to it by id", ref)
		}
		found = f
	}
	if found == nil {
		return nil, fmt.Errorf("unknown field %q", ref)
	}
	return found, nil
}

func (r *resolver) method(ref string) (*il.Method, error) {
	if id, ok := strings.CutPrefix(ref, "@"); ok {
		m, ok := r.methods[id]
		if !ok {
			return nil, fmt.Errorf("unknown method id %q", id)
		}
		return m, nil
	}
	t, member, err := r.owner(ref)
	if err != nil {
		return nil, err
	}

	name, sig, hasSig := strings.Cut(member, "(")
	var params []string
	if hasSig {
		inner, ok := strings.CutSuffix(sig, ")")
		if !ok {
			return nil, fmt.Errorf("malformed signature in %q", ref)
		}
		if strings.TrimSpace(inner) != "" {
			for _, p := range strings.Split(inner, ",") {
				params = append(params, strings.TrimSpace(p))
			}
		}
	}

	var found []*il.Method
	for _, m := range t.Methods {
		if m.Name != name {
			continue
		}
		if hasSig && !slices.Equal(paramTypes(m), params) {
			continue
		}
		found = append(found, m)
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("unknown method %q", ref)
	case 1:
		return found[0], nil
	}
	return nil, fmt.Errorf("ambiguous method %q, refer to it by signature or id", ref)
}

func paramTypes(m *il.Method) []string {
	out := make([]string, len(m.Params))
	for i, p := range m.Params {
		out[i] = p.Type
	}
	return out
}
