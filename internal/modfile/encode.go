package modfile

import (
	"fmt"
	"strings"

	"github.com/funvibe/nameof/internal/il"

	"github.com/google/uuid"
)

// encoder names members for references. A member gets the shortest form
// that stays unambiguous on load; identical twins get generated ids.
type encoder struct {
	declared  map[*il.Type]bool
	methodRef map[*il.Method]string
	methodID  map[*il.Method]string
	fieldRef  map[*il.Field]string
	fieldID   map[*il.Field]string
}

// FromModule produces the document for mod. It fails when an instruction
// refers to a member of a type the module neither declares nor imports.
func FromModule(mod *il.Module) (*File, error) {
	e := &encoder{
		declared:  make(map[*il.Type]bool),
		methodRef: make(map[*il.Method]string),
		methodID:  make(map[*il.Method]string),
		fieldRef:  make(map[*il.Field]string),
		fieldID:   make(map[*il.Field]string),
	}
	for _, t := range mod.Externals {
		e.name(t)
	}
	for _, t := range mod.Types {
		e.name(t)
	}

	f := &File{Module: mod.Name}
	if mod.Mvid != uuid.Nil {
		f.Mvid = mod.Mvid.String()
	}
	for _, r := range mod.References {
		f.References = append(f.References, Reference{Name: r.Name, Version: r.Version})
	}
	for _, t := range mod.Externals {
		td, err := e.typeDecl(t)
		if err != nil {
			return nil, err
		}
		f.Externals = append(f.Externals, td)
	}
	for _, t := range mod.Types {
		td, err := e.typeDecl(t)
		if err != nil {
			return nil, err
		}
		f.Types = append(f.Types, td)
	}
	return f, nil
}

func signature(m *il.Method) string {
	return m.Name + "(" + strings.Join(paramTypes(m), ", ") + ")"
}

func (e *encoder) name(t *il.Type) {
	e.declared[t] = true
	prefix := t.FullName() + "::"

	byName := make(map[string]int)
	bySig := make(map[string]int)
	for _, m := range t.Methods {
		byName[m.Name]++
		bySig[signature(m)]++
	}
	for _, m := range t.Methods {
		switch {
		case byName[m.Name] == 1:
			e.methodRef[m] = prefix + m.Name
		case bySig[signature(m)] == 1:
			e.methodRef[m] = prefix + signature(m)
		default:
			id := fmt.Sprintf("m%d", len(e.methodID)+1)
			e.methodID[m] = id
			e.methodRef[m] = "@" + id
		}
	}

	fieldNames := make(map[string]int)
	for _, f := range t.Fields {
		fieldNames[f.Name]++
	}
	for _, f := range t.Fields {
		if fieldNames[f.Name] == 1 {
			e.fieldRef[f] = prefix + f.Name
			continue
		}
		id := fmt.Sprintf("f%d", len(e.fieldID)+1)
		e.fieldID[f] = id
		e.fieldRef[f] = "@" + id
	}
}

func (e *encoder) typeDecl(t *il.Type) (TypeDecl, error) {
	td := TypeDecl{Namespace: t.Namespace, Name: t.Name, Enum: t.IsEnum, Reference: t.Reference}
	for _, f := range t.Fields {
		td.Fields = append(td.Fields, FieldDecl{
			ID:     e.fieldID[f],
			Name:   f.Name,
			Type:   f.FieldType,
			Static: f.Static,
			Const:  f.Constant,
		})
	}
	for _, m := range t.Methods {
		md := MethodDecl{ID: e.methodID[m], Name: m.Name, Static: m.Static, Returns: m.ReturnType}
		for _, p := range m.Params {
			md.Params = append(md.Params, Param{Name: p.Name, Type: p.Type})
		}
		if m.Body != nil {
			bd, err := e.body(m.Body)
			if err != nil {
				return td, fmt.Errorf("%s: %w", m.FullName(), err)
			}
			md.Body = bd
		}
		td.Methods = append(td.Methods, md)
	}
	return td, nil
}

func label(b *il.Body, id il.InstrID) string {
	return fmt.Sprintf("IL_%04d", b.Offset(id))
}

func (e *encoder) body(b *il.Body) (*BodyDecl, error) {
	bd := &BodyDecl{Code: []Instr{}}
	for _, l := range b.Locals {
		bd.Locals = append(bd.Locals, Local{Name: l.Name, Type: l.Type})
	}

	targets := make(map[il.InstrID]bool)
	for id := b.First(); id != il.NoInstr; id = b.Next(id) {
		op := b.At(id).Operand
		if op.Kind != il.OperandTarget {
			continue
		}
		if op.Target == il.NoInstr || !b.At(op.Target).Live() {
			return nil, fmt.Errorf("branch at offset %d targets a removed instruction", b.Offset(id))
		}
		targets[op.Target] = true
	}

	doc := ""
	for id := b.First(); id != il.NoInstr; id = b.Next(id) {
		in := b.At(id)
		out := Instr{Op: in.OpCode.String()}
		if targets[id] {
			out.Label = label(b, id)
		}
		if in.Loc != nil {
			out.Line = in.Loc.Line
			if in.Loc.Document != doc {
				doc = in.Loc.Document
				out.Doc = doc
			}
		}
		if err := e.operand(b, in.Operand, &out); err != nil {
			return nil, fmt.Errorf("%s at offset %d: %w", in.OpCode, b.Offset(id), err)
		}
		bd.Code = append(bd.Code, out)
	}
	return bd, nil
}

func (e *encoder) operand(b *il.Body, op il.Operand, out *Instr) error {
	switch op.Kind {
	case il.OperandInt:
		v := op.Int
		out.Int = &v
	case il.OperandString:
		s := op.Str
		out.Str = &s
	case il.OperandField:
		if op.Field == nil {
			return fmt.Errorf("missing field operand")
		}
		ref, ok := e.fieldRef[op.Field]
		if !ok {
			return fmt.Errorf("field %s is not declared in the module", op.Field.FullName())
		}
		out.Field = ref
	case il.OperandMethod:
		if op.Method == nil {
			return fmt.Errorf("missing method operand")
		}
		ref, ok := e.methodRef[op.Method]
		if !ok {
			return fmt.Errorf("method %s is not declared in the module", op.Method.FullName())
		}
		out.Method = ref
	case il.OperandType:
		if op.Type == nil {
			return fmt.Errorf("missing type operand")
		}
		if !e.declared[op.Type] {
			return fmt.Errorf("type %s is not declared in the module", op.Type.FullName())
		}
		out.Type = op.Type.FullName()
	case il.OperandTarget:
		out.Target = label(b, op.Target)
	}
	return nil
}
