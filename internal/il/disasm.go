package il

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of a method body
func Disassemble(m *Method) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("== %s ==\n", m.FullName()))
	if m.Body == nil {
		sb.WriteString("   (no body)\n")
		return sb.String()
	}

	for i, l := range m.Body.Locals {
		name := l.Name
		if name == "" {
			name = "?"
		}
		sb.WriteString(fmt.Sprintf("   .local %d %s %s\n", i, l.Type, name))
	}

	lastLine := -1
	offset := 0
	for id := m.Body.First(); id != NoInstr; id = m.Body.Next(id) {
		disassembleInstruction(&sb, m.Body, id, offset, &lastLine)
		offset++
	}

	return sb.String()
}

// DisassembleModule lists every method body of a module
func DisassembleModule(mod *Module) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("module %s {%s}\n", mod.Name, mod.Mvid))
	for _, r := range mod.References {
		sb.WriteString(fmt.Sprintf(".reference %s %s\n", r.Name, r.Version))
	}
	for _, m := range mod.Methods() {
		sb.WriteString(Disassemble(m))
	}
	return sb.String()
}

func disassembleInstruction(sb *strings.Builder, b *Body, id InstrID, offset int, lastLine *int) {
	in := b.At(id)
	sb.WriteString(fmt.Sprintf("IL_%04d ", offset))

	// Print line number
	if in.Loc == nil || in.Loc.Line == *lastLine {
		sb.WriteString("   | ")
	} else {
		sb.WriteString(fmt.Sprintf("%4d ", in.Loc.Line))
		*lastLine = in.Loc.Line
	}

	switch in.Operand.Kind {
	case OperandNone:
		sb.WriteString(fmt.Sprintf("%s\n", in.OpCode))
	case OperandTarget:
		sb.WriteString(fmt.Sprintf("%-10s IL_%04d\n", in.OpCode, b.Offset(in.Operand.Target)))
	default:
		sb.WriteString(fmt.Sprintf("%-10s %s\n", in.OpCode, in.Operand))
	}
}
