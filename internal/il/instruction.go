package il

import "fmt"

// OperandKind discriminates the Operand union
type OperandKind byte

const (
	OperandNone OperandKind = iota
	OperandInt
	OperandString
	OperandField
	OperandMethod
	OperandType
	OperandTarget
)

// Operand is the immediate argument of an instruction. Only the member
// selected by Kind is meaningful.
type Operand struct {
	Kind   OperandKind
	Int    int64
	Str    string
	Field  *Field
	Method *Method
	Type   *Type
	Target InstrID
}

func NoOperand() Operand { return Operand{Kind: OperandNone} }
func IntOperand(v int64) Operand { return Operand{Kind: OperandInt, Int: v} }
func StringOperand(s string) Operand { return Operand{Kind: OperandString, Str: s} }
func FieldOperand(f *Field) Operand { return Operand{Kind: OperandField, Field: f} }
func MethodOperand(m *Method) Operand { return Operand{Kind: OperandMethod, Method: m} }
func TypeOperand(t *Type) Operand { return Operand{Kind: OperandType, Type: t} }
func TargetOperand(id InstrID) Operand { return Operand{Kind: OperandTarget, Target: id} }

func (o Operand) String() string {
	switch o.Kind {
	case OperandInt:
		return fmt.Sprintf("%d", o.Int)
	case OperandString:
		return fmt.Sprintf("%q", o.Str)
	case OperandField:
		if o.Field == nil {
			return "<nil field>"
		}
		return o.Field.FullName()
	case OperandMethod:
		if o.Method == nil {
			return "<nil method>"
		}
		return o.Method.FullName()
	case OperandType:
		if o.Type == nil {
			return "<nil type>"
		}
		return o.Type.FullName()
	case OperandTarget:
		return fmt.Sprintf("-> #%d", o.Target)
	}
	return ""
}

// SourceLoc associates an instruction with a line of source code
type SourceLoc struct {
	Document string
	Line     int
}

func (l *SourceLoc) String() string {
	return fmt.Sprintf("%s - line %d", l.Document, l.Line)
}

// InstrID addresses an instruction inside its Body's arena. IDs stay valid
// for the lifetime of the body, including after removal.
type InstrID int32

// NoInstr marks the absence of an instruction (end of stream).
const NoInstr InstrID = -1

// Instruction is a single node of a method body's instruction stream
type Instruction struct {
	OpCode  Opcode
	Operand Operand
	Loc     *SourceLoc

	prev, next InstrID
	live       bool
}

// Live reports whether the instruction is still linked into its body.
func (in *Instruction) Live() bool { return in.live }

func (in *Instruction) String() string {
	if in.Operand.Kind == OperandNone {
		return in.OpCode.String()
	}
	return in.OpCode.String() + " " + in.Operand.String()
}
