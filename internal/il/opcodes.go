// Package il models compiled method bodies as editable instruction streams.
package il

import "fmt"

// Opcode represents a single instruction of the stack machine
type Opcode byte

const (
	OP_NOP Opcode = iota // No operation

	// Arguments and locals
	OP_LDARG  // Push argument by index
	OP_LDARGA // Push argument address by index
	OP_STARG  // Store top of stack into argument
	OP_LDLOC  // Push local variable by index
	OP_LDLOCA // Push local variable address by index
	OP_STLOC  // Store top of stack into local

	// Constants
	OP_LDNULL // Push null reference
	OP_LDSTR  // Push string literal
	OP_LDC_I4 // Push 32-bit integer

	// Fields
	OP_LDFLD   // Pop object, push instance field
	OP_LDFLDA  // Pop object, push instance field address
	OP_STFLD   // Pop object and value, store instance field
	OP_LDSFLD  // Push static field
	OP_LDSFLDA // Push static field address
	OP_STSFLD  // Pop value, store static field

	// Method pointers and tokens
	OP_LDFTN     // Push method pointer
	OP_LDVIRTFTN // Pop object, push virtual method pointer
	OP_LDTOKEN   // Push metadata token handle

	// Calls
	OP_CALL     // Call method
	OP_CALLVIRT // Call method through virtual dispatch
	OP_NEWOBJ   // Allocate object and call constructor

	// Conversions
	OP_BOX       // Box value type
	OP_UNBOX_ANY // Unbox to value type
	OP_CASTCLASS // Checked reference cast

	// Stack manipulation
	OP_DUP // Duplicate top of stack
	OP_POP // Discard top of stack

	// Control flow
	OP_BR      // Unconditional branch
	OP_BRTRUE  // Branch if top of stack is true/non-null
	OP_BRFALSE // Branch if top of stack is false/null
	OP_RET     // Return from method

	opcodeCount
)

// OpcodeNames maps opcodes to their mnemonics (for disassembly and module files)
var OpcodeNames = map[Opcode]string{
	OP_NOP: "nop",

	OP_LDARG:  "ldarg",
	OP_LDARGA: "ldarga",
	OP_STARG:  "starg",
	OP_LDLOC:  "ldloc",
	OP_LDLOCA: "ldloca",
	OP_STLOC:  "stloc",

	OP_LDNULL: "ldnull",
	OP_LDSTR:  "ldstr",
	OP_LDC_I4: "ldc.i4",

	OP_LDFLD:   "ldfld",
	OP_LDFLDA:  "ldflda",
	OP_STFLD:   "stfld",
	OP_LDSFLD:  "ldsfld",
	OP_LDSFLDA: "ldsflda",
	OP_STSFLD:  "stsfld",

	OP_LDFTN:     "ldftn",
	OP_LDVIRTFTN: "ldvirtftn",
	OP_LDTOKEN:   "ldtoken",

	OP_CALL:     "call",
	OP_CALLVIRT: "callvirt",
	OP_NEWOBJ:   "newobj",

	OP_BOX:       "box",
	OP_UNBOX_ANY: "unbox.any",
	OP_CASTCLASS: "castclass",

	OP_DUP: "dup",
	OP_POP: "pop",

	OP_BR:      "br",
	OP_BRTRUE:  "brtrue",
	OP_BRFALSE: "brfalse",
	OP_RET:     "ret",
}

var opcodesByName = func() map[string]Opcode {
	m := make(map[string]Opcode, len(OpcodeNames))
	for op, name := range OpcodeNames {
		m[name] = op
	}
	return m
}()

func (op Opcode) String() string {
	if name, ok := OpcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("op(%d)", byte(op))
}

// ParseOpcode resolves a mnemonic such as "ldfld" to its opcode.
func ParseOpcode(name string) (Opcode, error) {
	if op, ok := opcodesByName[name]; ok {
		return op, nil
	}
	return 0, fmt.Errorf("unknown opcode %q", name)
}

// IsCallFamily reports whether op references a method as its operand in a way
// that keeps the method alive (direct calls, construction and method pointers).
func IsCallFamily(op Opcode) bool {
	switch op {
	case OP_CALL, OP_CALLVIRT, OP_NEWOBJ, OP_LDFTN, OP_LDVIRTFTN:
		return true
	}
	return false
}

// IsLoadFieldFamily reports whether op reads a field (or its address).
func IsLoadFieldFamily(op Opcode) bool {
	switch op {
	case OP_LDFLD, OP_LDFLDA, OP_LDSFLD, OP_LDSFLDA:
		return true
	}
	return false
}

// IsBranch reports whether op carries a branch target operand.
func IsBranch(op Opcode) bool {
	switch op {
	case OP_BR, OP_BRTRUE, OP_BRFALSE:
		return true
	}
	return false
}

// StackEffect returns how many values the instruction pops and pushes.
// OP_RET is reported as (0, 0); its effect depends on the enclosing method.
func StackEffect(in *Instruction) (pop, push int) {
	switch in.OpCode {
	case OP_NOP, OP_BR, OP_RET:
		return 0, 0
	case OP_LDARG, OP_LDARGA, OP_LDLOC, OP_LDLOCA, OP_LDNULL, OP_LDSTR, OP_LDC_I4,
		OP_LDSFLD, OP_LDSFLDA, OP_LDFTN, OP_LDTOKEN:
		return 0, 1
	case OP_STARG, OP_STLOC, OP_STSFLD, OP_POP, OP_BRTRUE, OP_BRFALSE:
		return 1, 0
	case OP_LDFLD, OP_LDFLDA, OP_LDVIRTFTN, OP_BOX, OP_UNBOX_ANY, OP_CASTCLASS:
		return 1, 1
	case OP_STFLD:
		return 2, 0
	case OP_DUP:
		return 1, 2
	case OP_CALL, OP_CALLVIRT:
		m := in.Operand.Method
		if m == nil {
			return 0, 0
		}
		pop = len(m.Params)
		if !m.Static {
			pop++
		}
		if m.Returns() {
			push = 1
		}
		return pop, push
	case OP_NEWOBJ:
		m := in.Operand.Method
		if m == nil {
			return 0, 1
		}
		return len(m.Params), 1
	}
	return 0, 0
}
