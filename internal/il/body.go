package il

// Local describes a local variable slot. Name is empty when the module
// carries no debug names for it.
type Local struct {
	Name string
	Type string
}

// Body is the instruction stream of one method.
//
// Instructions live in an append-only arena and are chained through
// prev/next indices, so the rewriter can splice runs in and out without
// shifting the sequence or invalidating IDs held elsewhere.
type Body struct {
	Locals []Local

	instrs []Instruction
	head   InstrID
	tail   InstrID
	count  int
}

// NewBody creates an empty body
func NewBody() *Body {
	return &Body{
		instrs: make([]Instruction, 0, 32),
		head:   NoInstr,
		tail:   NoInstr,
	}
}

// At returns the instruction with the given ID. The pointer is only valid
// until the next insertion into this body.
func (b *Body) At(id InstrID) *Instruction {
	return &b.instrs[id]
}

// Has reports whether id addresses a live instruction of this body.
func (b *Body) Has(id InstrID) bool {
	return id >= 0 && int(id) < len(b.instrs) && b.instrs[id].live
}

// First returns the first live instruction, or NoInstr.
func (b *Body) First() InstrID { return b.head }

// Last returns the last live instruction, or NoInstr.
func (b *Body) Last() InstrID { return b.tail }

// Next returns the successor of id, or NoInstr.
func (b *Body) Next(id InstrID) InstrID { return b.instrs[id].next }

// Prev returns the predecessor of id, or NoInstr.
func (b *Body) Prev(id InstrID) InstrID { return b.instrs[id].prev }

// Len returns the number of live instructions
func (b *Body) Len() int { return b.count }

// IDs returns the live instructions in stream order.
func (b *Body) IDs() []InstrID {
	ids := make([]InstrID, 0, b.count)
	for id := b.head; id != NoInstr; id = b.instrs[id].next {
		ids = append(ids, id)
	}
	return ids
}

func (b *Body) alloc(op Opcode, operand Operand) InstrID {
	b.instrs = append(b.instrs, Instruction{
		OpCode:  op,
		Operand: operand,
		prev:    NoInstr,
		next:    NoInstr,
		live:    true,
	})
	b.count++
	return InstrID(len(b.instrs) - 1)
}

// Emit appends an instruction at the end of the stream
func (b *Body) Emit(op Opcode, operand Operand) InstrID {
	id := b.alloc(op, operand)
	if b.tail == NoInstr {
		b.head = id
	} else {
		b.instrs[b.tail].next = id
		b.instrs[id].prev = b.tail
	}
	b.tail = id
	return id
}

// EmitAt appends an instruction carrying a source location
func (b *Body) EmitAt(op Opcode, operand Operand, loc *SourceLoc) InstrID {
	id := b.Emit(op, operand)
	b.instrs[id].Loc = loc
	return id
}

// InsertAfter links a new instruction directly after the live instruction at.
func (b *Body) InsertAfter(at InstrID, op Opcode, operand Operand) InstrID {
	id := b.alloc(op, operand)
	next := b.instrs[at].next
	b.instrs[id].prev = at
	b.instrs[id].next = next
	b.instrs[at].next = id
	if next == NoInstr {
		b.tail = id
	} else {
		b.instrs[next].prev = id
	}
	return id
}

// Remove unlinks the instruction. Removing an already removed instruction
// is a no-op.
func (b *Body) Remove(id InstrID) {
	in := &b.instrs[id]
	if !in.live {
		return
	}
	if in.prev == NoInstr {
		b.head = in.next
	} else {
		b.instrs[in.prev].next = in.next
	}
	if in.next == NoInstr {
		b.tail = in.prev
	} else {
		b.instrs[in.next].prev = in.prev
	}
	in.prev, in.next = NoInstr, NoInstr
	in.live = false
	b.count--
}

// Offset returns the position of id in the live stream, or -1.
func (b *Body) Offset(id InstrID) int {
	n := 0
	for cur := b.head; cur != NoInstr; cur = b.instrs[cur].next {
		if cur == id {
			return n
		}
		n++
	}
	return -1
}
