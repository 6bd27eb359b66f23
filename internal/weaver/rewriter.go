package weaver

import (
	"fmt"

	"github.com/funvibe/nameof/internal/il"
)

// netStackEffect sums push-pop over the given instructions
func netStackEffect(b *il.Body, ids []il.InstrID) int {
	net := 0
	for _, id := range ids {
		pop, push := il.StackEffect(b.At(id))
		net += push - pop
	}
	return net
}

// rewrite replaces the matched run with a single ldstr of name. The run
// (argument expression plus the marker call) leaves exactly one string on
// the stack, and so does the ldstr, so stack depth downstream is unchanged.
// Branches from outside the run may only enter at its first instruction
// (the matcher rejects anything else) and are redirected to the ldstr.
func rewrite(b *il.Body, call il.InstrID, m *Match) (il.InstrID, error) {
	if net := netStackEffect(b, m.Bound); net != 1 {
		return il.NoInstr, fmt.Errorf("template %q leaves %d values on the stack, want 1", m.Template.Name, net)
	}

	// Bound is anchor-first, so the earliest instruction is last.
	var loc *il.SourceLoc
	for i := len(m.Bound) - 1; i >= 0 && loc == nil; i-- {
		loc = b.At(m.Bound[i]).Loc
	}

	ldstr := b.InsertAfter(call, il.OP_LDSTR, il.StringOperand(m.Name))
	b.At(ldstr).Loc = loc

	removed := make(map[il.InstrID]struct{}, len(m.Bound))
	for _, id := range m.Bound {
		removed[id] = struct{}{}
	}
	for id := b.First(); id != il.NoInstr; id = b.Next(id) {
		if _, inRun := removed[id]; inRun {
			continue
		}
		in := b.At(id)
		if in.Operand.Kind != il.OperandTarget {
			continue
		}
		if _, into := removed[in.Operand.Target]; into {
			in.Operand.Target = ldstr
		}
	}

	for _, id := range m.Bound {
		b.Remove(id)
	}
	return ldstr, nil
}
