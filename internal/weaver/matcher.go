package weaver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/funvibe/nameof/internal/il"
	"github.com/funvibe/nameof/internal/patterns"
)

var (
	errNoTemplate = errors.New("no template matched")
	errNoTerminal = errors.New("matched template has no terminal")

	// ErrBranchIntoRun is reported when control flow enters a matched run
	// anywhere but its first instruction, or a branch inside the run
	// jumps out of it: the run is then not one expression.
	ErrBranchIntoRun = errors.New("argument expression is not a single-entry block")
)

// Match is a template bound to a run of instructions ending at the anchor
type Match struct {
	Template *patterns.Template

	// Bound holds the consumed instructions in reverse stream order,
	// anchor first. Skipped optional elements contribute nothing.
	Bound []il.InstrID

	Name string
}

// matchContext is the patterns.Context for matching inside one method body.
type matchContext struct {
	w      *Weaver
	method *il.Method
	cands  *Candidates

	// pending collects the actions fired by the template attempt in
	// progress; they reach cands only when the whole template binds.
	pending []*il.Field
}

func (c *matchContext) Body() *il.Body     { return c.method.Body }
func (c *matchContext) Method() *il.Method { return c.method }

func (c *matchContext) AddCandidateField(f *il.Field) {
	c.pending = append(c.pending, f)
}

func (c *matchContext) AnalyzeClosure(m *il.Method) (string, error) {
	return c.w.analyzeClosure(m, c.cands)
}

// window collects up to n instructions ending at anchor, walking backwards.
func window(b *il.Body, anchor il.InstrID, n int) []il.InstrID {
	out := make([]il.InstrID, 0, n)
	for id := anchor; id != il.NoInstr && len(out) < n; id = b.Prev(id) {
		out = append(out, id)
	}
	return out
}

// match tries cat's templates longest-first against the instructions
// ending at anchor and extracts the name from the first that binds.
func (c *matchContext) match(cat *patterns.Catalog, anchor il.InstrID) (*Match, error) {
	win := window(c.method.Body, anchor, cat.MaxLen())

	for _, tmpl := range cat.Templates {
		bound, termKind, termAt, ok := c.walk(tmpl, win)
		if !ok {
			continue
		}
		m := &Match{Template: tmpl, Bound: bound}
		if err := checkControlFlow(c.method.Body, bound); err != nil {
			c.pending = c.pending[:0]
			return m, err
		}
		for _, f := range c.pending {
			c.cands.AddField(f)
		}
		c.pending = c.pending[:0]

		if termKind == patterns.TermNone {
			return m, errNoTerminal
		}
		name, err := termKind.Extract(c, termAt)
		if err != nil {
			return m, err
		}
		if strings.TrimSpace(name) == "" {
			return m, fmt.Errorf("%s terminal: %w", termKind, patterns.ErrNoName)
		}
		m.Name = name
		return m, nil
	}
	return nil, errNoTemplate
}

// checkControlFlow verifies that bound (anchor first) is entered only at
// its earliest instruction and that its own branches jump forward within it.
func checkControlFlow(b *il.Body, bound []il.InstrID) error {
	if len(bound) == 0 {
		return nil
	}
	pos := make(map[il.InstrID]int, len(bound))
	for i, id := range bound {
		pos[id] = i
	}
	entry := bound[len(bound)-1]

	for id := b.First(); id != il.NoInstr; id = b.Next(id) {
		in := b.At(id)
		if in.Operand.Kind != il.OperandTarget {
			continue
		}
		target := in.Operand.Target
		from, inside := pos[id]
		to, into := pos[target]
		switch {
		case inside && !into:
			return fmt.Errorf("%s at IL_%04d leaves the expression: %w", in.OpCode, b.Offset(id), ErrBranchIntoRun)
		case inside && to >= from:
			return fmt.Errorf("%s at IL_%04d jumps backwards: %w", in.OpCode, b.Offset(id), ErrBranchIntoRun)
		case !inside && into && target != entry:
			return fmt.Errorf("%s at IL_%04d enters the expression at IL_%04d: %w",
				in.OpCode, b.Offset(id), b.Offset(target), ErrBranchIntoRun)
		}
	}
	return nil
}

// walk binds tmpl to win in lockstep. An optional element whose opcode set
// does not contain the current instruction is skipped without consuming
// it; any other mismatch abandons the template.
func (c *matchContext) walk(tmpl *patterns.Template, win []il.InstrID) (bound []il.InstrID, termKind patterns.TerminalKind, termAt il.InstrID, ok bool) {
	c.pending = c.pending[:0]
	body := c.method.Body
	termAt = il.NoInstr

	i, j := 0, 0
	for i < len(tmpl.Elements) {
		e := tmpl.Elements[i]
		if j >= len(win) {
			if e.Optional {
				i++
				continue
			}
			return nil, patterns.TermNone, il.NoInstr, false
		}
		in := body.At(win[j])
		if e.Optional && !e.Eligible(in.OpCode) {
			i++
			continue
		}
		if !e.Accepts(c, in) {
			return nil, patterns.TermNone, il.NoInstr, false
		}
		e.Action.Apply(c, in)
		if e.Terminal != patterns.TermNone && termKind == patterns.TermNone {
			termKind, termAt = e.Terminal, win[j]
		}
		bound = append(bound, win[j])
		i++
		j++
	}
	return bound, termKind, termAt, true
}

// analyzeClosure resolves the name a compiler-generated closure returns and
// registers the closure as a removal candidate.
func (w *Weaver) analyzeClosure(closure *il.Method, cands *Candidates) (string, error) {
	if closure.Body == nil || closure.Body.Last() == il.NoInstr {
		return "", w.closureError(closure, InvalidTerminal, "", errors.New("closure has no body"))
	}
	ctx := &matchContext{w: w, method: closure, cands: cands}
	m, err := ctx.match(w.closures, closure.Body.Last())
	switch {
	case errors.Is(err, errNoTerminal):
		return "", w.closureError(closure, InternalPatternGap, m.Template.Name, nil)
	case err != nil:
		tmpl := ""
		if m != nil {
			tmpl = m.Template.Name
		}
		return "", w.closureError(closure, InvalidTerminal, tmpl, err)
	}
	cands.AddMethod(closure)
	w.log.Debug("resolved closure", "closure", closure.FullName(), "name", m.Name, "template", m.Template.Name)
	return m.Name, nil
}

func (w *Weaver) closureError(closure *il.Method, kind Kind, tmpl string, cause error) *Error {
	var loc *il.SourceLoc
	if closure.Body != nil && closure.Body.Last() != il.NoInstr {
		loc = Locate(closure.Body, closure.Body.Last())
	}
	return &Error{
		Kind:     kind,
		Marker:   w.markerName(),
		Method:   closure.FullName(),
		Location: loc,
		Template: tmpl,
		Err:      cause,
	}
}
