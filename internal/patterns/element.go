// Package patterns holds the instruction templates that recognise how a
// compiler encodes "the name of X" as the argument of a marker call.
//
// Templates are authored in stream order (first pushed instruction first)
// and stored reversed, because matching walks backwards from the anchor
// instruction (the marker call, or a closure's final ret).
package patterns

import (
	"fmt"
	"slices"

	"github.com/funvibe/nameof/internal/il"
)

// Context is what predicates, terminals and actions see of the match in
// progress.
type Context interface {
	// Body is the stream being matched.
	Body() *il.Body
	// Method owns Body.
	Method() *il.Method
	// AnalyzeClosure resolves the name produced by a compiler-generated
	// closure by matching its body against the closure catalog.
	AnalyzeClosure(m *il.Method) (string, error)
	// AddCandidateField registers f as possibly dead after rewriting.
	AddCandidateField(f *il.Field)
}

// Predicate refines an opcode match
type Predicate func(ctx Context, in *il.Instruction) bool

// OpSet is the set of opcodes an element accepts
type OpSet []il.Opcode

// Has reports whether op is in the set
func (s OpSet) Has(op il.Opcode) bool {
	return slices.Contains(s, op)
}

// Element is one position of a template
type Element struct {
	Ops      OpSet
	Pred     Predicate
	Terminal TerminalKind
	Action   ActionKind
	Optional bool
}

// Eligible reports whether op may occupy this position
func (e Element) Eligible(op il.Opcode) bool {
	return e.Ops.Has(op)
}

// Accepts checks opcode eligibility and the predicate
func (e Element) Accepts(ctx Context, in *il.Instruction) bool {
	if !e.Ops.Has(in.OpCode) {
		return false
	}
	return e.Pred == nil || e.Pred(ctx, in)
}

// Template is an ordered run of elements recognising one source shape
type Template struct {
	Name     string
	Elements []Element
}

// Required counts the non-optional elements
func (t *Template) Required() int {
	n := 0
	for _, e := range t.Elements {
		if !e.Optional {
			n++
		}
	}
	return n
}

// Catalog is a family of templates ready for backward matching: every
// template's elements are reversed and templates are ordered longest-first.
type Catalog struct {
	Name      string
	Templates []*Template
	maxLen    int
}

// NewCatalog reverses the given templates and orders them longest-first.
// Templates of equal length keep their authored order.
func NewCatalog(name string, authored ...Template) *Catalog {
	c := &Catalog{Name: name}
	for _, t := range authored {
		rev := &Template{Name: t.Name, Elements: slices.Clone(t.Elements)}
		slices.Reverse(rev.Elements)
		c.Templates = append(c.Templates, rev)
		c.maxLen = max(c.maxLen, len(rev.Elements))
	}
	slices.SortStableFunc(c.Templates, func(a, b *Template) int {
		return len(b.Elements) - len(a.Elements)
	})
	return c
}

// MaxLen is the element count of the longest template
func (c *Catalog) MaxLen() int { return c.maxLen }

// Lookup returns the template with the given name
func (c *Catalog) Lookup(name string) *Template {
	for _, t := range c.Templates {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// Validate checks the authoring invariants: non-empty op sets and exactly
// one terminal per template.
func (c *Catalog) Validate() error {
	for _, t := range c.Templates {
		terminals := 0
		for i, e := range t.Elements {
			if len(e.Ops) == 0 {
				return fmt.Errorf("%s/%s: element %d has no eligible opcodes", c.Name, t.Name, i)
			}
			if e.Terminal != TermNone {
				terminals++
			}
		}
		if terminals != 1 {
			return fmt.Errorf("%s/%s: %d terminals, want exactly 1", c.Name, t.Name, terminals)
		}
		if t.Required() == 0 {
			return fmt.Errorf("%s/%s: all elements optional", c.Name, t.Name)
		}
	}
	return nil
}

func op(ops ...il.Opcode) OpSet { return OpSet(ops) }

// el builds a required element
func el(ops OpSet, pred Predicate) Element {
	return Element{Ops: ops, Pred: pred}
}

// term builds a required element carrying a terminal
func term(ops OpSet, pred Predicate, kind TerminalKind) Element {
	return Element{Ops: ops, Pred: pred, Terminal: kind}
}

// opt builds an optional element
func opt(ops OpSet, pred Predicate) Element {
	return Element{Ops: ops, Pred: pred, Optional: true}
}

// act builds a required element carrying a side-effect action
func act(ops OpSet, pred Predicate, kind ActionKind) Element {
	return Element{Ops: ops, Pred: pred, Action: kind}
}
