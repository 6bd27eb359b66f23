package weaver

import "github.com/funvibe/nameof/internal/il"

// Candidates accumulates declarations that may be dead once marker calls
// are rewritten: closures whose only use was a rewritten call site, and the
// fields caching their delegates. Membership is by identity.
type Candidates struct {
	methods  []*il.Method
	fields   []*il.Field
	methodIn map[*il.Method]struct{}
	fieldIn  map[*il.Field]struct{}
}

// NewCandidates creates an empty accumulator
func NewCandidates() *Candidates {
	return &Candidates{
		methodIn: make(map[*il.Method]struct{}),
		fieldIn:  make(map[*il.Field]struct{}),
	}
}

// AddMethod registers m; duplicates are ignored.
func (c *Candidates) AddMethod(m *il.Method) {
	if _, ok := c.methodIn[m]; ok {
		return
	}
	c.methodIn[m] = struct{}{}
	c.methods = append(c.methods, m)
}

// AddField registers f; duplicates are ignored.
func (c *Candidates) AddField(f *il.Field) {
	if _, ok := c.fieldIn[f]; ok {
		return
	}
	c.fieldIn[f] = struct{}{}
	c.fields = append(c.fields, f)
}

// Methods returns the candidate methods in registration order
func (c *Candidates) Methods() []*il.Method { return c.methods }

// Fields returns the candidate fields in registration order
func (c *Candidates) Fields() []*il.Field { return c.fields }

// HasMethod reports whether m is a candidate
func (c *Candidates) HasMethod(m *il.Method) bool {
	_, ok := c.methodIn[m]
	return ok
}

// HasField reports whether f is a candidate
func (c *Candidates) HasField(f *il.Field) bool {
	_, ok := c.fieldIn[f]
	return ok
}

// Len counts all candidates
func (c *Candidates) Len() int { return len(c.methods) + len(c.fields) }

// Reset empties the accumulator
func (c *Candidates) Reset() {
	c.methods, c.fields = nil, nil
	clear(c.methodIn)
	clear(c.fieldIn)
}
