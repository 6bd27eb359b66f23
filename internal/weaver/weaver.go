// Package weaver replaces marker calls in compiled method bodies with the
// name literal their argument refers to.
//
// A run processes every method body in full (match, then rewrite, call by
// call) before anything module-wide happens. Only then are dead closures and
// delegate caches swept and the module validated: a pending call in a later
// body may still reference a closure an earlier sweep would have removed.
package weaver

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/funvibe/nameof/internal/config"
	"github.com/funvibe/nameof/internal/il"
	"github.com/funvibe/nameof/internal/logging"
	"github.com/funvibe/nameof/internal/patterns"
)

// Weaver holds the pattern catalogs for one marker configuration
type Weaver struct {
	marker    patterns.Marker
	reference string
	callSites *patterns.Catalog
	closures  *patterns.Catalog
	log       *slog.Logger
}

// Rewrite describes one resolved marker call
type Rewrite struct {
	Method   string
	Name     string
	Template string
	Location *il.SourceLoc
}

// Result summarises a successful run
type Result struct {
	Module           string
	Rewrites         []Rewrite
	RemovedMethods   []*il.Method
	RemovedFields    []*il.Field
	ReferenceRemoved bool
}

// New creates a weaver for the given marker. A nil logger discards output.
// It panics if a built-in catalog breaks its authoring invariants.
func New(cfg config.MarkerConfig, log *slog.Logger) *Weaver {
	if log == nil {
		log = logging.Discard()
	}
	mk := patterns.Marker{Type: cfg.Type, Method: cfg.Method}
	return &Weaver{
		marker:    mk,
		reference: cfg.Reference,
		callSites: mustValidate(patterns.CallSites(mk)),
		closures:  mustValidate(patterns.Closures()),
		log:       log,
	}
}

func mustValidate(cat *patterns.Catalog) *patterns.Catalog {
	if err := cat.Validate(); err != nil {
		panic(fmt.Sprintf("%v: %v", ErrInternalPatternGap, err))
	}
	return cat
}

func (w *Weaver) markerName() string {
	return w.marker.Type + "." + w.marker.Method
}

// Execute rewrites every marker call in mod, sweeps the closures and caches
// left unused, validates that no marker call remains and drops the marker
// reference. On error the module must be discarded: it may be half rewritten.
func (w *Weaver) Execute(mod *il.Module) (*Result, error) {
	res := &Result{Module: mod.Name}
	cands := NewCandidates()

	for _, m := range mod.Methods() {
		rewrites, err := w.ProcessMethod(m, cands)
		if err != nil {
			return nil, err
		}
		res.Rewrites = append(res.Rewrites, rewrites...)
	}

	swept := Sweep(mod, cands, w.log)
	res.RemovedMethods, res.RemovedFields = swept.Methods, swept.Fields

	if err := w.Validate(mod); err != nil {
		return nil, err
	}

	res.ReferenceRemoved = w.removeReference(mod)

	w.log.Info("weave complete",
		"module", mod.Name,
		"rewrites", len(res.Rewrites),
		"removed_methods", len(res.RemovedMethods),
		"removed_fields", len(res.RemovedFields))
	return res, nil
}

// ProcessMethod resolves and rewrites every marker call in m, in stream
// order. Closures and cache fields made redundant are added to cands.
func (w *Weaver) ProcessMethod(m *il.Method, cands *Candidates) ([]Rewrite, error) {
	if m.Body == nil {
		return nil, nil
	}
	b := m.Body

	var calls []il.InstrID
	for id := b.First(); id != il.NoInstr; id = b.Next(id) {
		if w.marker.IsMarkerCall(b.At(id)) {
			calls = append(calls, id)
		}
	}

	var out []Rewrite
	for _, call := range calls {
		// A call swallowed by an earlier rewrite is left to Validate.
		if !b.At(call).Live() {
			continue
		}
		rw, err := w.processCall(m, call, cands)
		if err != nil {
			return out, err
		}
		out = append(out, rw)
	}
	return out, nil
}

func (w *Weaver) processCall(m *il.Method, call il.InstrID, cands *Candidates) (Rewrite, error) {
	b := m.Body
	loc := Locate(b, call)
	fail := func(kind Kind, tmpl string, cause error) (Rewrite, error) {
		return Rewrite{}, &Error{Kind: kind, Marker: w.markerName(), Method: m.FullName(), Location: loc, Template: tmpl, Err: cause}
	}

	ctx := &matchContext{w: w, method: m, cands: cands}
	match, err := ctx.match(w.callSites, call)
	switch {
	case errors.Is(err, errNoTemplate):
		return fail(UnsupportedUsage, "", nil)
	case errors.Is(err, errNoTerminal), errors.Is(err, ErrInternalPatternGap):
		var inner *Error
		if errors.As(err, &inner) {
			return Rewrite{}, inner
		}
		return fail(InternalPatternGap, match.Template.Name, nil)
	case err != nil:
		return fail(UnsupportedUsage, match.Template.Name, err)
	}

	if _, err := rewrite(b, call, match); err != nil {
		return fail(InternalPatternGap, match.Template.Name, err)
	}

	w.log.Debug("rewrote marker call",
		"method", m.FullName(),
		"name", match.Name,
		"template", match.Template.Name)
	return Rewrite{
		Method:   m.FullName(),
		Name:     match.Name,
		Template: match.Template.Name,
		Location: loc,
	}, nil
}

// Validate fails with ResidualMarkerCall if any marker call remains in mod.
func (w *Weaver) Validate(mod *il.Module) error {
	for _, m := range mod.Methods() {
		b := m.Body
		for id := b.First(); id != il.NoInstr; id = b.Next(id) {
			if w.marker.IsMarkerCall(b.At(id)) {
				return &Error{
					Kind:     ResidualMarkerCall,
					Marker:   w.markerName(),
					Method:   m.FullName(),
					Location: Locate(b, id),
				}
			}
		}
	}
	return nil
}

// removeReference drops the marker component from mod's references along
// with its external types, unless some instruction still uses a member of
// that component.
func (w *Weaver) removeReference(mod *il.Module) bool {
	if mod.FindReference(w.reference) == nil {
		return false
	}
	fromRef := func(t *il.Type) bool { return t != nil && t.Reference == w.reference }

	for _, m := range mod.Methods() {
		b := m.Body
		for id := b.First(); id != il.NoInstr; id = b.Next(id) {
			op := b.At(id).Operand
			var owner *il.Type
			switch op.Kind {
			case il.OperandMethod:
				if op.Method != nil {
					owner = op.Method.DeclaringType
				}
			case il.OperandField:
				if op.Field != nil {
					owner = op.Field.DeclaringType
				}
			case il.OperandType:
				owner = op.Type
			}
			if fromRef(owner) {
				w.log.Warn("keeping marker reference, still in use",
					"reference", w.reference, "method", m.FullName())
				return false
			}
		}
	}

	kept := mod.Externals[:0]
	for _, t := range mod.Externals {
		if !fromRef(t) {
			kept = append(kept, t)
		}
	}
	mod.Externals = kept
	return mod.RemoveReference(w.reference)
}
