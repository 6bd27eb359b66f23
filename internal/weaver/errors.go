package weaver

import (
	"errors"
	"fmt"

	"github.com/funvibe/nameof/internal/il"
)

// Kind classifies weave failures. All kinds abort the build.
type Kind int

const (
	// UnsupportedUsage: no call-site template matched, or the matched
	// template's terminal produced no usable name.
	UnsupportedUsage Kind = iota + 1
	// InvalidTerminal: a closure body could not be resolved to a name.
	InvalidTerminal
	// ResidualMarkerCall: a marker call survived the rewrite pass.
	ResidualMarkerCall
	// InternalPatternGap: a template matched but declares no terminal, or
	// its rewrite would unbalance the stack. A pattern library bug.
	InternalPatternGap
)

// Sentinels for errors.Is
var (
	ErrUnsupportedUsage   = errors.New("unsupported usage")
	ErrInvalidTerminal    = errors.New("terminal didn't yield a valid name")
	ErrResidualMarkerCall = errors.New("residual marker call")
	ErrInternalPatternGap = errors.New("internal pattern gap")
)

func (k Kind) String() string {
	switch k {
	case UnsupportedUsage:
		return "UnsupportedUsage"
	case InvalidTerminal:
		return "InvalidTerminal"
	case ResidualMarkerCall:
		return "ResidualMarkerCall"
	case InternalPatternGap:
		return "InternalPatternGap"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) sentinel() error {
	switch k {
	case UnsupportedUsage:
		return ErrUnsupportedUsage
	case InvalidTerminal:
		return ErrInvalidTerminal
	case ResidualMarkerCall:
		return ErrResidualMarkerCall
	case InternalPatternGap:
		return ErrInternalPatternGap
	}
	return nil
}

// Error is a weave failure with the best-known source location
type Error struct {
	Kind Kind

	// Marker is the display name of the marker method ("Name.Of").
	Marker string

	// Method is the full name of the method holding the offending code.
	Method string

	// Location is the nearest source line, nil when the module has no
	// line information.
	Location *il.SourceLoc

	// Template names the matched template, when one matched.
	Template string

	Err error
}

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case UnsupportedUsage:
		msg = fmt.Sprintf("This usage of '%s' is not supported. %s", e.Marker, sourceText(e.Location))
	case InvalidTerminal:
		msg = fmt.Sprintf("Terminal didn't yield a valid name for closure %s.", e.Method)
	case ResidualMarkerCall:
		msg = fmt.Sprintf("A call to '%s' remains in %s after rewriting. %s", e.Marker, e.Method, sourceText(e.Location))
	case InternalPatternGap:
		msg = fmt.Sprintf("There is no terminal expression implemented for the matched pattern %q. %s", e.Template, sourceText(e.Location))
	default:
		msg = e.Kind.String()
	}
	if e.Err != nil {
		msg += " (" + e.Err.Error() + ")"
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

func sourceText(loc *il.SourceLoc) string {
	if loc == nil {
		return "No source line information available."
	}
	return "Source: " + loc.String()
}

// Locate returns the source location of the nearest instruction at or
// before id that carries one.
func Locate(b *il.Body, id il.InstrID) *il.SourceLoc {
	for cur := id; cur != il.NoInstr; cur = b.Prev(cur) {
		if loc := b.At(cur).Loc; loc != nil {
			return loc
		}
	}
	return nil
}
