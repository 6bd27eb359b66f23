// Package diagnostics renders weave failures for people reading a terminal.
package diagnostics

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/funvibe/nameof/internal/weaver"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiDim    = "\033[2m"
	ansiRed    = "\033[31m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
)

// ColorEnabled reports whether w is a terminal that should get ANSI colour.
// NO_COLOR and TERM=dumb turn colour off.
func ColorEnabled(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		return false
	}
	return os.Getenv("TERM") != "dumb"
}

// Printer writes diagnostics to one stream
type Printer struct {
	w     io.Writer
	color bool
}

// New creates a printer, colouring output only when w is a terminal
func New(w io.Writer) *Printer {
	return &Printer{w: w, color: ColorEnabled(w)}
}

// NewPlain creates a printer that never colours
func NewPlain(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) paint(style, s string) string {
	if !p.color {
		return s
	}
	return style + s + ansiReset
}

// Error prints err. Weave errors get their kind, method, location and
// template on separate lines; anything else is printed as is.
func (p *Printer) Error(err error) {
	fmt.Fprint(p.w, p.Render(err))
}

// Warning prints a one-line warning
func (p *Printer) Warning(format string, args ...any) {
	fmt.Fprintf(p.w, "%s: %s\n", p.paint(ansiBold+ansiYellow, "warning"), fmt.Sprintf(format, args...))
}

// Render formats err the way Error prints it
func (p *Printer) Render(err error) string {
	var sb strings.Builder
	var werr *weaver.Error
	if !errors.As(err, &werr) {
		sb.WriteString(fmt.Sprintf("%s: %s\n", p.paint(ansiBold+ansiRed, "error"), err))
		return sb.String()
	}

	head := fmt.Sprintf("error[%s]", werr.Kind)
	sb.WriteString(fmt.Sprintf("%s: %s\n", p.paint(ansiBold+ansiRed, head), err))
	if werr.Location != nil {
		sb.WriteString(fmt.Sprintf("  %s %s:%d\n", p.paint(ansiCyan, "-->"), werr.Location.Document, werr.Location.Line))
	}
	if werr.Method != "" {
		sb.WriteString(p.paint(ansiDim, "   in "+werr.Method) + "\n")
	}
	if werr.Template != "" {
		sb.WriteString(p.paint(ansiDim, "   template: "+werr.Template) + "\n")
	}

	// a closure failure wrapped in an unsupported usage
	var inner *weaver.Error
	if errors.As(werr.Err, &inner) && inner.Method != werr.Method {
		sb.WriteString(p.paint(ansiDim, "   closure: "+inner.Method) + "\n")
	}
	return sb.String()
}
