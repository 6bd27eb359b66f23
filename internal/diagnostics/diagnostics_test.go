package diagnostics

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/funvibe/nameof/internal/il"
	"github.com/funvibe/nameof/internal/weaver"
)

func TestRenderWeaveError(t *testing.T) {
	closureErr := &weaver.Error{
		Kind:   weaver.InvalidTerminal,
		Marker: "Name.Of",
		Method: "Sample.Program/<>c::<Run>b__0_0():object",
	}
	err := &weaver.Error{
		Kind:     weaver.UnsupportedUsage,
		Marker:   "Name.Of",
		Method:   "Sample.Program::Run():void",
		Location: &il.SourceLoc{Document: "Program.cs", Line: 12},
		Template: "cached closure",
		Err:      closureErr,
	}

	got := NewPlain(nil).Render(err)
	for _, want := range []string{
		"error[UnsupportedUsage]: This usage of 'Name.Of' is not supported. Source: Program.cs - line 12",
		"  --> Program.cs:12\n",
		"   in Sample.Program::Run():void\n",
		"   template: cached closure\n",
		"   closure: Sample.Program/<>c::<Run>b__0_0():object\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
	if strings.Contains(got, "\033[") {
		t.Errorf("plain printer emitted colour codes")
	}
}

func TestRenderPlainError(t *testing.T) {
	var buf bytes.Buffer
	NewPlain(&buf).Error(errors.New("open in.nmod: no such file"))
	if buf.String() != "error: open in.nmod: no such file\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestColorOnlyOnTerminals(t *testing.T) {
	var buf bytes.Buffer
	if ColorEnabled(&buf) {
		t.Errorf("buffer treated as terminal")
	}
	p := New(&buf)
	p.Warning("keeping %s", "Name.Of")
	if buf.String() != "warning: keeping Name.Of\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestColoredRender(t *testing.T) {
	p := &Printer{color: true}
	got := p.Render(errors.New("boom"))
	if !strings.HasPrefix(got, ansiBold+ansiRed+"error"+ansiReset) {
		t.Errorf("expected coloured prefix, got %q", got)
	}
}
