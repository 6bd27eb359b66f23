package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/funvibe/nameof/internal/config"
	"github.com/funvibe/nameof/internal/il"
	"github.com/funvibe/nameof/internal/logging"
	"github.com/funvibe/nameof/internal/weaver"

	"github.com/google/uuid"
)

// PipelineContext carries one weave from input file to report
type PipelineContext struct {
	Context context.Context

	InputPath  string
	OutputPath string

	Config *config.Config
	Logger *slog.Logger

	Module *il.Module
	Result *weaver.Result

	// BytesWritten is the size of the saved module.
	BytesWritten int

	// RunID identifies the run in the report.
	RunID   uuid.UUID
	Started time.Time

	Errors []error
}

// NewPipelineContext prepares a weave of input into output. An empty
// output rewrites the input in place; a nil cfg means the defaults.
func NewPipelineContext(input, output string, cfg *config.Config) *PipelineContext {
	if output == "" {
		output = input
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return &PipelineContext{
		Context:    context.Background(),
		InputPath:  input,
		OutputPath: output,
		Config:     cfg,
		Logger:     logging.Discard(),
		RunID:      uuid.New(),
		Started:    time.Now(),
	}
}

// Failed reports whether any stage recorded an error
func (c *PipelineContext) Failed() bool {
	return len(c.Errors) > 0
}

// Err joins the recorded errors, nil if there are none
func (c *PipelineContext) Err() error {
	return errors.Join(c.Errors...)
}
