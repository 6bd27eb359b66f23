// Package pipeline runs a weave as a sequence of stages sharing one
// PipelineContext: load, weave, save, report.
package pipeline

// Processor is one stage. It reads and updates the context and records
// failures in ctx.Errors instead of returning them.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// Pipeline represents a sequence of processing stages.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Weave is the standard pipeline behind "nameof weave"
func Weave() *Pipeline {
	return New(&LoadProcessor{}, &WeaveProcessor{}, &SaveProcessor{}, &ReportProcessor{})
}

// Run executes the pipeline.
func (p *Pipeline) Run(initialCtx *PipelineContext) *PipelineContext {
	ctx := initialCtx
	for _, processor := range p.processors {
		ctx = processor.Process(ctx)
		// Continue on errors: stages after a failure decide for themselves
		// whether to run (the report still records failed runs).
	}
	return ctx
}
