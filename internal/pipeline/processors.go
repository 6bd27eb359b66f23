package pipeline

import (
	"fmt"
	"time"

	"github.com/funvibe/nameof/internal/modfile"
	"github.com/funvibe/nameof/internal/report"
	"github.com/funvibe/nameof/internal/weaver"
)

// LoadProcessor reads the input module
type LoadProcessor struct{}

func (lp *LoadProcessor) Process(ctx *PipelineContext) *PipelineContext {
	mod, err := modfile.Load(ctx.InputPath)
	if err != nil {
		ctx.Errors = append(ctx.Errors, fmt.Errorf("load: %w", err))
		return ctx
	}
	ctx.Module = mod
	ctx.Logger.Debug("module loaded", "path", ctx.InputPath, "module", mod.Name, "methods", len(mod.Methods()))
	return ctx
}

// WeaveProcessor rewrites the marker calls of the loaded module
type WeaveProcessor struct{}

func (wp *WeaveProcessor) Process(ctx *PipelineContext) *PipelineContext {
	// If previous steps failed, don't weave
	if ctx.Module == nil || ctx.Failed() {
		return ctx
	}
	w := weaver.New(ctx.Config.Marker, ctx.Logger)
	res, err := w.Execute(ctx.Module)
	if err != nil {
		ctx.Errors = append(ctx.Errors, err)
		return ctx
	}
	ctx.Result = res
	return ctx
}

// SaveProcessor writes the woven module. A failed weave leaves the output
// untouched: the in-memory module may be half rewritten.
type SaveProcessor struct{}

func (sp *SaveProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Result == nil || ctx.Failed() {
		return ctx
	}
	n, err := modfile.Save(ctx.OutputPath, ctx.Module)
	if err != nil {
		ctx.Errors = append(ctx.Errors, fmt.Errorf("save: %w", err))
		return ctx
	}
	ctx.BytesWritten = n
	ctx.Logger.Debug("module saved", "path", ctx.OutputPath, "bytes", n, "mvid", ctx.Module.Mvid)
	return ctx
}

// ReportProcessor records the run, successful or not, when a report
// database is configured.
type ReportProcessor struct{}

func (rp *ReportProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Config.Report == "" {
		return ctx
	}

	run := &report.Run{
		ID:       ctx.RunID,
		Input:    ctx.InputPath,
		Output:   ctx.OutputPath,
		Started:  ctx.Started,
		Duration: time.Since(ctx.Started),
	}
	if ctx.Module != nil {
		run.Module = ctx.Module.Name
	}
	if err := ctx.Err(); err != nil {
		run.Err = err.Error()
	} else if res := ctx.Result; res != nil {
		run.RemovedMethods = len(res.RemovedMethods)
		run.RemovedFields = len(res.RemovedFields)
		run.ReferenceRemoved = res.ReferenceRemoved
		for _, rw := range res.Rewrites {
			entry := report.Rewrite{Method: rw.Method, Name: rw.Name, Template: rw.Template}
			if rw.Location != nil {
				entry.Document, entry.Line = rw.Location.Document, rw.Location.Line
			}
			run.Rewrites = append(run.Rewrites, entry)
		}
	}

	store, err := report.Open(ctx.Context, ctx.Config.Report)
	if err != nil {
		ctx.Errors = append(ctx.Errors, fmt.Errorf("report: %w", err))
		return ctx
	}
	defer store.Close()

	if err := store.Record(ctx.Context, run); err != nil {
		ctx.Errors = append(ctx.Errors, fmt.Errorf("report: %w", err))
		return ctx
	}
	ctx.Logger.Debug("run recorded", "report", ctx.Config.Report, "run", run.ID)
	return ctx
}
