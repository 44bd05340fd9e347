// Package pipeline sequences one document-to-note conversion and reports a
// single structured result or failure.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/denniheim/notemaker/internal/assemble"
	"github.com/denniheim/notemaker/internal/extract"
	"github.com/denniheim/notemaker/internal/llm"
	"github.com/denniheim/notemaker/internal/prompt"
	"github.com/denniheim/notemaker/internal/sandbox"
)

// Invoker is the model call the orchestrator drives.
type Invoker interface {
	Generate(ctx context.Context, req llm.Request) (string, error)
}

// Request is one conversion. Either SourcePath (an absolute path to an
// uploaded temp file) or InputPath (relative to the input root) identifies
// the document; SourceName is always the original filename.
type Request struct {
	SourcePath string
	InputPath  string
	SourceName string

	Model    string
	Language string

	OutputDir  string
	CopySource bool
	CopyDir    string
}

// Result is the committed outcome of a successful conversion.
type Result struct {
	NotePath   string
	NoteText   string
	CopiedPath string
}

// Options configures an Orchestrator.
type Options struct {
	Presets      map[string]prompt.Preset
	Models       []string
	ModelTimeout time.Duration
	// RetryBackoff is the fixed wait before the single rate-limit retry.
	RetryBackoff time.Duration
}

// Orchestrator runs conversions. It holds only read-only state and is safe
// for concurrent use.
type Orchestrator struct {
	box     *sandbox.Box
	invoker Invoker
	opts    Options
	log     *slog.Logger
}

func NewOrchestrator(box *sandbox.Box, invoker Invoker, opts Options, log *slog.Logger) *Orchestrator {
	if opts.ModelTimeout <= 0 {
		opts.ModelTimeout = 5 * time.Minute
	}
	return &Orchestrator{box: box, invoker: invoker, opts: opts, log: log}
}

// Presets exposes the read-only preset table for the API layer.
func (o *Orchestrator) Presets() map[string]prompt.Preset {
	return o.opts.Presets
}

// Models exposes the selectable model list for the API layer.
func (o *Orchestrator) Models() []string {
	return o.opts.Models
}

// Convert runs the full pipeline for one request:
// received → resolving → extracting → composing → invoking → placing → done.
// Any stage can end the run in a Failure; only a rate-limited model call is
// retried, exactly once.
func (o *Orchestrator) Convert(ctx context.Context, req Request) (Result, *Failure) {
	// Received: validate the request against the read-only tables.
	preset, ok := o.opts.Presets[req.Language]
	if !ok {
		return Result{}, &Failure{
			Stage:   StageReceived,
			Kind:    KindInvalidRequest,
			Message: "unknown language: " + req.Language,
		}
	}
	if !o.modelAllowed(req.Model) {
		return Result{}, &Failure{
			Stage:   StageReceived,
			Kind:    KindInvalidRequest,
			Message: "unknown model: " + req.Model,
		}
	}
	if req.SourceName == "" {
		return Result{}, &Failure{
			Stage:   StageReceived,
			Kind:    KindInvalidRequest,
			Message: "missing source filename",
		}
	}

	// Resolving: pin the source down to an absolute path inside a root.
	sourcePath := req.SourcePath
	if sourcePath == "" {
		resolved, err := o.box.Resolve(sandbox.RootInput, req.InputPath)
		if err != nil {
			return Result{}, o.failed(StageResolving, err)
		}
		sourcePath = resolved
	}
	kind, err := extract.KindForFile(req.SourceName)
	if err != nil {
		return Result{}, o.failed(StageResolving, err)
	}

	// Extracting.
	extracted, err := extract.Extract(ctx, sourcePath, kind)
	if err != nil {
		return Result{}, o.failed(StageExtracting, err)
	}

	// Composing.
	modelReq, err := prompt.Compose(extracted, preset, req.Model)
	if err != nil {
		return Result{}, o.failed(StageComposing, err)
	}

	// Invoking.
	noteText, err := o.invoke(ctx, modelReq)
	if err != nil {
		return Result{}, o.failed(StageInvoking, err)
	}

	// Placing.
	note := assemble.Assemble(noteText, req.SourceName, preset.Key)
	placement, err := assemble.Place(o.box, note, assemble.PlaceOptions{
		OutputDir:  req.OutputDir,
		CopySource: req.CopySource,
		CopyDir:    req.CopyDir,
		SourcePath: sourcePath,
	})
	if err != nil {
		return Result{}, o.failed(StagePlacing, err)
	}

	o.log.Info("conversion done",
		"source", req.SourceName,
		"language", preset.Key,
		"model", req.Model,
		"note", placement.NotePath,
	)
	return Result{
		NotePath:   placement.NotePath,
		NoteText:   placement.NoteText,
		CopiedPath: placement.CopiedPath,
	}, nil
}

// invoke makes the model call under the configured timeout, retrying once
// on a rate limit after a fixed backoff. Authentication failures are never
// retried.
func (o *Orchestrator) invoke(ctx context.Context, req llm.Request) (string, error) {
	text, err := o.generateOnce(ctx, req)
	var rateErr *llm.RateLimitedError
	if err == nil || !errors.As(err, &rateErr) {
		return text, err
	}

	o.log.Warn("model rate limited, retrying once", "backoff", o.opts.RetryBackoff)
	select {
	case <-ctx.Done():
		return "", &llm.TimeoutError{Err: ctx.Err()}
	case <-time.After(o.opts.RetryBackoff):
	}
	return o.generateOnce(ctx, req)
}

func (o *Orchestrator) generateOnce(ctx context.Context, req llm.Request) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.opts.ModelTimeout)
	defer cancel()
	return o.invoker.Generate(callCtx, req)
}

func (o *Orchestrator) modelAllowed(model string) bool {
	for _, m := range o.opts.Models {
		if m == model {
			return true
		}
	}
	return false
}

func (o *Orchestrator) failed(stage Stage, err error) *Failure {
	f := fail(stage, classify(err), err)
	o.log.Error("conversion failed", "stage", string(f.Stage), "kind", string(f.Kind), "error", f.Message)
	return f
}
