package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/denniheim/notemaker/internal/assemble"
	"github.com/denniheim/notemaker/internal/extract"
	"github.com/denniheim/notemaker/internal/llm"
	"github.com/denniheim/notemaker/internal/prompt"
	"github.com/denniheim/notemaker/internal/sandbox"
)

// Stage names one step of the conversion state machine.
type Stage string

const (
	StageReceived   Stage = "received"
	StageResolving  Stage = "resolving"
	StageExtracting Stage = "extracting"
	StageComposing  Stage = "composing"
	StageInvoking   Stage = "invoking"
	StagePlacing    Stage = "placing"
	StageDone       Stage = "done"
)

// Kind classifies a conversion failure for the caller.
type Kind string

const (
	KindRootNotConfigured Kind = "root_not_configured"
	KindPathViolation     Kind = "path_violation"
	KindUnsupportedFormat Kind = "unsupported_format"
	KindExtractionFailed  Kind = "extraction_failed"
	KindAuthentication    Kind = "authentication_error"
	KindRateLimited       Kind = "rate_limited"
	KindModelError        Kind = "model_error"
	KindTimeout           Kind = "timeout"
	KindNamingExhausted   Kind = "naming_exhausted"
	KindInvalidRequest    Kind = "invalid_request"
	KindInternal          Kind = "internal"
)

// Failure is the single structured error a conversion can end in.
type Failure struct {
	Stage   Stage
	Kind    Kind
	Message string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s failed (%s): %s", f.Stage, f.Kind, f.Message)
}

func fail(stage Stage, kind Kind, err error) *Failure {
	return &Failure{Stage: stage, Kind: kind, Message: err.Error()}
}

// classify maps a component error to its failure kind.
func classify(err error) Kind {
	var (
		rootErr   *sandbox.RootNotConfiguredError
		pathErr   *sandbox.PathViolationError
		formatErr *extract.UnsupportedFormatError
		extErr    *extract.ExtractionError
		authErr   *llm.AuthError
		rateErr   *llm.RateLimitedError
		modelErr  *llm.ModelError
		timeErr   *llm.TimeoutError
		nameErr   *assemble.NamingExhaustedError
	)
	switch {
	case errors.As(err, &rootErr):
		return KindRootNotConfigured
	case errors.As(err, &pathErr):
		return KindPathViolation
	case errors.As(err, &formatErr):
		return KindUnsupportedFormat
	case errors.As(err, &extErr):
		return KindExtractionFailed
	case errors.Is(err, prompt.ErrNoContent):
		return KindExtractionFailed
	case errors.As(err, &authErr):
		return KindAuthentication
	case errors.As(err, &rateErr):
		return KindRateLimited
	case errors.As(err, &timeErr):
		return KindTimeout
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.As(err, &modelErr):
		return KindModelError
	case errors.As(err, &nameErr):
		return KindNamingExhausted
	default:
		return KindInternal
	}
}
