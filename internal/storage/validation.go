package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/soothsayer/internal/model"
)

// Validation errors.
var (
	ErrNilContext   = errors.New("context cannot be nil")
	ErrEmptyString  = errors.New("string parameter cannot be empty")
	ErrInvalidRun   = errors.New("invalid run record")
	ErrInvalidLimit = errors.New("limit must not be negative")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateRun(run model.RunRecord) error {
	switch run.Stage {
	case model.StageCrawl, model.StageFilter, model.StageExtract, model.StageScore, model.StageReview:
	default:
		return fmt.Errorf("%w: unknown stage %q", ErrInvalidRun, run.Stage)
	}
	if run.StartedAt.IsZero() {
		return fmt.Errorf("%w: missing start time", ErrInvalidRun)
	}
	if run.FinishedAt.Before(run.StartedAt) {
		return fmt.Errorf("%w: finished before it started", ErrInvalidRun)
	}
	if run.Input < 0 || run.Output < 0 || run.Degraded < 0 || run.Filtered < 0 {
		return fmt.Errorf("%w: negative count", ErrInvalidRun)
	}
	return nil
}
