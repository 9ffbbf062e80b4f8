// Package batch holds the bookkeeping shared by the oracle-backed stages.
package batch

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/soothsayer/internal/common"
)

// Progress receives batch advancement. Implementations must tolerate Finish
// without a matching Start.
type Progress interface {
	Start(total int, label string)
	Increment()
	Finish()
}

// NopProgress discards progress updates.
type NopProgress struct{}

// Start implements Progress.
func (NopProgress) Start(int, string) {}

// Increment implements Progress.
func (NopProgress) Increment() {}

// Finish implements Progress.
func (NopProgress) Finish() {}

// Summary describes what a stage did with its input.
type Summary struct {
	Input             int
	Processed         int
	Output            int
	Filtered          int
	Degraded          int
	TransportFailures int
	Malformed         int
	Aborted           bool
}

// LogValue implements slog.LogValuer.
func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("input", s.Input),
		slog.Int("processed", s.Processed),
		slog.Int("output", s.Output),
		slog.Int("filtered", s.Filtered),
		slog.Int("degraded", s.Degraded),
		slog.Int("transport_failures", s.TransportFailures),
		slog.Int("malformed", s.Malformed),
		slog.Bool("aborted", s.Aborted),
	)
}

// Breaker trips after a run of consecutive transport failures.
// A limit of zero never trips.
type Breaker struct {
	limit       int
	consecutive int
}

// NewBreaker creates a Breaker with the given limit.
func NewBreaker(limit int) *Breaker {
	return &Breaker{limit: limit}
}

// Failure records a transport failure and reports whether the batch should stop.
func (b *Breaker) Failure() bool {
	b.consecutive++
	return b.limit > 0 && b.consecutive >= b.limit
}

// Success resets the failure run.
func (b *Breaker) Success() {
	b.consecutive = 0
}

// AbortError builds the error returned when a Breaker trips.
func (b *Breaker) AbortError() error {
	return fmt.Errorf("%w: %d consecutive transport failures", common.ErrBatchAborted, b.consecutive)
}

// WarnTransport logs a batch-level warning when any oracle call failed in transit.
func WarnTransport(logger *slog.Logger, stage string, s Summary) {
	if s.TransportFailures == 0 {
		return
	}
	logger.Warn("oracle transport failures during batch",
		"stage", stage,
		"failures", s.TransportFailures,
		"processed", s.Processed)
}
