// Package extract turns candidate posts into structured predictions using the oracle.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/soothsayer/internal/batch"
	"github.com/Veraticus/soothsayer/internal/model"
	"github.com/Veraticus/soothsayer/internal/oracle"
)

// Asker sends a prompt to the oracle. *oracle.Gateway implements it.
type Asker interface {
	Ask(ctx context.Context, prompt string) (oracle.Response, error)
}

// Status is the outcome of extracting one candidate.
type Status int

// Extraction outcomes.
const (
	StatusExtracted Status = iota
	StatusNotPrediction
	StatusTransportFailed
	StatusMalformed
)

func (s Status) String() string {
	switch s {
	case StatusExtracted:
		return "extracted"
	case StatusNotPrediction:
		return "not_prediction"
	case StatusTransportFailed:
		return "transport_failed"
	case StatusMalformed:
		return "malformed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result is the outcome for a single candidate. Prediction is set only for StatusExtracted.
type Result struct {
	Prediction *model.Prediction
	Err        error
	Status     Status
}

// reply is the object the oracle must return.
type reply struct {
	IsPrediction *bool   `json:"is_prediction" validate:"required"`
	Subject      *string `json:"subject"`
	Outcome      *string `json:"outcome"`
	Deadline     *string `json:"deadline"`
	Confidence   *string `json:"confidence"`
	Reasoning    *string `json:"reasoning"`
}

// Extractor classifies candidates and extracts prediction fields.
type Extractor struct {
	oracle      Asker
	logger      *slog.Logger
	maxFailures int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxConsecutiveFailures stops ExtractAll after n transport failures in a row.
// Zero disables the check.
func WithMaxConsecutiveFailures(n int) Option {
	return func(e *Extractor) {
		e.maxFailures = n
	}
}

// New creates an Extractor.
func New(o Asker, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Extractor{
		oracle: o,
		logger: logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BuildPrompt returns the extraction instruction with text embedded verbatim.
func BuildPrompt(text string) string {
	return fmt.Sprintf(`Analyze the following text from Reddit and decide whether it contains a verifiable prediction.
A prediction is a statement about a future event or outcome.

Text: """%s"""

Return a JSON object with exactly these keys:
- "is_prediction": boolean
- "subject": string (what the prediction is about)
- "outcome": string (the predicted result)
- "deadline": string (the date or time frame, if mentioned)
- "confidence": string, one of "high", "medium", "low" or "unknown"
- "reasoning": string (short explanation)

If the text is NOT a prediction, set "is_prediction" to false and set the other fields to null.
Return ONLY the JSON object.`, text)
}

// Extract runs one candidate through the oracle. It never returns an error;
// failures are reported through Result.Status and Result.Err.
func (e *Extractor) Extract(ctx context.Context, c model.CandidateRecord) Result {
	resp, err := e.oracle.Ask(ctx, BuildPrompt(c.Text))
	if err != nil {
		return Result{Status: StatusTransportFailed, Err: err}
	}

	var r reply
	if err := oracle.Bind(resp, &r, "is_prediction"); err != nil {
		return Result{Status: StatusMalformed, Err: err}
	}

	if !*r.IsPrediction {
		return Result{Status: StatusNotPrediction}
	}

	return Result{
		Status:     StatusExtracted,
		Prediction: toPrediction(c, r),
	}
}

func toPrediction(c model.CandidateRecord, r reply) *model.Prediction {
	p := &model.Prediction{
		OriginalID:       c.ID,
		Author:           c.Author,
		SourceText:       c.Text,
		Subject:          nonEmpty(r.Subject),
		PredictedOutcome: nonEmpty(r.Outcome),
		Deadline:         nonEmpty(r.Deadline),
		ConfidenceLabel:  model.NormalizeConfidence(nonEmpty(r.Confidence)),
	}
	if r.Reasoning != nil {
		p.Reasoning = strings.TrimSpace(*r.Reasoning)
	}
	if !c.CreatedAt.IsZero() {
		p.CreatedAt = c.CreatedAt.UTC().Format(time.RFC3339)
	}
	return p
}

// nonEmpty maps blank strings to nil so they persist the same way as nulls.
func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// ExtractAll processes candidates in order. Per-record failures are logged and
// counted as degraded. When the consecutive transport failure limit is hit it
// returns what it has so far together with an error wrapping common.ErrBatchAborted.
func (e *Extractor) ExtractAll(ctx context.Context, candidates []model.CandidateRecord, progress batch.Progress) ([]model.Prediction, batch.Summary, error) {
	if progress == nil {
		progress = batch.NopProgress{}
	}

	summary := batch.Summary{Input: len(candidates)}
	predictions := make([]model.Prediction, 0, len(candidates))
	breaker := batch.NewBreaker(e.maxFailures)

	progress.Start(len(candidates), "Extracting predictions")
	defer progress.Finish()

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			summary.Output = len(predictions)
			return predictions, summary, err
		}

		res := e.Extract(ctx, c)
		summary.Processed++
		progress.Increment()

		switch res.Status {
		case StatusExtracted:
			predictions = append(predictions, *res.Prediction)
			breaker.Success()
		case StatusNotPrediction:
			summary.Filtered++
			breaker.Success()
		case StatusMalformed:
			summary.Malformed++
			summary.Degraded++
			breaker.Success()
			e.logger.Warn("unusable extraction reply", "id", c.ID, "error", res.Err)
		case StatusTransportFailed:
			summary.TransportFailures++
			summary.Degraded++
			e.logger.Warn("extraction call failed", "id", c.ID, "error", res.Err)
			if breaker.Failure() && ctx.Err() == nil {
				summary.Aborted = true
				summary.Output = len(predictions)
				batch.WarnTransport(e.logger, "extract", summary)
				return predictions, summary, breaker.AbortError()
			}
		}
	}

	summary.Output = len(predictions)
	batch.WarnTransport(e.logger, "extract", summary)

	return predictions, summary, ctx.Err()
}
