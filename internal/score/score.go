// Package score rates each prediction's sentiment and how sure its author sounded.
package score

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/Veraticus/soothsayer/internal/batch"
	"github.com/Veraticus/soothsayer/internal/model"
	"github.com/Veraticus/soothsayer/internal/oracle"
)

// FailedNote is the analysis note attached to records whose scoring failed.
const FailedNote = "Analysis failed"

// Asker sends a prompt to the oracle. *oracle.Gateway implements it.
type Asker interface {
	Ask(ctx context.Context, prompt string) (oracle.Response, error)
}

// Scores may arrive as integral floats such as 8.0.
type reply struct {
	Sentiment   *float64 `json:"sentiment_score" validate:"required,min=1,max=10"`
	Sureness    *float64 `json:"sureness_score" validate:"required,min=1,max=10"`
	Explanation *string  `json:"explanation"`
}

func wholeNumber(f float64) (int, bool) {
	if f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// Result is the outcome for a single prediction. Scored is always populated.
type Result struct {
	Err    error
	Scored model.ScoredPrediction
	// Failure is set when Scored carries null scores.
	Failure Failure
}

// Failure says why a record could not be scored.
type Failure int

// Failure kinds.
const (
	FailureNone Failure = iota
	FailureTransport
	FailureMalformed
)

// Scorer annotates predictions with sentiment and sureness scores.
type Scorer struct {
	oracle      Asker
	logger      *slog.Logger
	maxFailures int
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithMaxConsecutiveFailures stops ScoreAll after n transport failures in a row.
func WithMaxConsecutiveFailures(n int) Option {
	return func(s *Scorer) {
		s.maxFailures = n
	}
}

// New creates a Scorer.
func New(o Asker, logger *slog.Logger, opts ...Option) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scorer{oracle: o, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BuildPrompt returns the scoring instruction for the original post text.
func BuildPrompt(text string) string {
	return `Analyze the following Reddit prediction post for sentiment and sureness.

Text: """` + text + `"""

Return a JSON object with these EXACT keys:
- "sentiment_score": integer from 1 (very negative) to 10 (very positive)
- "sureness_score": integer from 1 (very unsure, guessing) to 10 (absolutely certain)
- "explanation": string (brief reasoning for the scores)

Return ONLY the JSON object.`
}

// Score rates p using its source text. Extraction fields are copied through untouched.
func (s *Scorer) Score(ctx context.Context, p model.Prediction) Result {
	out := model.ScoredPrediction{Prediction: p}

	resp, err := s.oracle.Ask(ctx, BuildPrompt(p.SourceText))
	if err != nil {
		out.AnalysisNote = FailedNote
		return Result{Scored: out, Failure: FailureTransport, Err: err}
	}

	var r reply
	if err := oracle.Bind(resp, &r, "sentiment_score", "sureness_score"); err != nil {
		out.AnalysisNote = FailedNote
		return Result{Scored: out, Failure: FailureMalformed, Err: err}
	}

	sentiment, okSentiment := wholeNumber(*r.Sentiment)
	sureness, okSureness := wholeNumber(*r.Sureness)
	if !okSentiment || !okSureness {
		out.AnalysisNote = FailedNote
		err := &oracle.MalformedResponseError{Raw: resp.Raw(), Reason: "scores must be whole numbers"}
		return Result{Scored: out, Failure: FailureMalformed, Err: err}
	}

	out.SentimentScore = &sentiment
	out.SurenessScore = &sureness
	if r.Explanation != nil {
		out.AnalysisNote = strings.TrimSpace(*r.Explanation)
	}
	return Result{Scored: out}
}

// ScoreAll scores predictions in order and emits one record per input, with
// null scores for failures. It stops early, returning the records scored so far
// and an error wrapping common.ErrBatchAborted, when transport failures repeat.
func (s *Scorer) ScoreAll(ctx context.Context, predictions []model.Prediction, progress batch.Progress) ([]model.ScoredPrediction, batch.Summary, error) {
	if progress == nil {
		progress = batch.NopProgress{}
	}

	summary := batch.Summary{Input: len(predictions)}
	out := make([]model.ScoredPrediction, 0, len(predictions))
	breaker := batch.NewBreaker(s.maxFailures)

	progress.Start(len(predictions), "Scoring predictions")
	defer progress.Finish()

	for _, p := range predictions {
		if err := ctx.Err(); err != nil {
			summary.Output = len(out)
			return out, summary, err
		}

		res := s.Score(ctx, p)
		out = append(out, res.Scored)
		summary.Processed++
		progress.Increment()

		switch res.Failure {
		case FailureNone:
			breaker.Success()
		case FailureMalformed:
			summary.Malformed++
			summary.Degraded++
			breaker.Success()
			s.logger.Warn("unusable scoring reply", "id", p.OriginalID, "error", res.Err)
		case FailureTransport:
			summary.TransportFailures++
			summary.Degraded++
			s.logger.Warn("scoring call failed", "id", p.OriginalID, "error", res.Err)
			if breaker.Failure() && ctx.Err() == nil {
				summary.Aborted = true
				summary.Output = len(out)
				batch.WarnTransport(s.logger, "score", summary)
				return out, summary, breaker.AbortError()
			}
		}
	}

	summary.Output = len(out)
	batch.WarnTransport(s.logger, "score", summary)
	return out, summary, ctx.Err()
}
