// Package review runs the interactive reconciliation of automated scores
// against human judgment, persisting the full review set after every answer.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/soothsayer/internal/model"
)

// ErrInterrupted is returned by a Prompter when the reviewer stops the session.
var ErrInterrupted = errors.New("review interrupted")

// Score bounds for manual judgments.
const (
	MinScore = 1
	MaxScore = 10
)

// Judgment is the reviewer's answer for one record.
type Judgment struct {
	Truth     model.Truth
	Notes     string
	Sentiment int
	Sureness  int
}

// Validate checks a non-skip judgment.
func (j Judgment) Validate() error {
	switch j.Truth {
	case model.TruthFalse, model.TruthTrue, model.TruthPartial:
	case model.TruthSkip:
		return nil
	default:
		return fmt.Errorf("invalid truth judgment %q", j.Truth)
	}
	if j.Sentiment < MinScore || j.Sentiment > MaxScore {
		return fmt.Errorf("sentiment %d out of range %d-%d", j.Sentiment, MinScore, MaxScore)
	}
	if j.Sureness < MinScore || j.Sureness > MaxScore {
		return fmt.Errorf("sureness %d out of range %d-%d", j.Sureness, MinScore, MaxScore)
	}
	return nil
}

// Prompter collects a judgment for one record. position is 1-based.
type Prompter interface {
	Judge(ctx context.Context, item model.ScoredPrediction, position, total int) (Judgment, error)
}

// SnapshotWriter replaces the stored review set with records.
type SnapshotWriter interface {
	Save(records []model.ReviewRecord) error
}

// State is a record's position in the review lifecycle.
type State int

// Review states.
const (
	StatePending State = iota
	StateReviewed
	StateSkipped
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateReviewed:
		return "reviewed"
	case StateSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Summary reports what a session did.
type Summary struct {
	Total       int
	Resumed     int
	Reviewed    int
	Skipped     int
	Remaining   int
	Interrupted bool
}

// Session walks a scored dataset one record at a time.
// Only one session may write a given snapshot at a time.
type Session struct {
	prompter Prompter
	snapshot SnapshotWriter
	logger   *slog.Logger
	items    []model.ScoredPrediction
	states   []State
	records  []model.ReviewRecord
	resumed  int
}

// Option configures a Session.
type Option func(*Session)

// WithExisting seeds the session with previously saved reviews. Records whose
// original_id already has a review start out as reviewed.
func WithExisting(records []model.ReviewRecord) Option {
	return func(s *Session) {
		s.records = append(s.records, records...)
	}
}

// NewSession creates a session over items.
func NewSession(items []model.ScoredPrediction, prompter Prompter, snapshot SnapshotWriter, logger *slog.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		items:    items,
		states:   make([]State, len(items)),
		prompter: prompter,
		snapshot: snapshot,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	done := make(map[string]struct{}, len(s.records))
	for _, r := range s.records {
		done[r.OriginalID] = struct{}{}
	}
	for i, item := range items {
		if _, ok := done[item.OriginalID]; ok {
			s.states[i] = StateReviewed
			s.resumed++
		}
	}
	return s
}

// Run prompts for every pending record. An interruption ends the session
// without error; every confirmed review is already persisted by then.
func (s *Session) Run(ctx context.Context) (Summary, error) {
	summary := Summary{Total: len(s.items), Resumed: s.resumed}

	for i, item := range s.items {
		if s.State(i) != StatePending {
			continue
		}
		if ctx.Err() != nil {
			summary.Interrupted = true
			break
		}

		j, err := s.prompter.Judge(ctx, item, i+1, len(s.items))
		if err != nil {
			if errors.Is(err, ErrInterrupted) || ctx.Err() != nil {
				summary.Interrupted = true
				break
			}
			return s.finish(summary), fmt.Errorf("failed to read judgment for %s: %w", item.OriginalID, err)
		}

		if j.Truth == model.TruthSkip {
			s.states[i] = StateSkipped
			summary.Skipped++
			s.logger.Debug("review skipped", "id", item.OriginalID)
			continue
		}

		if err := j.Validate(); err != nil {
			return s.finish(summary), fmt.Errorf("judgment for %s: %w", item.OriginalID, err)
		}

		rec := model.ReviewRecord{
			OriginalID:      item.OriginalID,
			RedditText:      item.SourceText,
			AISentiment:     copyInt(item.SentimentScore),
			AISureness:      copyInt(item.SurenessScore),
			ManualTruth:     j.Truth,
			ManualSentiment: j.Sentiment,
			ManualSureness:  j.Sureness,
			ManualNotes:     j.Notes,
		}

		s.records = append(s.records, rec)
		if err := s.snapshot.Save(s.records); err != nil {
			s.records = s.records[:len(s.records)-1]
			return s.finish(summary), fmt.Errorf("failed to save review snapshot: %w", err)
		}

		s.states[i] = StateReviewed
		summary.Reviewed++
		s.logger.Debug("review saved", "id", item.OriginalID, "truth", j.Truth.Label())
	}

	return s.finish(summary), nil
}

func (s *Session) finish(summary Summary) Summary {
	for i := range s.states {
		if s.State(i) == StatePending {
			summary.Remaining++
		}
	}
	return summary
}

// Records returns the accumulated review set, including resumed reviews.
func (s *Session) Records() []model.ReviewRecord {
	return append([]model.ReviewRecord(nil), s.records...)
}

// State returns the state of the i-th record.
func (s *Session) State(i int) State {
	return s.states[i]
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
