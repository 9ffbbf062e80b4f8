// Package pipeline wires the stages together over the on-disk datasets.
// Each stage reads its upstream dataset, runs, and writes its own dataset
// once, so any stage can be re-run alone.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Veraticus/soothsayer/internal/batch"
	"github.com/Veraticus/soothsayer/internal/common"
	"github.com/Veraticus/soothsayer/internal/dataset"
	"github.com/Veraticus/soothsayer/internal/extract"
	"github.com/Veraticus/soothsayer/internal/filter"
	"github.com/Veraticus/soothsayer/internal/model"
	"github.com/Veraticus/soothsayer/internal/review"
	"github.com/Veraticus/soothsayer/internal/score"
)

// Ledger records stage executions.
type Ledger interface {
	RecordRun(ctx context.Context, run model.RunRecord) (string, error)
}

// Crawler fetches raw posts.
type Crawler interface {
	Crawl(ctx context.Context, subreddits []string, limit int) ([]model.RawPost, error)
}

// Paths locates every dataset.
type Paths struct {
	Raw         string
	Candidates  string
	Predictions string
	Scored      string
	Reviews     string
}

// DefaultPaths places every dataset in dataDir under its standard name.
func DefaultPaths(dataDir string) Paths {
	return Paths{
		Raw:         filepath.Join(dataDir, dataset.RawPostsFile),
		Candidates:  filepath.Join(dataDir, dataset.CandidatesFile),
		Predictions: filepath.Join(dataDir, dataset.PredictionsFile),
		Scored:      filepath.Join(dataDir, dataset.ScoredFile),
		Reviews:     filepath.Join(dataDir, dataset.ReviewsFile),
	}
}

// StageOptions overrides a stage's dataset locations and caps its input.
// A zero Limit processes every record.
type StageOptions struct {
	Input  string
	Output string
	Limit  int
}

func (o StageOptions) resolve(input, output string) StageOptions {
	if o.Input == "" {
		o.Input = input
	}
	if o.Output == "" {
		o.Output = output
	}
	return o
}

// Summary reports one stage execution.
type Summary struct {
	Stage      model.Stage
	InputPath  string
	OutputPath string
	RunID      string
	batch.Summary
}

// Runner executes pipeline stages.
type Runner struct {
	filter    *filter.Filter
	extractor *extract.Extractor
	scorer    *score.Scorer
	crawler   Crawler
	ledger    Ledger
	progress  batch.Progress
	logger    *slog.Logger
	now       func() time.Time
	paths     Paths
}

// Option configures a Runner.
type Option func(*Runner)

// WithFilter replaces the default candidate filter.
func WithFilter(f *filter.Filter) Option {
	return func(r *Runner) { r.filter = f }
}

// WithExtractor enables the extract stage.
func WithExtractor(e *extract.Extractor) Option {
	return func(r *Runner) { r.extractor = e }
}

// WithScorer enables the score stage.
func WithScorer(s *score.Scorer) Option {
	return func(r *Runner) { r.scorer = s }
}

// WithCrawler enables the crawl stage.
func WithCrawler(c Crawler) Option {
	return func(r *Runner) { r.crawler = c }
}

// WithLedger records every stage execution.
func WithLedger(l Ledger) Option {
	return func(r *Runner) { r.ledger = l }
}

// WithProgress reports batch progress.
func WithProgress(p batch.Progress) Option {
	return func(r *Runner) { r.progress = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithClock overrides the time source used for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// New creates a Runner over paths.
func New(paths Paths, opts ...Option) *Runner {
	r := &Runner{
		paths:    paths,
		filter:   filter.New(),
		progress: batch.NopProgress{},
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Paths returns the runner's dataset locations.
func (r *Runner) Paths() Paths {
	return r.paths
}

// Crawl fetches posts and writes the raw posts dataset.
func (r *Runner) Crawl(ctx context.Context, subreddits []string, opts StageOptions) (Summary, error) {
	opts = opts.resolve("", r.paths.Raw)
	if r.crawler == nil {
		return Summary{Stage: model.StageCrawl}, common.NewConfigurationError("reddit", common.ErrMissingConfig)
	}

	return r.run(ctx, model.StageCrawl, opts, func() (batch.Summary, error) {
		posts, err := r.crawler.Crawl(ctx, subreddits, opts.Limit)
		if err != nil {
			return batch.Summary{Processed: len(posts)}, err
		}
		if err := dataset.WritePosts(opts.Output, posts); err != nil {
			return batch.Summary{}, err
		}
		return batch.Summary{Input: len(posts), Processed: len(posts), Output: len(posts)}, nil
	})
}

// Filter keeps the raw posts that contain a prediction marker.
func (r *Runner) Filter(ctx context.Context, opts StageOptions) (Summary, error) {
	opts = opts.resolve(r.paths.Raw, r.paths.Candidates)

	return r.run(ctx, model.StageFilter, opts, func() (batch.Summary, error) {
		posts, err := dataset.ReadPosts(opts.Input, model.StageCrawl)
		if err != nil {
			return batch.Summary{}, err
		}
		posts = limit(posts, opts.Limit)

		r.logger.Debug("filtering posts", "markers", r.filter.Markers())
		candidates := r.filter.Candidates(posts)
		if err := dataset.WritePosts(opts.Output, candidates); err != nil {
			return batch.Summary{}, err
		}
		return batch.Summary{
			Input:     len(posts),
			Processed: len(posts),
			Output:    len(candidates),
			Filtered:  len(posts) - len(candidates),
		}, nil
	})
}

// Extract turns candidates into structured predictions.
func (r *Runner) Extract(ctx context.Context, opts StageOptions) (Summary, error) {
	opts = opts.resolve(r.paths.Candidates, r.paths.Predictions)
	if r.extractor == nil {
		return Summary{Stage: model.StageExtract}, common.NewConfigurationError("oracle", common.ErrMissingConfig)
	}

	return r.run(ctx, model.StageExtract, opts, func() (batch.Summary, error) {
		candidates, err := dataset.ReadPosts(opts.Input, model.StageFilter)
		if err != nil {
			return batch.Summary{}, err
		}
		candidates = limit(candidates, opts.Limit)

		predictions, summary, err := r.extractor.ExtractAll(ctx, candidates, r.progress)
		return summary, r.writeBatch(err, func() error {
			return dataset.WritePredictions(opts.Output, predictions)
		})
	})
}

// Score attaches sentiment and sureness to every prediction.
func (r *Runner) Score(ctx context.Context, opts StageOptions) (Summary, error) {
	opts = opts.resolve(r.paths.Predictions, r.paths.Scored)
	if r.scorer == nil {
		return Summary{Stage: model.StageScore}, common.NewConfigurationError("oracle", common.ErrMissingConfig)
	}

	return r.run(ctx, model.StageScore, opts, func() (batch.Summary, error) {
		predictions, err := dataset.ReadPredictions(opts.Input)
		if err != nil {
			return batch.Summary{}, err
		}
		predictions = limit(predictions, opts.Limit)

		scored, summary, err := r.scorer.ScoreAll(ctx, predictions, r.progress)
		return summary, r.writeBatch(err, func() error {
			return dataset.WriteScored(opts.Output, scored)
		})
	})
}

// ReviewOptions configures a review session.
type ReviewOptions struct {
	StageOptions
	Resume bool
}

// Review runs an interactive session over the scored dataset. Every
// confirmed review is on disk before the next prompt.
func (r *Runner) Review(ctx context.Context, prompter review.Prompter, opts ReviewOptions) (review.Summary, error) {
	opts.StageOptions = opts.resolve(r.paths.Scored, r.paths.Reviews)
	var result review.Summary

	_, err := r.run(ctx, model.StageReview, opts.StageOptions, func() (batch.Summary, error) {
		items, err := dataset.ReadScored(opts.Input)
		if err != nil {
			return batch.Summary{}, err
		}
		items = limit(items, opts.Limit)

		snapshot := dataset.ReviewSnapshot{Path: opts.Output}
		var sessionOpts []review.Option
		if !opts.Resume {
			if _, err := os.Stat(opts.Output); err == nil {
				r.logger.Warn("existing reviews will be replaced by the first confirmed review; use --resume to keep them",
					"path", opts.Output)
			}
		}
		if opts.Resume {
			existing, err := snapshot.Load()
			if err != nil {
				return batch.Summary{}, fmt.Errorf("failed to load previous reviews: %w", err)
			}
			sessionOpts = append(sessionOpts, review.WithExisting(existing))
		}

		session := review.NewSession(items, prompter, snapshot, r.logger, sessionOpts...)
		result, err = session.Run(ctx)
		return batch.Summary{
			Input:     len(items),
			Processed: result.Reviewed + result.Skipped,
			Output:    len(session.Records()),
			Filtered:  result.Skipped,
			Aborted:   result.Interrupted,
		}, err
	})
	return result, err
}

// All runs filter, extract and score in order, stopping at the first failure.
func (r *Runner) All(ctx context.Context, opts StageOptions) ([]Summary, error) {
	stages := []func(context.Context, StageOptions) (Summary, error){r.Filter, r.Extract, r.Score}

	summaries := make([]Summary, 0, len(stages))
	for i, stage := range stages {
		stageOpts := StageOptions{}
		if i == 0 {
			stageOpts = StageOptions{Input: opts.Input, Limit: opts.Limit}
		}
		if i == len(stages)-1 {
			stageOpts.Output = opts.Output
		}

		s, err := stage(ctx, stageOpts)
		summaries = append(summaries, s)
		if err != nil {
			return summaries, err
		}
		if s.Aborted {
			break
		}
	}
	return summaries, nil
}

// writeBatch persists a batch stage's output. An aborted batch still writes
// what it finished; any other failure leaves the previous output in place.
func (r *Runner) writeBatch(batchErr error, write func() error) error {
	if batchErr != nil && !errors.Is(batchErr, common.ErrBatchAborted) {
		return batchErr
	}
	if err := write(); err != nil {
		return err
	}
	return batchErr
}

// run times a stage, logs its outcome and records it in the ledger.
func (r *Runner) run(ctx context.Context, stage model.Stage, opts StageOptions, fn func() (batch.Summary, error)) (Summary, error) {
	started := r.now()
	logger := r.logger.With("stage", string(stage))
	logger.Debug("stage starting", "input", opts.Input, "output", opts.Output, "limit", opts.Limit)

	bs, err := fn()
	summary := Summary{Stage: stage, InputPath: opts.Input, OutputPath: opts.Output, Summary: bs}

	if err != nil {
		logger.Error("stage failed", "error", err, "summary", bs)
	} else {
		logger.Info("stage complete", "summary", bs)
	}

	summary.RunID = r.record(ctx, model.RunRecord{
		Stage:      stage,
		InputPath:  opts.Input,
		OutputPath: opts.Output,
		Input:      bs.Input,
		Output:     bs.Output,
		Degraded:   bs.Degraded,
		Filtered:   bs.Filtered,
		Aborted:    bs.Aborted,
		Error:      errorText(err),
		StartedAt:  started,
		FinishedAt: r.now(),
	})
	return summary, err
}

func (r *Runner) record(ctx context.Context, run model.RunRecord) string {
	if r.ledger == nil {
		return ""
	}
	// The stage may have ended because ctx was canceled; the ledger entry
	// should still land.
	id, err := r.ledger.RecordRun(context.WithoutCancel(ctx), run)
	if err != nil {
		r.logger.Warn("failed to record run", "stage", string(run.Stage), "error", err)
		return ""
	}
	return id
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func limit[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}
