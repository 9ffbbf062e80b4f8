package model

import "time"

// Stage names a pipeline step.
type Stage string

// Pipeline stages, in data-flow order.
const (
	StageCrawl   Stage = "crawl"
	StageFilter  Stage = "filter"
	StageExtract Stage = "extract"
	StageScore   Stage = "score"
	StageReview  Stage = "review"
)

// RunRecord is a ledger entry describing one stage execution.
type RunRecord struct {
	StartedAt  time.Time
	FinishedAt time.Time
	ID         string
	Stage      Stage
	InputPath  string
	OutputPath string
	Error      string
	Input      int
	Output     int
	Degraded   int
	Filtered   int
	Aborted    bool
}

// Duration returns how long the run took.
func (r RunRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
