package model

import "strings"

// ConfidenceLabel is the oracle's assessment of how strongly a claim was asserted.
type ConfidenceLabel string

// Confidence label constants.
const (
	ConfidenceHigh    ConfidenceLabel = "high"
	ConfidenceMedium  ConfidenceLabel = "medium"
	ConfidenceLow     ConfidenceLabel = "low"
	ConfidenceUnknown ConfidenceLabel = "unknown"
)

// NormalizeConfidence maps a free-form label onto the known set.
// A nil input stays nil; anything unrecognized becomes ConfidenceUnknown.
func NormalizeConfidence(s *string) *ConfidenceLabel {
	if s == nil {
		return nil
	}
	label := ConfidenceLabel(strings.ToLower(strings.TrimSpace(*s)))
	switch label {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow, ConfidenceUnknown:
	default:
		label = ConfidenceUnknown
	}
	return &label
}

// Prediction is a structured claim extracted from a candidate.
// It only exists when the oracle judged the source text to contain a prediction.
type Prediction struct {
	Subject          *string
	PredictedOutcome *string
	Deadline         *string
	ConfidenceLabel  *ConfidenceLabel
	OriginalID       string
	Author           string
	SourceText       string
	Reasoning        string
	CreatedAt        string
}

// ScoredPrediction is a Prediction annotated with sentiment and sureness.
// Nil scores mean the scoring call failed for this record, not a zero score.
type ScoredPrediction struct {
	SentimentScore *int
	SurenessScore  *int
	AnalysisNote   string
	Prediction
}

// Degraded reports whether scoring failed for this record.
func (s ScoredPrediction) Degraded() bool {
	return s.SentimentScore == nil && s.SurenessScore == nil
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// IntPtr returns a pointer to i.
func IntPtr(i int) *int {
	return &i
}
