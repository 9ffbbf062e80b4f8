package model

import (
	"fmt"
	"strings"
)

// Truth is a reviewer's judgment of whether a prediction came true.
// The value is the code the reviewer typed and is persisted as-is.
type Truth string

// Truth judgment constants.
const (
	TruthFalse   Truth = "0"
	TruthTrue    Truth = "1"
	TruthPartial Truth = "p"
	TruthSkip    Truth = "skip"
)

// ParseTruth accepts a truth code or its label, case-insensitively.
func ParseTruth(s string) (Truth, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "false":
		return TruthFalse, nil
	case "1", "true":
		return TruthTrue, nil
	case "p", "partial":
		return TruthPartial, nil
	case "skip", "s", "skipped":
		return TruthSkip, nil
	default:
		return "", fmt.Errorf("invalid truth judgment %q", s)
	}
}

// Label returns the human-readable name of the judgment.
func (t Truth) Label() string {
	switch t {
	case TruthFalse:
		return "false"
	case TruthTrue:
		return "true"
	case TruthPartial:
		return "partial"
	case TruthSkip:
		return "skipped"
	default:
		return string(t)
	}
}

// ReviewRecord is one human judgment of a scored prediction.
// AI scores are copied at review time, not joined live.
type ReviewRecord struct {
	AISentiment     *int
	AISureness      *int
	OriginalID      string
	RedditText      string
	ManualTruth     Truth
	ManualNotes     string
	ManualSentiment int
	ManualSureness  int
}
