// Package model defines the core domain models used throughout the application.
package model

import (
	"fmt"
	"strings"
	"time"
)

// PostKind distinguishes top-level submissions from comments.
type PostKind string

// Post kind constants.
const (
	KindSubmission PostKind = "submission"
	KindComment    PostKind = "comment"
)

// ParsePostKind converts a stored kind value into a PostKind.
func ParsePostKind(s string) (PostKind, error) {
	switch PostKind(strings.ToLower(strings.TrimSpace(s))) {
	case KindSubmission:
		return KindSubmission, nil
	case KindComment:
		return KindComment, nil
	default:
		return "", fmt.Errorf("unknown post kind %q", s)
	}
}

// RawPost is a single unit of text pulled from the data source.
// Submissions carry their title and body joined into Text.
type RawPost struct {
	CreatedAt time.Time
	ID        string
	Author    string
	Text      string
	SourceURL string
	Kind      PostKind
	Score     int
}

// CandidateRecord is a RawPost that passed the candidate filter.
type CandidateRecord = RawPost
