// Package filter pre-screens raw text for phrases that usually introduce a prediction.
package filter

import (
	"strings"
	"sync"

	ahocorasick "github.com/cloudflare/ahocorasick"

	"github.com/Veraticus/soothsayer/internal/model"
)

// DefaultMarkers are the phrases that mark text as a prediction candidate.
var DefaultMarkers = []string{
	"i predict that",
	"will happen",
	"going to happen",
	"bet that",
	"remindme!",
	"price will be",
	"by the end of",
	"mark my words",
}

// Filter matches text against a fixed marker set in a single pass.
// Matching is case-insensitive. The zero value matches nothing.
type Filter struct {
	matcher *ahocorasick.Matcher
	markers []string
	// the automaton keeps per-search scratch state
	mu sync.Mutex
}

// New builds a Filter over DefaultMarkers plus any extra markers.
func New(extra ...string) *Filter {
	seen := make(map[string]struct{}, len(DefaultMarkers)+len(extra))
	markers := make([]string, 0, len(DefaultMarkers)+len(extra))

	for _, m := range append(append([]string{}, DefaultMarkers...), extra...) {
		normalized := strings.ToLower(strings.TrimSpace(m))
		if normalized == "" {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		markers = append(markers, normalized)
	}

	return &Filter{
		markers: markers,
		matcher: ahocorasick.NewStringMatcher(markers),
	}
}

// Markers returns the normalized marker set.
func (f *Filter) Markers() []string {
	return append([]string(nil), f.markers...)
}

// IsCandidate reports whether text contains at least one marker.
func (f *Filter) IsCandidate(text string) bool {
	return len(f.Match(text)) > 0
}

// Match returns the markers found in text, in marker-set order.
func (f *Filter) Match(text string) []string {
	if f == nil || f.matcher == nil || text == "" {
		return nil
	}

	f.mu.Lock()
	hits := f.matcher.Match([]byte(strings.ToLower(text)))
	f.mu.Unlock()

	if len(hits) == 0 {
		return nil
	}

	matched := make([]string, 0, len(hits))
	for _, idx := range hits {
		matched = append(matched, f.markers[idx])
	}
	return matched
}

// Candidates keeps the posts whose text passes the filter, preserving order.
func (f *Filter) Candidates(posts []model.RawPost) []model.CandidateRecord {
	out := make([]model.CandidateRecord, 0, len(posts))
	for _, p := range posts {
		if f.IsCandidate(p.Text) {
			out = append(out, p)
		}
	}
	return out
}
