package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/soothsayer/internal/model"
)

func TestFilter_IsCandidate(t *testing.T) {
	f := New()

	tests := []struct {
		name string
		text string
		want bool
	}{
		{name: "plain marker", text: "I predict that rates drop", want: true},
		{name: "upper case", text: "MARK MY WORDS this ends badly", want: true},
		{name: "remindme", text: "RemindMe! 2 years", want: true},
		{name: "marker mid sentence", text: "the price will be 100 soon", want: true},
		{name: "by the end of", text: "done by the end of Q3", want: true},
		{name: "going to happen", text: "It's going to happen.", want: true},
		{name: "bet that", text: "I'd bet that nobody shows", want: true},
		{name: "will happen", text: "something will happen", want: true},
		{name: "no marker", text: "I like turtles", want: false},
		{name: "partial marker", text: "mark my word", want: false},
		{name: "empty", text: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.IsCandidate(tt.text))
		})
	}
}

func TestFilter_EveryDefaultMarkerMatches(t *testing.T) {
	f := New()
	for _, marker := range DefaultMarkers {
		assert.True(t, f.IsCandidate("prefix "+marker+" suffix"), marker)
	}
}

func TestFilter_ExtraMarkers(t *testing.T) {
	f := New("  Calling It ", "mark my words")

	assert.True(t, f.IsCandidate("calling it now: rain tomorrow"))
	assert.Len(t, f.Markers(), len(DefaultMarkers)+1)
	assert.ElementsMatch(t, []string{"calling it", "by the end of"},
		f.Match("Calling it, by the end of the week"))
}

func TestFilter_ZeroValue(t *testing.T) {
	var f Filter
	assert.False(t, f.IsCandidate("mark my words"))
}

func TestFilter_Candidates(t *testing.T) {
	f := New()
	posts := []model.RawPost{
		{ID: "a", Text: "nothing to see", Kind: model.KindSubmission},
		{ID: "b", Text: "Mark my words: it rains", Kind: model.KindComment},
		{ID: "c", Text: "bet that it snows", Kind: model.KindComment},
		{ID: "d", Text: "no claims here", Kind: model.KindComment},
	}

	got := f.Candidates(posts)
	ids := make([]string, 0, len(got))
	for _, p := range got {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"b", "c"}, ids)
	assert.Empty(t, f.Candidates(nil))
}
