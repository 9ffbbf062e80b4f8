package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/soothsayer/internal/model"
	"github.com/Veraticus/soothsayer/internal/review"
)

func scoredItem() model.ScoredPrediction {
	return model.ScoredPrediction{
		Prediction: model.Prediction{
			OriginalID:       "c1",
			Author:           "trader",
			SourceText:       "mark my words, X will do Y by tomorrow",
			Subject:          model.StringPtr("X"),
			PredictedOutcome: model.StringPtr("Y"),
			Deadline:         model.StringPtr("tomorrow"),
		},
		SentimentScore: model.IntPtr(8),
		SurenessScore:  model.IntPtr(9),
		AnalysisNote:   "very bullish",
	}
}

func TestReviewPrompter_Judge(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		want       review.Judgment
		wantOutput []string
		wantErr    error
	}{
		{
			name:       "full judgment",
			input:      "1\n7\n8\nconfirmed\n",
			want:       review.Judgment{Truth: model.TruthTrue, Sentiment: 7, Sureness: 8, Notes: "confirmed"},
			wantOutput: []string{"Prediction 2 of 5", "Subject: X", "sentiment 8, sureness 9"},
		},
		{
			name:  "skip",
			input: "skip\n",
			want:  review.Judgment{Truth: model.TruthSkip},
		},
		{
			name:       "invalid truth then partial",
			input:      "maybe\np\n3\n4\n\n",
			want:       review.Judgment{Truth: model.TruthPartial, Sentiment: 3, Sureness: 4},
			wantOutput: []string{"Invalid choice. Please try again."},
		},
		{
			name:       "out of range and non-numeric scores re-prompt",
			input:      "0\n11\nseven\n2\n10\nnope\n",
			want:       review.Judgment{Truth: model.TruthFalse, Sentiment: 2, Sureness: 10, Notes: "nope"},
			wantOutput: []string{"Enter a whole number from 1 to 10."},
		},
		{
			name:    "eof mid judgment",
			input:   "1\n7\n",
			wantErr: review.ErrInterrupted,
		},
		{
			name:    "no input",
			input:   "",
			wantErr: review.ErrInterrupted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := NewReviewPrompter(strings.NewReader(tt.input), &out)

			got, err := p.Judge(context.Background(), scoredItem(), 2, 5)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			for _, s := range tt.wantOutput {
				assert.Contains(t, out.String(), s)
			}
		})
	}
}

func TestReviewPrompter_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewReviewPrompter(strings.NewReader("1\n"), &bytes.Buffer{})
	_, err := p.Judge(ctx, scoredItem(), 1, 1)
	assert.ErrorIs(t, err, review.ErrInterrupted)
}

func TestReviewPrompter_DegradedItem(t *testing.T) {
	item := scoredItem()
	item.SentimentScore = nil
	item.SurenessScore = nil
	item.AnalysisNote = "Analysis failed"

	var out bytes.Buffer
	p := NewReviewPrompter(strings.NewReader("skip\n"), &out)
	_, err := p.Judge(context.Background(), item, 1, 1)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "sentiment -, sureness -")
	assert.Contains(t, out.String(), "(analysis failed)")
}

func TestReviewPrompter_ShowSummary(t *testing.T) {
	var out bytes.Buffer
	p := NewReviewPrompter(strings.NewReader(""), &out)

	p.ShowSummary(review.Summary{Total: 4, Reviewed: 1, Skipped: 1, Remaining: 2, Interrupted: true}, "data/manual_reviews.csv")

	assert.Contains(t, out.String(), "Review Paused")
	assert.Contains(t, out.String(), "Remaining: 2")
	assert.Contains(t, out.String(), "data/manual_reviews.csv")
}

func TestProgressBar_Lifecycle(t *testing.T) {
	var out bytes.Buffer
	bar := NewProgressBar(&out)

	bar.Increment()
	bar.Finish()

	bar.Start(2, "Extracting")
	bar.Increment()
	bar.Increment()
	bar.Finish()
	bar.Finish()

	assert.Contains(t, out.String(), "Extracting")
}
