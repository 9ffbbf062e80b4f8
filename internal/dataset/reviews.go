package dataset

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/Veraticus/soothsayer/internal/model"
)

// ReviewColumns is the layout of manual_reviews.csv.
var ReviewColumns = []string{
	"original_id", "reddit_text", "ai_sentiment", "ai_sureness",
	"manual_truth", "manual_sentiment", "manual_sureness", "manual_notes",
}

var requiredReviewColumns = []string{"original_id", "manual_truth"}

// ReadReviews loads a review snapshot.
func ReadReviews(path string) ([]model.ReviewRecord, error) {
	t, err := ReadTable(path, model.StageReview, requiredReviewColumns...)
	if err != nil {
		return nil, err
	}

	out := make([]model.ReviewRecord, 0, len(t.Rows))
	for i, row := range t.Rows {
		rec, err := decodeReview(t, row)
		if err != nil {
			return nil, &SchemaError{Path: path, Producer: model.StageReview, Reason: fmt.Sprintf("row %d: %v", i+2, err)}
		}
		out = append(out, rec)
	}
	return out, nil
}

func decodeReview(t *Table, row []string) (model.ReviewRecord, error) {
	rec := model.ReviewRecord{
		OriginalID:  t.Cell(row, "original_id"),
		RedditText:  t.Cell(row, "reddit_text"),
		ManualTruth: model.Truth(t.Cell(row, "manual_truth")),
		ManualNotes: t.Cell(row, "manual_notes"),
	}

	var err error
	if rec.AISentiment, err = parseOptInt(t.Cell(row, "ai_sentiment")); err != nil {
		return rec, fmt.Errorf("ai_sentiment: %w", err)
	}
	if rec.AISureness, err = parseOptInt(t.Cell(row, "ai_sureness")); err != nil {
		return rec, fmt.Errorf("ai_sureness: %w", err)
	}
	if rec.ManualSentiment, err = parseInt(t.Cell(row, "manual_sentiment")); err != nil {
		return rec, fmt.Errorf("manual_sentiment: %w", err)
	}
	if rec.ManualSureness, err = parseInt(t.Cell(row, "manual_sureness")); err != nil {
		return rec, fmt.Errorf("manual_sureness: %w", err)
	}
	return rec, nil
}

// WriteReviews replaces path with the full review set.
func WriteReviews(path string, records []model.ReviewRecord) error {
	t := NewTable(ReviewColumns)
	for _, r := range records {
		t.Append([]string{
			r.OriginalID,
			r.RedditText,
			formatOptInt(r.AISentiment),
			formatOptInt(r.AISureness),
			string(r.ManualTruth),
			strconv.Itoa(r.ManualSentiment),
			strconv.Itoa(r.ManualSureness),
			r.ManualNotes,
		})
	}
	return WriteTable(path, t)
}

// ReviewSnapshot persists the accumulated review set to a single file.
type ReviewSnapshot struct {
	Path string
}

// Save overwrites the snapshot with records.
func (s ReviewSnapshot) Save(records []model.ReviewRecord) error {
	return WriteReviews(s.Path, records)
}

// Load returns the existing snapshot, or nothing if the file does not exist yet.
func (s ReviewSnapshot) Load() ([]model.ReviewRecord, error) {
	records, err := ReadReviews(s.Path)
	if err != nil {
		var missing *MissingDatasetError
		if errors.As(err, &missing) {
			return nil, nil
		}
		return nil, err
	}
	return records, nil
}
