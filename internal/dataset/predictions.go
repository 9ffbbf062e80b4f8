package dataset

import (
	"fmt"

	"github.com/Veraticus/soothsayer/internal/model"
)

// PredictionColumns is the layout of structured_predictions.csv.
var PredictionColumns = []string{
	"original_id", "author", "source_text", "subject", "predicted_outcome",
	"deadline", "confidence_label", "reasoning", "created_at",
}

// ScoredColumns is the layout of analyzed_predictions.csv.
var ScoredColumns = append(append([]string{}, PredictionColumns...),
	"sentiment_score", "sureness_score", "analysis_note")

var (
	requiredPredictionColumns = []string{"original_id", "source_text"}
	requiredScoredColumns     = []string{"original_id", "source_text", "sentiment_score", "sureness_score"}
)

// ReadPredictions loads the extractor's output.
func ReadPredictions(path string) ([]model.Prediction, error) {
	t, err := ReadTable(path, model.StageExtract, requiredPredictionColumns...)
	if err != nil {
		return nil, err
	}

	out := make([]model.Prediction, 0, len(t.Rows))
	for _, row := range t.Rows {
		out = append(out, decodePrediction(t, row))
	}
	return out, nil
}

func decodePrediction(t *Table, row []string) model.Prediction {
	return model.Prediction{
		OriginalID:       t.Cell(row, "original_id"),
		Author:           t.Cell(row, "author"),
		SourceText:       t.Cell(row, "source_text"),
		Subject:          parseOptString(t.Cell(row, "subject")),
		PredictedOutcome: parseOptString(t.Cell(row, "predicted_outcome")),
		Deadline:         parseOptString(t.Cell(row, "deadline")),
		ConfidenceLabel:  model.NormalizeConfidence(parseOptString(t.Cell(row, "confidence_label"))),
		Reasoning:        t.Cell(row, "reasoning"),
		CreatedAt:        t.Cell(row, "created_at"),
	}
}

func encodePrediction(p model.Prediction) []string {
	confidence := ""
	if p.ConfidenceLabel != nil {
		confidence = string(*p.ConfidenceLabel)
	}
	return []string{
		p.OriginalID,
		p.Author,
		p.SourceText,
		formatOptString(p.Subject),
		formatOptString(p.PredictedOutcome),
		formatOptString(p.Deadline),
		confidence,
		p.Reasoning,
		p.CreatedAt,
	}
}

// WritePredictions replaces path with predictions.
func WritePredictions(path string, predictions []model.Prediction) error {
	t := NewTable(PredictionColumns)
	for _, p := range predictions {
		t.Append(encodePrediction(p))
	}
	return WriteTable(path, t)
}

// ReadScored loads the scorer's output.
func ReadScored(path string) ([]model.ScoredPrediction, error) {
	t, err := ReadTable(path, model.StageScore, requiredScoredColumns...)
	if err != nil {
		return nil, err
	}

	out := make([]model.ScoredPrediction, 0, len(t.Rows))
	for i, row := range t.Rows {
		sp := model.ScoredPrediction{
			Prediction:   decodePrediction(t, row),
			AnalysisNote: t.Cell(row, "analysis_note"),
		}
		if sp.SentimentScore, err = parseOptInt(t.Cell(row, "sentiment_score")); err != nil {
			return nil, &SchemaError{Path: path, Producer: model.StageScore, Reason: fmt.Sprintf("row %d: sentiment_score: %v", i+2, err)}
		}
		if sp.SurenessScore, err = parseOptInt(t.Cell(row, "sureness_score")); err != nil {
			return nil, &SchemaError{Path: path, Producer: model.StageScore, Reason: fmt.Sprintf("row %d: sureness_score: %v", i+2, err)}
		}
		out = append(out, sp)
	}
	return out, nil
}

// WriteScored replaces path with scored predictions.
func WriteScored(path string, scored []model.ScoredPrediction) error {
	t := NewTable(ScoredColumns)
	for _, sp := range scored {
		row := encodePrediction(sp.Prediction)
		row = append(row, formatOptInt(sp.SentimentScore), formatOptInt(sp.SurenessScore), sp.AnalysisNote)
		t.Append(row)
	}
	return WriteTable(path, t)
}
