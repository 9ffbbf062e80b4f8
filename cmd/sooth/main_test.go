package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/soothsayer/internal/batch"
	"github.com/Veraticus/soothsayer/internal/common"
	"github.com/Veraticus/soothsayer/internal/config"
	"github.com/Veraticus/soothsayer/internal/dataset"
	"github.com/Veraticus/soothsayer/internal/model"
	"github.com/Veraticus/soothsayer/internal/pipeline"
	"github.com/Veraticus/soothsayer/internal/storage"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		name string
		want int
	}{
		{name: "success", want: exitOK},
		{name: "missing dataset", err: &dataset.MissingDatasetError{Path: "x.csv", Producer: model.StageFilter}, want: exitInput},
		{name: "schema error", err: fmt.Errorf("load: %w", &dataset.SchemaError{Path: "x.csv", Reason: "bad"}), want: exitInput},
		{name: "oracle unconfigured", err: common.NewConfigurationError("oracle.api_key", common.ErrMissingConfig), want: exitConfig},
		{name: "batch aborted", err: fmt.Errorf("%w: 3 consecutive transport failures", common.ErrBatchAborted), want: exitBatchAborted},
		{name: "anything else", err: errors.New("disk full"), want: exitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestErrorMessage(t *testing.T) {
	wrapped := fmt.Errorf("export: %w", common.NewUserError("data.xlsx is already a workbook", nil))
	assert.Equal(t, "data.xlsx is already a workbook", errorMessage(wrapped))
	assert.Equal(t, "disk full", errorMessage(errors.New("disk full")))
	assert.Equal(t, exitFailure, exitCode(wrapped))
}

func TestPrintSummary(t *testing.T) {
	tests := []struct {
		name    string
		summary pipeline.Summary
		want    []string
		notWant []string
	}{
		{
			name: "filter",
			summary: pipeline.Summary{Stage: model.StageFilter, OutputPath: "data/candidates.csv",
				Summary: batch.Summary{Input: 3, Output: 1}},
			want:    []string{"Kept 1 of 3 posts", "data/candidates.csv"},
			notWant: []string{"degraded"},
		},
		{
			name: "degraded score",
			summary: pipeline.Summary{Stage: model.StageScore, OutputPath: "out.csv",
				Summary: batch.Summary{Output: 5, Degraded: 2, TransportFailures: 1, Malformed: 1}},
			want: []string{"Scored 5 predictions", "2 records degraded"},
		},
		{
			name: "aborted extract",
			summary: pipeline.Summary{Stage: model.StageExtract,
				Summary: batch.Summary{Input: 10, Processed: 4, Output: 1, Aborted: true}},
			want: []string{"Extracted 1 predictions", "4 of 10 records processed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			printSummary(&out, tt.summary)
			for _, s := range tt.want {
				assert.Contains(t, out.String(), s)
			}
			for _, s := range tt.notWant {
				assert.NotContains(t, out.String(), s)
			}
		})
	}
}

func TestResolveDataset(t *testing.T) {
	cfg := &config.Config{DataDir: "data"}

	assert.Equal(t, filepath.Join("data", dataset.ScoredFile), resolveDataset(cfg, "scored"))
	assert.Equal(t, filepath.Join("data", dataset.ReviewsFile), resolveDataset(cfg, "Reviews"))
	assert.Equal(t, "elsewhere/file.csv", resolveDataset(cfg, "elsewhere/file.csv"))
}

func TestRenderRuns(t *testing.T) {
	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	runs := []model.RunRecord{
		{Stage: model.StageExtract, Input: 10, Output: 4, Degraded: 1, StartedAt: start, FinishedAt: start.Add(2 * time.Second)},
		{Stage: model.StageScore, Aborted: true, Error: "batch aborted", StartedAt: start, FinishedAt: start},
		{Stage: model.StageFilter, Error: "missing input", StartedAt: start, FinishedAt: start},
	}

	var out bytes.Buffer
	renderRuns(&out, runs)

	assert.Contains(t, out.String(), "extract")
	assert.Contains(t, out.String(), "2s")
	assert.Contains(t, out.String(), "stopped early")
	assert.Contains(t, out.String(), "failed: missing input")
}

func TestRunsCommand_ShowsOneRun(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sooth.db")
	viper.Set("database.path", dbPath)
	viper.Set("data_dir", dir)
	t.Cleanup(viper.Reset)

	ctx := context.Background()
	store, err := storage.NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))
	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	id, err := store.RecordRun(ctx, model.RunRecord{
		Stage:      model.StageScore,
		InputPath:  "data/structured_predictions.csv",
		OutputPath: "data/analyzed_predictions.csv",
		Input:      3,
		Output:     3,
		Degraded:   1,
		StartedAt:  start,
		FinishedAt: start.Add(time.Second),
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	var out bytes.Buffer
	cmd := runsCmd()
	cmd.SetOut(&out)
	cmd.SetContext(ctx)
	require.NoError(t, cmd.RunE(cmd, []string{id}))

	assert.Contains(t, out.String(), id)
	assert.Contains(t, out.String(), "data/analyzed_predictions.csv")
	assert.Contains(t, out.String(), "ok")

	err = cmd.RunE(cmd, []string{"missing"})
	assert.ErrorIs(t, err, storage.ErrRunNotFound)
}
