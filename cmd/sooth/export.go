package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/soothsayer/internal/cli"
	"github.com/Veraticus/soothsayer/internal/common"
	"github.com/Veraticus/soothsayer/internal/config"
	"github.com/Veraticus/soothsayer/internal/dataset"
)

// datasetNames maps short names to dataset files.
var datasetNames = map[string]string{
	"raw":         dataset.RawPostsFile,
	"candidates":  dataset.CandidatesFile,
	"predictions": dataset.PredictionsFile,
	"scored":      dataset.ScoredFile,
	"reviews":     dataset.ReviewsFile,
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <dataset>",
		Short: "Export a dataset as an Excel workbook",
		Long: `Write a dataset to an .xlsx workbook with a frozen header row.

<dataset> is one of raw, candidates, predictions, scored, reviews, or a
path to any CSV dataset.

Examples:
  sooth export scored                      # data/analyzed_predictions.xlsx
  sooth export reviews -o ~/reviews.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: runExport,
	}
	cmd.Flags().StringP("output", "o", "", "workbook path (default: dataset path with .xlsx)")
	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	src := resolveDataset(cfg, args[0])
	if strings.EqualFold(filepath.Ext(src), ".xlsx") {
		return common.NewUserError(fmt.Sprintf("%s is already a workbook; pass a CSV dataset", src), nil)
	}
	dst, _ := cmd.Flags().GetString("output")
	if dst == "" {
		dst = strings.TrimSuffix(src, filepath.Ext(src)) + ".xlsx"
	}
	dst = config.ExpandPath(dst)

	rows, err := dataset.ExportXLSX(src, dst)
	if err != nil {
		return err
	}
	writeLine(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Exported %d rows → %s", rows, dst)))
	return nil
}

func resolveDataset(cfg *config.Config, name string) string {
	if file, ok := datasetNames[strings.ToLower(name)]; ok {
		return cfg.DatasetPath(file)
	}
	return config.ExpandPath(name)
}
