package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/soothsayer/internal/cli"
	"github.com/Veraticus/soothsayer/internal/dataset"
	"github.com/Veraticus/soothsayer/internal/pipeline"
)

func reviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Grade scored predictions by hand",
		Long: `Walk through the scored predictions one at a time. For each one, say
whether it came true (0=False, 1=True, p=Partial, skip=Skip), give your own
sentiment and sureness scores from 1 to 10, and add optional notes.

Every answer is saved immediately. Press Ctrl+C to stop; nothing you
confirmed is lost.

Examples:
  sooth review            # start a fresh review
  sooth review --resume   # continue, skipping predictions already reviewed`,
		RunE: runReview,
	}

	addStageFlags(cmd, dataset.ScoredFile, dataset.ReviewsFile)
	cmd.Flags().BoolP("resume", "r", false, "keep previous reviews and skip predictions already reviewed")
	return cmd
}

func runReview(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	resume, _ := cmd.Flags().GetBool("resume")

	runner, cleanup, err := newRunner(cmd, cfg, needs{})
	if err != nil {
		return err
	}
	defer cleanup()

	out := cmd.OutOrStdout()
	handler := cli.NewInterruptHandler(out)
	ctx := handler.HandleInterrupts(cmd.Context(), "sooth review --resume")
	defer handler.Stop()

	prompter := cli.NewReviewPrompter(cmd.InOrStdin(), out)
	writeLine(out, cli.FormatTitle("Prediction review"))

	opts := pipeline.ReviewOptions{StageOptions: stageOptions(cmd), Resume: resume}
	summary, err := runner.Review(ctx, prompter, opts)
	if err != nil {
		return fmt.Errorf("review failed: %w", err)
	}

	if handler.WasInterrupted() {
		summary.Interrupted = true
	}

	output := opts.Output
	if output == "" {
		output = runner.Paths().Reviews
	}
	prompter.ShowSummary(summary, output)
	return nil
}
