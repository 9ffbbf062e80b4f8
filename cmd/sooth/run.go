package main

import (
	"github.com/spf13/cobra"

	"github.com/Veraticus/soothsayer/internal/dataset"
	"github.com/Veraticus/soothsayer/internal/pipeline"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run filter, extract and score in one go",
		Long: `Run the batch stages back to back: filter the raw posts, extract
predictions, and score them. Add --crawl to fetch fresh posts first.
Review is interactive and always runs on its own.

Examples:
  sooth run                 # filter → extract → score
  sooth run --crawl         # crawl → filter → extract → score
  sooth run -n 20           # only the first 20 raw posts`,
		RunE: runAll,
	}

	addStageFlags(cmd, dataset.RawPostsFile, dataset.ScoredFile)
	cmd.Flags().Bool("crawl", false, "crawl the configured subreddits first")
	return cmd
}

func runAll(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	crawl, _ := cmd.Flags().GetBool("crawl")

	runner, cleanup, err := newRunner(cmd, cfg, needs{oracle: true, crawler: crawl})
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	opts := stageOptions(cmd)

	if crawl {
		summary, err := runner.Crawl(ctx, cfg.Reddit.Subreddits, pipeline.StageOptions{Limit: cfg.Reddit.Limit})
		if err != nil {
			return err
		}
		printSummary(out, summary)
	}

	summaries, err := runner.All(ctx, opts)
	for i, s := range summaries {
		failed := err != nil && i == len(summaries)-1
		if !failed || s.Aborted {
			printSummary(out, s)
		}
	}
	return err
}
