package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Veraticus/soothsayer/internal/dataset"
	"github.com/Veraticus/soothsayer/internal/pipeline"
)

func crawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Fetch new posts and their comments from Reddit",
		Long: `Fetch the newest submissions of each subreddit plus every loaded comment
beneath them, and write them to the raw posts dataset.

Set reddit.client_id and reddit.client_secret (or REDDIT_CLIENT_ID and
REDDIT_CLIENT_SECRET) to use the authenticated API; otherwise the public
JSON endpoints are used.

Examples:
  sooth crawl                          # crawl the configured subreddits
  sooth crawl -s stocks -s investing   # crawl specific subreddits
  sooth crawl -s stocks -n 25          # only the 25 newest submissions`,
		RunE: runCrawl,
	}

	addStageFlags(cmd, "", dataset.RawPostsFile)
	cmd.Flags().StringSliceP("subreddit", "s", nil, "subreddit to crawl (repeatable; default: reddit.subreddits)")
	return cmd
}

func runCrawl(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	subreddits, _ := cmd.Flags().GetStringSlice("subreddit")
	if len(subreddits) == 0 {
		subreddits = cfg.Reddit.Subreddits
	}
	opts := stageOptions(cmd)
	if opts.Limit == 0 {
		opts.Limit = cfg.Reddit.Limit
	}

	runner, cleanup, err := newRunner(cmd, cfg, needs{crawler: true})
	if err != nil {
		return err
	}
	defer cleanup()

	summary, err := runner.Crawl(cmd.Context(), subreddits, opts)
	if err != nil {
		return err
	}
	printSummary(cmd.OutOrStdout(), summary)
	return nil
}

func filterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Keep posts that contain a prediction marker",
		Long: `Scan the raw posts for prediction phrases such as "mark my words" or
"i predict that" and write the matches to the candidates dataset.

Extra phrases can be added with filter.extra_markers in the config file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBatchStage(cmd, needs{}, (*pipeline.Runner).Filter)
		},
	}
	addStageFlags(cmd, dataset.RawPostsFile, dataset.CandidatesFile)
	return cmd
}

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Ask the oracle to structure each candidate as a prediction",
		Long: `Send every candidate to the configured language model, keep the ones it
recognizes as predictions, and write subject, outcome, deadline and
confidence to the predictions dataset.

The batch stops early after oracle.max_consecutive_failures transport
failures in a row; what was finished is still written.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBatchStage(cmd, needs{oracle: true}, (*pipeline.Runner).Extract)
		},
	}
	addStageFlags(cmd, dataset.CandidatesFile, dataset.PredictionsFile)
	return cmd
}

func scoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Rate each prediction's sentiment and sureness",
		Long: `Ask the oracle for a 1-10 sentiment score and a 1-10 sureness score for
every prediction. Records the oracle cannot score are kept with empty
scores and the note "Analysis failed".`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBatchStage(cmd, needs{oracle: true}, (*pipeline.Runner).Score)
		},
	}
	addStageFlags(cmd, dataset.PredictionsFile, dataset.ScoredFile)
	return cmd
}

type stageFunc func(*pipeline.Runner, context.Context, pipeline.StageOptions) (pipeline.Summary, error)

func runBatchStage(cmd *cobra.Command, n needs, stage stageFunc) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	runner, cleanup, err := newRunner(cmd, cfg, n)
	if err != nil {
		return err
	}
	defer cleanup()

	summary, err := stage(runner, cmd.Context(), stageOptions(cmd))
	if summary.Aborted {
		printSummary(cmd.OutOrStdout(), summary)
	}
	if err != nil {
		return err
	}
	printSummary(cmd.OutOrStdout(), summary)
	return nil
}
