package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/soothsayer/internal/cli"
	"github.com/Veraticus/soothsayer/internal/config"
	"github.com/Veraticus/soothsayer/internal/extract"
	"github.com/Veraticus/soothsayer/internal/filter"
	"github.com/Veraticus/soothsayer/internal/model"
	"github.com/Veraticus/soothsayer/internal/oracle"
	"github.com/Veraticus/soothsayer/internal/pipeline"
	"github.com/Veraticus/soothsayer/internal/score"
	"github.com/Veraticus/soothsayer/internal/source"
	"github.com/Veraticus/soothsayer/internal/storage"
)

// needs selects the collaborators a command wires into its runner.
type needs struct {
	oracle  bool
	crawler bool
}

func loadConfig() (*config.Config, error) {
	return config.Load(viper.GetViper())
}

// initStorage opens and migrates the run ledger.
func initStorage(ctx context.Context, cfg *config.Config) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// buildGateway creates the paced, retrying oracle gateway from configuration.
func buildGateway(cfg *config.Config, logger *slog.Logger) (*oracle.Gateway, error) {
	client, err := oracle.NewClient(oracle.Config{
		Provider:    cfg.Oracle.Provider,
		APIKey:      cfg.Oracle.APIKey,
		Model:       cfg.Oracle.Model,
		BaseURL:     cfg.Oracle.BaseURL,
		Temperature: cfg.Oracle.Temperature,
		MaxTokens:   cfg.Oracle.MaxTokens,
		Timeout:     cfg.Oracle.Timeout,
	})
	if err != nil {
		return nil, err
	}

	return oracle.NewGateway(client,
		oracle.WithLimiter(oracle.NewIntervalLimiter(cfg.Oracle.CallInterval)),
		oracle.WithRetries(cfg.Oracle.MaxRetries, cfg.Oracle.RetryDelay),
		oracle.WithLogger(logger),
	), nil
}

// newRunner assembles a pipeline runner. The returned cleanup closes the ledger.
func newRunner(cmd *cobra.Command, cfg *config.Config, n needs) (*pipeline.Runner, func(), error) {
	ctx := cmd.Context()
	logger := slog.Default()

	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithFilter(filter.New(cfg.Filter.ExtraMarkers...)),
		pipeline.WithProgress(cli.NewProgressBar(cmd.ErrOrStderr())),
	}

	if n.oracle {
		gw, err := buildGateway(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts,
			pipeline.WithExtractor(extract.New(gw, logger,
				extract.WithMaxConsecutiveFailures(cfg.Oracle.MaxConsecutiveFailures))),
			pipeline.WithScorer(score.New(gw, logger,
				score.WithMaxConsecutiveFailures(cfg.Oracle.MaxConsecutiveFailures))),
		)
	}

	if n.crawler {
		opts = append(opts, pipeline.WithCrawler(source.NewReddit(ctx, source.Options{
			ClientID:        cfg.Reddit.ClientID,
			ClientSecret:    cfg.Reddit.ClientSecret,
			UserAgent:       cfg.Reddit.UserAgent,
			RequestInterval: cfg.Reddit.RequestInterval,
		}, logger)))
	}

	cleanup := func() {}
	store, err := initStorage(ctx, cfg)
	if err != nil {
		logger.Warn("Run ledger unavailable, runs will not be recorded", "error", err)
	} else {
		opts = append(opts, pipeline.WithLedger(store))
		cleanup = func() {
			if closeErr := store.Close(); closeErr != nil {
				logger.Error("Failed to close database", "error", closeErr)
			}
		}
	}

	return pipeline.New(pipeline.DefaultPaths(cfg.DataDir), opts...), cleanup, nil
}

func addStageFlags(cmd *cobra.Command, input, output string) {
	if input != "" {
		cmd.Flags().StringP("input", "i", "", fmt.Sprintf("input dataset (default: <data-dir>/%s)", input))
	}
	cmd.Flags().StringP("output", "o", "", fmt.Sprintf("output dataset (default: <data-dir>/%s)", output))
	cmd.Flags().IntP("limit", "n", 0, "process at most this many records (0 = all)")
}

func stageOptions(cmd *cobra.Command) pipeline.StageOptions {
	var opts pipeline.StageOptions
	if f := cmd.Flags().Lookup("input"); f != nil {
		opts.Input = config.ExpandPath(f.Value.String())
	}
	output, _ := cmd.Flags().GetString("output")
	opts.Output = config.ExpandPath(output)
	opts.Limit, _ = cmd.Flags().GetInt("limit")
	return opts
}

// printSummary reports a finished stage to the user.
func printSummary(w io.Writer, s pipeline.Summary) {
	var msg string
	switch s.Stage {
	case model.StageCrawl:
		msg = fmt.Sprintf("Crawled %d posts", s.Output)
	case model.StageFilter:
		msg = fmt.Sprintf("Kept %d of %d posts as prediction candidates", s.Output, s.Input)
	case model.StageExtract:
		msg = fmt.Sprintf("Extracted %d predictions from %d candidates", s.Output, s.Processed)
	case model.StageScore:
		msg = fmt.Sprintf("Scored %d predictions", s.Output)
	default:
		msg = fmt.Sprintf("%s produced %d records", s.Stage, s.Output)
	}
	writeLine(w, cli.FormatSuccess(fmt.Sprintf("%s → %s", msg, s.OutputPath)))

	if s.Degraded > 0 {
		writeLine(w, cli.FormatWarning(fmt.Sprintf("%d records degraded (%d transport failures, %d unusable replies)",
			s.Degraded, s.TransportFailures, s.Malformed)))
	}
	if s.Aborted {
		writeLine(w, cli.FormatWarning(fmt.Sprintf("Stopped early after repeated oracle failures; %d of %d records processed",
			s.Processed, s.Input)))
	}
}

func writeLine(w io.Writer, line string) {
	if _, err := fmt.Fprintln(w, line); err != nil {
		slog.Warn("Failed to write output", "error", err)
	}
}
