// Package main contains the sooth CLI commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/soothsayer/internal/cli"
	"github.com/Veraticus/soothsayer/internal/common"
	"github.com/Veraticus/soothsayer/internal/config"
	"github.com/Veraticus/soothsayer/internal/dataset"
)

// Exit codes.
const (
	exitOK           = 0
	exitInput        = 1
	exitConfig       = 2
	exitBatchAborted = 3
	exitFailure      = 4
)

var (
	cfgFile string
	version = "dev"
	rootCmd = &cobra.Command{
		Use:   "sooth",
		Short: "🔮 Mine Reddit for predictions and grade them",
		Long: `soothsayer: find predictions in Reddit posts, extract what was predicted,
score how positive and how sure each one sounds, and review them by hand.

Each stage reads the previous stage's dataset from the data directory:
  crawl → filter → extract → score → review`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/sooth/config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", config.DefaultDataDir, "directory holding the pipeline datasets")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")

	_ = viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(crawlCmd())
	rootCmd.AddCommand(filterCmd())
	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(scoreCmd())
	rootCmd.AddCommand(reviewCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(runsCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Debug("Received interrupt signal, shutting down gracefully...")
		cancel()
	}()

	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(errorMessage(err)))
	}
	os.Exit(exitCode(err))
}

// errorMessage prefers the user-facing message of a common.UserError.
func errorMessage(err error) string {
	var userErr *common.UserError
	if errors.As(err, &userErr) {
		return userErr.UserMessage
	}
	return err.Error()
}

// exitCode maps a command error onto the documented exit status.
func exitCode(err error) int {
	var (
		missing *dataset.MissingDatasetError
		schema  *dataset.SchemaError
		cfgErr  *common.ConfigurationError
	)
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &missing), errors.As(err, &schema):
		return exitInput
	case errors.As(err, &cfgErr):
		return exitConfig
	case errors.Is(err, common.ErrBatchAborted):
		return exitBatchAborted
	default:
		return exitFailure
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	if err := config.LoadEnvFiles(); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}

		viper.AddConfigPath(fmt.Sprintf("%s/.config/sooth", home))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("SOOTH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	if _, err := common.SetupLogger(viper.GetString("logging.level"), viper.GetString("logging.format")); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s sooth %s\n", cli.OracleIcon, version)
		},
	}
}
