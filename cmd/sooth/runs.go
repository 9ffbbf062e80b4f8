package main

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Veraticus/soothsayer/internal/cli"
	"github.com/Veraticus/soothsayer/internal/model"
)

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs [id]",
		Short: "Show recent stage runs",
		Long: `List the most recent stage executions recorded in the run ledger,
newest first, with their record counts and outcome. Pass a run ID to see
every detail of that run, including its input and output paths.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRuns,
	}
	cmd.Flags().IntP("limit", "n", 20, "number of runs to show (0 = all)")
	return cmd
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")

	store, err := initStorage(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("failed to open run ledger: %w", err)
	}
	defer func() { _ = store.Close() }()

	if len(args) == 1 {
		run, err := store.GetRun(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		renderRun(cmd.OutOrStdout(), *run)
		return nil
	}

	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		writeLine(out, cli.FormatInfo("No runs recorded yet"))
		return nil
	}
	renderRuns(out, runs)
	return nil
}

func renderRuns(out io.Writer, runs []model.RunRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Started", "Stage", "In", "Out", "Filtered", "Degraded", "Took", "Status"})

	for _, r := range runs {
		t.AppendRow(table.Row{
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Stage,
			r.Input,
			r.Output,
			r.Filtered,
			r.Degraded,
			r.Duration().Round(time.Millisecond),
			runStatus(r),
		})
	}
	t.Render()
}

func renderRun(out io.Writer, r model.RunRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendRows([]table.Row{
		{"ID", r.ID},
		{"Stage", r.Stage},
		{"Input", r.InputPath},
		{"Output", r.OutputPath},
		{"Started", r.StartedAt.Local().Format("2006-01-02 15:04:05")},
		{"Took", r.Duration().Round(time.Millisecond)},
		{"Records in", r.Input},
		{"Records out", r.Output},
		{"Filtered", r.Filtered},
		{"Degraded", r.Degraded},
		{"Status", runStatus(r)},
	})
	t.Render()
}

func runStatus(r model.RunRecord) string {
	switch {
	case r.Error != "" && !r.Aborted:
		return "failed: " + r.Error
	case r.Aborted:
		return "stopped early"
	default:
		return "ok"
	}
}
