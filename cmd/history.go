package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/people-analytics/internal/analysis"
	"github.com/sells-group/people-analytics/internal/report"
)

var historyCmd = &cobra.Command{
	Use:   "history <person>",
	Short: "Show a person's trend across years",
	Long: `Show a person's yearly averages, the trend between the first and last
scored year, and the track restricted to the behaviors every year shares.
When the years share no behavior, consecutive years are compared pairwise.`,
	Args: cobra.ExactArgs(1),
	RunE: runHistory,
}

func init() {
	addOutputFlags(historyCmd)
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env, err := initAnalysis(ctx, cfg, !noProgress)
	if err != nil {
		return err
	}
	h, err := env.Analyzer.History(args[0])
	if err != nil {
		return err
	}

	if err := outputResults(cmd, h, historyTables(h)...); err != nil {
		return err
	}
	printLoadProblems(cmd.ErrOrStderr(), env.Load)
	return nil
}

func historyTables(h *analysis.History) []report.Table {
	tables := []report.Table{
		report.TrendTable(h.Trend),
		report.TrackTable("all behaviors", h.All),
	}
	if len(h.CommonTrack) > 0 {
		tables = append(tables, report.TrackTable("common behaviors", h.CommonTrack))
	}
	if len(h.Pairwise) > 0 {
		tables = append(tables, report.PairwiseTable(h.Pairwise))
	}
	return tables
}
