package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/people-analytics/internal/aggregate"
	"github.com/sells-group/people-analytics/internal/report"
)

var compareCmd = &cobra.Command{
	Use:   "compare <year>",
	Short: "Rank everyone evaluated in a year",
	Long: `Rank every person with a record in the year by average score, highest
first. Ties share a rank and the next rank is skipped (1, 2, 2, 4). People
without a defined average are listed last without a rank.

Examples:
  compare 2023
  compare 2023 --format csv --output ranking-2023.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runCompare,
}

func init() {
	addOutputFlags(compareCmd)
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	year := args[0]
	env, err := initAnalysis(ctx, cfg, !noProgress)
	if err != nil {
		return err
	}
	rs := env.Engine.RankYear(year)
	if len(rs) == 0 {
		return eris.Wrapf(aggregate.ErrNotFound, "compare: year %s", year)
	}
	zap.L().Info("compare: ranked", zap.String("year", year), zap.Int("people", len(rs)))

	if err := outputResults(cmd, rs, report.RankingTable(year, rs)); err != nil {
		return err
	}
	printLoadProblems(cmd.ErrOrStderr(), env.Load)
	return nil
}
