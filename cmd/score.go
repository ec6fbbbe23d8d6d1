package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/people-analytics/internal/aggregate"
	"github.com/sells-group/people-analytics/internal/report"
	"github.com/sells-group/people-analytics/internal/scoring"
)

var scoreCmd = &cobra.Command{
	Use:   "score <person> <year>",
	Short: "Score one person-year",
	Long: `Score every behavior of one person-year against the group and roll the
results up to driver and person-year averages.

The overall stakeholder ("%todos" by default) drives the averages. Behaviors
without an overall rating are skipped; behaviors whose individual vector is
all zeros score 0 and are flagged has_data=false.

Examples:
  # Terminal breakdown
  score ana 2023

  # Machine-readable
  score ana 2023 --format json --output ana-2023.json`,
	Args: cobra.ExactArgs(2),
	RunE: runScore,
}

func init() {
	addOutputFlags(scoreCmd)
	rootCmd.AddCommand(scoreCmd)
}

type scoreOutput struct {
	Summary      *aggregate.Summary        `json:"summary"`
	Ranking      *aggregate.Ranking        `json:"ranking,omitempty"`
	Drivers      []aggregate.DriverAverage `json:"drivers"`
	Behaviors    []aggregate.BehaviorScore `json:"behaviors"`
	Distribution []scoring.ShareDiff       `json:"distribution"`
}

func runScore(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	person, year := args[0], args[1]
	log := zap.L().With(zap.String("command", "score"), zap.String("person", person), zap.String("year", year))

	env, err := initAnalysis(ctx, cfg, !noProgress)
	if err != nil {
		return err
	}
	out, err := scorePersonYear(env.Engine, person, year)
	if err != nil {
		return err
	}
	log.Info("score: complete", zap.Int("behaviors", out.Summary.Count))

	if err := outputResults(cmd, out,
		report.SummaryTable(out.Summary),
		report.DriverTable(out.Drivers),
		report.BehaviorTable(out.Behaviors),
		report.DistributionTable(out.Distribution),
	); err != nil {
		return err
	}
	printLoadProblems(cmd.ErrOrStderr(), env.Load)
	return nil
}

func scorePersonYear(e *aggregate.Engine, person, year string) (*scoreOutput, error) {
	s, err := e.PersonYear(person, year)
	if err != nil {
		return nil, err
	}
	ev, _ := e.Dataset().Get(person, year)
	out := &scoreOutput{
		Summary:      s,
		Drivers:      e.DriverAverages(ev),
		Behaviors:    e.BehaviorScores(ev),
		Distribution: s.CategoryDiffs,
	}
	if r, ok := e.RankOf(person, year); ok {
		out.Ranking = &r
	}
	return out, nil
}
