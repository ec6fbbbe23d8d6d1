package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/people-analytics/internal/analysis"
	"github.com/sells-group/people-analytics/internal/report"
)

var criteriaCmd = &cobra.Command{
	Use:   "criteria [year...]",
	Short: "List the behaviors evaluated in each year",
	Long: `List the (driver, behavior) pairs evaluated in each year, as the union over
everyone's record that year. With --common, list only the pairs shared by
every given year (all years when none are given).`,
	RunE: runCriteria,
}

func init() {
	addOutputFlags(criteriaCmd)
	criteriaCmd.Flags().Bool("common", false, "list only behaviors shared by every year")
	rootCmd.AddCommand(criteriaCmd)
}

func runCriteria(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env, err := initAnalysis(ctx, cfg, !noProgress)
	if err != nil {
		return err
	}
	common, _ := cmd.Flags().GetBool("common")
	sets := criteriaSets(env.Analyzer, args, common)

	out := make(map[string]map[string][]string, len(sets))
	for k, s := range sets {
		out[k] = s.Sorted()
	}
	if err := outputResults(cmd, out, report.CriteriaTable(sets)); err != nil {
		return err
	}
	printLoadProblems(cmd.ErrOrStderr(), env.Load)
	return nil
}

// criteriaSets keys each year's criteria by year, or the intersection of the
// years by "common".
func criteriaSets(a *analysis.Analyzer, years []string, common bool) map[string]analysis.BehaviorSet {
	ds := a.Engine().Dataset()
	if len(years) == 0 {
		years = ds.Years()
	}
	if common {
		return map[string]analysis.BehaviorSet{"common": a.CommonBehaviors(years)}
	}
	sets := make(map[string]analysis.BehaviorSet, len(years))
	for _, y := range years {
		sets[y] = analysis.YearCriteria(ds, y)
	}
	return sets
}
