package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/people-analytics/internal/aggregate"
	"github.com/sells-group/people-analytics/internal/analysis"
	"github.com/sells-group/people-analytics/internal/report"
)

var gapsCmd = &cobra.Command{
	Use:   "gaps [person] [year]",
	Short: "List stakeholder perception gaps",
	Long: `List, per behavior, the spread between the stakeholder groups that scored
a person highest and lowest, largest gaps first. The overall stakeholder is
excluded and a behavior needs at least two stakeholder groups.

Without arguments every person-year is listed; with a person, every year of
that person.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runGaps,
}

func init() {
	addOutputFlags(gapsCmd)
	gapsCmd.Flags().Int("top", 0, "keep only the N largest gaps (0 = all)")
	rootCmd.AddCommand(gapsCmd)
}

func runGaps(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env, err := initAnalysis(ctx, cfg, !noProgress)
	if err != nil {
		return err
	}
	top, _ := cmd.Flags().GetInt("top")
	gaps, err := collectGaps(env.Analyzer, args, top)
	if err != nil {
		return err
	}

	if err := outputResults(cmd, gaps, report.GapTable(gaps)); err != nil {
		return err
	}
	printLoadProblems(cmd.ErrOrStderr(), env.Load)
	return nil
}

// collectGaps gathers the gaps of the person-years selected by args
// ([person [year]]) sorted by gap, largest first.
func collectGaps(a *analysis.Analyzer, args []string, top int) ([]analysis.StakeholderGap, error) {
	ds := a.Engine().Dataset()
	var people []string
	if len(args) > 0 {
		people = []string{args[0]}
	} else {
		people = ds.People()
	}

	gaps := []analysis.StakeholderGap{}
	for _, p := range people {
		years := ds.PersonYears(p)
		if len(args) > 1 {
			years = []string{args[1]}
		}
		if len(years) == 0 {
			return nil, eris.Wrapf(aggregate.ErrNotFound, "gaps: %s", p)
		}
		for _, y := range years {
			gs, err := a.Gaps(p, y)
			if err != nil {
				return nil, err
			}
			gaps = append(gaps, gs...)
		}
	}

	analysis.SortGaps(gaps)
	if top > 0 && len(gaps) > top {
		gaps = gaps[:top]
	}
	return gaps, nil
}
