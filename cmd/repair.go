package main

import (
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/people-analytics/internal/repair"
	"github.com/sells-group/people-analytics/internal/report"
	"github.com/sells-group/people-analytics/internal/scoring"
)

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Normalize frequency vectors in place",
	Long: `Rewrite every frequency vector in the evaluation tree to the scheme length:
pad short vectors with zeros, truncate long ones, and replace null or
non-numeric entries with zeros. With --legacy, vectors one category short are
converted from the 5-category layout by prepending an empty n/a slot.

The original file is kept as resultado.json.bak the first time it changes.

Examples:
  # Report what would change
  repair --dry-run

  # Convert 5-category files to the 6-category layout
  repair --legacy`,
	Args: cobra.NoArgs,
	RunE: runRepair,
}

func init() {
	addOutputFlags(repairCmd)
	f := repairCmd.Flags()
	f.Bool("dry-run", false, "report changes without writing files")
	f.Bool("legacy", false, "prepend an n/a slot to vectors one category short")
	rootCmd.AddCommand(repairCmd)
}

func runRepair(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheme, err := scoring.Resolve(cfg.Scoring)
	if err != nil {
		return err
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	legacy, _ := cmd.Flags().GetBool("legacy")

	rep, err := repair.Dir(ctx, cfg.Data.BasePath, cfg.Data.FileName, cfg.Batch.MaxConcurrentFiles, repair.Options{
		VectorLength:  scheme.Len(),
		LegacyPrepend: legacy,
		DryRun:        dryRun,
	})
	if err != nil {
		return err
	}
	zap.L().Info("repair: complete",
		zap.Int("files", len(rep.Files)),
		zap.Int("fixed", rep.Fixed()),
		zap.Int("failed", len(rep.Errors)),
		zap.Bool("dry_run", dryRun),
	)

	return outputResults(cmd, rep, repairTable(rep))
}

func repairTable(rep *repair.Report) report.Table {
	t := report.Table{
		Header:  []string{"path", "fixed", "written", "backup", "error"},
		Numeric: map[int]bool{1: true},
	}
	for _, f := range rep.Files {
		t.Rows = append(t.Rows, []string{f.Path, strconv.Itoa(f.Fixed), strconv.FormatBool(f.Written), f.Backup, ""})
	}
	for _, e := range rep.Errors {
		t.Rows = append(t.Rows, []string{e.Path, "", "", "", e.Err})
	}
	return t
}
