package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/sells-group/people-analytics/internal/aggregate"
	"github.com/sells-group/people-analytics/internal/analysis"
	"github.com/sells-group/people-analytics/internal/config"
	"github.com/sells-group/people-analytics/internal/dataset"
	"github.com/sells-group/people-analytics/internal/report"
	"github.com/sells-group/people-analytics/internal/scoring"
)

var noProgress bool

// analysisEnv holds a loaded evaluation tree and the engines built on it.
type analysisEnv struct {
	Scheme   scoring.Scheme
	Load     *dataset.Result
	Engine   *aggregate.Engine
	Analyzer *analysis.Analyzer
}

// initAnalysis resolves the scoring scheme, loads the tree under
// c.Data.BasePath and wires the aggregate engine and analyzer.
func initAnalysis(ctx context.Context, c *config.Config, showProgress bool) (*analysisEnv, error) {
	scheme, err := scoring.Resolve(c.Scoring)
	if err != nil {
		return nil, err
	}

	opts := dataset.Options{
		FileName:     c.Data.FileName,
		VectorLength: scheme.Len(),
		StrictSchema: c.Dataset.StrictSchema,
		Concurrency:  c.Batch.MaxConcurrentFiles,
	}
	if showProgress {
		var (
			once sync.Once
			bar  *progressbar.ProgressBar
		)
		opts.Progress = func(_, total int) {
			once.Do(func() { bar = newProgressBar(total, "loading evaluations") })
			_ = bar.Add(1)
		}
	}

	res, err := dataset.Load(ctx, c.Data.BasePath, opts)
	if err != nil {
		return nil, err
	}

	engine := aggregate.New(res.Dataset, scheme, aggregate.OptionsFromConfig(c))
	zap.L().Info("analysis: ready",
		zap.String("scheme", scheme.Name),
		zap.Int("people", len(res.Dataset.People())),
		zap.Strings("years", res.Dataset.Years()),
	)
	return &analysisEnv{
		Scheme:   scheme,
		Load:     res,
		Engine:   engine,
		Analyzer: analysis.New(engine, c.Analysis),
	}, nil
}

// printLoadProblems reports skipped and failed files below the command output.
func printLoadProblems(w io.Writer, res *dataset.Result) {
	if len(res.Skipped) == 0 && len(res.Errors) == 0 {
		return
	}
	fmt.Fprintln(w, report.SubtleStyle.Render(fmt.Sprintf(
		"%d of %d files loaded, %d skipped (success=false), %d failed",
		res.Loaded, res.Files, len(res.Skipped), len(res.Errors))))
	for _, e := range res.Errors {
		fmt.Fprintln(w, report.SubtleStyle.Render(fmt.Sprintf("  %s: %s", e.Path, e.Err)))
	}
}

func newProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(description),
		progressbar.OptionClearOnFinish(),
	)
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noProgress, "no-progress", false, "disable progress bars")
}
