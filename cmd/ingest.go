package main

import (
	"context"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"sync"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/people-analytics/internal/aggregate"
	"github.com/sells-group/people-analytics/internal/report"
	"github.com/sells-group/people-analytics/internal/resilience"
	"github.com/sells-group/people-analytics/internal/store"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Persist scored evaluations to the database",
	Long: `Load and score the evaluation tree, then upsert every person-year into the
configured store (SQLite or Postgres) with its per-behavior overall scores
and the raw source document. Re-ingesting a person-year replaces its
behaviors and keeps its id.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	addOutputFlags(ingestCmd)
	rootCmd.AddCommand(ingestCmd)
}

// ingestResult records the outcome of persisting one person-year.
type ingestResult struct {
	Person       string `json:"person"`
	Year         string `json:"year"`
	EvaluationID string `json:"evaluation_id,omitempty"`
	Behaviors    int    `json:"behaviors"`
	Error        string `json:"error,omitempty"`
}

func runIngest(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env, err := initAnalysis(ctx, cfg, !noProgress)
	if err != nil {
		return err
	}

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck
	if err := st.Migrate(ctx); err != nil {
		return eris.Wrap(err, "migrate store")
	}

	var progress func()
	if !noProgress {
		bar := newProgressBar(env.Load.Loaded, "ingesting")
		progress = func() { _ = bar.Add(1) }
	}
	policy := resilience.StorePolicy(cfg.Store.RetryAttempts)
	results, err := ingestAll(ctx, st, env.Engine, cfg.Batch.MaxConcurrentFiles, policy, progress)
	if err != nil {
		return err
	}

	var failed int
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}
	zap.L().Info("ingest: complete",
		zap.String("driver", cfg.Store.Driver),
		zap.Int("evaluations", len(results)-failed),
		zap.Int("failed", failed),
	)

	if err := outputResults(cmd, results, ingestTable(results)); err != nil {
		return err
	}
	printLoadProblems(cmd.ErrOrStderr(), env.Load)
	if failed > 0 {
		return eris.Errorf("ingest: %d of %d evaluations failed", failed, len(results))
	}
	return nil
}

// ingestAll saves every person-year of the engine's dataset. A failed save
// is recorded in its result and does not stop the others.
func ingestAll(ctx context.Context, st store.Store, e *aggregate.Engine, concurrency int, policy resilience.Policy, progress func()) ([]ingestResult, error) {
	ds := e.Dataset()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))

	var (
		mu      sync.Mutex
		results []ingestResult
	)
	for _, person := range ds.People() {
		for _, year := range ds.PersonYears(person) {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				r := ingestOne(gctx, st, e, person, year, policy)
				if r.Error != "" {
					zap.L().Warn("ingest: save failed",
						zap.String("person", person),
						zap.String("year", year),
						zap.String("error", r.Error),
					)
				}
				mu.Lock()
				results = append(results, r)
				mu.Unlock()
				if progress != nil {
					progress()
				}
				return nil // don't abort the ingest on individual failure
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "ingest")
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "ingest")
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Person != results[j].Person {
			return results[i].Person < results[j].Person
		}
		return results[i].Year < results[j].Year
	})
	return results, nil
}

func ingestOne(ctx context.Context, st store.Store, e *aggregate.Engine, person, year string, policy resilience.Policy) ingestResult {
	r := ingestResult{Person: person, Year: year}
	s, err := e.PersonYear(person, year)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	ev, _ := e.Dataset().Get(person, year)

	var raw []byte
	if ev.Source != "" {
		if raw, err = os.ReadFile(ev.Source); err != nil {
			r.Error = eris.Wrapf(err, "read %s", ev.Source).Error()
			return r
		}
	}

	row, behaviors := store.Rows(s, e.BehaviorScores(ev), ev.Source)
	policy.OnRetry = resilience.LogRetries("ingest: save evaluation", zap.String("person", person), zap.String("year", year))
	id, err := resilience.Retry(ctx, policy, func(ctx context.Context) (string, error) {
		return st.SaveEvaluation(ctx, row, behaviors, raw)
	})
	if err != nil {
		r.Error = err.Error()
		return r
	}
	r.EvaluationID, r.Behaviors = id, len(behaviors)
	return r
}

func ingestTable(rs []ingestResult) report.Table {
	t := report.Table{
		Header:  []string{"person", "year", "evaluation_id", "behaviors", "error"},
		Numeric: map[int]bool{3: true},
	}
	for _, r := range rs {
		t.Rows = append(t.Rows, []string{r.Person, r.Year, r.EvaluationID, strconv.Itoa(r.Behaviors), r.Error})
	}
	return t
}
