package store

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/people-analytics/internal/aggregate"
	"github.com/sells-group/people-analytics/internal/config"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = eris.New("store: not found")

// EvaluationRow is a scored person-year. Averages are nil when undefined.
type EvaluationRow struct {
	ID                string    `json:"id"`
	Person            string    `json:"person"`
	Year              string    `json:"year"`
	SourceFile        string    `json:"source_file"`
	Concept           string    `json:"concept"`
	AverageScore      *float64  `json:"average_score"`
	AverageGroupScore *float64  `json:"average_group_score"`
	Difference        *float64  `json:"difference"`
	BehaviorCount     int       `json:"behavior_count"`
	ImportedAt        time.Time `json:"imported_at"`
}

// BehaviorRow is the overall result of one behavior of an evaluation.
type BehaviorRow struct {
	ID           string  `json:"id"`
	EvaluationID string  `json:"evaluation_id"`
	Driver       string  `json:"driver"`
	Behavior     string  `json:"behavior"`
	Score        float64 `json:"score"`
	GroupScore   float64 `json:"group_score"`
	Difference   float64 `json:"difference"`
	HasData      bool    `json:"has_data"`
}

// Filter specifies criteria for listing evaluations.
type Filter struct {
	Person string `json:"person,omitempty"`
	Year   string `json:"year,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// Store persists scored evaluations.
type Store interface {
	// SaveEvaluation inserts or replaces the person-year in ev together with
	// its behaviors and raw source document. It returns the evaluation id,
	// which is stable across re-imports.
	SaveEvaluation(ctx context.Context, ev EvaluationRow, behaviors []BehaviorRow, raw []byte) (string, error)
	ListEvaluations(ctx context.Context, filter Filter) ([]EvaluationRow, error)
	ListBehaviors(ctx context.Context, evaluationID string) ([]BehaviorRow, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "sqlite":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{MaxConns: cfg.MaxConns})
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

// Rows converts an aggregated person-year into storable rows.
func Rows(s *aggregate.Summary, scores []aggregate.BehaviorScore, source string) (EvaluationRow, []BehaviorRow) {
	ev := EvaluationRow{
		Person:            s.Person,
		Year:              s.Year,
		SourceFile:        source,
		Concept:           s.Concept,
		AverageScore:      ptr(s.AverageScore),
		AverageGroupScore: ptr(s.AverageGroupScore),
		Difference:        ptr(s.Difference),
		BehaviorCount:     s.Count,
	}
	var behaviors []BehaviorRow
	for _, bs := range scores {
		if !bs.HasOverall {
			continue
		}
		behaviors = append(behaviors, BehaviorRow{
			Driver:     bs.Driver,
			Behavior:   bs.Behavior,
			Score:      bs.Overall.Individual,
			GroupScore: bs.Overall.Group,
			Difference: bs.Overall.Difference,
			HasData:    bs.Overall.HasData,
		})
	}
	return ev, behaviors
}

func ptr(a aggregate.Average) *float64 {
	if !a.Valid {
		return nil
	}
	v := a.Value
	return &v
}
