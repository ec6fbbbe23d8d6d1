package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/people-analytics/internal/db"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

var behaviorColumns = []string{"id", "evaluation_id", "driver", "behavior", "score", "group_score", "difference", "has_data"}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	if minConns > maxConns {
		minConns = maxConns
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS evaluations (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	person          TEXT NOT NULL,
	year            TEXT NOT NULL,
	source_file     TEXT NOT NULL DEFAULT '',
	concept         TEXT NOT NULL DEFAULT '',
	avg_score       DOUBLE PRECISION,
	avg_group_score DOUBLE PRECISION,
	difference      DOUBLE PRECISION,
	behavior_count  INTEGER NOT NULL DEFAULT 0,
	import_date     TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (person, year)
);

CREATE TABLE IF NOT EXISTS behaviors (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	evaluation_id TEXT NOT NULL REFERENCES evaluations(id) ON DELETE CASCADE,
	driver        TEXT NOT NULL,
	behavior      TEXT NOT NULL,
	score         DOUBLE PRECISION NOT NULL,
	group_score   DOUBLE PRECISION NOT NULL,
	difference    DOUBLE PRECISION NOT NULL,
	has_data      BOOLEAN NOT NULL DEFAULT false
);

CREATE TABLE IF NOT EXISTS raw_json (
	evaluation_id TEXT PRIMARY KEY REFERENCES evaluations(id) ON DELETE CASCADE,
	raw_data      JSONB NOT NULL,
	import_date   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_evaluations_person ON evaluations(person);
CREATE INDEX IF NOT EXISTS idx_evaluations_year ON evaluations(year);
CREATE INDEX IF NOT EXISTS idx_behaviors_evaluation_id ON behaviors(evaluation_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveEvaluation(ctx context.Context, ev EvaluationRow, behaviors []BehaviorRow, raw []byte) (string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", eris.Wrap(err, "postgres: begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()
	var id string
	err = tx.QueryRow(ctx,
		`INSERT INTO evaluations (id, person, year, source_file, concept, avg_score, avg_group_score, difference, behavior_count, import_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (person, year) DO UPDATE SET
			source_file = EXCLUDED.source_file,
			concept = EXCLUDED.concept,
			avg_score = EXCLUDED.avg_score,
			avg_group_score = EXCLUDED.avg_group_score,
			difference = EXCLUDED.difference,
			behavior_count = EXCLUDED.behavior_count,
			import_date = EXCLUDED.import_date
		RETURNING id`,
		uuid.New().String(), ev.Person, ev.Year, ev.SourceFile, ev.Concept,
		ev.AverageScore, ev.AverageGroupScore, ev.Difference, ev.BehaviorCount, now,
	).Scan(&id)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: upsert evaluation %s/%s", ev.Person, ev.Year)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM behaviors WHERE evaluation_id = $1`, id); err != nil {
		return "", eris.Wrapf(err, "postgres: clear behaviors %s", id)
	}

	rows := make([][]any, 0, len(behaviors))
	for _, b := range behaviors {
		rows = append(rows, []any{uuid.New().String(), id, b.Driver, b.Behavior, b.Score, b.GroupScore, b.Difference, b.HasData})
	}
	if _, err := db.CopyFrom(ctx, tx, "behaviors", behaviorColumns, rows); err != nil {
		return "", eris.Wrapf(err, "postgres: copy behaviors %s", id)
	}

	if raw != nil {
		_, err = tx.Exec(ctx,
			`INSERT INTO raw_json (evaluation_id, raw_data, import_date) VALUES ($1, $2, $3)
			ON CONFLICT (evaluation_id) DO UPDATE SET raw_data = EXCLUDED.raw_data, import_date = EXCLUDED.import_date`,
			id, string(raw), now,
		)
		if err != nil {
			return "", eris.Wrapf(err, "postgres: upsert raw json %s", id)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", eris.Wrap(err, "postgres: commit")
	}
	return id, nil
}

func (s *PostgresStore) ListEvaluations(ctx context.Context, filter Filter) ([]EvaluationRow, error) {
	query := `SELECT id, person, year, source_file, concept, avg_score, avg_group_score, difference, behavior_count, import_date FROM evaluations`
	var (
		where []string
		args  []any
	)
	if filter.Person != "" {
		args = append(args, filter.Person)
		where = append(where, fmt.Sprintf("person = $%d", len(args)))
	}
	if filter.Year != "" {
		args = append(args, filter.Year)
		where = append(where, fmt.Sprintf("year = $%d", len(args)))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY person, year"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list evaluations")
	}
	defer rows.Close()

	var out []EvaluationRow
	for rows.Next() {
		ev, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ev)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate evaluations")
}

func (s *PostgresStore) ListBehaviors(ctx context.Context, evaluationID string) ([]BehaviorRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, evaluation_id, driver, behavior, score, group_score, difference, has_data FROM behaviors WHERE evaluation_id = $1 ORDER BY driver, behavior`,
		evaluationID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list behaviors %s", evaluationID)
	}
	defer rows.Close()

	var out []BehaviorRow
	for rows.Next() {
		b, err := scanBehavior(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate behaviors")
}

// RawJSON returns the source document stored for an evaluation.
func (s *PostgresStore) RawJSON(ctx context.Context, evaluationID string) ([]byte, error) {
	var raw string
	err := s.pool.QueryRow(ctx, `SELECT raw_data::text FROM raw_json WHERE evaluation_id = $1`, evaluationID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "raw json %s", evaluationID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get raw json %s", evaluationID)
	}
	return []byte(raw), nil
}
