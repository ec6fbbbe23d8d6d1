package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// Pragmas are per connection; a single connection keeps them in force
	// and serializes concurrent writers.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS evaluations (
	id                  TEXT PRIMARY KEY,
	person              TEXT NOT NULL,
	year                TEXT NOT NULL,
	source_file         TEXT NOT NULL DEFAULT '',
	concept             TEXT NOT NULL DEFAULT '',
	avg_score           REAL,
	avg_group_score     REAL,
	difference          REAL,
	behavior_count      INTEGER NOT NULL DEFAULT 0,
	import_date         DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (person, year)
);

CREATE TABLE IF NOT EXISTS behaviors (
	id            TEXT PRIMARY KEY,
	evaluation_id TEXT NOT NULL REFERENCES evaluations(id) ON DELETE CASCADE,
	driver        TEXT NOT NULL,
	behavior      TEXT NOT NULL,
	score         REAL NOT NULL,
	group_score   REAL NOT NULL,
	difference    REAL NOT NULL,
	has_data      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS raw_json (
	evaluation_id TEXT PRIMARY KEY REFERENCES evaluations(id) ON DELETE CASCADE,
	raw_data      TEXT NOT NULL,
	import_date   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_evaluations_person ON evaluations(person);
CREATE INDEX IF NOT EXISTS idx_evaluations_year ON evaluations(year);
CREATE INDEX IF NOT EXISTS idx_behaviors_evaluation_id ON behaviors(evaluation_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveEvaluation(ctx context.Context, ev EvaluationRow, behaviors []BehaviorRow, raw []byte) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	var id string
	err = tx.QueryRowContext(ctx,
		`INSERT INTO evaluations (id, person, year, source_file, concept, avg_score, avg_group_score, difference, behavior_count, import_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (person, year) DO UPDATE SET
			source_file = excluded.source_file,
			concept = excluded.concept,
			avg_score = excluded.avg_score,
			avg_group_score = excluded.avg_group_score,
			difference = excluded.difference,
			behavior_count = excluded.behavior_count,
			import_date = excluded.import_date
		RETURNING id`,
		uuid.New().String(), ev.Person, ev.Year, ev.SourceFile, ev.Concept,
		ev.AverageScore, ev.AverageGroupScore, ev.Difference, ev.BehaviorCount, now,
	).Scan(&id)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: upsert evaluation %s/%s", ev.Person, ev.Year)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM behaviors WHERE evaluation_id = ?`, id); err != nil {
		return "", eris.Wrapf(err, "sqlite: clear behaviors %s", id)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO behaviors (id, evaluation_id, driver, behavior, score, group_score, difference, has_data) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: prepare behaviors")
	}
	defer stmt.Close()
	for _, b := range behaviors {
		if _, err := stmt.ExecContext(ctx, uuid.New().String(), id, b.Driver, b.Behavior, b.Score, b.GroupScore, b.Difference, b.HasData); err != nil {
			return "", eris.Wrapf(err, "sqlite: insert behavior %s/%s", b.Driver, b.Behavior)
		}
	}

	if raw != nil {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO raw_json (evaluation_id, raw_data, import_date) VALUES (?, ?, ?)
			ON CONFLICT (evaluation_id) DO UPDATE SET raw_data = excluded.raw_data, import_date = excluded.import_date`,
			id, string(raw), now,
		)
		if err != nil {
			return "", eris.Wrapf(err, "sqlite: upsert raw json %s", id)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", eris.Wrap(err, "sqlite: commit")
	}
	return id, nil
}

func (s *SQLiteStore) ListEvaluations(ctx context.Context, filter Filter) ([]EvaluationRow, error) {
	query := `SELECT id, person, year, source_file, concept, avg_score, avg_group_score, difference, behavior_count, import_date FROM evaluations`
	var (
		where []string
		args  []any
	)
	if filter.Person != "" {
		where = append(where, "person = ?")
		args = append(args, filter.Person)
	}
	if filter.Year != "" {
		where = append(where, "year = ?")
		args = append(args, filter.Year)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY person, year"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list evaluations")
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
	return out, eris.Wrap(rows.Err(), "sqlite: iterate evaluations")
}

func (s *SQLiteStore) ListBehaviors(ctx context.Context, evaluationID string) ([]BehaviorRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, evaluation_id, driver, behavior, score, group_score, difference, has_data FROM behaviors WHERE evaluation_id = ? ORDER BY driver, behavior`,
		evaluationID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list behaviors %s", evaluationID)
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
	return out, eris.Wrap(rows.Err(), "sqlite: iterate behaviors")
}

// RawJSON returns the source document stored for an evaluation.
func (s *SQLiteStore) RawJSON(ctx context.Context, evaluationID string) ([]byte, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT raw_data FROM raw_json WHERE evaluation_id = ?`, evaluationID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "raw json %s", evaluationID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get raw json %s", evaluationID)
	}
	return []byte(raw), nil
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanEvaluation(row scannable) (*EvaluationRow, error) {
	var ev EvaluationRow
	err := row.Scan(&ev.ID, &ev.Person, &ev.Year, &ev.SourceFile, &ev.Concept,
		&ev.AverageScore, &ev.AverageGroupScore, &ev.Difference, &ev.BehaviorCount, &ev.ImportedAt)
	if err != nil {
		return nil, eris.Wrap(err, "store: scan evaluation")
	}
	return &ev, nil
}

func scanBehavior(row scannable) (*BehaviorRow, error) {
	var b BehaviorRow
	err := row.Scan(&b.ID, &b.EvaluationID, &b.Driver, &b.Behavior, &b.Score, &b.GroupScore, &b.Difference, &b.HasData)
	if err != nil {
		return nil, eris.Wrap(err, "store: scan behavior")
	}
	return &b, nil
}
