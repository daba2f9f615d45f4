// Package store persists evaluation runs in DuckDB and answers label
// distribution queries over corpus files.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/strrl/ticket-extract/internal/db"
	"github.com/strrl/ticket-extract/internal/eval"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS eval_runs (
		run_id      VARCHAR PRIMARY KEY,
		started_at  TIMESTAMP NOT NULL,
		provider    VARCHAR NOT NULL,
		model       VARCHAR NOT NULL,
		data_path   VARCHAR NOT NULL,
		samples     INTEGER NOT NULL,
		valid       INTEGER NOT NULL,
		validity    DOUBLE NOT NULL,
		duration_ms BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS eval_field_scores (
		run_id               VARCHAR NOT NULL,
		position             INTEGER NOT NULL,
		field                VARCHAR NOT NULL,
		f1                   DOUBLE NOT NULL,
		scored               INTEGER NOT NULL,
		no_valid_predictions BOOLEAN NOT NULL,
		PRIMARY KEY (run_id, field)
	)`,
}

type Store struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

// RunMeta describes where a report came from.
type RunMeta struct {
	Provider  string
	Model     string
	DataPath  string
	StartedAt time.Time
}

type Run struct {
	ID string
	RunMeta
	Samples  int
	Valid    int
	Validity float64
	Duration time.Duration
	Fields   []eval.FieldScore
}

func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := db.Open(path)
	if err != nil {
		return nil, err
	}

	for _, stmt := range migrations {
		if _, err := conn.Exec(stmt); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to migrate %s: %w", path, err)
		}
	}

	logger.Debug("run store opened", zap.String("path", path))
	return &Store{db: conn, path: path, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun stores a report and its field scores atomically and returns the
// new run ID.
func (s *Store) RecordRun(ctx context.Context, report *eval.Report, meta RunMeta) (string, error) {
	if meta.StartedAt.IsZero() {
		meta.StartedAt = time.Now()
	}
	id := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO eval_runs (run_id, started_at, provider, model, data_path, samples, valid, validity, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, id, meta.StartedAt.UTC(), meta.Provider, meta.Model, meta.DataPath,
		report.Samples, report.Valid, report.Validity, report.Duration.Milliseconds())
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	for i, fs := range report.Fields {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO eval_field_scores (run_id, position, field, f1, scored, no_valid_predictions)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, id, i, fs.Field, fs.F1, fs.Scored, fs.NoValidPredictions)
		if err != nil {
			return "", fmt.Errorf("failed to insert %s score: %w", fs.Field, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}

	s.logger.Info("evaluation run recorded", zap.String("run_id", id), zap.String("path", s.path))
	return id, nil
}

// ListRuns returns up to limit runs, newest first. A non-positive limit
// returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT run_id, started_at, provider, model, data_path, samples, valid, validity, duration_ms
		FROM eval_runs
		ORDER BY started_at DESC, run_id
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	index := map[string]int{}
	for rows.Next() {
		var (
			r          Run
			durationMS int64
		)
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.Provider, &r.Model, &r.DataPath,
			&r.Samples, &r.Valid, &r.Validity, &durationMS); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		index[r.ID] = len(runs)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	if len(runs) == 0 {
		return nil, nil
	}

	if err := s.attachScores(ctx, runs, index); err != nil {
		return nil, err
	}
	return runs, nil
}

func (s *Store) attachScores(ctx context.Context, runs []Run, index map[string]int) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, field, f1, scored, no_valid_predictions
		FROM eval_field_scores
		ORDER BY run_id, position
	`)
	if err != nil {
		return fmt.Errorf("failed to query field scores: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			runID string
			fs    eval.FieldScore
		)
		if err := rows.Scan(&runID, &fs.Field, &fs.F1, &fs.Scored, &fs.NoValidPredictions); err != nil {
			return fmt.Errorf("failed to scan field score: %w", err)
		}
		if i, ok := index[runID]; ok {
			runs[i].Fields = append(runs[i].Fields, fs)
		}
	}
	return rows.Err()
}
