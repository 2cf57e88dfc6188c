// Package store persists backtest runs and their results in SQLite.
package store

import (
	"barsim/internal/engine"
	"barsim/internal/id"
	"barsim/types"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

var (
	ErrRunNotFound       = errors.New("run not found")
	ErrInvalidTransition = errors.New("invalid run status transition")
)

// Run is one stored backtest. Results is nil until the run completes.
type Run struct {
	ID         string          `json:"id"`
	Symbol     string          `json:"symbol"`
	Strategy   string          `json:"strategy"`
	Parameters engine.Params   `json:"parameters"`
	Status     types.RunStatus `json:"status"`
	Error      string          `json:"error,omitempty"`
	Results    *engine.Results `json:"results,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

type SQLiteStore struct {
	db  *sql.DB
	ids *id.Generator
	now func() time.Time
}

// Open opens (or creates) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one writer; also keeps ":memory:" databases on a single connection
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{
		db:  db,
		ids: id.NewGenerator(rand.Reader, time.Now),
		now: time.Now,
	}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateRun records a pending run and returns its id.
func (s *SQLiteStore) CreateRun(ctx context.Context, symbol, strategy string, params engine.Params) (string, error) {
	if params == nil {
		params = engine.Params{}
	}
	encoded, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("encode parameters: %w", err)
	}
	now := s.now().UTC()
	runID := s.ids.NewAt(now)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, symbol, strategy, parameters, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, symbol, strategy, string(encoded), string(types.StatusPending),
		formatTime(now), formatTime(now),
	)
	if err != nil {
		return "", err
	}
	return runID, nil
}

// UpdateStatus moves a run to next. Repeating the current status is a no-op;
// any other move must be allowed by RunStatus.CanTransitionTo. cause is
// stored as the run error.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, runID string, next types.RunStatus, cause error) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := currentStatus(ctx, tx, runID)
		if err != nil {
			return err
		}
		if current == next {
			return nil
		}
		if !current.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
		}
		msg := ""
		if cause != nil {
			msg = cause.Error()
		}
		_, err = tx.ExecContext(ctx, `UPDATE runs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
			string(next), msg, formatTime(s.now().UTC()), runID)
		return err
	})
}

// SaveResults stores the results and completes the run in one step.
func (s *SQLiteStore) SaveResults(ctx context.Context, runID string, results *engine.Results) error {
	encoded, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := currentStatus(ctx, tx, runID)
		if err != nil {
			return err
		}
		if !current.CanTransitionTo(types.StatusCompleted) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, types.StatusCompleted)
		}
		_, err = tx.ExecContext(ctx, `UPDATE runs SET status = ?, error = '', results = ?, updated_at = ? WHERE id = ?`,
			string(types.StatusCompleted), string(encoded), formatTime(s.now().UTC()), runID)
		return err
	})
}

const selectRun = `SELECT id, symbol, strategy, parameters, status, error, results, created_at, updated_at FROM runs`

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, selectRun+` WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", runID, ErrRunNotFound)
	}
	return run, err
}

// ListRuns returns the most recent runs first. A limit <= 0 returns all runs.
// Results are not loaded.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, symbol, strategy, parameters, status, error, NULL, created_at, updated_at FROM runs ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func currentStatus(ctx context.Context, tx *sql.Tx, runID string) (types.RunStatus, error) {
	var status string
	err := tx.QueryRowContext(ctx, `SELECT status FROM runs WHERE id = ?`, runID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%s: %w", runID, ErrRunNotFound)
	}
	return types.RunStatus(status), err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run                  Run
		params, status       string
		results              sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&run.ID, &run.Symbol, &run.Strategy, &params, &status, &run.Error, &results, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	run.Status = types.RunStatus(status)
	if err := json.Unmarshal([]byte(params), &run.Parameters); err != nil {
		return nil, fmt.Errorf("decode parameters of %s: %w", run.ID, err)
	}
	if results.Valid && results.String != "" {
		run.Results = &engine.Results{}
		if err := json.Unmarshal([]byte(results.String), run.Results); err != nil {
			return nil, fmt.Errorf("decode results of %s: %w", run.ID, err)
		}
	}
	if run.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if run.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
