package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrRunNotFound is returned when a run is not in the journal.
var ErrRunNotFound = errors.New("run not found")

const errRunIDRequired = "run_id is required"

// CreateRun records a launch.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *Run) error {
	if run == nil {
		return errors.New("run cannot be nil")
	}
	if run.RunID == "" {
		return errors.New(errRunIDRequired)
	}
	if run.Mode == "" {
		return errors.New("mode is required")
	}

	args := run.Args
	if args == nil {
		args = []string{}
	}
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("failed to encode args: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (
			run_id, pid, mode, debug, layout, args_json, started_at_unix_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		run.RunID,
		run.PID,
		run.Mode,
		boolToInt(run.Debug),
		run.Layout,
		string(argsJSON),
		run.StartedAtUnixMs,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("run with id %s already exists", run.RunID)
		}
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// FinishRun records the exit of a launch.
func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, exitCode int, killed bool, endedAtUnixMs int64) error {
	if runID == "" {
		return errors.New(errRunIDRequired)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE runs SET exit_code = ?, killed = ?, ended_at_unix_ms = ?
		WHERE run_id = ?
	`, exitCode, boolToInt(killed), endedAtUnixMs, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrRunNotFound
	}
	return nil
}

const runColumns = `run_id, pid, mode, debug, layout, args_json,
		       started_at_unix_ms, ended_at_unix_ms, exit_code, killed`

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	if runID == "" {
		return nil, errors.New(errRunIDRequired)
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// QueryRuns returns runs newest first.
func (s *SQLiteStore) QueryRuns(ctx context.Context, q RunQuery) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any

	if q.Mode != "" {
		query += ` WHERE mode = ?`
		args = append(args, q.Mode)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultRunLimit
	}
	query += ` ORDER BY started_at_unix_ms DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// PruneRuns deletes all but the newest keep runs. keep <= 0 disables
// pruning.
func (s *SQLiteStore) PruneRuns(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM runs WHERE run_id NOT IN (
			SELECT run_id FROM runs ORDER BY started_at_unix_ms DESC, rowid DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run      Run
		debug    int
		killed   int
		argsJSON string
		endedAt  sql.NullInt64
		exitCode sql.NullInt64
	)
	err := row.Scan(
		&run.RunID,
		&run.PID,
		&run.Mode,
		&debug,
		&run.Layout,
		&argsJSON,
		&run.StartedAtUnixMs,
		&endedAt,
		&exitCode,
		&killed,
	)
	if err != nil {
		return nil, err
	}

	run.Debug = debug != 0
	run.Killed = killed != 0
	if endedAt.Valid {
		v := endedAt.Int64
		run.EndedAtUnixMs = &v
	}
	if exitCode.Valid {
		v := int(exitCode.Int64)
		run.ExitCode = &v
	}
	if err := json.Unmarshal([]byte(argsJSON), &run.Args); err != nil {
		return nil, fmt.Errorf("failed to decode args: %w", err)
	}
	return &run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
