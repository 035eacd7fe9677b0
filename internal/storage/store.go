// Package storage provides the SQLite run journal: one row per worker launch,
// completed when the worker exits.
package storage

import (
	"context"
)

// Store defines the interface for journal operations.
type Store interface {
	CreateRun(ctx context.Context, run *Run) error
	FinishRun(ctx context.Context, runID string, exitCode int, killed bool, endedAtUnixMs int64) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	QueryRuns(ctx context.Context, q RunQuery) ([]Run, error)
	PruneRuns(ctx context.Context, keep int) (int64, error)

	// Lifecycle
	Close() error
}

// Run is one worker launch.
type Run struct {
	RunID           string   `json:"run_id"`
	PID             int      `json:"pid"`
	Mode            string   `json:"mode"`
	Debug           bool     `json:"debug"`
	Layout          string   `json:"layout"`
	Args            []string `json:"args"`
	StartedAtUnixMs int64    `json:"started_at_unix_ms"`
	EndedAtUnixMs   *int64   `json:"ended_at_unix_ms,omitempty"`
	ExitCode        *int     `json:"exit_code,omitempty"` // nil while running
	Killed          bool     `json:"killed"`
}

// Running reports whether no exit has been recorded.
func (r *Run) Running() bool {
	return r.EndedAtUnixMs == nil
}

// RunQuery filters QueryRuns. Results are newest first.
type RunQuery struct {
	Mode  string // empty matches every mode
	Limit int    // 0 means DefaultRunLimit
}

// DefaultRunLimit caps QueryRuns when no limit is given.
const DefaultRunLimit = 20

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)
