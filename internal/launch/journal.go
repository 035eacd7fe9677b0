package launch

import (
	"context"
	"log/slog"
	"time"

	"github.com/runger/sidecar/internal/config"
	"github.com/runger/sidecar/internal/storage"
	"github.com/runger/sidecar/internal/supervisor"
)

// journal adapts the run store to the supervisor's Recorder.
type journal struct {
	store storage.Store
}

var _ supervisor.Recorder = (*journal)(nil)

func (j *journal) RecordStart(ctx context.Context, run supervisor.RunInfo) error {
	return j.store.CreateRun(ctx, &storage.Run{
		RunID:           run.RunID,
		PID:             run.PID,
		Mode:            run.Mode,
		Debug:           run.Debug,
		Layout:          run.Layout,
		Args:            run.Args,
		StartedAtUnixMs: run.StartedAt.UnixMilli(),
	})
}

func (j *journal) RecordExit(ctx context.Context, runID string, exitCode int, killed bool, endedAt time.Time) error {
	return j.store.FinishRun(ctx, runID, exitCode, killed, endedAt.UnixMilli())
}

func (j *journal) Close() error {
	return j.store.Close()
}

// JournalPath returns the configured journal location.
func JournalPath(cfg *config.Config, paths *config.Paths) string {
	if cfg.Journal.Path != "" {
		return cfg.Journal.Path
	}
	return paths.JournalFile()
}

// openJournal opens the run journal and prunes old runs. Any failure disables
// journaling for this launch and is only logged.
func openJournal(ctx context.Context, cfg *config.Config, paths *config.Paths, logger *slog.Logger) *journal {
	if !cfg.Journal.Enabled {
		return nil
	}

	path := JournalPath(cfg, paths)
	store, err := storage.NewSQLiteStore(path)
	if err != nil {
		logger.Warn("run journal unavailable", "path", path, "error", err)
		return nil
	}

	if n, err := store.PruneRuns(ctx, cfg.Journal.Keep); err != nil {
		logger.Warn("failed to prune run journal", "error", err)
	} else if n > 0 {
		logger.Debug("pruned run journal", "deleted", n)
	}

	return &journal{store: store}
}
