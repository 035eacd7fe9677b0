package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"sync/atomic"
	"time"
)

const errProcessNotStarted = "process not started"

// Test seam for the forceful kill.
var killChild = func(g Group, p *os.Process) error {
	return g.Kill(p)
}

// Child is the handle of a spawned worker.
type Child struct {
	runID   string
	args    []string
	layout  string
	cmd     *exec.Cmd
	group   Group
	capture *capture

	done     chan struct{}
	exitCode int
	exited   atomic.Bool
	killed   atomic.Bool
}

// RunID is the identifier passed to the worker as SIDECAR_RUN_ID.
func (c *Child) RunID() string { return c.runID }

// PID returns the worker's process ID.
func (c *Child) PID() int {
	if c.cmd.Process == nil {
		return 0
	}
	return c.cmd.Process.Pid
}

// Args returns the full argument vector, runtime included.
func (c *Child) Args() []string {
	out := make([]string, len(c.args))
	copy(out, c.args)
	return out
}

// Done is closed once the worker has exited and its resources are released.
func (c *Child) Done() <-chan struct{} { return c.done }

// Exited reports whether the worker has been reaped.
func (c *Child) Exited() bool { return c.exited.Load() }

// ExitCode returns the propagated status. Only meaningful after Done.
func (c *Child) ExitCode() int {
	select {
	case <-c.done:
		return c.exitCode
	default:
		return UnknownExitCode
	}
}

// Killed reports whether a close request killed the worker.
func (c *Child) Killed() bool { return c.killed.Load() }

// kill sends the forceful kill. Skipped once the worker is reaped so a
// recycled PID is never signalled.
func (c *Child) kill(logger *slog.Logger) {
	if c.exited.Load() {
		logger.Debug("worker already exited, nothing to kill", "run_id", c.runID)
		return
	}
	c.killed.Store(true)
	if err := killChild(c.group, c.cmd.Process); err != nil {
		logger.Warn("failed to kill worker", "run_id", c.runID, "pid", c.PID(), "error", err)
		return
	}
	logger.Info("worker killed on close request", "run_id", c.runID, "pid", c.PID())
}

// reap waits for the worker, releases its sinks and group, and records the
// exit before signalling Done.
func (c *Child) reap(logger *slog.Logger, rec Recorder) {
	err := c.cmd.Wait()
	code := ExitCode(c.cmd.ProcessState, err)

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		logger.Warn("wait for worker failed", "run_id", c.runID, "error", err)
	}

	c.exitCode = code
	c.exited.Store(true)

	if err := c.capture.Close(); err != nil {
		logger.Warn("failed to close output capture", "run_id", c.runID, "error", err)
	}
	if err := c.group.Close(); err != nil {
		logger.Warn("failed to release termination group", "run_id", c.runID, "error", err)
	}

	if rec != nil {
		if err := rec.RecordExit(context.Background(), c.runID, code, c.killed.Load(), time.Now()); err != nil {
			logger.Warn("failed to journal worker exit", "run_id", c.runID, "error", err)
		}
	}

	logger.Info("worker exited", "run_id", c.runID, "pid", c.PID(), "exit_code", code, "killed", c.killed.Load())
	close(c.done)
}
