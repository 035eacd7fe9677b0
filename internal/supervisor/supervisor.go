// Package supervisor launches the backend worker, captures its output and
// couples its lifetime to the supervising process.
package supervisor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/execabs"

	"github.com/runger/sidecar/internal/locate"
	"github.com/runger/sidecar/internal/redact"
)

// Mode selects how the supervisor is hosted.
type Mode int

const (
	// Standalone runs as a wrapper: output is captured to files and the
	// caller waits for the worker and propagates its status.
	Standalone Mode = iota
	// Embedded runs inside a host shell: no capture, the host decides when
	// to close.
	Embedded
)

func (m Mode) String() string {
	switch m {
	case Standalone:
		return "standalone"
	case Embedded:
		return "embedded"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses "standalone" or "embedded".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "standalone", "":
		return Standalone, nil
	case "embedded":
		return Embedded, nil
	}
	return Standalone, fmt.Errorf("invalid mode %q (want standalone or embedded)", s)
}

// RunInfo describes a launch for the journal.
type RunInfo struct {
	RunID     string
	PID       int
	Mode      string
	Debug     bool
	Layout    string
	Args      []string // redacted
	StartedAt time.Time
}

// Recorder persists launch and exit events. Failures never affect the worker.
type Recorder interface {
	RecordStart(ctx context.Context, run RunInfo) error
	RecordExit(ctx context.Context, runID string, exitCode int, killed bool, endedAt time.Time) error
}

// Options configure a Supervisor.
type Options struct {
	Mode  Mode
	Debug bool
	Flags Flags

	// CaptureDir is where StdoutName and StderrName are created in
	// standalone mode.
	CaptureDir string
	StdoutName string
	StderrName string

	// Env is appended to the inherited environment.
	Env []string

	Logger   *slog.Logger
	Recorder Recorder
}

// Supervisor owns at most one worker process.
type Supervisor struct {
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	current *Child // slot; taken by CloseRequested
	spawned *Child // kept for Wait
	closed  bool
}

// New creates a Supervisor. Nothing is started until Spawn.
func New(opts Options) *Supervisor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Supervisor{opts: opts, logger: logger}
}

// Spawn launches the worker for loc with the pass-through arguments. The lock
// is held across process creation, so a concurrent CloseRequested either runs
// first (Spawn then returns ErrClosed) or observes the populated slot.
func (s *Supervisor) Spawn(ctx context.Context, loc locate.Location, passthrough []string) (*Child, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if s.spawned != nil {
		return nil, ErrAlreadySpawned
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	argv := Command(loc, passthrough, s.opts.Flags, s.opts.Debug)
	runID := uuid.NewString()

	cmd := execabs.Command(argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(),
		"SIDECAR_RUN_ID="+runID,
		"SIDECAR_MODE="+s.opts.Mode.String(),
	)
	cmd.Env = append(cmd.Env, s.opts.Env...)

	var sinks *capture
	if s.opts.Mode == Standalone {
		stdoutPath := capturePath(s.opts.CaptureDir, s.opts.StdoutName)
		stderrPath := capturePath(s.opts.CaptureDir, s.opts.StderrName)
		c, err := openCapture(stdoutPath, stderrPath)
		if err != nil {
			s.logger.Warn("output capture unavailable, continuing without it", "error", err)
		} else {
			sinks = c
			cmd.Stdout = c.stdout
			cmd.Stderr = c.stderr
		}
	}

	group := newGroup()
	group.Prepare(cmd)

	if err := cmd.Start(); err != nil {
		_ = sinks.Close()
		_ = group.Close()
		return nil, &SpawnError{Path: argv[0], Err: err}
	}

	if err := group.Assign(cmd.Process); err != nil {
		s.logger.Warn("termination coupling unavailable", "pid", cmd.Process.Pid, "error", err)
		_ = group.Close()
	} else if !group.Supported() {
		s.logger.Debug("termination coupling not supported on this platform")
	}

	child := &Child{
		runID:   runID,
		args:    argv,
		layout:  loc.Layout,
		cmd:     cmd,
		group:   group,
		capture: sinks,
		done:    make(chan struct{}),
	}
	s.current = child
	s.spawned = child

	redacted := redact.Args(argv)
	if rec := s.opts.Recorder; rec != nil {
		err := rec.RecordStart(ctx, RunInfo{
			RunID:     runID,
			PID:       child.PID(),
			Mode:      s.opts.Mode.String(),
			Debug:     s.opts.Debug,
			Layout:    loc.Layout,
			Args:      redacted,
			StartedAt: time.Now(),
		})
		if err != nil {
			s.logger.Warn("failed to journal worker start", "run_id", runID, "error", err)
		}
	}

	go child.reap(s.logger, s.opts.Recorder)

	s.logger.Info("worker started",
		"run_id", runID,
		"pid", child.PID(),
		"mode", s.opts.Mode.String(),
		"layout", loc.Layout,
		"args", redact.Join(argv),
	)
	return child, nil
}

// CloseRequested takes the worker out of the slot and kills it. It does not
// wait for the exit. Returns false when there was nothing to kill. Safe to
// call from any goroutine and any number of times.
//
// A close request is final: it also marks the Supervisor closed, so calling it
// before Spawn kills nothing but makes every later Spawn return ErrClosed.
func (s *Supervisor) CloseRequested() bool {
	s.mu.Lock()
	s.closed = true
	child := s.current
	s.current = nil
	s.mu.Unlock()

	if child == nil {
		return false
	}
	child.kill(s.logger)
	return true
}

// Wait blocks until the worker exits and returns its status, or
// UnknownExitCode if nothing was spawned.
func (s *Supervisor) Wait() int {
	s.mu.Lock()
	child := s.spawned
	s.mu.Unlock()

	if child == nil {
		return UnknownExitCode
	}
	<-child.done

	if s.opts.Mode == Standalone {
		s.mu.Lock()
		if s.current == child {
			s.current = nil
		}
		s.mu.Unlock()
	}
	return child.exitCode
}

// Current returns the worker in the slot, or nil.
func (s *Supervisor) Current() *Child {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}
