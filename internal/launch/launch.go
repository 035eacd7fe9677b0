// Package launch wires the resolver, supervisor, configuration and run journal
// together and turns the outcome of a launch into a process exit code.
package launch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/runger/sidecar/internal/config"
	"github.com/runger/sidecar/internal/locate"
	"github.com/runger/sidecar/internal/supervisor"
)

// Exit codes for failures that happen before the worker runs. A running
// worker's own status is propagated unchanged.
const (
	ExitConfig = 78 // EX_CONFIG: worker not found or invalid config
	ExitSpawn  = 71 // EX_OSERR: the OS refused to start the worker
)

// closeGrace bounds how long an embedded close waits for the killed worker to
// be reaped so its exit is journaled. The close itself never waits.
const closeGrace = 2 * time.Second

// Options describe one launch.
type Options struct {
	// Args are forwarded to the worker verbatim.
	Args []string

	Mode supervisor.Mode

	// Debug forces the debug variant on top of the config.
	Debug bool

	// ConfigPath overrides the config file location.
	ConfigPath string

	// InstallDir overrides the directory derived from the running binary.
	InstallDir string

	// Stderr receives supervisor logs. Defaults to os.Stderr.
	Stderr io.Writer

	// CloseOnStdinEOF treats end of Stdin as a close request, for hosts
	// that drive the supervisor over a pipe.
	CloseOnStdinEOF bool
	Stdin           io.Reader
}

// Run performs a launch and returns the exit code for the supervising
// process. Cancelling ctx is the close request.
func Run(ctx context.Context, opts Options) int {
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	bootLogger := NewLogger(stderr, "info")

	installDir := opts.InstallDir
	if installDir == "" {
		self, err := locate.SelfPath()
		if err != nil {
			bootLogger.Error("cannot determine install directory", "error", err)
			return ExitConfig
		}
		installDir = locate.InstallDir(self)
	}

	paths := config.DefaultPaths(installDir)
	cfgPath := opts.ConfigPath
	if cfgPath == "" {
		cfgPath = paths.ConfigFile()
	}

	cfg, err := config.LoadFromFile(cfgPath)
	if err != nil {
		bootLogger.Error("cannot load configuration", "path", cfgPath, "error", err)
		return ExitConfig
	}
	if opts.Debug {
		cfg.Worker.Debug = true
		cfg.Log.Level = "debug"
	}

	logger := NewLogger(stderr, cfg.Log.Level)

	loc, err := locate.Resolve(installDir, cfg.Layout)
	if err != nil {
		var nf *locate.NotFoundError
		if errors.As(err, &nf) {
			logger.Error("worker not found", "install_dir", nf.InstallDir, "tried", nf.Tried)
		} else {
			logger.Error("cannot resolve worker", "error", err)
		}
		return ExitConfig
	}
	logger.Debug("worker resolved", "runtime", loc.Runtime, "artifact", loc.Artifact, "layout", loc.Layout)

	runtimeArgs, err := cfg.Worker.RuntimeArgv()
	if err != nil {
		logger.Error("invalid worker.runtime_args", "error", err)
		return ExitConfig
	}

	var recorder supervisor.Recorder
	if j := openJournal(ctx, cfg, paths, logger); j != nil {
		defer j.Close()
		recorder = j
	}

	sup := supervisor.New(supervisor.Options{
		Mode:  opts.Mode,
		Debug: cfg.Worker.Debug,
		Flags: supervisor.Flags{
			ArtifactFlag: cfg.Worker.ArtifactFlag,
			ProfileFlag:  cfg.Worker.ProfileFlag,
			DebugFlag:    cfg.Worker.DebugFlag,
			RuntimeArgs:  runtimeArgs,
		},
		CaptureDir: installDir,
		StdoutName: cfg.Capture.Stdout,
		StderrName: cfg.Capture.Stderr,
		Logger:     logger,
		Recorder:   recorder,
	})

	child, err := sup.Spawn(ctx, loc, opts.Args)
	if err != nil {
		return spawnExitCode(logger, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if opts.CloseOnStdinEOF && opts.Stdin != nil {
		go watchStdin(opts.Stdin, cancel, logger)
	}

	if opts.Mode == supervisor.Embedded {
		return runEmbedded(ctx, sup, child)
	}
	return runStandalone(ctx, sup, child)
}

// runStandalone waits for the worker and propagates its status. A close
// request kills the worker, which ends the wait.
func runStandalone(ctx context.Context, sup *supervisor.Supervisor, child *supervisor.Child) int {
	go func() {
		select {
		case <-ctx.Done():
			sup.CloseRequested()
		case <-child.Done():
		}
	}()
	return sup.Wait()
}

// runEmbedded blocks until the host asks to close or the worker exits on its
// own. A close request exits 0: the host is shutting down normally.
func runEmbedded(ctx context.Context, sup *supervisor.Supervisor, child *supervisor.Child) int {
	select {
	case <-ctx.Done():
		sup.CloseRequested()
		select {
		case <-child.Done():
		case <-time.After(closeGrace):
		}
		return 0
	case <-child.Done():
		return child.ExitCode()
	}
}

func spawnExitCode(logger *slog.Logger, err error) int {
	switch {
	case errors.Is(err, supervisor.ErrSpawn):
		logger.Error("failed to start worker", "error", err)
		return ExitSpawn
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		logger.Info("close requested before the worker started")
		return supervisor.UnknownExitCode
	default:
		logger.Error("failed to start worker", "error", err)
		return ExitSpawn
	}
}

func watchStdin(r io.Reader, closeFn func(), logger *slog.Logger) {
	_, err := io.Copy(io.Discard, r)
	if err != nil {
		logger.Debug("stdin read failed", "error", err)
	}
	logger.Info("stdin closed, requesting close")
	closeFn()
}
