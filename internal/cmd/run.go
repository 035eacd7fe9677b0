package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/runger/sidecar/internal/launch"
	"github.com/runger/sidecar/internal/supervisor"
)

var (
	runEmbedded        bool
	runDebug           bool
	runCloseOnStdinEOF bool
)

var runCmd = &cobra.Command{
	Use:     "run [-- worker args...]",
	Short:   "Launch the worker and supervise it",
	GroupID: groupCore,
	Long: `Launch the bundled worker and supervise it until it exits.

Standalone mode (default) writes the worker's output to backend.log and
backend.err next to the binary, waits for it and exits with its status.

Embedded mode is for host shells that drive sidecarctl as a child process:
nothing is captured, and SIGINT, SIGTERM or (with --close-on-stdin-eof) the
host closing our stdin kills the worker and exits 0.

Arguments after -- are forwarded to the worker unchanged.

Examples:
  sidecarctl run
  sidecarctl run --debug -- --server.port=9000
  sidecarctl run --embedded --close-on-stdin-eof`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runEmbedded, "embedded", false, "run on behalf of a host shell (no capture, close request exits 0)")
	runCmd.Flags().BoolVar(&runDebug, "debug", false, "launch the debug variant of the worker")
	runCmd.Flags().BoolVar(&runCloseOnStdinEOF, "close-on-stdin-eof", false, "treat end of stdin as a close request")
}

func runRun(cmd *cobra.Command, args []string) error {
	mode := supervisor.Standalone
	if runEmbedded {
		mode = supervisor.Embedded
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := launch.SignalContext(parent)
	defer stop()

	code := launch.Run(ctx, launch.Options{
		Args:            args,
		Mode:            mode,
		Debug:           runDebug,
		ConfigPath:      configPath,
		InstallDir:      installDir,
		Stderr:          os.Stderr,
		CloseOnStdinEOF: runCloseOnStdinEOF,
		Stdin:           os.Stdin,
	})
	if code != 0 {
		return &exitCodeError{code: code}
	}
	return nil
}
