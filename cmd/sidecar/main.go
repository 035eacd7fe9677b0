// sidecar is the standalone wrapper installed next to the bundled worker. It
// forwards every argument to the worker verbatim, captures its output to
// backend.log and backend.err, and exits with the worker's status.
//
// SIDECAR_DEBUG=1 launches the debug variant; SIDECAR_CONFIG names an
// alternate config file.
package main

import (
	"context"
	"os"

	"github.com/runger/sidecar/internal/launch"
	"github.com/runger/sidecar/internal/supervisor"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := launch.SignalContext(context.Background())
	defer stop()

	return launch.Run(ctx, launch.Options{
		Args:   os.Args[1:],
		Mode:   supervisor.Standalone,
		Stderr: os.Stderr,
	})
}
