package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/runger/sidecar/internal/supervisor"
)

// Version information (set via ldflags during build)
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:     "version",
	Short:   "Print version information",
	GroupID: groupSetup,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sidecarctl %s\n", Version)
		fmt.Printf("  commit: %s\n", GitCommit)
		fmt.Printf("  built:  %s\n", BuildDate)
		fmt.Printf("  termination coupling: %s\n", couplingStatus())
	},
}

func couplingStatus() string {
	if supervisor.NewGroup().Supported() {
		return fmt.Sprintf("supported (%s)", runtime.GOOS)
	}
	return fmt.Sprintf("unsupported (%s)", runtime.GOOS)
}
