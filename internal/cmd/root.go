// Package cmd implements the sidecarctl command line.
package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

const (
	groupCore  = "core"
	groupSetup = "setup"
)

var (
	colorMode  string
	installDir string
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "sidecarctl",
	Short: "Launch and inspect the bundled backend worker",
	Long: `sidecarctl - supervisor for the bundled backend worker
  - run the worker standalone or on behalf of a host shell
  - the worker never outlives its supervisor`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		applyColorMode()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: groupCore, Title: "Commands:"},
		&cobra.Group{ID: groupSetup, Title: "Setup:"},
	)

	rootCmd.PersistentFlags().StringVar(&colorMode, "color", "auto", "color output: auto, always, or never")
	rootCmd.PersistentFlags().StringVar(&installDir, "install-dir", "", "install directory (default: directory of this binary)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: <install-dir>/sidecar.yaml or $SIDECAR_CONFIG)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// exitCodeError carries a process exit code out of a command.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ec *exitCodeError
	if errors.As(err, &ec) {
		return ec.code
	}
	return 1
}

// IsSilent reports whether err was already reported to the user.
func IsSilent(err error) bool {
	var ec *exitCodeError
	return errors.As(err, &ec)
}
