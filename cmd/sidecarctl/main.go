// Package main is the entry point for the sidecarctl CLI.
package main

import (
	"fmt"
	"os"

	"github.com/runger/sidecar/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		if !cmd.IsSilent(err) {
			fmt.Fprintf(os.Stderr, "sidecarctl: %v\n", err)
		}
		os.Exit(cmd.ExitCode(err))
	}
}
