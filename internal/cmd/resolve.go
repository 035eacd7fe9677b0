package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runger/sidecar/internal/launch"
	"github.com/runger/sidecar/internal/locate"
	"github.com/runger/sidecar/internal/supervisor"
)

var resolveCmd = &cobra.Command{
	Use:     "resolve",
	Short:   "Show where the worker is looked up and which layout wins",
	GroupID: groupSetup,
	Args:    cobra.NoArgs,
	RunE:    runResolve,
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, paths, cfgFile, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Printf("%sInstall dir:%s %s\n", colorBold, colorReset, paths.InstallDir)
	fmt.Printf("%sConfig:%s      %s\n\n", colorBold, colorReset, cfgFile)

	for _, c := range locate.Candidates(paths.InstallDir, cfg.Layout) {
		fmt.Printf("  %s%s%s\n", colorCyan, c.Layout, colorReset)
		fmt.Printf("    runtime:  %s %s\n", c.Runtime, presence(c.Runtime))
		fmt.Printf("    artifact: %s %s\n", c.Artifact, presence(c.Artifact))
	}
	fmt.Println()

	loc, err := locate.Resolve(paths.InstallDir, cfg.Layout)
	if err != nil {
		if errors.Is(err, locate.ErrNotFound) {
			fmt.Printf("%sNo layout contains both the runtime and the artifact.%s\n", colorRed, colorReset)
			return &exitCodeError{code: launch.ExitConfig}
		}
		return err
	}

	runtimeArgs, err := cfg.Worker.RuntimeArgv()
	if err != nil {
		return err
	}
	argv := supervisor.Command(loc, nil, supervisor.Flags{
		ArtifactFlag: cfg.Worker.ArtifactFlag,
		ProfileFlag:  cfg.Worker.ProfileFlag,
		DebugFlag:    cfg.Worker.DebugFlag,
		RuntimeArgs:  runtimeArgs,
	}, cfg.Worker.Debug)

	fmt.Printf("%sUsing:%s %s\n", colorGreen, colorReset, loc.Layout)
	fmt.Printf("%sCommand:%s %q\n", colorDim, colorReset, argv)
	return nil
}

func presence(path string) string {
	if locate.Exists(path) {
		return colorGreen + "(found)" + colorReset
	}
	return colorRed + "(missing)" + colorReset
}
