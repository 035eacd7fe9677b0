package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/runger/sidecar/internal/config"
	"github.com/runger/sidecar/internal/locate"
)

var configCmd = &cobra.Command{
	Use:     "config [key] [value]",
	Short:   "Get or set configuration values",
	GroupID: groupSetup,
	Long: `Get or set sidecar configuration values.

Without arguments, lists all configuration keys.
With one argument, shows the value of that key.
With two arguments, sets the key to the value.

Configuration is stored in sidecar.yaml next to the binary, or in the file
named by $SIDECAR_CONFIG.

Keys are in the format: section.key
Sections: layout, worker, capture, log, journal

Examples:
  sidecarctl config                                  # List all keys
  sidecarctl config worker.profile_flag              # Get a value
  sidecarctl config worker.runtime_args "-Xmx1g"     # Set a value
  sidecarctl config layout.fallback_dirs "_up_/_up_/resources,resources"`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, _, path, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch len(args) {
	case 0:
		return listConfig(out, cfg, path)
	case 1:
		return getConfig(out, cfg, args[0])
	case 2:
		return setConfig(out, cfg, path, args[0], args[1])
	}

	return nil
}

// changedMarker flags a listed key whose value differs from the built-in
// default.
const changedMarker = "*"

func listConfig(w io.Writer, cfg *config.Config, path string) error {
	keys := config.ListKeys()
	defaults := config.DefaultConfig()

	width := 0
	for _, key := range keys {
		width = max(width, len(key))
	}

	fmt.Fprintf(w, "%sConfiguration%s (%s)\n\n", colorBold, colorReset, path)

	changed := 0
	for _, key := range keys {
		value, err := cfg.Get(key)
		if err != nil {
			return fmt.Errorf("read %s: %w", key, err)
		}
		def, _ := defaults.Get(key)

		marker := " "
		if value != def {
			marker = changedMarker
			changed++
		}

		display := value
		if display == "" {
			display = colorDim + "(not set)" + colorReset
		}
		fmt.Fprintf(w, "%s %s%-*s%s  %s\n", marker, colorCyan, width, key, colorReset, display)
	}

	if changed > 0 {
		fmt.Fprintf(w, "\n%s%s %d key(s) differ from the defaults%s\n", colorDim, changedMarker, changed, colorReset)
	}
	if !locate.Exists(path) {
		fmt.Fprintf(w, "%sConfig file does not exist yet; showing defaults.%s\n", colorYellow, colorReset)
	}

	return nil
}

func getConfig(w io.Writer, cfg *config.Config, key string) error {
	value, err := cfg.Get(key)
	if err != nil {
		return err
	}

	// Empty values print as an empty line so scripts can read them back.
	fmt.Fprintln(w, value)
	return nil
}

func setConfig(w io.Writer, cfg *config.Config, path, key, value string) error {
	if err := cfg.Set(key, value); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.SaveToFile(path); err != nil {
		return err
	}

	fmt.Fprintf(w, "%s%s%s = %s\n", colorCyan, key, colorReset, value)
	fmt.Fprintf(w, "Saved to: %s\n", path)

	return nil
}
