package cmd

import (
	"io"
	"os"
	"runtime"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// ANSI color codes for terminal output.
// These are initialized in init() and may be disabled on certain platforms.
var (
	colorRed    = ""
	colorGreen  = ""
	colorYellow = ""
	colorCyan   = ""
	colorDim    = ""
	colorBold   = ""
	colorReset  = ""
)

func init() {
	if shouldDisableColors() {
		disableColors()
	} else {
		enableColors()
	}
}

func enableColors() {
	colorRed = "\033[0;31m"
	colorGreen = "\033[0;32m"
	colorYellow = "\033[0;33m"
	colorCyan = "\033[0;36m"
	colorDim = "\033[2m"
	colorBold = "\033[1m"
	colorReset = "\033[0m"
	lipgloss.SetColorProfile(termenv.ANSI256)
}

func disableColors() {
	colorRed = ""
	colorGreen = ""
	colorYellow = ""
	colorCyan = ""
	colorDim = ""
	colorBold = ""
	colorReset = ""
	lipgloss.SetColorProfile(termenv.Ascii)
}

// applyColorMode applies the --color flag: always, never or auto.
func applyColorMode() {
	switch colorMode {
	case "always":
		enableColors()
	case "never":
		disableColors()
	default:
		if shouldDisableColors() || termenv.NewOutput(os.Stdout).ColorProfile() == termenv.Ascii {
			disableColors()
		} else {
			enableColors()
		}
	}
}

func shouldDisableColors() bool {
	// https://no-color.org/
	if termenv.EnvNoColor() {
		return true
	}

	if os.Getenv("TERM") == "dumb" {
		return true
	}

	if runtime.GOOS == "windows" {
		if os.Getenv("WT_SESSION") != "" {
			return false
		}
		if os.Getenv("TERM_PROGRAM") != "" {
			return false
		}
		// Older consoles without ANSI support
		return os.Getenv("ANSICON") == "" && os.Getenv("ConEmuANSI") != "ON"
	}

	return false
}

// terminalWidth returns the width of the terminal w writes to, then
// $COLUMNS, then 80. Writers that are not terminals (pipes, buffers) fall
// through to the environment.
func terminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		if width := fileWidth(f); width > 0 {
			return width
		}
	}
	if width, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && width > 0 {
		return width
	}
	return 80
}
