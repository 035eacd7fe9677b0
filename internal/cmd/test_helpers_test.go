package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

type cmdGlobals struct {
	installDir string
	configPath string
	limit      int
	mode       string
	json       bool
}

// withGlobals sets the package-level flag variables for one test.
func withGlobals(t *testing.T, g cmdGlobals) {
	t.Helper()
	old := cmdGlobals{
		installDir: installDir,
		configPath: configPath,
		limit:      historyLimit,
		mode:       historyMode,
		json:       historyJSON,
	}
	installDir = g.installDir
	configPath = g.configPath
	historyLimit = g.limit
	historyMode = g.mode
	historyJSON = g.json

	t.Cleanup(func() {
		installDir = old.installDir
		configPath = old.configPath
		historyLimit = old.limit
		historyMode = old.mode
		historyJSON = old.json
	})
}

// withNoColor disables ANSI output so assertions can match plain text.
func withNoColor(t *testing.T) {
	t.Helper()
	disableColors()
	t.Cleanup(func() {
		if shouldDisableColors() {
			disableColors()
		} else {
			enableColors()
		}
	})
}

// testEnv isolates config and journal lookups in a temp dir.
func testEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("SIDECAR_CONFIG", "")
	t.Setenv("SIDECAR_DEBUG", "")
	t.Setenv("SIDECAR_LOG_LEVEL", "")
	t.Setenv("SIDECAR_RUNTIME_ARGS", "")
	t.Setenv("SIDECAR_JOURNAL", "")
	withGlobals(t, cmdGlobals{installDir: dir, limit: 20})
	withNoColor(t)
	return dir
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe() failed: %v", err)
	}
	os.Stdout = w

	outC := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		outC <- buf.String()
	}()

	fn()
	_ = w.Close()
	os.Stdout = old
	out := <-outC
	_ = r.Close()
	return out
}
