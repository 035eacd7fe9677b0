package supervisor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// capture holds the files the worker's stdout and stderr are written to.
type capture struct {
	stdout *os.File
	stderr *os.File
}

// capturePath joins name onto dir unless name is already absolute.
func capturePath(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

// openCapture creates both sinks, truncating anything left by a previous run.
func openCapture(stdoutPath, stderrPath string) (*capture, error) {
	stdout, err := os.OpenFile(stdoutPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("open stdout capture: %w", err)
	}
	stderr, err := os.OpenFile(stderrPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		stdout.Close()
		return nil, fmt.Errorf("open stderr capture: %w", err)
	}
	return &capture{stdout: stdout, stderr: stderr}, nil
}

// Close closes both sinks. It is safe on a nil capture.
func (c *capture) Close() error {
	if c == nil {
		return nil
	}
	return errors.Join(c.stdout.Close(), c.stderr.Close())
}
