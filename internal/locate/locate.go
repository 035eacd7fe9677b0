// Package locate finds the worker runtime and artifact relative to the
// supervisor's own installation directory.
package locate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/runger/sidecar/internal/config"
)

// LayoutPrimary names the candidate rooted directly at the install dir.
const LayoutPrimary = "primary"

// ErrNotFound is returned when no candidate layout holds the worker.
var ErrNotFound = errors.New("worker not found")

// Location is a resolved worker runtime and artifact pair.
type Location struct {
	Runtime  string
	Artifact string
	Layout   string
}

// NotFoundError lists every candidate that was tried.
type NotFoundError struct {
	InstallDir string
	Tried      []Location
}

func (e *NotFoundError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "worker not found under %s; tried:", e.InstallDir)
	for _, loc := range e.Tried {
		fmt.Fprintf(&b, " [%s: %s, %s]", loc.Layout, loc.Runtime, loc.Artifact)
	}
	return b.String()
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// Test seam for the executable lookup.
var executableFn = os.Executable

// SelfPath returns the absolute path of the running binary with symlinks
// resolved.
func SelfPath() (string, error) {
	exe, err := executableFn()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable path: %w", err)
	}
	return filepath.Abs(resolved)
}

// InstallDir returns the directory containing selfPath.
func InstallDir(selfPath string) string {
	return filepath.Dir(selfPath)
}

// Candidates returns the candidate locations in resolution order: the primary
// layout first, then one per configured fallback directory.
func Candidates(installDir string, layout config.LayoutConfig) []Location {
	roots := make([]string, 0, 1+len(layout.FallbackDirs))
	names := make([]string, 0, cap(roots))
	roots = append(roots, installDir)
	names = append(names, LayoutPrimary)
	for _, dir := range layout.FallbackDirs {
		roots = append(roots, filepath.Join(installDir, filepath.FromSlash(dir)))
		names = append(names, "fallback:"+dir)
	}

	binary := layout.RuntimeBinaryName()
	out := make([]Location, 0, len(roots))
	for i, root := range roots {
		out = append(out, Location{
			Runtime:  filepath.Join(root, filepath.FromSlash(layout.RuntimeDir), binary),
			Artifact: filepath.Join(root, filepath.FromSlash(layout.Artifact)),
			Layout:   names[i],
		})
	}
	return out
}

// Resolve returns the first candidate whose runtime binary and artifact both
// exist. It has no side effects beyond stat calls.
func Resolve(installDir string, layout config.LayoutConfig) (Location, error) {
	candidates := Candidates(installDir, layout)
	for _, loc := range candidates {
		if Exists(loc.Runtime) && Exists(loc.Artifact) {
			return loc, nil
		}
	}
	return Location{}, &NotFoundError{InstallDir: installDir, Tried: candidates}
}

// Exists reports whether path is an existing file. Directories do not count.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
