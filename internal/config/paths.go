// Package config provides configuration management for sidecar.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// ConfigFileName is the name of the optional config file colocated with the
// supervisor binary.
const ConfigFileName = "sidecar.yaml"

// Paths holds all the path configurations for sidecar.
type Paths struct {
	// InstallDir is the directory containing the supervisor binary
	InstallDir string

	// DataDir is the directory for data files (~/.local/share/sidecar)
	DataDir string
}

// DefaultPaths returns the default paths for a supervisor installed in
// installDir. The data directory follows the XDG Base Directory spec; on
// Windows it uses %LOCALAPPDATA% instead.
func DefaultPaths(installDir string) *Paths {
	home := homeDir()

	if runtime.GOOS == "windows" {
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			localAppData = filepath.Join(home, "AppData", "Local")
		}
		return &Paths{
			InstallDir: installDir,
			DataDir:    filepath.Join(localAppData, "sidecar"),
		}
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		dataHome = filepath.Join(home, ".local", "share")
	}

	return &Paths{
		InstallDir: installDir,
		DataDir:    filepath.Join(dataHome, "sidecar"),
	}
}

// ConfigFile returns the path to the config file. SIDECAR_CONFIG overrides the
// default location next to the binary.
func (p *Paths) ConfigFile() string {
	if v := os.Getenv("SIDECAR_CONFIG"); v != "" {
		return v
	}
	return filepath.Join(p.InstallDir, ConfigFileName)
}

// JournalFile returns the default path to the run journal database.
func (p *Paths) JournalFile() string {
	return filepath.Join(p.DataDir, "runs.db")
}

// EnsureDirectories creates all necessary directories.
func (p *Paths) EnsureDirectories() error {
	return os.MkdirAll(p.DataDir, 0755)
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		if runtime.GOOS == "windows" {
			return os.Getenv("USERPROFILE")
		}
		return os.Getenv("HOME")
	}
	return home
}
