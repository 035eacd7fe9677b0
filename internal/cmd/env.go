package cmd

import (
	"fmt"

	"github.com/runger/sidecar/internal/config"
	"github.com/runger/sidecar/internal/locate"
)

// resolveInstallDir returns --install-dir or the directory of this binary.
func resolveInstallDir() (string, error) {
	if installDir != "" {
		return installDir, nil
	}
	self, err := locate.SelfPath()
	if err != nil {
		return "", fmt.Errorf("failed to determine install directory: %w", err)
	}
	return locate.InstallDir(self), nil
}

// loadConfig resolves the install directory and loads its config.
func loadConfig() (*config.Config, *config.Paths, string, error) {
	dir, err := resolveInstallDir()
	if err != nil {
		return nil, nil, "", err
	}
	paths := config.DefaultPaths(dir)
	path := configFile(paths)
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, paths, path, nil
}

func configFile(paths *config.Paths) string {
	if configPath != "" {
		return configPath
	}
	return paths.ConfigFile()
}
