package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"gopkg.in/yaml.v3"
)

// Config represents the sidecar configuration.
type Config struct {
	Layout  LayoutConfig  `yaml:"layout"`
	Worker  WorkerConfig  `yaml:"worker"`
	Capture CaptureConfig `yaml:"capture"`
	Log     LogConfig     `yaml:"log"`
	Journal JournalConfig `yaml:"journal"`
}

// LayoutConfig describes where the worker lives relative to the install dir.
type LayoutConfig struct {
	RuntimeDir    string   `yaml:"runtime_dir"`    // Bundled runtime directory
	RuntimeBinary string   `yaml:"runtime_binary"` // Runtime binary, relative to runtime_dir
	Artifact      string   `yaml:"artifact"`       // Launchable artifact, colocated with the runtime dir
	FallbackDirs  []string `yaml:"fallback_dirs"`  // Alternate roots, relative to the install dir
}

// WorkerConfig holds the flags passed to the worker.
type WorkerConfig struct {
	ArtifactFlag string `yaml:"artifact_flag"` // Flag preceding the artifact path
	ProfileFlag  string `yaml:"profile_flag"`  // Trailing flag selecting the standalone profile
	DebugFlag    string `yaml:"debug_flag"`    // Diagnostic flag injected in debug mode
	RuntimeArgs  string `yaml:"runtime_args"`  // Shell-quoted runtime options (before the artifact flag)
	Debug        bool   `yaml:"debug"`         // Launch the debug variant
}

// CaptureConfig names the output sinks written in standalone mode.
type CaptureConfig struct {
	Stdout string `yaml:"stdout"` // Relative to the install dir unless absolute
	Stderr string `yaml:"stderr"`
}

// LogConfig holds supervisor logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// JournalConfig holds run journal settings.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // Database path (overrides default)
	Keep    int    `yaml:"keep"` // Runs retained (0 = unlimited)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Layout: LayoutConfig{
			RuntimeDir:    "runtime",
			RuntimeBinary: "bin/java",
			Artifact:      "backend.jar",
			FallbackDirs:  []string{"_up_/_up_/resources"},
		},
		Worker: WorkerConfig{
			ArtifactFlag: "-jar",
			ProfileFlag:  "--spring.profiles.active=standalone",
			DebugFlag:    "-Dsidecar.debug=true",
		},
		Capture: CaptureConfig{
			Stdout: "backend.log",
			Stderr: "backend.err",
		},
		Log: LogConfig{
			Level: "info",
		},
		Journal: JournalConfig{
			Enabled: true,
			Keep:    200,
		},
	}
}

// LoadFromFile reads the config at path. A missing file yields the defaults.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults only
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile writes the config to path, creating the directory if needed.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// RuntimeBinaryName returns the runtime binary with the platform executable
// suffix applied.
func (l LayoutConfig) RuntimeBinaryName() string {
	name := filepath.FromSlash(l.RuntimeBinary)
	if runtime.GOOS == "windows" && filepath.Ext(name) == "" {
		name += ".exe"
	}
	return name
}

// RuntimeArgv splits worker.runtime_args into an argument vector.
func (w WorkerConfig) RuntimeArgv() ([]string, error) {
	if strings.TrimSpace(w.RuntimeArgs) == "" {
		return nil, nil
	}
	argv, err := shlex.Split(w.RuntimeArgs)
	if err != nil {
		return nil, fmt.Errorf("splitting worker.runtime_args: %w", err)
	}
	return argv, nil
}

// Get retrieves a configuration value by dot-separated key.
// For example: "layout.artifact" or "journal.enabled"
func (c *Config) Get(key string) (string, error) {
	section, field, err := splitKey(key)
	if err != nil {
		return "", err
	}

	switch section {
	case "layout":
		return c.getLayoutField(field)
	case "worker":
		return c.getWorkerField(field)
	case "capture":
		return c.getCaptureField(field)
	case "log":
		if field == "level" {
			return c.Log.Level, nil
		}
		return "", fmt.Errorf("unknown field: log.%s", field)
	case "journal":
		return c.getJournalField(field)
	default:
		return "", fmt.Errorf("unknown section: %s", section)
	}
}

// Set sets a configuration value by dot-separated key.
func (c *Config) Set(key, value string) error {
	section, field, err := splitKey(key)
	if err != nil {
		return err
	}

	switch section {
	case "layout":
		return c.setLayoutField(field, value)
	case "worker":
		return c.setWorkerField(field, value)
	case "capture":
		return c.setCaptureField(field, value)
	case "log":
		if field != "level" {
			return fmt.Errorf("unknown field: log.%s", field)
		}
		if !isValidLogLevel(value) {
			return fmt.Errorf("log.level must be debug, info, warn, or error (got: %s)", value)
		}
		c.Log.Level = value
		return nil
	case "journal":
		return c.setJournalField(field, value)
	default:
		return fmt.Errorf("unknown section: %s", section)
	}
}

func splitKey(key string) (string, string, error) {
	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return "", "", errors.New("key must be in format 'section.key'")
	}
	return parts[0], parts[1], nil
}

func (c *Config) getLayoutField(field string) (string, error) {
	switch field {
	case "runtime_dir":
		return c.Layout.RuntimeDir, nil
	case "runtime_binary":
		return c.Layout.RuntimeBinary, nil
	case "artifact":
		return c.Layout.Artifact, nil
	case "fallback_dirs":
		return strings.Join(c.Layout.FallbackDirs, ","), nil
	default:
		return "", fmt.Errorf("unknown field: layout.%s", field)
	}
}

func (c *Config) setLayoutField(field, value string) error {
	switch field {
	case "runtime_dir":
		c.Layout.RuntimeDir = value
	case "runtime_binary":
		c.Layout.RuntimeBinary = value
	case "artifact":
		c.Layout.Artifact = value
	case "fallback_dirs":
		c.Layout.FallbackDirs = nil
		for _, dir := range strings.Split(value, ",") {
			if dir = strings.TrimSpace(dir); dir != "" {
				c.Layout.FallbackDirs = append(c.Layout.FallbackDirs, dir)
			}
		}
	default:
		return fmt.Errorf("unknown field: layout.%s", field)
	}
	return nil
}

func (c *Config) getWorkerField(field string) (string, error) {
	switch field {
	case "artifact_flag":
		return c.Worker.ArtifactFlag, nil
	case "profile_flag":
		return c.Worker.ProfileFlag, nil
	case "debug_flag":
		return c.Worker.DebugFlag, nil
	case "runtime_args":
		return c.Worker.RuntimeArgs, nil
	case "debug":
		return strconv.FormatBool(c.Worker.Debug), nil
	default:
		return "", fmt.Errorf("unknown field: worker.%s", field)
	}
}

func (c *Config) setWorkerField(field, value string) error {
	switch field {
	case "artifact_flag":
		c.Worker.ArtifactFlag = value
	case "profile_flag":
		c.Worker.ProfileFlag = value
	case "debug_flag":
		c.Worker.DebugFlag = value
	case "runtime_args":
		if _, err := shlex.Split(value); err != nil {
			return fmt.Errorf("invalid value for runtime_args: %w", err)
		}
		c.Worker.RuntimeArgs = value
	case "debug":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for debug: %w", err)
		}
		c.Worker.Debug = v
	default:
		return fmt.Errorf("unknown field: worker.%s", field)
	}
	return nil
}

func (c *Config) getCaptureField(field string) (string, error) {
	switch field {
	case "stdout":
		return c.Capture.Stdout, nil
	case "stderr":
		return c.Capture.Stderr, nil
	default:
		return "", fmt.Errorf("unknown field: capture.%s", field)
	}
}

func (c *Config) setCaptureField(field, value string) error {
	switch field {
	case "stdout":
		c.Capture.Stdout = value
	case "stderr":
		c.Capture.Stderr = value
	default:
		return fmt.Errorf("unknown field: capture.%s", field)
	}
	return nil
}

func (c *Config) getJournalField(field string) (string, error) {
	switch field {
	case "enabled":
		return strconv.FormatBool(c.Journal.Enabled), nil
	case "path":
		return c.Journal.Path, nil
	case "keep":
		return strconv.Itoa(c.Journal.Keep), nil
	default:
		return "", fmt.Errorf("unknown field: journal.%s", field)
	}
}

func (c *Config) setJournalField(field, value string) error {
	switch field {
	case "enabled":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for enabled: %w", err)
		}
		c.Journal.Enabled = v
	case "path":
		c.Journal.Path = value
	case "keep":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for keep: %w", err)
		}
		c.Journal.Keep = v
	default:
		return fmt.Errorf("unknown field: journal.%s", field)
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Layout.RuntimeDir == "" {
		return errors.New("layout.runtime_dir is required")
	}
	if c.Layout.RuntimeBinary == "" {
		return errors.New("layout.runtime_binary is required")
	}
	if c.Layout.Artifact == "" {
		return errors.New("layout.artifact is required")
	}
	for _, dir := range c.Layout.FallbackDirs {
		if filepath.IsAbs(dir) {
			return fmt.Errorf("layout.fallback_dirs entries must be relative (got: %s)", dir)
		}
	}

	if c.Worker.ArtifactFlag == "" {
		return errors.New("worker.artifact_flag is required")
	}
	if _, err := c.Worker.RuntimeArgv(); err != nil {
		return err
	}

	if c.Capture.Stdout == "" || c.Capture.Stderr == "" {
		return errors.New("capture.stdout and capture.stderr are required")
	}

	if !isValidLogLevel(c.Log.Level) {
		return fmt.Errorf("log.level must be debug, info, warn, or error (got: %s)", c.Log.Level)
	}

	if c.Journal.Keep < 0 {
		return errors.New("journal.keep must be >= 0")
	}

	return nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// ApplyEnvOverrides applies environment variable overrides to the config.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("SIDECAR_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Worker.Debug = b
			if b {
				c.Log.Level = "debug"
			}
		}
	}
	if v := os.Getenv("SIDECAR_LOG_LEVEL"); v != "" {
		if isValidLogLevel(v) {
			c.Log.Level = v
		}
	}
	if v := os.Getenv("SIDECAR_RUNTIME_ARGS"); v != "" {
		c.Worker.RuntimeArgs = v
	}
	if v := os.Getenv("SIDECAR_JOURNAL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Journal.Enabled = b
		}
	}
}

// ListKeys returns all configuration keys.
func ListKeys() []string {
	return []string{
		"layout.runtime_dir",
		"layout.runtime_binary",
		"layout.artifact",
		"layout.fallback_dirs",
		"worker.artifact_flag",
		"worker.profile_flag",
		"worker.debug_flag",
		"worker.runtime_args",
		"worker.debug",
		"capture.stdout",
		"capture.stderr",
		"log.level",
		"journal.enabled",
		"journal.path",
		"journal.keep",
	}
}
