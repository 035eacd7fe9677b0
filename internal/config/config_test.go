package config

import (
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Layout.RuntimeDir != "runtime" {
		t.Errorf("Expected runtime_dir=runtime, got %s", cfg.Layout.RuntimeDir)
	}
	if cfg.Layout.Artifact != "backend.jar" {
		t.Errorf("Expected artifact=backend.jar, got %s", cfg.Layout.Artifact)
	}
	if len(cfg.Layout.FallbackDirs) != 1 || cfg.Layout.FallbackDirs[0] != "_up_/_up_/resources" {
		t.Errorf("Expected fallback_dirs=[_up_/_up_/resources], got %v", cfg.Layout.FallbackDirs)
	}
	if cfg.Worker.ArtifactFlag != "-jar" {
		t.Errorf("Expected artifact_flag=-jar, got %s", cfg.Worker.ArtifactFlag)
	}
	if cfg.Worker.ProfileFlag != "--spring.profiles.active=standalone" {
		t.Errorf("Expected standalone profile flag, got %s", cfg.Worker.ProfileFlag)
	}
	if cfg.Capture.Stdout != "backend.log" || cfg.Capture.Stderr != "backend.err" {
		t.Errorf("Expected backend.log/backend.err, got %s/%s", cfg.Capture.Stdout, cfg.Capture.Stderr)
	}
	if !cfg.Journal.Enabled {
		t.Error("Expected journal.enabled=true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() error = %v", err)
	}
}

func TestConfigGet(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		key      string
		expected string
	}{
		{"layout.runtime_dir", "runtime"},
		{"layout.runtime_binary", "bin/java"},
		{"layout.artifact", "backend.jar"},
		{"layout.fallback_dirs", "_up_/_up_/resources"},
		{"worker.artifact_flag", "-jar"},
		{"worker.debug_flag", "-Dsidecar.debug=true"},
		{"worker.runtime_args", ""},
		{"worker.debug", "false"},
		{"capture.stdout", "backend.log"},
		{"capture.stderr", "backend.err"},
		{"log.level", "info"},
		{"journal.enabled", "true"},
		{"journal.path", ""},
		{"journal.keep", "200"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := cfg.Get(tt.key)
			if err != nil {
				t.Fatalf("Get(%q) error = %v", tt.key, err)
			}
			if got != tt.expected {
				t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.expected)
			}
		})
	}
}

func TestConfigListKeysAreGettable(t *testing.T) {
	cfg := DefaultConfig()
	for _, key := range ListKeys() {
		if _, err := cfg.Get(key); err != nil {
			t.Errorf("Get(%q) error = %v", key, err)
		}
	}
}

func TestConfigSet(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Set("layout.fallback_dirs", "_up_/_up_/resources, Contents/Resources"); err != nil {
		t.Fatalf("Set(fallback_dirs) error = %v", err)
	}
	want := []string{"_up_/_up_/resources", "Contents/Resources"}
	if !reflect.DeepEqual(cfg.Layout.FallbackDirs, want) {
		t.Errorf("FallbackDirs = %v, want %v", cfg.Layout.FallbackDirs, want)
	}

	if err := cfg.Set("worker.debug", "true"); err != nil {
		t.Fatalf("Set(worker.debug) error = %v", err)
	}
	if !cfg.Worker.Debug {
		t.Error("Expected worker.debug=true after Set")
	}

	if err := cfg.Set("journal.keep", "10"); err != nil {
		t.Fatalf("Set(journal.keep) error = %v", err)
	}
	if cfg.Journal.Keep != 10 {
		t.Errorf("Journal.Keep = %d, want 10", cfg.Journal.Keep)
	}
}

func TestConfigSetErrors(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"nodot", "x"},
		{"unknown.key", "x"},
		{"layout.nope", "x"},
		{"worker.debug", "maybe"},
		{"worker.runtime_args", `"unterminated`},
		{"log.level", "verbose"},
		{"journal.keep", "many"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			cfg := DefaultConfig()
			if err := cfg.Set(tt.key, tt.value); err == nil {
				t.Errorf("Set(%q, %q) should fail", tt.key, tt.value)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errSub string
	}{
		{"missing artifact", func(c *Config) { c.Layout.Artifact = "" }, "layout.artifact"},
		{"absolute fallback", func(c *Config) { c.Layout.FallbackDirs = []string{"/opt/app"} }, "fallback_dirs"},
		{"missing artifact flag", func(c *Config) { c.Worker.ArtifactFlag = "" }, "artifact_flag"},
		{"bad runtime args", func(c *Config) { c.Worker.RuntimeArgs = `-Xmx1g "oops` }, "runtime_args"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"negative keep", func(c *Config) { c.Journal.Keep = -1 }, "journal.keep"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.errSub) {
				t.Errorf("Validate() error = %v, want error containing %q", err, tt.errSub)
			}
		})
	}
}

func TestRuntimeArgv(t *testing.T) {
	w := WorkerConfig{RuntimeArgs: `-Xmx512m "-Dapp.name=Book Wiki"`}
	got, err := w.RuntimeArgv()
	if err != nil {
		t.Fatalf("RuntimeArgv() error = %v", err)
	}
	want := []string{"-Xmx512m", "-Dapp.name=Book Wiki"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RuntimeArgv() = %q, want %q", got, want)
	}

	empty, err := WorkerConfig{}.RuntimeArgv()
	if err != nil || empty != nil {
		t.Errorf("RuntimeArgv() on empty = %v, %v; want nil, nil", empty, err)
	}
}

func TestRuntimeBinaryName(t *testing.T) {
	l := LayoutConfig{RuntimeBinary: "bin/java"}
	want := filepath.Join("bin", "java")
	if runtime.GOOS == "windows" {
		want += ".exe"
	}
	if got := l.RuntimeBinaryName(); got != want {
		t.Errorf("RuntimeBinaryName() = %q, want %q", got, want)
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	cfg, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if cfg.Layout.Artifact != "backend.jar" {
		t.Errorf("Expected defaults for missing file, got artifact=%s", cfg.Layout.Artifact)
	}
}

func TestLoadFromFile_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	content := `layout:
  artifact: worker.bin
  fallback_dirs: ["../Resources"]
worker:
  runtime_args: -Xmx256m
log:
  level: warn
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if cfg.Layout.Artifact != "worker.bin" {
		t.Errorf("artifact = %s, want worker.bin", cfg.Layout.Artifact)
	}
	if cfg.Layout.RuntimeDir != "runtime" {
		t.Errorf("runtime_dir = %s, want default runtime", cfg.Layout.RuntimeDir)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log.level = %s, want warn", cfg.Log.Level)
	}
}

func TestLoadFromFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(path, []byte("log:\n  level: shout\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("LoadFromFile() should reject an invalid log level")
	}

	if err := os.WriteFile(path, []byte("layout: [\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("LoadFromFile() should reject malformed YAML")
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", ConfigFileName)
	cfg := DefaultConfig()
	cfg.Worker.RuntimeArgs = "-Xms64m"
	cfg.Journal.Enabled = false

	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if loaded.Worker.RuntimeArgs != "-Xms64m" {
		t.Errorf("runtime_args = %q, want -Xms64m", loaded.Worker.RuntimeArgs)
	}
	if loaded.Journal.Enabled {
		t.Error("Expected journal.enabled=false after reload")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("SIDECAR_DEBUG", "1")
	t.Setenv("SIDECAR_RUNTIME_ARGS", "-Xmx1g")
	t.Setenv("SIDECAR_JOURNAL", "false")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	if !cfg.Worker.Debug {
		t.Error("SIDECAR_DEBUG should enable worker.debug")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %s, want debug", cfg.Log.Level)
	}
	if cfg.Worker.RuntimeArgs != "-Xmx1g" {
		t.Errorf("runtime_args = %q, want -Xmx1g", cfg.Worker.RuntimeArgs)
	}
	if cfg.Journal.Enabled {
		t.Error("SIDECAR_JOURNAL=false should disable the journal")
	}
}

func TestApplyEnvOverrides_LogLevelWinsOverDebug(t *testing.T) {
	t.Setenv("SIDECAR_DEBUG", "true")
	t.Setenv("SIDECAR_LOG_LEVEL", "error")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	if cfg.Log.Level != "error" {
		t.Errorf("log.level = %s, want error", cfg.Log.Level)
	}
}

func TestDefaultPaths(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("XDG test not applicable on Windows")
	}
	t.Setenv("XDG_DATA_HOME", "/custom/data")
	t.Setenv("SIDECAR_CONFIG", "")

	paths := DefaultPaths("/opt/bookwiki")

	if paths.DataDir != "/custom/data/sidecar" {
		t.Errorf("DataDir = %s, want /custom/data/sidecar", paths.DataDir)
	}
	if got := paths.ConfigFile(); got != "/opt/bookwiki/sidecar.yaml" {
		t.Errorf("ConfigFile() = %s, want /opt/bookwiki/sidecar.yaml", got)
	}
	if got := paths.JournalFile(); got != "/custom/data/sidecar/runs.db" {
		t.Errorf("JournalFile() = %s, want /custom/data/sidecar/runs.db", got)
	}
}

func TestConfigFileEnvOverride(t *testing.T) {
	t.Setenv("SIDECAR_CONFIG", "/etc/sidecar/custom.yaml")
	paths := DefaultPaths("/opt/bookwiki")
	if got := paths.ConfigFile(); got != "/etc/sidecar/custom.yaml" {
		t.Errorf("ConfigFile() = %s, want /etc/sidecar/custom.yaml", got)
	}
}

func TestEnsureDirectories(t *testing.T) {
	paths := &Paths{InstallDir: t.TempDir(), DataDir: filepath.Join(t.TempDir(), "a", "b")}
	if err := paths.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories() error = %v", err)
	}
	if info, err := os.Stat(paths.DataDir); err != nil || !info.IsDir() {
		t.Errorf("DataDir not created: %v", err)
	}
}
