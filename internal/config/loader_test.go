package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantErr string
		checkFn func(t *testing.T, cfg *Config)
	}{
		{
			name: "minimal valid config",
			yaml: `
engine:
  tick_rate: 20ms
  workers: 4
state:
  path: ./test.db
`,
			checkFn: func(t *testing.T, cfg *Config) {
				if cfg.Engine.TickRate != 20*time.Millisecond {
					t.Error("tick_rate not parsed")
				}
				if cfg.Engine.Workers != 4 {
					t.Error("workers not parsed")
				}
				if cfg.State.Path != "./test.db" {
					t.Error("state.path not parsed")
				}
				if cfg.Engine.Name != "hearth" || cfg.Engine.LogLevel != "info" || cfg.Engine.LogFormat != "json" {
					t.Errorf("engine defaults not applied: %+v", cfg.Engine)
				}
				if cfg.Profile.CSVEvery != 600 {
					t.Errorf("profile default not applied: %d", cfg.Profile.CSVEvery)
				}
				if cfg.Hash == "" || len(cfg.SourceFiles) != 1 {
					t.Errorf("hash/source files not recorded: %q %v", cfg.Hash, cfg.SourceFiles)
				}
			},
		},
		{
			name: "modules and options",
			yaml: `
modules:
  physics:
    options:
      gravity: -3.5
      substeps: 2
  ui:
    enabled: false
`,
			checkFn: func(t *testing.T, cfg *Config) {
				if !cfg.ModuleEnabled("physics") {
					t.Error("physics should be enabled")
				}
				if cfg.ModuleEnabled("ui") {
					t.Error("ui should be disabled")
				}
				if !cfg.ModuleEnabled("sprite") {
					t.Error("unlisted modules default to enabled")
				}
				phys := cfg.Module("physics")
				if got := phys.Float("gravity", 0); got != -3.5 {
					t.Errorf("gravity = %v", got)
				}
				if got := phys.Int("substeps", 1); got != 2 {
					t.Errorf("substeps = %v", got)
				}
				if got := phys.Text("mode", "euler"); got != "euler" {
					t.Errorf("mode = %v", got)
				}
			},
		},
		{
			name: "env var interpolation",
			yaml: `
state:
  path: ${HEARTH_TEST_DB}
api:
  enabled: true
  auth:
    api_key: ${HEARTH_TEST_KEY}
`,
			env: map[string]string{
				"HEARTH_TEST_DB":  "/tmp/hearth.db",
				"HEARTH_TEST_KEY": "secret123",
			},
			checkFn: func(t *testing.T, cfg *Config) {
				if cfg.State.Path != "/tmp/hearth.db" {
					t.Errorf("state.path = %q", cfg.State.Path)
				}
				if cfg.API.Auth.APIKey != "secret123" {
					t.Errorf("api_key = %q", cfg.API.Auth.APIKey)
				}
				if cfg.API.Listen != "127.0.0.1:8090" {
					t.Errorf("api.listen default = %q", cfg.API.Listen)
				}
			},
		},
		{
			name: "unset env var in api key",
			yaml: `
api:
  enabled: true
  auth:
    api_key: ${HEARTH_TEST_MISSING}
`,
			wantErr: "${HEARTH_TEST_MISSING} is not set",
		},
		{
			name: "unset env var in module options",
			yaml: `
modules:
  camera:
    options:
      target: ${HEARTH_TEST_MISSING}
`,
			wantErr: `module "camera"`,
		},
		{
			name: "api without credentials",
			yaml: `
api:
  enabled: true
`,
			wantErr: "api_key or tokens required",
		},
		{
			name: "bad log level",
			yaml: `
engine:
  log_level: loud
`,
			wantErr: "engine.log_level",
		},
		{
			name: "negative workers",
			yaml: `
engine:
  workers: -1
`,
			wantErr: "engine.workers",
		},
		{
			name:    "invalid yaml",
			yaml:    "engine: [",
			wantErr: "failed to parse YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			dir := t.TempDir()
			path := writeFile(t, dir, DefaultFileName, tt.yaml)

			cfg, err := Load(path)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("Load() succeeded, want error containing %q", tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Load() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() failed: %v", err)
			}
			tt.checkFn(t, cfg)
		})
	}
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, DefaultFileName, "engine:\n  name: dir-engine\n")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load(dir) failed: %v", err)
	}
	if cfg.Engine.Name != "dir-engine" {
		t.Errorf("engine.name = %q", cfg.Engine.Name)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadIncludes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, DefaultFileName, `
include:
  - modules.yaml
engine:
  name: base
  workers: 2
`)
	writeFile(t, dir, "modules.yaml", `
engine:
  workers: 6
modules:
  ui:
    enabled: false
`)

	cfg, err := Load(filepath.Join(dir, DefaultFileName))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Engine.Name != "base" {
		t.Errorf("engine.name = %q", cfg.Engine.Name)
	}
	if cfg.Engine.Workers != 6 {
		t.Errorf("included workers should win, got %d", cfg.Engine.Workers)
	}
	if cfg.ModuleEnabled("ui") {
		t.Error("ui should be disabled by include")
	}
	if len(cfg.SourceFiles) != 2 {
		t.Errorf("SourceFiles = %v", cfg.SourceFiles)
	}
}

func TestLoadIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, DefaultFileName, "include: [a.yaml]\n")
	writeFile(t, dir, "a.yaml", "include: [hearth.yaml]\n")

	_, err := Load(dir)
	if err == nil || !strings.Contains(err.Error(), "circular dependency") {
		t.Fatalf("expected circular dependency error, got %v", err)
	}
}

func TestLoadHashChangesWithContent(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, DefaultFileName, "engine:\n  workers: 1\n")
	first, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, dir, DefaultFileName, "engine:\n  workers: 2\n")
	second, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if first.Hash == second.Hash {
		t.Error("config hash should change with content")
	}
}

func TestValidateCollectsAll(t *testing.T) {
	cfg := Defaults()
	cfg.Engine.LogLevel = "loud"
	cfg.Engine.LogFormat = "xml"
	cfg.State.Path = ""

	errs := Validate(cfg)
	if len(errs) != 3 {
		t.Fatalf("Validate() = %v, want 3 errors", errs)
	}
}

func TestDiscoverConfigPathEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "custom.yaml", "engine: {}\n")
	t.Setenv("HEARTH_CONFIG", path)

	got, err := DiscoverConfigPath()
	if err != nil {
		t.Fatalf("DiscoverConfigPath() failed: %v", err)
	}
	if got != path {
		t.Errorf("DiscoverConfigPath() = %q, want %q", got, path)
	}
}
