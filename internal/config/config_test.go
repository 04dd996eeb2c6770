package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Game.ScoreDelta != 5 || cfg.Game.KeyMemoryCap != 50 || cfg.Game.Autosave.IntervalChoices != 3 {
		t.Fatalf("unexpected game defaults %+v", cfg.Game)
	}
	if cfg.Game.Endings.VoidEmbraceMinScore != 70 || cfg.Game.Endings.WatcherChoicesPerLoop != 2 {
		t.Fatalf("unexpected ending defaults %+v", cfg.Game.Endings)
	}
	if cfg.Persistence.Backend != BackendFile {
		t.Fatalf("expected file backend, got %q", cfg.Persistence.Backend)
	}
}

func TestLoadFileOverDefaultsThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  port: 9000
llm:
  model: "from-file"
  request_timeout: 5s
game:
  score_delta: 10
  endings:
    void_embrace_min_dark: 12
persistence:
  backend: sqlite
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("LLM_MODEL", "from-env")
	t.Setenv("DATA_DIR", "/tmp/saves")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9000 || cfg.Server.Host != "0.0.0.0" {
		t.Fatalf("unexpected server config %+v", cfg.Server)
	}
	if cfg.LLM.Model != "from-env" {
		t.Fatalf("expected env to override model, got %q", cfg.LLM.Model)
	}
	if cfg.LLM.RequestTimeout != 5*time.Second {
		t.Fatalf("expected 5s timeout, got %s", cfg.LLM.RequestTimeout)
	}
	if cfg.Game.ScoreDelta != 10 || cfg.Game.KeyMemoryCap != 50 {
		t.Fatalf("unexpected game config %+v", cfg.Game)
	}
	if cfg.Game.Endings.VoidEmbraceMinDark != 12 || cfg.Game.Endings.VoidEmbraceMinScore != 70 {
		t.Fatalf("unexpected endings %+v", cfg.Game.Endings)
	}
	if cfg.Persistence.Backend != BackendSQLite || cfg.Persistence.File.Dir != "/tmp/saves" {
		t.Fatalf("unexpected persistence %+v", cfg.Persistence)
	}

	rules := cfg.Game.Rules()
	if rules.Aggregator.ScoreDelta != 10 || rules.Thresholds.VoidEmbraceMinDark != 12 {
		t.Fatalf("unexpected rules %+v", rules)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero score delta", func(c *Config) { c.Game.ScoreDelta = 0 }},
		{"zero key memory cap", func(c *Config) { c.Game.KeyMemoryCap = 0 }},
		{"zero autosave interval", func(c *Config) { c.Game.Autosave.IntervalChoices = 0 }},
		{"unknown backend", func(c *Config) { c.Persistence.Backend = "floppy" }},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "oracle" }},
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults must validate, got %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
