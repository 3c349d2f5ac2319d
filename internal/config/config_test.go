package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/evanschultz/pdwatch/internal/domain"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default("/tmp/pdwatch.db")
	if cfg.Database.Path != "/tmp/pdwatch.db" {
		t.Fatalf("unexpected db path %q", cfg.Database.Path)
	}
	if cfg.Forecast.Policy() != domain.DefaultForecastPolicy() {
		t.Fatal("expected default forecast section to match the default policy")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	interval, err := cfg.Cache.Interval()
	if err != nil || interval != 15*time.Minute {
		t.Fatalf("Interval() = %v, %v", interval, err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	defaults := Default("/tmp/pdwatch.db")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"), defaults)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != defaults.Database.Path {
		t.Fatalf("expected default db path, got %q", cfg.Database.Path)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[database]
path = "/custom/pdwatch.db"

[logging]
level = "debug"

[cache]
refresh_interval = "1h"

[forecast]
conservatism_buffer_months = 3
max_advance_days = 120

[serve]
http_bind = "0.0.0.0:9090"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path, Default("/tmp/default.db"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != "/custom/pdwatch.db" {
		t.Fatalf("unexpected db path %q", cfg.Database.Path)
	}
	policy := cfg.Forecast.Policy()
	if policy.ConservatismBufferMonths != 3 || policy.MaxAdvanceDays != 120 {
		t.Fatalf("unexpected policy overrides %#v", policy)
	}
	if policy.FilingToFinalActionMonths != 9 {
		t.Fatal("expected untouched policy keys to keep defaults")
	}
	if interval, _ := cfg.Cache.Interval(); interval != time.Hour {
		t.Fatalf("unexpected interval %v", interval)
	}
	if cfg.Serve.HTTPBind != "0.0.0.0:9090" || cfg.Serve.MCPEndpoint != "/mcp" {
		t.Fatalf("unexpected serve section %#v", cfg.Serve)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"log level":  "[logging]\nlevel = \"loud\"\n",
		"interval":   "[cache]\nrefresh_interval = \"soon\"\n",
		"bounds":     "[forecast]\nmin_advance_days = 300\n",
		"endpoint":   "[serve]\nmcp_endpoint = \"mcp\"\n",
		"db path":    "[database]\npath = \"  \"\n",
		"bad toml":   "[database\n",
		"perm month": "[forecast]\nvery_old_perm_months = 0\n",
		"retries":    "[source]\nmax_retries = -1\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}
			if _, err := Load(path, Default("/tmp/default.db")); err == nil {
				t.Fatal("expected load error")
			}
		})
	}
}

func TestLoadAcceptsZeroRetries(t *testing.T) {
	if got := Default("/tmp/pdwatch.db").Source.MaxRetries; got != 2 {
		t.Fatalf("default max_retries = %d, want 2", got)
	}
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[source]\nmax_retries = 0\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	cfg, err := Load(path, Default("/tmp/default.db"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Source.MaxRetries != 0 {
		t.Fatalf("max_retries = %d, want 0", cfg.Source.MaxRetries)
	}
}

func TestSourceAPIKeyFromEnv(t *testing.T) {
	t.Setenv("PDWATCH_TEST_KEY", " abc ")
	s := SourceConfig{APIKeyEnv: "PDWATCH_TEST_KEY"}
	if s.APIKey() != "abc" {
		t.Fatalf("APIKey() = %q", s.APIKey())
	}
}
