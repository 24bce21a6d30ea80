// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Catalog.BaseURL != "https://api.themoviedb.org/3" {
		t.Errorf("Catalog.BaseURL = %q", cfg.Catalog.BaseURL)
	}
	if cfg.Catalog.Language != "ru-RU" {
		t.Errorf("Catalog.Language = %q, want ru-RU", cfg.Catalog.Language)
	}
	if cfg.Catalog.Timeout != 10*time.Second {
		t.Errorf("Catalog.Timeout = %v, want 10s", cfg.Catalog.Timeout)
	}
	if cfg.Catalog.MaxCast != 15 {
		t.Errorf("Catalog.MaxCast = %d, want 15", cfg.Catalog.MaxCast)
	}
	if cfg.Crawl.PageDelay != time.Second {
		t.Errorf("Crawl.PageDelay = %v, want 1s", cfg.Crawl.PageDelay)
	}
	if cfg.Refresh.BatchSize != 50 {
		t.Errorf("Refresh.BatchSize = %d, want 50", cfg.Refresh.BatchSize)
	}
	if cfg.Database.Driver != "duckdb" {
		t.Errorf("Database.Driver = %q, want duckdb", cfg.Database.Driver)
	}
	if cfg.Queue.Backend != "memory" {
		t.Errorf("Queue.Backend = %q, want memory", cfg.Queue.Backend)
	}
	if len(cfg.Scheduler.Entries) != 4 {
		t.Fatalf("expected 4 default schedule entries, got %d", len(cfg.Scheduler.Entries))
	}
	top := cfg.Scheduler.Entries[0]
	if top.Name != "import-daily-top" || top.Cron != "6 0 * * *" || top.Args["end_page"] != 5 {
		t.Errorf("unexpected first schedule entry: %+v", top)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("TMDB_API_TOKEN", "secret-token")
	t.Setenv("TMDB_LANGUAGE", "en-US")
	t.Setenv("CRAWL_PAGE_DELAY", "250ms")
	t.Setenv("WORKER_CONCURRENCY", "4")
	t.Setenv("SERVER_ROLES", "worker, scheduler")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Catalog.APIToken != "secret-token" {
		t.Errorf("APIToken = %q", cfg.Catalog.APIToken)
	}
	if cfg.Catalog.Language != "en-US" {
		t.Errorf("Language = %q, want en-US", cfg.Catalog.Language)
	}
	if cfg.Crawl.PageDelay != 250*time.Millisecond {
		t.Errorf("PageDelay = %v, want 250ms", cfg.Crawl.PageDelay)
	}
	if cfg.Queue.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Queue.Workers)
	}
	if len(cfg.Server.Roles) != 2 || !cfg.Server.HasRole(RoleWorker) || cfg.Server.HasRole(RoleAPI) {
		t.Errorf("Roles = %v, want [worker scheduler]", cfg.Server.Roles)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
catalog:
  api_token: file-token
  requests_per_second: 5
database:
  driver: pgx
  dsn: postgres://cinematch@localhost/cinematch
queue:
  backend: nats
  embedded_server: true
  store_dir: ` + dir + `
scheduler:
  timezone: UTC
  entries:
    - name: nightly
      cron: "15 1 * * *"
      task: catalog.crawl_popular
      args:
        start_page: 1
        end_page: 3
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Catalog.APIToken != "file-token" {
		t.Errorf("APIToken = %q", cfg.Catalog.APIToken)
	}
	if cfg.Catalog.RequestsPerSecond != 5 {
		t.Errorf("RequestsPerSecond = %v, want 5", cfg.Catalog.RequestsPerSecond)
	}
	if cfg.Database.Driver != "pgx" {
		t.Errorf("Driver = %q, want pgx", cfg.Database.Driver)
	}
	if len(cfg.Scheduler.Entries) != 1 || cfg.Scheduler.Entries[0].Args["end_page"] != 3 {
		t.Errorf("Entries = %+v", cfg.Scheduler.Entries)
	}
	// untouched sections keep their defaults
	if cfg.Catalog.MaxCast != 15 {
		t.Errorf("MaxCast = %d, want default 15", cfg.Catalog.MaxCast)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid defaults", mutate: func(c *Config) {}},
		{
			name:    "worker without token",
			mutate:  func(c *Config) { c.Catalog.APIToken = "" },
			wantErr: "api_token is required",
		},
		{
			name:   "api only without token",
			mutate: func(c *Config) { c.Catalog.APIToken = ""; c.Server.Roles = []string{RoleAPI}; c.Queue.Backend = "nats" },
		},
		{
			name:    "memory backend without worker",
			mutate:  func(c *Config) { c.Server.Roles = []string{RoleAPI} },
			wantErr: "needs the worker role",
		},
		{
			name:    "unknown role",
			mutate:  func(c *Config) { c.Server.Roles = []string{"janitor"} },
			wantErr: "must be one of",
		},
		{
			name:    "pgx without dsn",
			mutate:  func(c *Config) { c.Database.Driver = "pgx" },
			wantErr: "dsn is required",
		},
		{
			name:    "bad language",
			mutate:  func(c *Config) { c.Catalog.Language = "Russian" },
			wantErr: "language must be a language code",
		},
		{
			name:    "bad timezone",
			mutate:  func(c *Config) { c.Scheduler.Timezone = "Mars/Olympus" },
			wantErr: "scheduler.timezone",
		},
		{
			name: "duplicate schedule names",
			mutate: func(c *Config) {
				c.Scheduler.Entries = append(c.Scheduler.Entries, c.Scheduler.Entries[0])
			},
			wantErr: "duplicate name",
		},
		{
			name: "unknown task in schedule",
			mutate: func(c *Config) {
				c.Scheduler.Entries[0].Task = "catalog.delete_everything"
			},
			wantErr: "task must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Catalog.APIToken = "token"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := map[string]string{
		"TMDB_API_TOKEN": "catalog.api_token",
		"DATABASE_URL":   "database.dsn",
		"NATS_URL":       "queue.nats_url",
		"HOME":           "",
		"PATH":           "",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}
