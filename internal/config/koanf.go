// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order; the first existing file wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/cinematch/config.yaml",
	"/etc/cinematch/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:      ":8080",
			Roles:           []string{RoleAPI, RoleWorker, RoleScheduler},
			ShutdownTimeout: 30 * time.Second,
		},
		Catalog: CatalogConfig{
			BaseURL:              "https://api.themoviedb.org/3",
			Language:             "ru-RU",
			Timeout:              10 * time.Second,
			RequestsPerSecond:    40,
			Burst:                20,
			MaxRetries:           3,
			RetryBaseDelay:       time.Second,
			MaxCast:              15,
			PersonCacheSize:      5000,
			PersonCacheTTL:       6 * time.Hour,
			BreakerMinRequests:   10,
			BreakerFailureRatio:  0.6,
			BreakerOpenTimeout:   2 * time.Minute,
			BreakerCountInterval: time.Minute,
		},
		Database: DatabaseConfig{
			Driver:          "duckdb",
			Path:            "/data/cinematch.duckdb",
			MaxOpenConns:    8,
			MaxIdleConns:    4,
			ConnMaxLifetime: time.Hour,
		},
		Queue: QueueConfig{
			Backend:       "memory",
			TasksTopic:    "cinematch-tasks",
			ResultsTopic:  "cinematch-results",
			Workers:       2,
			NATSURL:       "nats://127.0.0.1:4222",
			StoreDir:      "/data/nats/jetstream",
			QueueGroup:    "cinematch-workers",
			DurablePrefix: "cinematch",
			AckWait:       30 * time.Minute,
			MaxMemory:     256 * 1024 * 1024,
			MaxStore:      2 * 1024 * 1024 * 1024,
			StreamMaxAge:  72 * time.Hour,
			StatusPath:    "/data/task-status",
			StatusTTL:     7 * 24 * time.Hour,
		},
		Crawl: CrawlConfig{
			PageDelay: time.Second,
		},
		Refresh: RefreshConfig{
			BatchSize: 50,
		},
		Scheduler: SchedulerConfig{
			CheckInterval: 30 * time.Second,
			Timezone:      "UTC",
			Entries:       DefaultSchedule(),
		},
		API: APIConfig{
			RateLimitRequests: 60,
			RateLimitWindow:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Default returns the built-in configuration without reading any file or
// environment variable.
func Default() *Config {
	return defaultConfig()
}

// DefaultSchedule is the recurring table used when no file overrides it.
func DefaultSchedule() []ScheduleEntry {
	return []ScheduleEntry{
		{
			Name: "import-daily-top",
			Cron: "6 0 * * *",
			Task: "catalog.crawl_popular",
			Args: map[string]int64{"start_page": 1, "end_page": 5},
		},
		{
			Name: "import-deep-archive",
			Cron: "0 3 * * 0",
			Task: "catalog.crawl_popular",
			Args: map[string]int64{"start_page": 50, "end_page": 100},
		},
		{
			Name: "update-day-deep",
			Cron: "0 */4 * * *",
			Task: "catalog.crawl_popular",
			Args: map[string]int64{"start_page": 6, "end_page": 15},
		},
		{
			Name: "refresh-oldest",
			Cron: "30 2 * * *",
			Task: "catalog.refresh_oldest",
			Args: map[string]int64{"batch_size": 50},
		},
	}
}

// Load builds the configuration from defaults, the config file and the
// environment, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// TMDB_API_TOKEN -> catalog.api_token, see envMappings
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// sliceConfigPaths arrive from the environment as comma separated strings.
var sliceConfigPaths = []string{
	"server.roles",
	"api.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := make([]string, 0, 4)
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"http_listen_addr":   "server.listen_addr",
	"server_roles":       "server.roles",
	"shutdown_timeout":   "server.shutdown_timeout",
	"tmdb_api_token":     "catalog.api_token",
	"tmdb_base_url":      "catalog.base_url",
	"tmdb_language":      "catalog.language",
	"tmdb_timeout":       "catalog.timeout",
	"tmdb_rate_limit":    "catalog.requests_per_second",
	"tmdb_max_cast":      "catalog.max_cast",
	"database_driver":    "database.driver",
	"duckdb_path":        "database.path",
	"database_url":       "database.dsn",
	"database_dsn":       "database.dsn",
	"queue_backend":      "queue.backend",
	"worker_concurrency": "queue.workers",
	"nats_url":           "queue.nats_url",
	"nats_embedded":      "queue.embedded_server",
	"nats_store_dir":     "queue.store_dir",
	"task_status_path":   "queue.status_path",
	"task_status_ttl":    "queue.status_ttl",
	"stream_max_age":     "queue.stream_max_age",
	"crawl_page_delay":   "crawl.page_delay",
	"refresh_batch_size": "refresh.batch_size",
	"scheduler_timezone": "scheduler.timezone",
	"scheduler_interval": "scheduler.check_interval",
	"api_rate_limit":     "api.rate_limit_requests",
	"cors_origins":       "api.cors_origins",
	"log_level":          "logging.level",
	"log_format":         "logging.format",
	"log_caller":         "logging.caller",
}

// envTransformFunc maps known environment variables to koanf paths.
// Unknown variables map to "" and are dropped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
