// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

// Package config loads Cinematch configuration from defaults, an optional
// YAML file and environment variables, in that order of precedence (later
// layers win), and validates the result.
package config

import (
	"slices"
	"time"
)

// Process roles. A single binary can run any combination.
const (
	RoleAPI       = "api"
	RoleWorker    = "worker"
	RoleScheduler = "scheduler"
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Catalog   CatalogConfig   `koanf:"catalog"`
	Database  DatabaseConfig  `koanf:"database"`
	Queue     QueueConfig     `koanf:"queue"`
	Crawl     CrawlConfig     `koanf:"crawl"`
	Refresh   RefreshConfig   `koanf:"refresh"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	API       APIConfig       `koanf:"api"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig selects the roles this process runs and how the HTTP
// surface listens.
type ServerConfig struct {
	ListenAddr      string        `koanf:"listen_addr" validate:"required,hostname_port"`
	Roles           []string      `koanf:"roles" validate:"min=1,dive,oneof=api worker scheduler"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// HasRole reports whether role is enabled for this process.
func (s ServerConfig) HasRole(role string) bool {
	return slices.Contains(s.Roles, role)
}

// CatalogConfig holds TMDB API settings.
type CatalogConfig struct {
	BaseURL  string `koanf:"base_url" validate:"required,url"`
	APIToken string `koanf:"api_token"` // v4 read access token, sent as Bearer

	// Language is sent as the language query parameter on every request.
	Language string        `koanf:"language" validate:"locale"`
	Timeout  time.Duration `koanf:"timeout" validate:"gt=0"`

	// RequestsPerSecond and Burst feed the client-side token bucket.
	RequestsPerSecond float64 `koanf:"requests_per_second" validate:"gt=0"`
	Burst             int     `koanf:"burst" validate:"min=1"`

	// MaxRetries bounds retries on HTTP 429.
	MaxRetries     int           `koanf:"max_retries" validate:"min=0,max=10"`
	RetryBaseDelay time.Duration `koanf:"retry_base_delay" validate:"gte=0"`

	// MaxCast is how many leading cast entries an import considers.
	MaxCast int `koanf:"max_cast" validate:"min=1"`

	// PersonCacheSize of 0 disables the person payload cache.
	PersonCacheSize int           `koanf:"person_cache_size" validate:"min=0"`
	PersonCacheTTL  time.Duration `koanf:"person_cache_ttl" validate:"gte=0"`

	BreakerMinRequests   uint32        `koanf:"breaker_min_requests" validate:"min=1"`
	BreakerFailureRatio  float64       `koanf:"breaker_failure_ratio" validate:"gt=0,lte=1"`
	BreakerOpenTimeout   time.Duration `koanf:"breaker_open_timeout" validate:"gt=0"`
	BreakerCountInterval time.Duration `koanf:"breaker_count_interval" validate:"gte=0"`
}

// DatabaseConfig selects the relational store.
type DatabaseConfig struct {
	// Driver is duckdb (embedded, default) or pgx (PostgreSQL).
	Driver string `koanf:"driver" validate:"oneof=duckdb pgx"`

	// Path is the DuckDB file; empty or ":memory:" keeps the store in memory.
	Path string `koanf:"path"`

	// DSN is the PostgreSQL connection string.
	DSN string `koanf:"dsn" validate:"required_if=Driver pgx"`

	MaxOpenConns    int           `koanf:"max_open_conns" validate:"min=0"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"gte=0"`
}

// QueueConfig configures the task transport and the task status store.
type QueueConfig struct {
	// Backend is memory (in-process gochannel) or nats (JetStream).
	Backend      string `koanf:"backend" validate:"oneof=memory nats"`
	TasksTopic   string `koanf:"tasks_topic" validate:"required"`
	ResultsTopic string `koanf:"results_topic" validate:"required"`

	// Workers is the number of concurrent task slots per worker process.
	Workers int `koanf:"workers" validate:"min=1,max=64"`

	NATSURL        string        `koanf:"nats_url"`
	EmbeddedServer bool          `koanf:"embedded_server"`
	StoreDir       string        `koanf:"store_dir"`
	QueueGroup     string        `koanf:"queue_group" validate:"required"`
	DurablePrefix  string        `koanf:"durable_prefix" validate:"required"`
	AckWait        time.Duration `koanf:"ack_wait" validate:"gt=0"`
	MaxMemory      int64         `koanf:"max_memory" validate:"min=0"`
	MaxStore       int64         `koanf:"max_store" validate:"min=0"`

	// StreamMaxAge bounds how long the task and result streams keep a
	// message. The recorder and the workers read the same stream, so
	// retention is by age rather than by work queue.
	StreamMaxAge time.Duration `koanf:"stream_max_age" validate:"gt=0"`

	// StatusPath is the Badger directory for task status; empty keeps it in memory.
	StatusPath string        `koanf:"status_path"`
	StatusTTL  time.Duration `koanf:"status_ttl" validate:"gt=0"`
}

// CrawlConfig tunes the bulk crawler.
type CrawlConfig struct {
	// PageDelay is the pause between two popular-list pages.
	PageDelay time.Duration `koanf:"page_delay" validate:"gte=0"`
}

// RefreshConfig tunes the staleness refresher.
type RefreshConfig struct {
	BatchSize int `koanf:"batch_size" validate:"min=0"`
}

// SchedulerConfig holds the recurring schedule table.
type SchedulerConfig struct {
	CheckInterval time.Duration   `koanf:"check_interval" validate:"gt=0"`
	Timezone      string          `koanf:"timezone" validate:"required"`
	Entries       []ScheduleEntry `koanf:"entries" validate:"dive"`
}

// ScheduleEntry submits Task with Args whenever Cron matches.
type ScheduleEntry struct {
	Name string           `koanf:"name" validate:"required"`
	Cron string           `koanf:"cron" validate:"required"`
	Task string           `koanf:"task" validate:"oneof=catalog.import_movie catalog.crawl_popular catalog.refresh_oldest catalog.refresh_movie_stats"`
	Args map[string]int64 `koanf:"args"`
}

// APIConfig configures the task trigger HTTP surface.
type APIConfig struct {
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"min=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gte=0"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}
