// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

// Package config holds all Vinsight configuration, loaded in three layers:
// built-in defaults, an optional YAML file, and environment variables, with
// later layers overriding earlier ones.
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal().Err(err).Msg("config load failed")
//	}
//	db, err := database.New(&cfg.Database)
//
// Config is immutable after Load() and safe for concurrent reads.
package config

import "time"

// Config is the root configuration for the Vinsight server.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	EventStore EventStoreConfig `koanf:"eventstore"`
	Messaging  MessagingConfig  `koanf:"messaging"` // Optional: insight notifications over NATS JetStream
	Detection  DetectionConfig  `koanf:"detection"`
	Decision   DecisionConfig   `koanf:"decision"`
	Trends     TrendsConfig     `koanf:"trends"`
	Scheduler  SchedulerConfig  `koanf:"scheduler"`
	API        APIConfig        `koanf:"api"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // development or production
}

// DatabaseConfig configures the embedded DuckDB analytics store that holds
// aggregates, signals, insights and cooldowns.
type DatabaseConfig struct {
	// Path is the DuckDB file location. Required.
	Path string `koanf:"path"`

	// MaxMemory caps DuckDB memory usage, e.g. "1GB".
	MaxMemory string `koanf:"max_memory"`

	// Threads limits DuckDB worker threads. 0 uses runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// EventStoreConfig configures the MongoDB behavioral event store the
// pipeline reads raw searches, clicks and purchases from, plus the local
// catalog snapshot cache used when the catalog read fails.
type EventStoreConfig struct {
	URI      string        `koanf:"uri"`
	Database string        `koanf:"database"`
	Timeout  time.Duration `koanf:"timeout"`

	// QueriesPerSecond paces reads against the shared production store;
	// Burst allows short bursts above the sustained rate.
	QueriesPerSecond float64 `koanf:"queries_per_second"`
	Burst            int     `koanf:"burst"`

	// BreakerFailureThreshold consecutive failures open the circuit;
	// BreakerTimeout is how long it stays open before a probe.
	BreakerFailureThreshold uint32        `koanf:"breaker_failure_threshold"`
	BreakerTimeout          time.Duration `koanf:"breaker_timeout"`

	// SnapshotPath is the Badger directory for catalog snapshots.
	// Empty disables the snapshot cache. SnapshotTTL bounds staleness.
	SnapshotPath string        `koanf:"snapshot_path"`
	SnapshotTTL  time.Duration `koanf:"snapshot_ttl"`
}

// MessagingConfig configures insight notifications over NATS JetStream.
// Disabled by default; when disabled the pipeline only feeds the WebSocket
// hub and the API.
type MessagingConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`

	// EmbeddedServer runs an in-process NATS server instead of dialing an
	// external one.
	EmbeddedServer bool   `koanf:"embedded_server"`
	StoreDir       string `koanf:"store_dir"`
	MaxMemory      int64  `koanf:"max_memory"`
	MaxStore       int64  `koanf:"max_store"`

	StreamName          string `koanf:"stream_name"`
	StreamRetentionDays int    `koanf:"stream_retention_days"`
}

// DetectionConfig holds the signal rule thresholds. All are fail-fast
// validated at startup; a negative threshold aborts boot.
type DetectionConfig struct {
	// MinSearches is the weekly volume floor below which no rule fires.
	MinSearches int64 `koanf:"min_searches"`

	// SpikeDeltaPct is the week-over-week growth (percent) that counts as
	// a demand spike.
	SpikeDeltaPct float64 `koanf:"spike_delta_pct"`

	// NoResultsAvgMax is the average results count at or below which a
	// query counts as returning nothing.
	NoResultsAvgMax float64 `koanf:"no_results_avg_max"`

	// MinCTR and MaxConversionRate bound the high-interest-low-conversion
	// rule: clicks healthy, purchases missing.
	MinCTR            float64 `koanf:"min_ctr"`
	MaxConversionRate float64 `koanf:"max_conversion_rate"`
}

// DecisionConfig holds the CTA selection policy.
type DecisionConfig struct {
	// MaxCTAsPerWeek caps how many insights a store receives per week.
	// Merchants act on a handful, not a feed.
	MaxCTAsPerWeek int `koanf:"max_ctas_per_week"`

	// CooldownDays suppresses repeat insights for the same entity.
	CooldownDays int `koanf:"cooldown_days"`

	// MinSearches re-checks the volume floor at selection time.
	MinSearches int64 `koanf:"min_searches"`
}

// TrendsConfig holds the long-range trends miner parameters.
type TrendsConfig struct {
	// LookbackDays bounds how far back raw search history is read.
	LookbackDays int `koanf:"lookback_days"`

	// MinVolume is the total-volume floor for a query to participate.
	MinVolume int `koanf:"min_volume"`

	// RecentWeeks sizes the velocity comparison windows.
	RecentWeeks int `koanf:"recent_weeks"`

	// VelocityThresholdPct classifies rising/declining beyond +/- this.
	VelocityThresholdPct float64 `koanf:"velocity_threshold_pct"`

	// EmergingMaxWeeks and EmergingMinVolume define "new and already
	// non-trivial" for the emerging-query heuristic.
	EmergingMaxWeeks  int `koanf:"emerging_max_weeks"`
	EmergingMinVolume int `koanf:"emerging_min_volume"`

	// MaxPerType caps insights emitted per heuristic.
	MaxPerType int `koanf:"max_per_type"`
}

// SchedulerConfig configures the weekly pipeline scheduler.
type SchedulerConfig struct {
	Enabled bool `koanf:"enabled"`

	// CheckInterval is how often the scheduler looks for a week boundary
	// that has not been processed yet.
	CheckInterval time.Duration `koanf:"check_interval"`

	// RunOnStart processes the most recently completed week immediately
	// at boot instead of waiting for the first tick.
	RunOnStart bool `koanf:"run_on_start"`

	// Stores lists store IDs to process in addition to those already
	// registered in the analytics store.
	Stores []string `koanf:"stores"`

	// StoresPerMinute paces runs so a large fleet does not hammer the
	// event store all at once.
	StoresPerMinute int `koanf:"stores_per_minute"`
}

// APIConfig configures the HTTP API behavior.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`

	CORSOrigins []string `koanf:"cors_origins"`

	// General per-IP rate limit across API endpoints.
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	// Tighter limit for the run-trigger endpoints, which start real work.
	RunRateLimitReqs   int           `koanf:"run_rate_limit_reqs"`
	RunRateLimitWindow time.Duration `koanf:"run_rate_limit_window"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with every default applied. Defaults are
// loaded first, then overridden by the config file and environment.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8420,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Database: DatabaseConfig{
			Path:      "/data/vinsight.duckdb",
			MaxMemory: "1GB",
			Threads:   0, // 0 = use runtime.NumCPU()
		},
		EventStore: EventStoreConfig{
			URI:                     "mongodb://127.0.0.1:27017",
			Database:                "wine",
			Timeout:                 20 * time.Second,
			QueriesPerSecond:        10,
			Burst:                   5,
			BreakerFailureThreshold: 5,
			BreakerTimeout:          30 * time.Second,
			SnapshotPath:            "/data/catalog-snapshots",
			SnapshotTTL:             7 * 24 * time.Hour,
		},
		Messaging: MessagingConfig{
			Enabled:             false, // Opt-in: runs fine without a broker
			URL:                 "nats://127.0.0.1:4222",
			EmbeddedServer:      true,
			StoreDir:            "/data/nats/jetstream",
			MaxMemory:           256 << 20, // 256MB
			MaxStore:            2 << 30,   // 2GB
			StreamName:          "VINSIGHT_INSIGHTS",
			StreamRetentionDays: 30,
		},
		Detection: DetectionConfig{
			MinSearches:       25,
			SpikeDeltaPct:     30,
			NoResultsAvgMax:   0,
			MinCTR:            0.25,
			MaxConversionRate: 0.01,
		},
		Decision: DecisionConfig{
			MaxCTAsPerWeek: 3,
			CooldownDays:   10,
			MinSearches:    25,
		},
		Trends: TrendsConfig{
			LookbackDays:         180,
			MinVolume:            5,
			RecentWeeks:          4,
			VelocityThresholdPct: 25,
			EmergingMaxWeeks:     6,
			EmergingMinVolume:    5,
			MaxPerType:           5,
		},
		Scheduler: SchedulerConfig{
			Enabled:         true,
			CheckInterval:   time.Hour,
			RunOnStart:      false,
			Stores:          []string{},
			StoresPerMinute: 6,
		},
		API: APIConfig{
			DefaultPageSize:    20,
			MaxPageSize:        100,
			CORSOrigins:        []string{},
			RateLimitReqs:      100,
			RateLimitWindow:    time.Minute,
			RateLimitDisabled:  false,
			RunRateLimitReqs:   10,
			RunRateLimitWindow: time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads and validates the full configuration.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
