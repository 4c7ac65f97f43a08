// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks that required configuration is present and sane.
// Threshold misconfiguration is a programming or deployment error, so it
// fails the boot instead of producing silently wrong insights.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateEventStore(); err != nil {
		return err
	}
	if err := c.validateMessaging(); err != nil {
		return err
	}
	if err := c.validateDetection(); err != nil {
		return err
	}
	if err := c.validateDecision(); err != nil {
		return err
	}
	if err := c.validateTrends(); err != nil {
		return err
	}
	if err := c.validateScheduler(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.Server.Timeout)
	}
	switch c.Server.Environment {
	case "development", "production":
	default:
		return fmt.Errorf("ENVIRONMENT must be development or production, got %q", c.Server.Environment)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must not be negative, got %d", c.Database.Threads)
	}
	return nil
}

func (c *Config) validateEventStore() error {
	if c.EventStore.URI == "" {
		return fmt.Errorf("MONGO_URI is required")
	}
	if !strings.HasPrefix(c.EventStore.URI, "mongodb://") && !strings.HasPrefix(c.EventStore.URI, "mongodb+srv://") {
		return fmt.Errorf("MONGO_URI must start with mongodb:// or mongodb+srv://, got %q", c.EventStore.URI)
	}
	if c.EventStore.Database == "" {
		return fmt.Errorf("MONGO_DATABASE is required")
	}
	if c.EventStore.Timeout <= 0 {
		return fmt.Errorf("MONGO_TIMEOUT must be positive, got %s", c.EventStore.Timeout)
	}
	if c.EventStore.QueriesPerSecond <= 0 {
		return fmt.Errorf("EVENTSTORE_QPS must be positive, got %v", c.EventStore.QueriesPerSecond)
	}
	if c.EventStore.Burst < 1 {
		return fmt.Errorf("EVENTSTORE_BURST must be at least 1, got %d", c.EventStore.Burst)
	}
	if c.EventStore.BreakerFailureThreshold < 1 {
		return fmt.Errorf("EVENTSTORE_BREAKER_FAILS must be at least 1, got %d", c.EventStore.BreakerFailureThreshold)
	}
	if c.EventStore.BreakerTimeout <= 0 {
		return fmt.Errorf("EVENTSTORE_BREAKER_RESET must be positive, got %s", c.EventStore.BreakerTimeout)
	}
	if c.EventStore.SnapshotPath != "" && c.EventStore.SnapshotTTL <= 0 {
		return fmt.Errorf("CATALOG_SNAPSHOT_TTL must be positive when CATALOG_SNAPSHOT_PATH is set, got %s", c.EventStore.SnapshotTTL)
	}
	return nil
}

func (c *Config) validateMessaging() error {
	if !c.Messaging.Enabled {
		return nil
	}
	if !c.Messaging.EmbeddedServer && c.Messaging.URL == "" {
		return fmt.Errorf("NATS_URL is required when NATS_ENABLED=true and NATS_EMBEDDED=false")
	}
	if c.Messaging.EmbeddedServer && c.Messaging.StoreDir == "" {
		return fmt.Errorf("NATS_STORE_DIR is required when NATS_EMBEDDED=true")
	}
	if c.Messaging.StreamName == "" {
		return fmt.Errorf("NATS_STREAM_NAME is required when NATS_ENABLED=true")
	}
	if c.Messaging.StreamRetentionDays < 1 {
		return fmt.Errorf("NATS_RETENTION_DAYS must be at least 1, got %d", c.Messaging.StreamRetentionDays)
	}
	return nil
}

func (c *Config) validateDetection() error {
	if c.Detection.MinSearches < 0 {
		return fmt.Errorf("DETECTION_MIN_SEARCHES must not be negative, got %d", c.Detection.MinSearches)
	}
	if c.Detection.SpikeDeltaPct < 0 {
		return fmt.Errorf("DETECTION_SPIKE_DELTA_PCT must not be negative, got %v", c.Detection.SpikeDeltaPct)
	}
	if c.Detection.NoResultsAvgMax < 0 {
		return fmt.Errorf("DETECTION_NO_RESULTS_AVG_MAX must not be negative, got %v", c.Detection.NoResultsAvgMax)
	}
	if c.Detection.MinCTR < 0 || c.Detection.MinCTR > 1 {
		return fmt.Errorf("DETECTION_MIN_CTR must be within [0,1], got %v", c.Detection.MinCTR)
	}
	if c.Detection.MaxConversionRate < 0 || c.Detection.MaxConversionRate > 1 {
		return fmt.Errorf("DETECTION_MAX_CONVERSION_RATE must be within [0,1], got %v", c.Detection.MaxConversionRate)
	}
	return nil
}

func (c *Config) validateDecision() error {
	if c.Decision.MaxCTAsPerWeek < 1 {
		return fmt.Errorf("DECISION_MAX_CTAS_PER_WEEK must be at least 1, got %d", c.Decision.MaxCTAsPerWeek)
	}
	if c.Decision.CooldownDays < 0 {
		return fmt.Errorf("DECISION_COOLDOWN_DAYS must not be negative, got %d", c.Decision.CooldownDays)
	}
	if c.Decision.MinSearches < 0 {
		return fmt.Errorf("DECISION_MIN_SEARCHES must not be negative, got %d", c.Decision.MinSearches)
	}
	return nil
}

func (c *Config) validateTrends() error {
	if c.Trends.LookbackDays < 7 {
		return fmt.Errorf("TRENDS_LOOKBACK_DAYS must be at least 7, got %d", c.Trends.LookbackDays)
	}
	if c.Trends.MinVolume < 1 {
		return fmt.Errorf("TRENDS_MIN_VOLUME must be at least 1, got %d", c.Trends.MinVolume)
	}
	if c.Trends.RecentWeeks < 1 {
		return fmt.Errorf("TRENDS_RECENT_WEEKS must be at least 1, got %d", c.Trends.RecentWeeks)
	}
	if c.Trends.VelocityThresholdPct < 0 {
		return fmt.Errorf("TRENDS_VELOCITY_THRESHOLD_PCT must not be negative, got %v", c.Trends.VelocityThresholdPct)
	}
	if c.Trends.EmergingMaxWeeks < 1 {
		return fmt.Errorf("TRENDS_EMERGING_MAX_WEEKS must be at least 1, got %d", c.Trends.EmergingMaxWeeks)
	}
	if c.Trends.EmergingMinVolume < 1 {
		return fmt.Errorf("TRENDS_EMERGING_MIN_VOLUME must be at least 1, got %d", c.Trends.EmergingMinVolume)
	}
	if c.Trends.MaxPerType < 1 {
		return fmt.Errorf("TRENDS_MAX_PER_TYPE must be at least 1, got %d", c.Trends.MaxPerType)
	}
	return nil
}

func (c *Config) validateScheduler() error {
	if !c.Scheduler.Enabled {
		return nil
	}
	if c.Scheduler.CheckInterval < time.Second {
		return fmt.Errorf("SCHEDULER_CHECK_INTERVAL must be at least 1s, got %s", c.Scheduler.CheckInterval)
	}
	if c.Scheduler.StoresPerMinute < 1 {
		return fmt.Errorf("SCHEDULER_STORES_PER_MINUTE must be at least 1, got %d", c.Scheduler.StoresPerMinute)
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.DefaultPageSize < 1 {
		return fmt.Errorf("API_DEFAULT_PAGE_SIZE must be at least 1, got %d", c.API.DefaultPageSize)
	}
	if c.API.MaxPageSize < c.API.DefaultPageSize {
		return fmt.Errorf("API_MAX_PAGE_SIZE (%d) must not be below API_DEFAULT_PAGE_SIZE (%d)",
			c.API.MaxPageSize, c.API.DefaultPageSize)
	}
	if !c.API.RateLimitDisabled {
		if c.API.RateLimitReqs < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1, got %d", c.API.RateLimitReqs)
		}
		if c.API.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %s", c.API.RateLimitWindow)
		}
	}
	if c.API.RunRateLimitReqs < 1 {
		return fmt.Errorf("RUN_RATE_LIMIT_REQS must be at least 1, got %d", c.API.RunRateLimitReqs)
	}
	if c.API.RunRateLimitWindow <= 0 {
		return fmt.Errorf("RUN_RATE_LIMIT_WINDOW must be positive, got %s", c.API.RunRateLimitWindow)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
