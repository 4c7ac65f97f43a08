// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/vinsight/config.yaml",
	"/etc/vinsight/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//
//  1. Defaults: built-in values from defaultConfig()
//  2. Config file: optional YAML file, if one exists
//  3. Environment variables: highest priority
//
// Environment variable names map to koanf paths via envTransformFunc, e.g.
// MONGO_URI -> eventstore.uri and DETECTION_MIN_SEARCHES ->
// detection.min_searches. Unmapped variables are ignored so stray
// environment noise cannot leak into the configuration.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: optional config file
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Comma-separated env values become slices for known slice fields.
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

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths lists config paths parsed as comma-separated slices
// when they arrive as strings from the environment.
var sliceConfigPaths = []string{
	"api.cors_origins",
	"scheduler.stores",
}

// processSliceFields converts comma-separated strings into slices for the
// known slice fields. YAML-sourced values are already slices and are left
// alone.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unmapped keys return "" and are skipped.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server
		"http_host":    "server.host",
		"http_port":    "server.port",
		"http_timeout": "server.timeout",
		"environment":  "server.environment",

		// DuckDB analytics store
		"duckdb_path":       "database.path",
		"duckdb_max_memory": "database.max_memory",
		"duckdb_threads":    "database.threads",

		// MongoDB event store
		"mongo_uri":                "eventstore.uri",
		"mongo_database":           "eventstore.database",
		"mongo_timeout":            "eventstore.timeout",
		"eventstore_qps":           "eventstore.queries_per_second",
		"eventstore_burst":         "eventstore.burst",
		"eventstore_breaker_fails": "eventstore.breaker_failure_threshold",
		"eventstore_breaker_reset": "eventstore.breaker_timeout",
		"catalog_snapshot_path":    "eventstore.snapshot_path",
		"catalog_snapshot_ttl":     "eventstore.snapshot_ttl",

		// NATS messaging
		"nats_enabled":        "messaging.enabled",
		"nats_url":            "messaging.url",
		"nats_embedded":       "messaging.embedded_server",
		"nats_store_dir":      "messaging.store_dir",
		"nats_max_memory":     "messaging.max_memory",
		"nats_max_store":      "messaging.max_store",
		"nats_stream_name":    "messaging.stream_name",
		"nats_retention_days": "messaging.stream_retention_days",

		// Detection thresholds
		"detection_min_searches":        "detection.min_searches",
		"detection_spike_delta_pct":     "detection.spike_delta_pct",
		"detection_no_results_avg_max":  "detection.no_results_avg_max",
		"detection_min_ctr":             "detection.min_ctr",
		"detection_max_conversion_rate": "detection.max_conversion_rate",

		// Decision policy
		"decision_max_ctas_per_week": "decision.max_ctas_per_week",
		"decision_cooldown_days":     "decision.cooldown_days",
		"decision_min_searches":      "decision.min_searches",

		// Trends miner
		"trends_lookback_days":          "trends.lookback_days",
		"trends_min_volume":             "trends.min_volume",
		"trends_recent_weeks":           "trends.recent_weeks",
		"trends_velocity_threshold_pct": "trends.velocity_threshold_pct",
		"trends_emerging_max_weeks":     "trends.emerging_max_weeks",
		"trends_emerging_min_volume":    "trends.emerging_min_volume",
		"trends_max_per_type":           "trends.max_per_type",

		// Scheduler
		"scheduler_enabled":           "scheduler.enabled",
		"scheduler_check_interval":    "scheduler.check_interval",
		"scheduler_run_on_start":      "scheduler.run_on_start",
		"scheduler_stores":            "scheduler.stores",
		"scheduler_stores_per_minute": "scheduler.stores_per_minute",

		// API
		"api_default_page_size": "api.default_page_size",
		"api_max_page_size":     "api.max_page_size",
		"cors_origins":          "api.cors_origins",
		"rate_limit_requests":   "api.rate_limit_reqs",
		"rate_limit_window":     "api.rate_limit_window",
		"disable_rate_limit":    "api.rate_limit_disabled",
		"run_rate_limit_reqs":   "api.run_rate_limit_reqs",
		"run_rate_limit_window": "api.run_rate_limit_window",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}
