// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// pointConfigPathAway keeps a config.yaml in the working tree from leaking
// into tests that expect pure defaults.
func pointConfigPathAway(t *testing.T) {
	t.Helper()
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
}

func TestDefaultConfigIsValid(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate, got %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	pointConfigPathAway(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8420 {
		t.Errorf("Server.Port = %d, want 8420", cfg.Server.Port)
	}
	if cfg.Database.Path != "/data/vinsight.duckdb" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.EventStore.URI != "mongodb://127.0.0.1:27017" {
		t.Errorf("EventStore.URI = %q", cfg.EventStore.URI)
	}
	if cfg.Detection.MinSearches != 25 {
		t.Errorf("Detection.MinSearches = %d, want 25", cfg.Detection.MinSearches)
	}
	if cfg.Decision.MaxCTAsPerWeek != 3 {
		t.Errorf("Decision.MaxCTAsPerWeek = %d, want 3", cfg.Decision.MaxCTAsPerWeek)
	}
	if cfg.Trends.LookbackDays != 180 {
		t.Errorf("Trends.LookbackDays = %d, want 180", cfg.Trends.LookbackDays)
	}
	if cfg.Messaging.Enabled {
		t.Error("Messaging.Enabled should default to false")
	}
	if !cfg.Scheduler.Enabled {
		t.Error("Scheduler.Enabled should default to true")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	pointConfigPathAway(t)
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("MONGO_URI", "mongodb://mongo.internal:27017")
	t.Setenv("MONGO_TIMEOUT", "45s")
	t.Setenv("DETECTION_MIN_SEARCHES", "50")
	t.Setenv("DECISION_MAX_CTAS_PER_WEEK", "5")
	t.Setenv("TRENDS_VELOCITY_THRESHOLD_PCT", "40")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.EventStore.URI != "mongodb://mongo.internal:27017" {
		t.Errorf("EventStore.URI = %q", cfg.EventStore.URI)
	}
	if cfg.EventStore.Timeout != 45*time.Second {
		t.Errorf("EventStore.Timeout = %s, want 45s", cfg.EventStore.Timeout)
	}
	if cfg.Detection.MinSearches != 50 {
		t.Errorf("Detection.MinSearches = %d, want 50", cfg.Detection.MinSearches)
	}
	if cfg.Decision.MaxCTAsPerWeek != 5 {
		t.Errorf("Decision.MaxCTAsPerWeek = %d, want 5", cfg.Decision.MaxCTAsPerWeek)
	}
	if cfg.Trends.VelocityThresholdPct != 40 {
		t.Errorf("Trends.VelocityThresholdPct = %v, want 40", cfg.Trends.VelocityThresholdPct)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadUnmappedEnvIgnored(t *testing.T) {
	pointConfigPathAway(t)
	t.Setenv("PATH_LIKE_UNRELATED_VAR", "should-not-leak")

	if _, err := Load(); err != nil {
		t.Fatalf("Load() with unrelated env error = %v", err)
	}
}

func TestLoadYAMLFileAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9100
detection:
  min_searches: 40
trends:
  min_volume: 9
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("HTTP_PORT", "9200")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Environment wins over the file, the file wins over defaults.
	if cfg.Server.Port != 9200 {
		t.Errorf("Server.Port = %d, want env override 9200", cfg.Server.Port)
	}
	if cfg.Detection.MinSearches != 40 {
		t.Errorf("Detection.MinSearches = %d, want file value 40", cfg.Detection.MinSearches)
	}
	if cfg.Trends.MinVolume != 9 {
		t.Errorf("Trends.MinVolume = %d, want file value 9", cfg.Trends.MinVolume)
	}
	if cfg.Database.Path != "/data/vinsight.duckdb" {
		t.Errorf("Database.Path = %q, want default", cfg.Database.Path)
	}
}

func TestLoadSliceFieldsFromEnv(t *testing.T) {
	pointConfigPathAway(t)
	t.Setenv("SCHEDULER_STORES", "store-alpha, store-beta ,store-gamma")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	wantStores := []string{"store-alpha", "store-beta", "store-gamma"}
	if len(cfg.Scheduler.Stores) != len(wantStores) {
		t.Fatalf("Scheduler.Stores = %v, want %v", cfg.Scheduler.Stores, wantStores)
	}
	for i, want := range wantStores {
		if cfg.Scheduler.Stores[i] != want {
			t.Errorf("Scheduler.Stores[%d] = %q, want %q", i, cfg.Scheduler.Stores[i], want)
		}
	}

	wantOrigins := []string{"https://a.example", "https://b.example"}
	if len(cfg.API.CORSOrigins) != len(wantOrigins) {
		t.Fatalf("API.CORSOrigins = %v, want %v", cfg.API.CORSOrigins, wantOrigins)
	}
	for i, want := range wantOrigins {
		if cfg.API.CORSOrigins[i] != want {
			t.Errorf("API.CORSOrigins[%d] = %q, want %q", i, cfg.API.CORSOrigins[i], want)
		}
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults pass",
			mutate: func(*Config) {},
		},
		{
			name:    "port zero",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "HTTP_PORT",
		},
		{
			name:    "port above range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "HTTP_PORT",
		},
		{
			name:    "unknown environment",
			mutate:  func(c *Config) { c.Server.Environment = "staging" },
			wantErr: "ENVIRONMENT",
		},
		{
			name:    "missing duckdb path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "DUCKDB_PATH",
		},
		{
			name:    "missing mongo uri",
			mutate:  func(c *Config) { c.EventStore.URI = "" },
			wantErr: "MONGO_URI",
		},
		{
			name:    "mongo uri wrong scheme",
			mutate:  func(c *Config) { c.EventStore.URI = "postgres://nope" },
			wantErr: "MONGO_URI",
		},
		{
			name:    "srv uri accepted",
			mutate:  func(c *Config) { c.EventStore.URI = "mongodb+srv://cluster.example" },
			wantErr: "",
		},
		{
			name:    "zero qps",
			mutate:  func(c *Config) { c.EventStore.QueriesPerSecond = 0 },
			wantErr: "EVENTSTORE_QPS",
		},
		{
			name:    "ctr above one",
			mutate:  func(c *Config) { c.Detection.MinCTR = 1.5 },
			wantErr: "DETECTION_MIN_CTR",
		},
		{
			name:    "negative spike delta",
			mutate:  func(c *Config) { c.Detection.SpikeDeltaPct = -1 },
			wantErr: "DETECTION_SPIKE_DELTA_PCT",
		},
		{
			name:    "zero ctas per week",
			mutate:  func(c *Config) { c.Decision.MaxCTAsPerWeek = 0 },
			wantErr: "DECISION_MAX_CTAS_PER_WEEK",
		},
		{
			name:    "negative cooldown",
			mutate:  func(c *Config) { c.Decision.CooldownDays = -3 },
			wantErr: "DECISION_COOLDOWN_DAYS",
		},
		{
			name:    "lookback below one week",
			mutate:  func(c *Config) { c.Trends.LookbackDays = 3 },
			wantErr: "TRENDS_LOOKBACK_DAYS",
		},
		{
			name:    "zero recent weeks",
			mutate:  func(c *Config) { c.Trends.RecentWeeks = 0 },
			wantErr: "TRENDS_RECENT_WEEKS",
		},
		{
			name:    "zero max per type",
			mutate:  func(c *Config) { c.Trends.MaxPerType = 0 },
			wantErr: "TRENDS_MAX_PER_TYPE",
		},
		{
			name:    "scheduler interval too short",
			mutate:  func(c *Config) { c.Scheduler.CheckInterval = 100 * time.Millisecond },
			wantErr: "SCHEDULER_CHECK_INTERVAL",
		},
		{
			name: "short interval ok when scheduler disabled",
			mutate: func(c *Config) {
				c.Scheduler.Enabled = false
				c.Scheduler.CheckInterval = 100 * time.Millisecond
			},
			wantErr: "",
		},
		{
			name:    "max page below default page",
			mutate:  func(c *Config) { c.API.MaxPageSize = 5 },
			wantErr: "API_MAX_PAGE_SIZE",
		},
		{
			name: "messaging enabled without url or embedded server",
			mutate: func(c *Config) {
				c.Messaging.Enabled = true
				c.Messaging.EmbeddedServer = false
				c.Messaging.URL = ""
			},
			wantErr: "NATS_URL",
		},
		{
			name: "embedded server needs store dir",
			mutate: func(c *Config) {
				c.Messaging.Enabled = true
				c.Messaging.EmbeddedServer = true
				c.Messaging.StoreDir = ""
			},
			wantErr: "NATS_STORE_DIR",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "LOG_FORMAT",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "LOG_LEVEL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := defaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestFindConfigFileIgnoresMissingOverride(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "nope.yaml"))

	if got := findConfigFile(); got != "" {
		// Only the default search paths may match; a missing explicit
		// override must never be returned.
		if filepath.Base(got) == "nope.yaml" {
			t.Errorf("findConfigFile() = %q, want missing override skipped", got)
		}
	}
}
