// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the insight store tables.
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}

	return nil
}

// tableCreationQueries returns the table creation SQL statements.
// All columns live in the initial CREATE TABLE statements; the schema is
// the single source of truth and startup runs no migrations.
func tableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS stores (
			store_id TEXT PRIMARY KEY,
			first_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			last_run_at TIMESTAMP
		);`,

		// Weekly per-query metrics. week_start is always a Monday 00:00 UTC;
		// query is the normalized form, never the raw user input.
		`CREATE TABLE IF NOT EXISTS query_aggregates (
			store_id TEXT NOT NULL,
			week_start TIMESTAMP NOT NULL,
			query TEXT NOT NULL,
			searches BIGINT NOT NULL DEFAULT 0,
			clicks BIGINT NOT NULL DEFAULT 0,
			purchases BIGINT NOT NULL DEFAULT 0,
			ctr DOUBLE NOT NULL DEFAULT 0,
			conversion_rate DOUBLE NOT NULL DEFAULT 0,
			delta_wow DOUBLE NOT NULL DEFAULT 0,
			avg_results_count DOUBLE NOT NULL DEFAULT 0,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (store_id, week_start, query)
		);`,

		`CREATE TABLE IF NOT EXISTS topic_aggregates (
			store_id TEXT NOT NULL,
			week_start TIMESTAMP NOT NULL,
			topic TEXT NOT NULL,
			searches BIGINT NOT NULL DEFAULT 0,
			delta_wow DOUBLE NOT NULL DEFAULT 0,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (store_id, week_start, topic)
		);`,

		`CREATE TABLE IF NOT EXISTS product_aggregates (
			store_id TEXT NOT NULL,
			week_start TIMESTAMP NOT NULL,
			product_id TEXT NOT NULL,
			views BIGINT NOT NULL DEFAULT 0,
			purchases BIGINT NOT NULL DEFAULT 0,
			revenue_cents BIGINT NOT NULL DEFAULT 0,
			delta_wow DOUBLE NOT NULL DEFAULT 0,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (store_id, week_start, product_id)
		);`,

		// evidence holds the JSON metric snapshot the detector saw, as TEXT.
		`CREATE TABLE IF NOT EXISTS signals (
			id UUID PRIMARY KEY,
			store_id TEXT NOT NULL,
			week_start TIMESTAMP NOT NULL,
			signal_type TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			entity_key TEXT NOT NULL,
			confidence DOUBLE NOT NULL,
			evidence TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (store_id, week_start, signal_type, entity_type, entity_key)
		);`,

		// channel discriminates the weekly store CTAs from trends-mode
		// output. CTA types never overlap between channels, so the unique
		// key does not need the channel column.
		`CREATE TABLE IF NOT EXISTS insights (
			id UUID PRIMARY KEY,
			store_id TEXT NOT NULL,
			week_start TIMESTAMP NOT NULL,
			channel TEXT NOT NULL,
			cta_type TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			entity_key TEXT NOT NULL,
			priority INTEGER NOT NULL,
			score DOUBLE NOT NULL,
			confidence DOUBLE NOT NULL,
			evidence TEXT NOT NULL,
			recommended_action TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'ACTIVE',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (store_id, week_start, cta_type, entity_type, entity_key)
		);`,

		`CREATE TABLE IF NOT EXISTS insight_cooldowns (
			store_id TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			entity_key TEXT NOT NULL,
			last_generated TIMESTAMP NOT NULL,
			last_executed_at TIMESTAMP,
			PRIMARY KEY (store_id, entity_type, entity_key)
		);`,
	}
}

// createIndexes creates indexes for the common read paths: listing a
// store's week, filtering insights by status, and trends channel wipes.
func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_query_agg_week ON query_aggregates(week_start);`,
		`CREATE INDEX IF NOT EXISTS idx_topic_agg_week ON topic_aggregates(week_start);`,
		`CREATE INDEX IF NOT EXISTS idx_product_agg_week ON product_aggregates(week_start);`,
		`CREATE INDEX IF NOT EXISTS idx_signals_store_week ON signals(store_id, week_start);`,
		`CREATE INDEX IF NOT EXISTS idx_insights_store_week ON insights(store_id, week_start);`,
		`CREATE INDEX IF NOT EXISTS idx_insights_status ON insights(status);`,
		`CREATE INDEX IF NOT EXISTS idx_insights_channel ON insights(store_id, channel, week_start);`,
	}

	for _, query := range indexes {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute index query: %s: %w", query, err)
		}
	}

	return nil
}
