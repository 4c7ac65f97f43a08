// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vinsight/vinsight/internal/metrics"
)

// EnsureStore registers a store identifier if it is not yet known.
// Runs against unknown stores call this first so downstream rows always
// have a parent.
func (db *DB) EnsureStore(ctx context.Context, storeID string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO stores (store_id) VALUES (?) ON CONFLICT (store_id) DO NOTHING`,
		storeID)
	metrics.RecordDBQuery("INSERT", "stores", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to ensure store %s: %w", storeID, err)
	}
	return nil
}

// TouchStoreRun stamps the store's last completed run time.
func (db *DB) TouchStoreRun(ctx context.Context, storeID string, at time.Time) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`UPDATE stores SET last_run_at = ? WHERE store_id = ?`,
		at.UTC(), storeID)
	metrics.RecordDBQuery("UPDATE", "stores", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to touch store %s: %w", storeID, err)
	}
	return nil
}

// ListStoreIDs returns every known store identifier, ordered for stable
// scheduler iteration.
func (db *DB) ListStoreIDs(ctx context.Context) ([]string, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `SELECT store_id FROM stores ORDER BY store_id`)
	metrics.RecordDBQuery("SELECT", "stores", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}
	defer closeWithLog(rows, "store rows")

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan store id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store rows iteration failed: %w", err)
	}

	return ids, nil
}

// LastRunAt returns the store's most recent completed run, or nil when the
// store has never run.
func (db *DB) LastRunAt(ctx context.Context, storeID string) (*time.Time, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var at *time.Time
	err := db.conn.QueryRowContext(ctx,
		`SELECT last_run_at FROM stores WHERE store_id = ?`, storeID).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read last run for %s: %w", storeID, err)
	}
	if at != nil {
		utc := at.UTC()
		at = &utc
	}
	return at, nil
}
