// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/vinsight/vinsight/internal/logging"
	"github.com/vinsight/vinsight/internal/metrics"
	"github.com/vinsight/vinsight/internal/models"
)

// UpsertQueryAggregates writes one week's query rows in a single
// transaction. Rows are keyed on (store, week, query), so re-running a
// week overwrites its metrics in place.
func (db *DB) UpsertQueryAggregates(ctx context.Context, aggs []models.QueryAggregate) (err error) {
	if len(aggs) == 0 {
		return nil
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("UPSERT", "query_aggregates", time.Since(start), err) }()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackOnError(tx, &err)

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO query_aggregates (
			store_id, week_start, query,
			searches, clicks, purchases,
			ctr, conversion_rate, delta_wow, avg_results_count, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (store_id, week_start, query) DO UPDATE SET
			searches = excluded.searches,
			clicks = excluded.clicks,
			purchases = excluded.purchases,
			ctr = excluded.ctr,
			conversion_rate = excluded.conversion_rate,
			delta_wow = excluded.delta_wow,
			avg_results_count = excluded.avg_results_count,
			updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return fmt.Errorf("failed to prepare query aggregate upsert: %w", err)
	}
	defer closeWithLog(stmt, "prepared statement")

	for i := range aggs {
		a := &aggs[i]
		if _, err = stmt.ExecContext(ctx,
			a.StoreID, a.WeekStart.UTC(), a.Query,
			a.Searches, a.Clicks, a.Purchases,
			a.CTR, a.ConversionRate, a.DeltaWoW, a.AvgResultsCount,
		); err != nil {
			return fmt.Errorf("failed to upsert query aggregate %q: %w", a.Query, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit query aggregates: %w", err)
	}

	logging.Debug().
		Str("store_id", aggs[0].StoreID).
		Time("week_start", aggs[0].WeekStart).
		Int("rows", len(aggs)).
		Msg("Query aggregates upserted")

	return nil
}

// UpsertTopicAggregates writes one week's topic rollups in a single
// transaction.
func (db *DB) UpsertTopicAggregates(ctx context.Context, aggs []models.TopicAggregate) (err error) {
	if len(aggs) == 0 {
		return nil
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("UPSERT", "topic_aggregates", time.Since(start), err) }()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackOnError(tx, &err)

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO topic_aggregates (
			store_id, week_start, topic, searches, delta_wow, updated_at
		) VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (store_id, week_start, topic) DO UPDATE SET
			searches = excluded.searches,
			delta_wow = excluded.delta_wow,
			updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return fmt.Errorf("failed to prepare topic aggregate upsert: %w", err)
	}
	defer closeWithLog(stmt, "prepared statement")

	for i := range aggs {
		a := &aggs[i]
		if _, err = stmt.ExecContext(ctx,
			a.StoreID, a.WeekStart.UTC(), a.Topic, a.Searches, a.DeltaWoW,
		); err != nil {
			return fmt.Errorf("failed to upsert topic aggregate %q: %w", a.Topic, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit topic aggregates: %w", err)
	}

	return nil
}

// UpsertProductAggregates writes one week's product rows in a single
// transaction.
func (db *DB) UpsertProductAggregates(ctx context.Context, aggs []models.ProductAggregate) (err error) {
	if len(aggs) == 0 {
		return nil
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("UPSERT", "product_aggregates", time.Since(start), err) }()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackOnError(tx, &err)

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO product_aggregates (
			store_id, week_start, product_id,
			views, purchases, revenue_cents, delta_wow, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (store_id, week_start, product_id) DO UPDATE SET
			views = excluded.views,
			purchases = excluded.purchases,
			revenue_cents = excluded.revenue_cents,
			delta_wow = excluded.delta_wow,
			updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return fmt.Errorf("failed to prepare product aggregate upsert: %w", err)
	}
	defer closeWithLog(stmt, "prepared statement")

	for i := range aggs {
		a := &aggs[i]
		if _, err = stmt.ExecContext(ctx,
			a.StoreID, a.WeekStart.UTC(), a.ProductID,
			a.Views, a.Purchases, a.RevenueCents, a.DeltaWoW,
		); err != nil {
			return fmt.Errorf("failed to upsert product aggregate %q: %w", a.ProductID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit product aggregates: %w", err)
	}

	return nil
}

// GetQueryAggregates returns every query row for one store week, highest
// search volume first.
func (db *DB) GetQueryAggregates(ctx context.Context, storeID string, weekStart time.Time) ([]models.QueryAggregate, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `
		SELECT store_id, week_start, query,
			searches, clicks, purchases,
			ctr, conversion_rate, delta_wow, avg_results_count
		FROM query_aggregates
		WHERE store_id = ? AND week_start = ?
		ORDER BY searches DESC, query ASC`,
		storeID, weekStart.UTC())
	metrics.RecordDBQuery("SELECT", "query_aggregates", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query aggregates: %w", err)
	}
	defer closeWithLog(rows, "aggregate rows")

	var aggs []models.QueryAggregate
	for rows.Next() {
		var a models.QueryAggregate
		if err := rows.Scan(
			&a.StoreID, &a.WeekStart, &a.Query,
			&a.Searches, &a.Clicks, &a.Purchases,
			&a.CTR, &a.ConversionRate, &a.DeltaWoW, &a.AvgResultsCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan query aggregate: %w", err)
		}
		a.WeekStart = a.WeekStart.UTC()
		aggs = append(aggs, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("aggregate rows iteration failed: %w", err)
	}

	return aggs, nil
}

// TopQueryAggregates returns the top-N query rows for one store week by
// search volume.
func (db *DB) TopQueryAggregates(ctx context.Context, storeID string, weekStart time.Time, limit int) ([]models.QueryAggregate, error) {
	aggs, err := db.GetQueryAggregates(ctx, storeID, weekStart)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(aggs) > limit {
		aggs = aggs[:limit]
	}
	return aggs, nil
}

// GetTopicAggregates returns every topic row for one store week.
func (db *DB) GetTopicAggregates(ctx context.Context, storeID string, weekStart time.Time) ([]models.TopicAggregate, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `
		SELECT store_id, week_start, topic, searches, delta_wow
		FROM topic_aggregates
		WHERE store_id = ? AND week_start = ?
		ORDER BY searches DESC, topic ASC`,
		storeID, weekStart.UTC())
	metrics.RecordDBQuery("SELECT", "topic_aggregates", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query topic aggregates: %w", err)
	}
	defer closeWithLog(rows, "topic rows")

	var aggs []models.TopicAggregate
	for rows.Next() {
		var a models.TopicAggregate
		if err := rows.Scan(&a.StoreID, &a.WeekStart, &a.Topic, &a.Searches, &a.DeltaWoW); err != nil {
			return nil, fmt.Errorf("failed to scan topic aggregate: %w", err)
		}
		a.WeekStart = a.WeekStart.UTC()
		aggs = append(aggs, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("topic rows iteration failed: %w", err)
	}

	return aggs, nil
}

// GetProductAggregates returns every product row for one store week.
func (db *DB) GetProductAggregates(ctx context.Context, storeID string, weekStart time.Time) ([]models.ProductAggregate, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `
		SELECT store_id, week_start, product_id,
			views, purchases, revenue_cents, delta_wow
		FROM product_aggregates
		WHERE store_id = ? AND week_start = ?
		ORDER BY views DESC, product_id ASC`,
		storeID, weekStart.UTC())
	metrics.RecordDBQuery("SELECT", "product_aggregates", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query product aggregates: %w", err)
	}
	defer closeWithLog(rows, "product rows")

	var aggs []models.ProductAggregate
	for rows.Next() {
		var a models.ProductAggregate
		if err := rows.Scan(
			&a.StoreID, &a.WeekStart, &a.ProductID,
			&a.Views, &a.Purchases, &a.RevenueCents, &a.DeltaWoW,
		); err != nil {
			return nil, fmt.Errorf("failed to scan product aggregate: %w", err)
		}
		a.WeekStart = a.WeekStart.UTC()
		aggs = append(aggs, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("product rows iteration failed: %w", err)
	}

	return aggs, nil
}
