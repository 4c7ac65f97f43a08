// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/vinsight/vinsight/internal/logging"
	"github.com/vinsight/vinsight/internal/metrics"
	"github.com/vinsight/vinsight/internal/models"
)

// UpsertSignals writes one detection run's signals in a single transaction.
// The natural key is (store, week, type, entity); re-detection refreshes
// confidence and evidence without duplicating rows.
func (db *DB) UpsertSignals(ctx context.Context, signals []models.Signal) (err error) {
	if len(signals) == 0 {
		return nil
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("UPSERT", "signals", time.Since(start), err) }()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackOnError(tx, &err)

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO signals (
			id, store_id, week_start, signal_type,
			entity_type, entity_key, confidence, evidence, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (store_id, week_start, signal_type, entity_type, entity_key) DO UPDATE SET
			confidence = excluded.confidence,
			evidence = excluded.evidence,
			created_at = excluded.created_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare signal upsert: %w", err)
	}
	defer closeWithLog(stmt, "prepared statement")

	for i := range signals {
		s := &signals[i]
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		if _, err = stmt.ExecContext(ctx,
			s.ID, s.StoreID, s.WeekStart.UTC(), string(s.Type),
			string(s.EntityType), s.EntityKey, s.Confidence, string(s.Evidence), s.CreatedAt.UTC(),
		); err != nil {
			return fmt.Errorf("failed to upsert signal %s/%s: %w", s.Type, s.EntityKey, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit signals: %w", err)
	}

	logging.Debug().
		Str("store_id", signals[0].StoreID).
		Time("week_start", signals[0].WeekStart).
		Int("count", len(signals)).
		Msg("Signals upserted")

	return nil
}

// ListSignals returns every signal for one store week, strongest first.
func (db *DB) ListSignals(ctx context.Context, storeID string, weekStart time.Time) ([]models.Signal, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, store_id, week_start, signal_type,
			entity_type, entity_key, confidence, evidence, created_at
		FROM signals
		WHERE store_id = ? AND week_start = ?
		ORDER BY confidence DESC, entity_key ASC`,
		storeID, weekStart.UTC())
	metrics.RecordDBQuery("SELECT", "signals", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals: %w", err)
	}
	defer closeWithLog(rows, "signal rows")

	var signals []models.Signal
	for rows.Next() {
		s, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		signals = append(signals, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("signal rows iteration failed: %w", err)
	}

	return signals, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSignal(row rowScanner) (models.Signal, error) {
	var (
		s          models.Signal
		signalType string
		entityType string
		evidence   string
	)
	if err := row.Scan(
		&s.ID, &s.StoreID, &s.WeekStart, &signalType,
		&entityType, &s.EntityKey, &s.Confidence, &evidence, &s.CreatedAt,
	); err != nil {
		return models.Signal{}, fmt.Errorf("failed to scan signal: %w", err)
	}
	s.Type = models.SignalType(signalType)
	s.EntityType = models.EntityType(entityType)
	s.Evidence = json.RawMessage(evidence)
	s.WeekStart = s.WeekStart.UTC()
	s.CreatedAt = s.CreatedAt.UTC()
	return s, nil
}
