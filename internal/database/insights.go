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
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/vinsight/vinsight/internal/logging"
	"github.com/vinsight/vinsight/internal/metrics"
	"github.com/vinsight/vinsight/internal/models"
)

// ErrInsightNotFound is returned when a feedback target does not exist.
var ErrInsightNotFound = errors.New("insight not found")

// InsightFilter narrows ListInsights. Zero values mean "any".
type InsightFilter struct {
	StoreID   string
	WeekStart *time.Time
	Channel   models.Channel
	Status    models.InsightStatus
	Limit     int
	Offset    int
}

// SaveInsightWithCooldown publishes one insight and arms its entity
// cooldown in the same transaction. If either write fails, neither lands;
// an insight must never exist without its cooldown row.
func (db *DB) SaveInsightWithCooldown(ctx context.Context, insight *models.Insight) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if insight.ID == uuid.Nil {
		insight.ID = uuid.New()
	}

	start := time.Now()
	defer func() { metrics.RecordDBQuery("UPSERT", "insights", time.Since(start), err) }()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackOnError(tx, &err)

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO insights (
			id, store_id, week_start, channel, cta_type,
			entity_type, entity_key, priority, score, confidence,
			evidence, recommended_action, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (store_id, week_start, cta_type, entity_type, entity_key) DO UPDATE SET
			channel = excluded.channel,
			priority = excluded.priority,
			score = excluded.score,
			confidence = excluded.confidence,
			evidence = excluded.evidence,
			recommended_action = excluded.recommended_action,
			updated_at = excluded.updated_at`,
		insight.ID, insight.StoreID, insight.WeekStart.UTC(), string(insight.Channel), string(insight.CTAType),
		string(insight.EntityType), insight.EntityKey, insight.Priority, insight.Score, insight.Confidence,
		string(insight.Evidence), insight.RecommendedAction, string(insight.Status),
		insight.CreatedAt.UTC(), insight.UpdatedAt.UTC(),
	); err != nil {
		return fmt.Errorf("failed to upsert insight %s/%s: %w", insight.CTAType, insight.EntityKey, err)
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO insight_cooldowns (store_id, entity_type, entity_key, last_generated)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (store_id, entity_type, entity_key) DO UPDATE SET
			last_generated = excluded.last_generated`,
		insight.StoreID, string(insight.EntityType), insight.EntityKey, insight.CreatedAt.UTC(),
	); err != nil {
		return fmt.Errorf("failed to arm cooldown for %s: %w", insight.EntityKey, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit insight: %w", err)
	}

	return nil
}

// ListInsights returns insights matching the filter, ordered by week
// descending then priority ascending, so the freshest week's top CTA
// comes first.
func (db *DB) ListInsights(ctx context.Context, filter InsightFilter) ([]models.Insight, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var (
		conds []string
		args  []any
	)
	if filter.StoreID != "" {
		conds = append(conds, "store_id = ?")
		args = append(args, filter.StoreID)
	}
	if filter.WeekStart != nil {
		conds = append(conds, "week_start = ?")
		args = append(args, filter.WeekStart.UTC())
	}
	if filter.Channel != "" {
		conds = append(conds, "channel = ?")
		args = append(args, string(filter.Channel))
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := `
		SELECT id, store_id, week_start, channel, cta_type,
			entity_type, entity_key, priority, score, confidence,
			evidence, recommended_action, status, created_at, updated_at
		FROM insights`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY week_start DESC, priority ASC, entity_key ASC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, args...)
	metrics.RecordDBQuery("SELECT", "insights", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query insights: %w", err)
	}
	defer closeWithLog(rows, "insight rows")

	var insights []models.Insight
	for rows.Next() {
		ins, err := scanInsight(rows)
		if err != nil {
			return nil, err
		}
		insights = append(insights, ins)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("insight rows iteration failed: %w", err)
	}

	return insights, nil
}

// GetInsight returns one insight by id.
func (db *DB) GetInsight(ctx context.Context, id uuid.UUID) (*models.Insight, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `
		SELECT id, store_id, week_start, channel, cta_type,
			entity_type, entity_key, priority, score, confidence,
			evidence, recommended_action, status, created_at, updated_at
		FROM insights WHERE id = ?`, id)

	ins, err := scanInsight(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInsightNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ins, nil
}

// ApplyInsightFeedback moves an insight to EXECUTED or DISMISSED. An
// EXECUTED insight also stamps last_executed_at on its cooldown row, so
// the decision stage can weight entities the merchant actually acted on.
func (db *DB) ApplyInsightFeedback(ctx context.Context, id uuid.UUID, status models.InsightStatus) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("UPDATE", "insights", time.Since(start), err) }()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackOnError(tx, &err)

	var (
		storeID    string
		entityType string
		entityKey  string
	)
	err = tx.QueryRowContext(ctx,
		`SELECT store_id, entity_type, entity_key FROM insights WHERE id = ?`, id).
		Scan(&storeID, &entityType, &entityKey)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrInsightNotFound
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to load insight %s: %w", id, err)
	}

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx,
		`UPDATE insights SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), now, id,
	); err != nil {
		return fmt.Errorf("failed to update insight status: %w", err)
	}

	if status == models.StatusExecuted {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO insight_cooldowns (store_id, entity_type, entity_key, last_generated, last_executed_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (store_id, entity_type, entity_key) DO UPDATE SET
				last_executed_at = excluded.last_executed_at`,
			storeID, entityType, entityKey, now, now,
		); err != nil {
			return fmt.Errorf("failed to stamp execution on cooldown: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit feedback: %w", err)
	}

	logging.Info().
		Str("insight_id", id.String()).
		Str("status", string(status)).
		Str("entity_key", entityKey).
		Msg("Insight feedback applied")

	return nil
}

// ReplaceTrendsInsights wipes and rewrites the trends channel for one
// store week in a single transaction. Trends output is recomputed
// wholesale each run, so partial replacement would leave stale rows.
func (db *DB) ReplaceTrendsInsights(ctx context.Context, storeID string, weekStart time.Time, insights []models.Insight) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("REPLACE", "insights", time.Since(start), err) }()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackOnError(tx, &err)

	if _, err = tx.ExecContext(ctx,
		`DELETE FROM insights WHERE store_id = ? AND week_start = ? AND channel = ?`,
		storeID, weekStart.UTC(), string(models.ChannelTrends),
	); err != nil {
		return fmt.Errorf("failed to clear trends insights: %w", err)
	}

	for i := range insights {
		ins := &insights[i]
		if ins.ID == uuid.Nil {
			ins.ID = uuid.New()
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO insights (
				id, store_id, week_start, channel, cta_type,
				entity_type, entity_key, priority, score, confidence,
				evidence, recommended_action, status, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ins.ID, ins.StoreID, ins.WeekStart.UTC(), string(ins.Channel), string(ins.CTAType),
			string(ins.EntityType), ins.EntityKey, ins.Priority, ins.Score, ins.Confidence,
			string(ins.Evidence), ins.RecommendedAction, string(ins.Status),
			ins.CreatedAt.UTC(), ins.UpdatedAt.UTC(),
		); err != nil {
			return fmt.Errorf("failed to insert trends insight %s/%s: %w", ins.CTAType, ins.EntityKey, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit trends insights: %w", err)
	}

	logging.Debug().
		Str("store_id", storeID).
		Time("week_start", weekStart).
		Int("count", len(insights)).
		Msg("Trends insights replaced")

	return nil
}

// GetCooldowns returns the cooldown ledger for one store keyed by
// entity type and key.
func (db *DB) GetCooldowns(ctx context.Context, storeID string) (map[string]models.InsightCooldown, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `
		SELECT store_id, entity_type, entity_key, last_generated, last_executed_at
		FROM insight_cooldowns WHERE store_id = ?`, storeID)
	metrics.RecordDBQuery("SELECT", "insight_cooldowns", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query cooldowns: %w", err)
	}
	defer closeWithLog(rows, "cooldown rows")

	cooldowns := make(map[string]models.InsightCooldown)
	for rows.Next() {
		var (
			c          models.InsightCooldown
			entityType string
		)
		if err := rows.Scan(&c.StoreID, &entityType, &c.EntityKey, &c.LastGenerated, &c.LastExecutedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cooldown: %w", err)
		}
		c.EntityType = models.EntityType(entityType)
		c.LastGenerated = c.LastGenerated.UTC()
		if c.LastExecutedAt != nil {
			utc := c.LastExecutedAt.UTC()
			c.LastExecutedAt = &utc
		}
		cooldowns[CooldownKey(c.EntityType, c.EntityKey)] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cooldown rows iteration failed: %w", err)
	}

	return cooldowns, nil
}

// CooldownKey builds the ledger map key for one entity.
func CooldownKey(entityType models.EntityType, entityKey string) string {
	return string(entityType) + "\x00" + entityKey
}

func scanInsight(row rowScanner) (models.Insight, error) {
	var (
		ins        models.Insight
		channel    string
		ctaType    string
		entityType string
		evidence   string
		status     string
	)
	if err := row.Scan(
		&ins.ID, &ins.StoreID, &ins.WeekStart, &channel, &ctaType,
		&entityType, &ins.EntityKey, &ins.Priority, &ins.Score, &ins.Confidence,
		&evidence, &ins.RecommendedAction, &status, &ins.CreatedAt, &ins.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Insight{}, err
		}
		return models.Insight{}, fmt.Errorf("failed to scan insight: %w", err)
	}
	ins.Channel = models.Channel(channel)
	ins.CTAType = models.CTAType(ctaType)
	ins.EntityType = models.EntityType(entityType)
	ins.Evidence = json.RawMessage(evidence)
	ins.Status = models.InsightStatus(status)
	ins.WeekStart = ins.WeekStart.UTC()
	ins.CreatedAt = ins.CreatedAt.UTC()
	ins.UpdatedAt = ins.UpdatedAt.UTC()
	return ins, nil
}
