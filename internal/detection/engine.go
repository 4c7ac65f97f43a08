// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package detection

import (
	"context"
	"fmt"
	"time"

	"github.com/vinsight/vinsight/internal/config"
	"github.com/vinsight/vinsight/internal/logging"
	"github.com/vinsight/vinsight/internal/metrics"
	"github.com/vinsight/vinsight/internal/models"
)

// AggregateSource supplies the persisted aggregate rows detection reads.
// *database.DB satisfies it.
type AggregateSource interface {
	GetQueryAggregates(ctx context.Context, storeID string, weekStart time.Time) ([]models.QueryAggregate, error)
	GetTopicAggregates(ctx context.Context, storeID string, weekStart time.Time) ([]models.TopicAggregate, error)
}

// SignalStore persists detected signals. *database.DB satisfies it.
type SignalStore interface {
	UpsertSignals(ctx context.Context, signals []models.Signal) error
}

// Engine runs the signal rules for one store-week.
type Engine struct {
	aggregates AggregateSource
	signals    SignalStore
	cfg        config.DetectionConfig
}

// NewEngine creates a detection engine with the given thresholds. The
// config must already be validated; the engine does not re-check it.
func NewEngine(aggregates AggregateSource, signals SignalStore, cfg config.DetectionConfig) *Engine {
	return &Engine{aggregates: aggregates, signals: signals, cfg: cfg}
}

// Result summarizes one detection run.
type Result struct {
	StoreID   string    `json:"store_id"`
	WeekStart time.Time `json:"week_start"`

	// ByType counts emitted signals per rule.
	ByType map[models.SignalType]int `json:"by_type"`
	Total  int                       `json:"total"`
}

// Run evaluates every rule against the given store-week's aggregates and
// upserts the resulting signals. The week must already be aggregated;
// detecting over an empty week simply emits nothing.
func (e *Engine) Run(ctx context.Context, storeID string, weekStart time.Time) (*Result, error) {
	queries, err := e.aggregates.GetQueryAggregates(ctx, storeID, weekStart)
	if err != nil {
		return nil, fmt.Errorf("failed to load query aggregates: %w", err)
	}
	topics, err := e.aggregates.GetTopicAggregates(ctx, storeID, weekStart)
	if err != nil {
		return nil, fmt.Errorf("failed to load topic aggregates: %w", err)
	}

	signals := make([]models.Signal, 0, len(queries)+len(topics))
	for i := range queries {
		signals = append(signals, e.evaluateQuery(&queries[i])...)
	}
	for i := range topics {
		if s, ok := e.evaluateTopic(&topics[i]); ok {
			signals = append(signals, s)
		}
	}

	if err := e.signals.UpsertSignals(ctx, signals); err != nil {
		return nil, fmt.Errorf("failed to persist signals: %w", err)
	}

	result := &Result{
		StoreID:   storeID,
		WeekStart: weekStart,
		ByType:    make(map[models.SignalType]int),
		Total:     len(signals),
	}
	for i := range signals {
		result.ByType[signals[i].Type]++
	}
	for signalType, count := range result.ByType {
		metrics.RecordSignals(string(signalType), count)
	}

	logging.Info().
		Str("store_id", storeID).
		Time("week_start", weekStart).
		Int("query_rows", len(queries)).
		Int("topic_rows", len(topics)).
		Int("signals", result.Total).
		Msg("Detection complete")

	return result, nil
}
