// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package trends

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vinsight/vinsight/internal/config"
	"github.com/vinsight/vinsight/internal/logging"
	"github.com/vinsight/vinsight/internal/metrics"
	"github.com/vinsight/vinsight/internal/models"
	"github.com/vinsight/vinsight/internal/normalize"
)

// EventSource supplies raw search events. *eventstore.Store satisfies it.
type EventSource interface {
	ReadEvents(ctx context.Context, storeID string, kind models.EventKind, from, to time.Time) ([]models.RawEvent, error)
}

// InsightStore persists a run's output wholesale. *database.DB satisfies
// it.
type InsightStore interface {
	EnsureStore(ctx context.Context, storeID string) error
	ReplaceTrendsInsights(ctx context.Context, storeID string, weekStart time.Time, insights []models.Insight) error
}

// Engine mines raw search history for trend insights.
type Engine struct {
	events   EventSource
	insights InsightStore
	cfg      config.TrendsConfig

	// now is swappable for deterministic tests.
	now func() time.Time
}

// NewEngine creates a trends engine. The config must already be
// validated.
func NewEngine(events EventSource, insights InsightStore, cfg config.TrendsConfig) *Engine {
	return &Engine{events: events, insights: insights, cfg: cfg, now: time.Now}
}

// Result summarizes one trends run.
type Result struct {
	StoreID   string    `json:"store_id"`
	WeekStart time.Time `json:"week_start"`

	EventsRead int `json:"events_read"`
	Queries    int `json:"queries"`
	Insights   int `json:"insights"`
}

// Run reads the store's search history over the configured lookback,
// mines it, and replaces the store's trends insights for the current
// week wholesale.
func (e *Engine) Run(ctx context.Context, storeID string) (*Result, error) {
	now := e.now().UTC()
	from := now.AddDate(0, 0, -e.cfg.LookbackDays)

	events, err := e.events.ReadEvents(ctx, storeID, models.EventSearch, from, now)
	if err != nil {
		return nil, fmt.Errorf("failed to read search history: %w", err)
	}

	weekStart := normalize.StartOfWeek(now)
	insights, queries := e.Detect(storeID, weekStart, events)

	if err := e.insights.EnsureStore(ctx, storeID); err != nil {
		return nil, fmt.Errorf("failed to ensure store %s: %w", storeID, err)
	}
	if err := e.insights.ReplaceTrendsInsights(ctx, storeID, weekStart, insights); err != nil {
		return nil, fmt.Errorf("failed to persist trends insights: %w", err)
	}

	for i := range insights {
		metrics.RecordInsightSelected(string(models.ChannelTrends), string(insights[i].CTAType))
	}

	logging.Info().
		Str("store_id", storeID).
		Str("week", normalize.WeekKey(weekStart)).
		Int("events", len(events)).
		Int("queries", queries).
		Int("insights", len(insights)).
		Msg("Trends run complete")

	return &Result{
		StoreID:    storeID,
		WeekStart:  weekStart,
		EventsRead: len(events),
		Queries:    queries,
		Insights:   len(insights),
	}, nil
}

// Detect rebuilds the per-query time series from raw events and applies
// every heuristic. It is pure apart from reading the engine clock, which
// anchors the velocity and emerging windows.
func (e *Engine) Detect(storeID string, weekStart time.Time, events []models.RawEvent) ([]models.Insight, int) {
	builder := newSeriesBuilder()
	for i := range events {
		builder.add(&events[i])
	}
	if builder.skipped > 0 {
		metrics.EventsSkipped.WithLabelValues(string(models.EventSearch), "empty_query").Add(float64(builder.skipped))
	}

	series := builder.build()
	now := e.now().UTC()

	var insights []models.Insight
	insights = append(insights, e.detectVelocity(series, builder.distinctWeeks(), now)...)
	insights = append(insights, e.detectSeasonal(series)...)
	insights = append(insights, e.detectPeakHours(series)...)
	insights = append(insights, e.detectEmerging(series, now)...)
	insights = append(insights, e.detectEvergreen(series)...)

	// Heuristics overlap: a query young enough to be emerging can also
	// clear the velocity window, and both promote the same entity. The
	// insights table is unique on (store, week, cta, entityType,
	// entityKey), so only the strongest claim per entity survives.
	insights = dedupeByEntity(insights)

	sort.SliceStable(insights, func(i, j int) bool {
		return insights[i].Confidence > insights[j].Confidence
	})

	created := now
	for i := range insights {
		ins := &insights[i]
		ins.ID = uuid.New()
		ins.StoreID = storeID
		ins.WeekStart = weekStart
		ins.Channel = models.ChannelTrends
		ins.Priority = i + 1
		ins.Status = models.StatusActive
		ins.CreatedAt = created
		ins.UpdatedAt = created
	}

	return insights, len(series)
}

// dedupeByEntity keeps the highest-confidence insight per
// (ctaType, entityType, entityKey), preserving first-seen order.
func dedupeByEntity(insights []models.Insight) []models.Insight {
	type entityKey struct {
		cta   models.CTAType
		etype models.EntityType
		key   string
	}

	at := make(map[entityKey]int, len(insights))
	out := insights[:0]
	for _, ins := range insights {
		k := entityKey{ins.CTAType, ins.EntityType, ins.EntityKey}
		if i, ok := at[k]; ok {
			if ins.Confidence > out[i].Confidence {
				out[i] = ins
			}
			continue
		}
		at[k] = len(out)
		out = append(out, ins)
	}
	return out
}
