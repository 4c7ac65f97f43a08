// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package aggregation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vinsight/vinsight/internal/logging"
	"github.com/vinsight/vinsight/internal/metrics"
	"github.com/vinsight/vinsight/internal/models"
	"github.com/vinsight/vinsight/internal/normalize"
)

// EventSource supplies raw events and catalog snapshots for a store.
// *eventstore.Store satisfies it.
type EventSource interface {
	ReadEvents(ctx context.Context, storeID string, kind models.EventKind, from, to time.Time) ([]models.RawEvent, error)
	FetchCatalog(ctx context.Context, storeID string) (*models.CatalogSnapshot, error)
}

// Store persists aggregate rows. *database.DB satisfies it.
type Store interface {
	EnsureStore(ctx context.Context, storeID string) error
	UpsertQueryAggregates(ctx context.Context, aggs []models.QueryAggregate) error
	UpsertTopicAggregates(ctx context.Context, aggs []models.TopicAggregate) error
	UpsertProductAggregates(ctx context.Context, aggs []models.ProductAggregate) error
}

// Engine runs the aggregation stage for one store-week.
type Engine struct {
	events EventSource
	store  Store
}

// NewEngine creates an aggregation engine.
func NewEngine(events EventSource, store Store) *Engine {
	return &Engine{events: events, store: store}
}

// Result summarizes one aggregation run.
type Result struct {
	StoreID         string    `json:"store_id"`
	WeekStart       time.Time `json:"week_start"`
	EventsRead      int       `json:"events_read"`
	QueryRows       int       `json:"query_rows"`
	TopicRows       int       `json:"topic_rows"`
	ProductRows     int       `json:"product_rows"`
	CatalogDegraded bool      `json:"catalog_degraded,omitempty"`
}

// Run aggregates one store's events for the week containing week. The
// week is normalized to its ISO Monday; passing a zero time means the
// current week.
func (e *Engine) Run(ctx context.Context, storeID string, week time.Time) (*Result, error) {
	if week.IsZero() {
		week = time.Now().UTC()
	}
	weekStart := normalize.StartOfWeek(week)
	prevStart := normalize.AddDays(weekStart, -7)
	weekEnd := normalize.AddDays(weekStart, 7)

	if err := e.store.EnsureStore(ctx, storeID); err != nil {
		return nil, fmt.Errorf("failed to ensure store %s: %w", storeID, err)
	}

	curEvents, prevEvents, err := e.fetchWindows(ctx, storeID, prevStart, weekStart, weekEnd)
	if err != nil {
		return nil, err
	}

	// A missing catalog degrades the run: no entity names for the
	// classifier, no referential guard, stock assumed present.
	var (
		entityNames []string
		productSet  map[string]struct{}
		degraded    bool
	)
	snapshot, err := e.events.FetchCatalog(ctx, storeID)
	if err != nil {
		degraded = true
		logging.Warn().Err(err).Str("store_id", storeID).Msg("Aggregating without catalog")
	} else {
		entityNames = snapshot.EntityNames
		productSet = snapshot.ProductSet()
	}

	cur := groupWeek(curEvents)
	prev := groupWeek(prevEvents)
	if n := cur.skippedEmpty + prev.skippedEmpty; n > 0 {
		metrics.EventsSkipped.WithLabelValues(string(models.EventSearch), "empty_query").Add(float64(n))
	}

	classifier := normalize.NewClassifier(entityNames)
	queryAggs := buildQueryAggregates(storeID, weekStart, cur, prev)
	topicAggs := buildTopicAggregates(storeID, weekStart, classifier, cur, prev)
	productAggs := buildProductAggregates(storeID, weekStart, cur, prev, productSet)

	if err := e.store.UpsertQueryAggregates(ctx, queryAggs); err != nil {
		return nil, fmt.Errorf("failed to persist query aggregates: %w", err)
	}
	if err := e.store.UpsertTopicAggregates(ctx, topicAggs); err != nil {
		return nil, fmt.Errorf("failed to persist topic aggregates: %w", err)
	}
	if err := e.store.UpsertProductAggregates(ctx, productAggs); err != nil {
		return nil, fmt.Errorf("failed to persist product aggregates: %w", err)
	}

	result := &Result{
		StoreID:         storeID,
		WeekStart:       weekStart,
		EventsRead:      len(curEvents) + len(prevEvents),
		QueryRows:       len(queryAggs),
		TopicRows:       len(topicAggs),
		ProductRows:     len(productAggs),
		CatalogDegraded: degraded,
	}

	logging.Info().
		Str("store_id", storeID).
		Str("week", normalize.WeekKey(weekStart)).
		Int("events", result.EventsRead).
		Int("query_rows", result.QueryRows).
		Int("topic_rows", result.TopicRows).
		Int("product_rows", result.ProductRows).
		Bool("catalog_degraded", degraded).
		Msg("Aggregation complete")

	return result, nil
}

// fetchWindows reads the three event streams for the target week and the
// week before it in parallel. The first error wins; partial windows are
// never aggregated because a missing stream would skew every ratio.
func (e *Engine) fetchWindows(ctx context.Context, storeID string, prevStart, weekStart, weekEnd time.Time) (cur, prev []models.RawEvent, err error) {
	type fetch struct {
		name     string
		kind     models.EventKind
		from, to time.Time
		current  bool
	}

	fetches := make([]fetch, 0, len(models.EventKinds)*2)
	for _, kind := range models.EventKinds {
		fetches = append(fetches,
			fetch{name: string(kind) + " current", kind: kind, from: weekStart, to: weekEnd, current: true},
			fetch{name: string(kind) + " previous", kind: kind, from: prevStart, to: weekStart},
		)
	}

	results := make([][]models.RawEvent, len(fetches))
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for i, f := range fetches {
		wg.Add(1)
		go func(idx int, f fetch) {
			defer wg.Done()
			events, err := e.events.ReadEvents(ctx, storeID, f.kind, f.from, f.to)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("failed to read %s window: %w", f.name, err)
				}
				mu.Unlock()
				return
			}
			results[idx] = events
		}(i, f)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, nil, firstErr
	}

	for i, f := range fetches {
		if f.current {
			cur = append(cur, results[i]...)
		} else {
			prev = append(prev, results[i]...)
		}
	}
	return cur, prev, nil
}
