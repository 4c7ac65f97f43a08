// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package eventstore

import (
	"context"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"golang.org/x/time/rate"

	"github.com/vinsight/vinsight/internal/config"
	"github.com/vinsight/vinsight/internal/logging"
	"github.com/vinsight/vinsight/internal/metrics"
	"github.com/vinsight/vinsight/internal/models"
)

const breakerName = "eventstore"

// productsCollection holds per-store catalog documents.
const productsCollection = "products"

// collectionName maps an event kind to its collection.
func collectionName(kind models.EventKind) string {
	return "events." + string(kind)
}

// Store reads behavioral events and catalog documents from MongoDB. Every
// query is paced by a shared rate limiter and guarded by a circuit
// breaker; the production event store serves live storefront traffic and
// must never be starved by an analytics run.
type Store struct {
	client    *mongo.Client
	db        *mongo.Database
	cfg       *config.EventStoreConfig
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker[any]
	snapshots *SnapshotCache
}

// New connects to the event store. The connection is lazy; use Ping to
// verify reachability. snapshots may be nil to disable the catalog
// fallback cache.
func New(ctx context.Context, cfg *config.EventStoreConfig, snapshots *SnapshotCache) (*Store, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.Timeout).
		SetServerSelectionTimeout(cfg.Timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to event store: %w", err)
	}

	store := &Store{
		client:    client,
		db:        client.Database(cfg.Database),
		cfg:       cfg,
		limiter:   rate.NewLimiter(rate.Limit(cfg.QueriesPerSecond), cfg.Burst),
		breaker:   newBreaker(cfg),
		snapshots: snapshots,
	}

	logging.Info().
		Str("database", cfg.Database).
		Float64("qps", cfg.QueriesPerSecond).
		Bool("snapshot_cache", snapshots != nil).
		Msg("Event store client ready")

	return store, nil
}

// newBreaker builds the shared read breaker. It opens after the
// configured number of consecutive failures and probes again after the
// configured timeout.
func newBreaker(cfg *config.EventStoreConfig) *gobreaker.CircuitBreaker[any] {
	metrics.SetCircuitBreakerState(breakerName, 0)

	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Event store breaker state change")
			metrics.SetCircuitBreakerState(name, breakerStateValue(to))
			metrics.RecordBreakerTransition(name, from.String(), to.String())
		},
	})
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// Ping verifies the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	return s.client.Ping(ctx, readpref.Primary())
}

// BreakerState reports the read breaker state for health checks.
func (s *Store) BreakerState() string {
	return s.breaker.State().String()
}

// Close disconnects the client and closes the snapshot cache.
func (s *Store) Close(ctx context.Context) error {
	var firstErr error
	if s.snapshots != nil {
		if err := s.snapshots.Close(); err != nil {
			firstErr = fmt.Errorf("failed to close snapshot cache: %w", err)
		}
	}
	if err := s.client.Disconnect(ctx); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to disconnect event store: %w", err)
	}
	return firstErr
}

// ReadEvents returns one store's events of the given kind inside
// [from, to), decoded through the tolerant field accessors. Unusable
// records are counted and dropped.
func (s *Store) ReadEvents(ctx context.Context, storeID string, kind models.EventKind, from, to time.Time) ([]models.RawEvent, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("event store rate limit: %w", err)
	}

	collection := collectionName(kind)
	start := time.Now()
	result, err := s.breaker.Execute(func() (any, error) {
		return s.findEvents(ctx, collection, storeID, kind, from, to)
	})
	metrics.RecordEventStoreQuery(collection, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s events for store %s: %w", kind, storeID, err)
	}

	events := result.([]models.RawEvent)
	metrics.RecordEventsRead(string(kind), len(events))
	return events, nil
}

func (s *Store) findEvents(ctx context.Context, collection string, storeID string, kind models.EventKind, from, to time.Time) ([]models.RawEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	cursor, err := s.db.Collection(collection).Find(ctx, eventWindowFilter(storeID, from, to))
	if err != nil {
		return nil, fmt.Errorf("find failed: %w", err)
	}
	defer func() {
		if cerr := cursor.Close(ctx); cerr != nil {
			logging.Warn().Err(cerr).Str("collection", collection).Msg("Failed to close event cursor")
		}
	}()

	var (
		events  []models.RawEvent
		skipped int
	)
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			metrics.RecordEventSkipped(string(kind), "decode")
			skipped++
			continue
		}
		event, reason := decodeEvent(kind, storeID, doc)
		if reason != "" {
			metrics.RecordEventSkipped(string(kind), reason)
			skipped++
			continue
		}
		events = append(events, event)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor failed: %w", err)
	}

	if skipped > 0 {
		logging.Debug().
			Str("store_id", storeID).
			Str("kind", string(kind)).
			Int("skipped", skipped).
			Int("decoded", len(events)).
			Msg("Skipped unusable event records")
	}

	return events, nil
}
