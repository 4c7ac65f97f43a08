// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package eventstore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vinsight/vinsight/internal/logging"
	"github.com/vinsight/vinsight/internal/metrics"
	"github.com/vinsight/vinsight/internal/models"
)

// Catalog document accessors. Entity names feed topic classification, so
// anything a shopper might type is collected: product names, producers,
// varietals, regions.
var (
	catalogIDKeys   = []string{"productId", "product_id", "sku"}
	catalogNameKeys = []string{"name", "title", "winery", "brand", "producer", "varietal", "grape", "region", "appellation"}

	inStockBoolKeys = []string{"inStock", "in_stock", "available"}
	stockCountKeys  = []string{"stock", "inventory", "quantity"}
)

// FetchCatalog reads one store's product catalog and condenses it to the
// snapshot the pipeline needs. A successful read refreshes the local
// snapshot cache; a failed read falls back to the cached snapshot when one
// exists. Both the live read failing and the cache missing returns an
// error, and callers degrade to an unguarded run.
func (s *Store) FetchCatalog(ctx context.Context, storeID string) (*models.CatalogSnapshot, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("event store rate limit: %w", err)
	}

	start := time.Now()
	result, err := s.breaker.Execute(func() (any, error) {
		return s.findCatalog(ctx, storeID)
	})
	metrics.RecordEventStoreQuery(productsCollection, time.Since(start), err)

	if err == nil {
		snapshot := result.(*models.CatalogSnapshot)
		s.saveSnapshot(snapshot)
		return snapshot, nil
	}

	if s.snapshots != nil {
		cached, cacheErr := s.snapshots.Load(storeID)
		if cacheErr == nil {
			metrics.CatalogSnapshotFallbacks.Inc()
			logging.Warn().
				Err(err).
				Str("store_id", storeID).
				Time("snapshot_fetched_at", cached.FetchedAt).
				Msg("Catalog read failed, using cached snapshot")
			return cached, nil
		}
	}

	return nil, fmt.Errorf("failed to fetch catalog for store %s: %w", storeID, err)
}

func (s *Store) findCatalog(ctx context.Context, storeID string) (*models.CatalogSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	cursor, err := s.db.Collection(productsCollection).Find(ctx, catalogFilter(storeID))
	if err != nil {
		return nil, fmt.Errorf("find failed: %w", err)
	}
	defer func() {
		if cerr := cursor.Close(ctx); cerr != nil {
			logging.Warn().Err(cerr).Str("collection", productsCollection).Msg("Failed to close catalog cursor")
		}
	}()

	snapshot := &models.CatalogSnapshot{
		StoreID:   storeID,
		FetchedAt: time.Now().UTC(),
	}
	seenNames := make(map[string]struct{})

	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			continue
		}

		if id := productDocID(doc); id != "" {
			snapshot.ProductIDs = append(snapshot.ProductIDs, id)
		}
		for _, key := range catalogNameKeys {
			name, ok := doc[key].(string)
			if !ok || name == "" {
				continue
			}
			if _, dup := seenNames[name]; dup {
				continue
			}
			seenNames[name] = struct{}{}
			snapshot.EntityNames = append(snapshot.EntityNames, name)
		}
		if !snapshot.HasInStock && productInStock(doc) {
			snapshot.HasInStock = true
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor failed: %w", err)
	}

	return snapshot, nil
}

// productDocID prefers explicit product id fields and falls back to the
// Mongo _id so legacy catalogs without a dedicated id still resolve.
func productDocID(doc bson.M) string {
	if id := extractString(doc, catalogIDKeys); id != "" {
		return id
	}
	switch id := doc["_id"].(type) {
	case string:
		return id
	case primitive.ObjectID:
		return id.Hex()
	default:
		return ""
	}
}

// productInStock reads the stock state from boolean flags or counters.
// A document with no stock field at all counts as in stock; absence of
// inventory tracking must not suppress demand pushes.
func productInStock(doc bson.M) bool {
	for _, key := range inStockBoolKeys {
		if b, ok := doc[key].(bool); ok {
			return b
		}
	}
	for _, key := range stockCountKeys {
		v, present := doc[key]
		if !present {
			continue
		}
		if n, ok := coerceFloat(v); ok {
			return n > 0
		}
	}
	return true
}

func (s *Store) saveSnapshot(snapshot *models.CatalogSnapshot) {
	if s.snapshots == nil {
		return
	}
	err := s.snapshots.Save(snapshot, s.cfg.SnapshotTTL)
	metrics.RecordCatalogSnapshotSave(err)
	if err != nil {
		logging.Warn().Err(err).Str("store_id", snapshot.StoreID).Msg("Failed to cache catalog snapshot")
	}
}
