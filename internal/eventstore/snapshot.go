// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package eventstore

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/vinsight/vinsight/internal/models"
)

// ErrSnapshotNotFound is returned when no cached snapshot exists for a
// store, including snapshots Badger already expired.
var ErrSnapshotNotFound = errors.New("catalog snapshot not found")

// snapshotKeyPrefix namespaces catalog snapshots in the Badger store.
const snapshotKeyPrefix = "catalog/"

// SnapshotCache persists the last successful catalog read per store so
// catalog outages degrade to stale data. Entries carry a TTL; an expired
// snapshot is worse than none because stock state goes stale.
type SnapshotCache struct {
	db *badger.DB
}

// NewSnapshotCache opens the Badger store at path, creating it if needed.
func NewSnapshotCache(path string) (*SnapshotCache, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Badger's own logging is too chatty for a cache
	opts.ValueLogFileSize = 16 << 20

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot cache at %s: %w", path, err)
	}
	return &SnapshotCache{db: db}, nil
}

// NewSnapshotCacheFromDB wraps an existing Badger handle. Used by tests
// with an in-memory store.
func NewSnapshotCacheFromDB(db *badger.DB) *SnapshotCache {
	return &SnapshotCache{db: db}
}

// Save stores the snapshot under its store id with the given TTL.
func (c *SnapshotCache) Save(snapshot *models.CatalogSnapshot, ttl time.Duration) error {
	if snapshot == nil || snapshot.StoreID == "" {
		return errors.New("snapshot must carry a store id")
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	return c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(snapshotKeyPrefix+snapshot.StoreID), data)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
}

// Load returns the cached snapshot for a store, or ErrSnapshotNotFound.
func (c *SnapshotCache) Load(storeID string) (*models.CatalogSnapshot, error) {
	var snapshot models.CatalogSnapshot

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(snapshotKeyPrefix + storeID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrSnapshotNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get snapshot: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &snapshot)
		})
	})
	if err != nil {
		return nil, err
	}

	return &snapshot, nil
}

// Close closes the underlying Badger store.
func (c *SnapshotCache) Close() error {
	return c.db.Close()
}
