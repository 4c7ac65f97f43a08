// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package database

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/vinsight/vinsight/internal/config"
)

// testDBSemaphore fully serializes database creation and use. Concurrent
// DuckDB CGO calls from parallel tests can hang under CI resource
// pressure, so only one test holds an open connection at a time.
var testDBSemaphore = make(chan struct{}, 1)

// testDBMutex serializes the New() call itself.
var testDBMutex sync.Mutex

// setupTestDB creates an in-memory test database with timeout protection.
// The semaphore is held for the ENTIRE test lifecycle and released via
// t.Cleanup, not after creation: even serialized creation does not stop
// two tests from issuing concurrent INSERTs later.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	cfg := &config.DatabaseConfig{
		Path:      ":memory:",
		MaxMemory: "1GB",
	}

	// Creation runs in a goroutine so a hung CGO call fails the test in
	// two minutes instead of tripping the ten-minute package timeout.
	type result struct {
		db  *DB
		err error
	}

	resultCh := make(chan result, 1)
	go func() {
		testDBMutex.Lock()
		db, err := New(cfg)
		testDBMutex.Unlock()
		resultCh <- result{db: db, err: err}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			t.Fatalf("Failed to create test database: %v", res.err)
		}
		return res.db
	case <-time.After(120 * time.Second):
		t.Fatalf("Timeout: database creation took longer than 120s")
		return nil
	}
}

func TestNew_CreatesSchema(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	tables := []string{
		"stores",
		"query_aggregates",
		"topic_aggregates",
		"product_aggregates",
		"signals",
		"insights",
		"insight_cooldowns",
	}

	for _, table := range tables {
		t.Run(table, func(t *testing.T) {
			var count int
			err := db.conn.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count)
			checkNoError(t, err)
			checkIntEqual(t, "row count", count, 0)
		})
	}
}

func TestPing(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	checkNoError(t, db.Ping(context.Background()))
}

func TestCheckpoint(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	checkNoError(t, db.Checkpoint(context.Background()))
}

func TestClose_Idempotent(t *testing.T) {
	db := setupTestDB(t)

	checkNoError(t, db.Close())
	// Second close must not panic; DuckDB rejects it with an error at worst.
	_ = db.Close()
}

func TestEnsureStore(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	checkNoError(t, db.EnsureStore(ctx, "store-alpha"))
	// Re-registering must be a no-op, not a constraint violation.
	checkNoError(t, db.EnsureStore(ctx, "store-alpha"))
	checkNoError(t, db.EnsureStore(ctx, "store-beta"))

	ids, err := db.ListStoreIDs(ctx)
	checkNoError(t, err)
	checkSliceLen(t, "store ids", len(ids), 2)
	checkStringEqual(t, "ids[0]", ids[0], "store-alpha")
	checkStringEqual(t, "ids[1]", ids[1], "store-beta")
}

func TestLastRunAt(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	checkNoError(t, db.EnsureStore(ctx, "store-alpha"))

	// Unknown store and never-run store both report nil.
	at, err := db.LastRunAt(ctx, "store-missing")
	checkNoError(t, err)
	if at != nil {
		t.Errorf("expected nil last run for unknown store, got %v", at)
	}

	at, err = db.LastRunAt(ctx, "store-alpha")
	checkNoError(t, err)
	if at != nil {
		t.Errorf("expected nil last run before first run, got %v", at)
	}

	ranAt := time.Date(2026, 2, 16, 3, 0, 0, 0, time.UTC)
	checkNoError(t, db.TouchStoreRun(ctx, "store-alpha", ranAt))

	at, err = db.LastRunAt(ctx, "store-alpha")
	checkNoError(t, err)
	if at == nil {
		t.Fatal("expected last run timestamp after TouchStoreRun")
	}
	if !at.Equal(ranAt) {
		t.Errorf("last run: expected %v, got %v", ranAt, at)
	}
}
