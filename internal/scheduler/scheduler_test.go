// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vinsight/vinsight/internal/config"
	"github.com/vinsight/vinsight/internal/pipeline"
)

type runCall struct {
	storeID string
	week    time.Time
}

type mockRunner struct {
	mu    sync.Mutex
	calls []runCall
	fail  map[string]error
}

func (m *mockRunner) Run(_ context.Context, storeID string, week time.Time) (*pipeline.RunReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, runCall{storeID, week})
	if err := m.fail[storeID]; err != nil {
		return nil, err
	}
	return &pipeline.RunReport{StoreID: storeID, WeekStart: week}, nil
}

type mockRegistry struct {
	stores  []string
	touched []string
}

func (m *mockRegistry) ListStoreIDs(_ context.Context) ([]string, error) {
	return m.stores, nil
}

func (m *mockRegistry) TouchStoreRun(_ context.Context, storeID string, _ time.Time) error {
	m.touched = append(m.touched, storeID)
	return nil
}

func testConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		Enabled:         true,
		CheckInterval:   time.Hour,
		RunOnStart:      true,
		Stores:          []string{"configured-store"},
		StoresPerMinute: 6000, // effectively unpaced in tests
	}
}

// Wednesday 2026-02-18; the just-completed week starts Monday 2026-02-09.
var (
	testNow          = time.Date(2026, 2, 18, 9, 0, 0, 0, time.UTC)
	wantTargetWeek   = time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC)
	nextWeekSameHour = testNow.AddDate(0, 0, 7)
)

func TestTickRunsAllStoresForPreviousWeek(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{}
	registry := &mockRegistry{stores: []string{"store-b", "store-a", "configured-store"}}
	s := New(runner, registry, testConfig())
	s.now = func() time.Time { return testNow }

	s.tick(context.Background())

	if len(runner.calls) != 3 {
		t.Fatalf("runs = %d, want 3", len(runner.calls))
	}
	// Deduplicated and sorted sweep order.
	wantOrder := []string{"configured-store", "store-a", "store-b"}
	for i, want := range wantOrder {
		if runner.calls[i].storeID != want {
			t.Errorf("calls[%d] = %q, want %q", i, runner.calls[i].storeID, want)
		}
		if !runner.calls[i].week.Equal(wantTargetWeek) {
			t.Errorf("calls[%d].week = %v, want %v", i, runner.calls[i].week, wantTargetWeek)
		}
	}
	if len(registry.touched) != 3 {
		t.Errorf("touched = %v, want all three stores", registry.touched)
	}
}

func TestTickOncePerWeek(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{}
	registry := &mockRegistry{stores: []string{"store-a"}}
	s := New(runner, registry, testConfig())
	s.now = func() time.Time { return testNow }

	s.tick(context.Background())
	s.tick(context.Background()) // same week: no-op
	if len(runner.calls) != 2 {
		t.Fatalf("runs = %d, want 2 after a repeated tick in the same week", len(runner.calls))
	}

	s.now = func() time.Time { return nextWeekSameHour }
	s.tick(context.Background())
	if len(runner.calls) != 4 {
		t.Fatalf("runs = %d, want 4 (2 stores x 2 weeks)", len(runner.calls))
	}
}

func TestTickIsolatesStoreFailures(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{fail: map[string]error{"store-a": errors.New("event store down")}}
	registry := &mockRegistry{stores: []string{"store-a", "store-b"}}
	cfg := testConfig()
	cfg.Stores = nil
	s := New(runner, registry, cfg)
	s.now = func() time.Time { return testNow }

	s.tick(context.Background())

	if len(runner.calls) != 2 {
		t.Fatalf("runs = %d, want both stores attempted", len(runner.calls))
	}
	if len(registry.touched) != 1 || registry.touched[0] != "store-b" {
		t.Errorf("touched = %v, want only store-b", registry.touched)
	}
}

func TestTickRetriesFullyFailedSweep(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{fail: map[string]error{"store-a": errors.New("down")}}
	registry := &mockRegistry{stores: []string{"store-a"}}
	cfg := testConfig()
	cfg.Stores = nil
	s := New(runner, registry, cfg)
	s.now = func() time.Time { return testNow }

	s.tick(context.Background())
	s.tick(context.Background())

	// The boundary was not crossed off, so the same week retried.
	if len(runner.calls) != 2 {
		t.Errorf("runs = %d, want a retry after a fully failed sweep", len(runner.calls))
	}
}
