// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package audit

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockStore struct {
	mu      sync.Mutex
	saved   []Entry
	saveErr error
	purged  []time.Time
}

func (m *mockStore) Save(_ context.Context, entry *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, *entry)
	return nil
}

func (m *mockStore) Query(_ context.Context, filter QueryFilter) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Entry
	for _, e := range m.saved {
		if filter.StoreID != "" && e.StoreID != filter.StoreID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *mockStore) Count(_ context.Context, _ QueryFilter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.saved)), nil
}

func (m *mockStore) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purged = append(m.purged, cutoff)
	return 0, nil
}

func (m *mockStore) entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.saved))
	copy(out, m.saved)
	return out
}

func TestTrailRecordPersistsAsync(t *testing.T) {
	store := &mockStore{}
	trail := NewTrail(store, nil)

	trail.Record(&Entry{Action: ActionFeedbackExecuted, StoreID: "bana"})

	if err := trail.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	entries := store.entries()
	if len(entries) != 1 {
		t.Fatalf("stored %d entries, want 1", len(entries))
	}
	got := entries[0]
	if got.ID == uuid.Nil {
		t.Error("Record() did not assign an ID")
	}
	if got.Timestamp.IsZero() {
		t.Error("Record() did not assign a timestamp")
	}
	if got.StoreID != "bana" {
		t.Errorf("StoreID = %q, want bana", got.StoreID)
	}
}

func TestTrailRecordFeedbackAction(t *testing.T) {
	tests := []struct {
		toStatus string
		want     Action
	}{
		{"EXECUTED", ActionFeedbackExecuted},
		{"DISMISSED", ActionFeedbackDismissed},
	}

	for _, tt := range tests {
		t.Run(tt.toStatus, func(t *testing.T) {
			store := &mockStore{}
			trail := NewTrail(store, nil)

			trail.RecordFeedback(context.Background(), "bana", "id-1", "ACTIVE", tt.toStatus, "203.0.113.7")
			if err := trail.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}

			entries := store.entries()
			if len(entries) != 1 {
				t.Fatalf("stored %d entries, want 1", len(entries))
			}
			if entries[0].Action != tt.want {
				t.Errorf("Action = %q, want %q", entries[0].Action, tt.want)
			}
			if entries[0].FromStatus != "ACTIVE" || entries[0].ToStatus != tt.toStatus {
				t.Errorf("transition = %q->%q", entries[0].FromStatus, entries[0].ToStatus)
			}
		})
	}
}

func TestTrailRecordRunCarriesWeek(t *testing.T) {
	store := &mockStore{}
	trail := NewTrail(store, nil)

	trail.RecordRun(context.Background(), ActionRunTriggered, "bana", "2026-07-13", "203.0.113.7")
	if err := trail.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	entries := store.entries()
	if len(entries) != 1 {
		t.Fatalf("stored %d entries, want 1", len(entries))
	}
	if string(entries[0].Metadata) != `{"week":"2026-07-13"}` {
		t.Errorf("Metadata = %s", entries[0].Metadata)
	}
}

func TestTrailNilSafe(t *testing.T) {
	var trail *Trail

	// None of these should panic.
	trail.Record(&Entry{Action: ActionRunTriggered})
	trail.RecordFeedback(context.Background(), "bana", "id", "ACTIVE", "EXECUTED", "")
	trail.RecordRun(context.Background(), ActionRunTriggered, "bana", "", "")
	trail.StartCleanup(context.Background())
	if err := trail.Close(); err != nil {
		t.Errorf("Close() on nil trail error = %v", err)
	}
}

func TestTrailBufferFullDrops(t *testing.T) {
	store := &mockStore{}
	// Unstarted trail so the channel never drains.
	trail := &Trail{
		config:    &Config{BufferSize: 1},
		store:     store,
		entryChan: make(chan *Entry, 1),
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}

	trail.Record(&Entry{Action: ActionRunTriggered, StoreID: "a"})
	trail.Record(&Entry{Action: ActionRunTriggered, StoreID: "b"}) // dropped, must not block

	if len(trail.entryChan) != 1 {
		t.Errorf("buffered %d entries, want 1", len(trail.entryChan))
	}
}

func TestSourceFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"forwarded for", map[string]string{"X-Forwarded-For": "198.51.100.1"}, "198.51.100.1"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.2"}, "198.51.100.2"},
		{"remote addr fallback", nil, "192.0.2.1:1234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := SourceFromRequest(r); got != tt.want {
				t.Errorf("SourceFromRequest() = %q, want %q", got, tt.want)
			}
		})
	}
}
