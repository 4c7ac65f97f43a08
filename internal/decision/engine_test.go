// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package decision

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/vinsight/vinsight/internal/config"
	"github.com/vinsight/vinsight/internal/database"
	"github.com/vinsight/vinsight/internal/models"
)

var testWeek = time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC)

func testConfig() config.DecisionConfig {
	return config.DecisionConfig{
		MaxCTAsPerWeek: 3,
		CooldownDays:   10,
		MinSearches:    25,
	}
}

type mockSignalSource struct {
	signals []models.Signal
}

func (m *mockSignalSource) ListSignals(_ context.Context, _ string, _ time.Time) ([]models.Signal, error) {
	return m.signals, nil
}

type mockInsightStore struct {
	cooldowns map[string]models.InsightCooldown
	saved     []models.Insight
	saveErr   error
}

func (m *mockInsightStore) SaveInsightWithCooldown(_ context.Context, insight *models.Insight) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, *insight)
	return nil
}

func (m *mockInsightStore) GetCooldowns(_ context.Context, _ string) (map[string]models.InsightCooldown, error) {
	if m.cooldowns == nil {
		return map[string]models.InsightCooldown{}, nil
	}
	return m.cooldowns, nil
}

type mockInventory struct {
	hasStock bool
	err      error
}

func (m *mockInventory) FetchCatalog(_ context.Context, storeID string) (*models.CatalogSnapshot, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.CatalogSnapshot{StoreID: storeID, HasInStock: m.hasStock}, nil
}

func testSignal(signalType models.SignalType, entityKey string, confidence float64, searches int64, deltaWoW float64) models.Signal {
	evidence, _ := json.Marshal(models.EvidenceCore{Searches: searches, DeltaWoW: deltaWoW})
	return models.Signal{
		ID:         uuid.New(),
		StoreID:    "demo-store",
		WeekStart:  testWeek,
		Type:       signalType,
		EntityType: models.EntityQuery,
		EntityKey:  entityKey,
		Confidence: confidence,
		Evidence:   evidence,
	}
}

func newTestEngine(signals []models.Signal, store *mockInsightStore, hasStock bool) *Engine {
	return NewEngine(&mockSignalSource{signals: signals}, store, &mockInventory{hasStock: hasStock}, testConfig())
}

func TestRunSelectsAndRanks(t *testing.T) {
	t.Parallel()

	signals := []models.Signal{
		testSignal(models.SignalSpikeDemand, "pinot noir", 0.9, 80, 220),
		testSignal(models.SignalNoResultsSpike, "orange wine", 0.6, 45, 10),
	}
	store := &mockInsightStore{}
	engine := newTestEngine(signals, store, true)

	result, err := engine.Run(context.Background(), "demo-store", testWeek)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Selected != 2 {
		t.Fatalf("Selected = %d, want 2", result.Selected)
	}

	first := result.Insights[0]
	if first.CTAType != models.CTAPushThisWeek || first.EntityKey != "pinot noir" {
		t.Errorf("top insight = %s/%s, want PUSH_THIS_WEEK/pinot noir", first.CTAType, first.EntityKey)
	}
	if first.Priority != 1 {
		t.Errorf("top priority = %d, want 1", first.Priority)
	}
	if result.Insights[1].Priority != 2 {
		t.Errorf("second priority = %d, want 2", result.Insights[1].Priority)
	}
	for _, ins := range result.Insights {
		if ins.Status != models.StatusActive {
			t.Errorf("insight %q status = %s, want ACTIVE", ins.EntityKey, ins.Status)
		}
		if ins.Channel != models.ChannelStore {
			t.Errorf("insight %q channel = %s, want store", ins.EntityKey, ins.Channel)
		}
		if ins.RecommendedAction == "" {
			t.Errorf("insight %q has empty recommended action", ins.EntityKey)
		}
	}
}

func TestRunCapsAtMaxCTAs(t *testing.T) {
	t.Parallel()

	var signals []models.Signal
	for i := 0; i < 8; i++ {
		signals = append(signals, testSignal(
			models.SignalNoResultsSpike,
			fmt.Sprintf("query %d", i),
			0.5+float64(i)*0.05, 40+int64(i), 10,
		))
	}
	store := &mockInsightStore{}
	engine := newTestEngine(signals, store, true)

	result, err := engine.Run(context.Background(), "demo-store", testWeek)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Selected != 3 {
		t.Errorf("Selected = %d, want MaxCTAsPerWeek=3", result.Selected)
	}
	// Highest confidence wins.
	if got := result.Insights[0].EntityKey; got != "query 7" {
		t.Errorf("top insight = %q, want query 7", got)
	}
}

func TestRunDeduplicatesEntities(t *testing.T) {
	t.Parallel()

	// Same query qualifies for two CTA types; only the stronger survives.
	signals := []models.Signal{
		testSignal(models.SignalSpikeDemand, "orange wine", 0.9, 45, 120),
		testSignal(models.SignalNoResultsSpike, "orange wine", 0.6, 45, 120),
	}
	store := &mockInsightStore{}
	engine := newTestEngine(signals, store, true)

	result, err := engine.Run(context.Background(), "demo-store", testWeek)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Selected != 1 {
		t.Fatalf("Selected = %d, want 1 after dedupe", result.Selected)
	}
	if result.Insights[0].CTAType != models.CTAPushThisWeek {
		t.Errorf("kept CTA = %s, want the higher-scored PUSH_THIS_WEEK", result.Insights[0].CTAType)
	}
}

func TestRunVolumeRecheck(t *testing.T) {
	t.Parallel()

	// Evidence below the floor is rejected even though a signal exists.
	signals := []models.Signal{
		testSignal(models.SignalSpikeDemand, "thin query", 0.9, 10, 500),
	}
	store := &mockInsightStore{}
	engine := newTestEngine(signals, store, true)

	result, err := engine.Run(context.Background(), "demo-store", testWeek)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Selected != 0 {
		t.Errorf("Selected = %d, want 0", result.Selected)
	}
	if result.Suppressed != 1 {
		t.Errorf("Suppressed = %d, want 1", result.Suppressed)
	}
}

func TestRunMalformedEvidenceRejected(t *testing.T) {
	t.Parallel()

	s := testSignal(models.SignalSpikeDemand, "broken", 0.9, 100, 100)
	s.Evidence = json.RawMessage(`{"searches": "not a number"`)
	store := &mockInsightStore{}
	engine := newTestEngine([]models.Signal{s}, store, true)

	result, err := engine.Run(context.Background(), "demo-store", testWeek)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Selected != 0 {
		t.Errorf("Selected = %d, want 0 for undecodable evidence", result.Selected)
	}
}

func TestRunCooldownSuppression(t *testing.T) {
	t.Parallel()

	signals := []models.Signal{
		testSignal(models.SignalSpikeDemand, "pinot noir", 0.95, 200, 300),
	}
	now := time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC)
	store := &mockInsightStore{
		cooldowns: map[string]models.InsightCooldown{
			database.CooldownKey(models.EntityQuery, "pinot noir"): {
				StoreID:       "demo-store",
				EntityType:    models.EntityQuery,
				EntityKey:     "pinot noir",
				LastGenerated: now.Add(-5 * 24 * time.Hour), // inside the 10-day window
			},
		},
	}
	engine := newTestEngine(signals, store, true)
	engine.now = func() time.Time { return now }

	result, err := engine.Run(context.Background(), "demo-store", testWeek)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Selected != 0 {
		t.Errorf("Selected = %d, want 0: entity is on cooldown even with a stronger signal", result.Selected)
	}

	// The same cooldown row outside the window no longer suppresses.
	engine.now = func() time.Time { return now.Add(6 * 24 * time.Hour) }
	store.saved = nil
	result, err = engine.Run(context.Background(), "demo-store", testWeek)
	if err != nil {
		t.Fatalf("Run after cooldown: %v", err)
	}
	if result.Selected != 1 {
		t.Errorf("Selected = %d, want 1 once the cooldown expired", result.Selected)
	}
}

func TestRunNoStockSuppressesPushOnly(t *testing.T) {
	t.Parallel()

	signals := []models.Signal{
		testSignal(models.SignalSpikeDemand, "pinot noir", 0.9, 80, 220),
		testSignal(models.SignalNoResultsSpike, "orange wine", 0.6, 45, 10),
	}
	store := &mockInsightStore{}
	engine := newTestEngine(signals, store, false)

	result, err := engine.Run(context.Background(), "demo-store", testWeek)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Selected != 1 {
		t.Fatalf("Selected = %d, want 1", result.Selected)
	}
	if result.Insights[0].CTAType != models.CTAFixThis {
		t.Errorf("surviving CTA = %s, want FIX_THIS: search gaps matter regardless of stock", result.Insights[0].CTAType)
	}
}

func TestRunEmptyWeek(t *testing.T) {
	t.Parallel()

	store := &mockInsightStore{}
	engine := newTestEngine(nil, store, true)

	result, err := engine.Run(context.Background(), "quiet-store", testWeek)
	if err != nil {
		t.Fatalf("Run on empty week: %v", err)
	}
	if result.Selected != 0 || result.Candidates != 0 {
		t.Errorf("result = %+v, want empty", result)
	}
}

func TestPriorityScoreCapsDelta(t *testing.T) {
	t.Parallel()

	// The 999 sentinel is capped at 200 so it cannot dominate ranking.
	capped := priorityScore(0.5, 999, 100)
	atCap := priorityScore(0.5, 200, 100)
	if capped != atCap {
		t.Errorf("priorityScore(999) = %v, want same as priorityScore(200) = %v", capped, atCap)
	}

	// Confidence still separates equally-capped candidates.
	if priorityScore(0.9, 999, 100) <= priorityScore(0.5, 999, 100) {
		t.Error("higher confidence should outrank at capped delta")
	}
}
