// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/vinsight/vinsight/internal/models"
)

func testInsight(entityKey string, priority int) *models.Insight {
	now := time.Date(2026, 2, 17, 9, 0, 0, 0, time.UTC)
	return &models.Insight{
		StoreID:           "store-alpha",
		WeekStart:         testWeek,
		Channel:           models.ChannelStore,
		CTAType:           models.CTAPushThisWeek,
		EntityType:        models.EntityQuery,
		EntityKey:         entityKey,
		Priority:          priority,
		Score:             180.5,
		Confidence:        0.82,
		Evidence:          json.RawMessage(`{"searches":150,"delta_wow":60}`),
		RecommendedAction: "Feature " + entityKey + " on the landing page this week",
		Status:            models.StatusActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func TestSaveInsightWithCooldown(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	checkNoError(t, db.EnsureStore(ctx, "store-alpha"))

	ins := testInsight("natural wine", 1)
	checkNoError(t, db.SaveInsightWithCooldown(ctx, ins))
	if ins.ID == uuid.Nil {
		t.Fatal("insight ID should have been assigned")
	}

	got, err := db.GetInsight(ctx, ins.ID)
	checkNoError(t, err)
	checkStringEqual(t, "EntityKey", got.EntityKey, "natural wine")
	checkStringEqual(t, "Channel", string(got.Channel), "store")
	checkStringEqual(t, "Status", string(got.Status), "ACTIVE")
	checkIntEqual(t, "Priority", got.Priority, 1)
	checkFloatNear(t, "Score", got.Score, 180.5)

	// The cooldown row lands in the same transaction.
	cooldowns, err := db.GetCooldowns(ctx, "store-alpha")
	checkNoError(t, err)
	checkSliceLen(t, "cooldowns", len(cooldowns), 1)

	cd, ok := cooldowns[CooldownKey(models.EntityQuery, "natural wine")]
	if !ok {
		t.Fatal("cooldown for natural wine not found")
	}
	if !cd.LastGenerated.Equal(ins.CreatedAt) {
		t.Errorf("LastGenerated: expected %v, got %v", ins.CreatedAt, cd.LastGenerated)
	}
	if cd.LastExecutedAt != nil {
		t.Errorf("LastExecutedAt should be nil before feedback, got %v", cd.LastExecutedAt)
	}
}

func TestSaveInsightWithCooldown_UpsertRefreshes(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	checkNoError(t, db.EnsureStore(ctx, "store-alpha"))

	ins := testInsight("riesling", 2)
	checkNoError(t, db.SaveInsightWithCooldown(ctx, ins))

	// Re-running the week recomputes the same insight with a new score.
	again := testInsight("riesling", 1)
	again.Score = 210
	checkNoError(t, db.SaveInsightWithCooldown(ctx, again))

	got, err := db.ListInsights(ctx, InsightFilter{StoreID: "store-alpha"})
	checkNoError(t, err)
	checkSliceLen(t, "insights", len(got), 1)
	checkIntEqual(t, "Priority", got[0].Priority, 1)
	checkFloatNear(t, "Score", got[0].Score, 210)
}

func TestListInsights_Filters(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	checkNoError(t, db.EnsureStore(ctx, "store-alpha"))
	checkNoError(t, db.EnsureStore(ctx, "store-beta"))

	prevWeek := testWeek.AddDate(0, 0, -7)

	a := testInsight("natural wine", 1)
	b := testInsight("orange wine", 2)
	b.CTAType = models.CTAFixThis
	c := testInsight("chablis", 1)
	c.WeekStart = prevWeek
	d := testInsight("riesling", 1)
	d.StoreID = "store-beta"
	for _, ins := range []*models.Insight{a, b, c, d} {
		checkNoError(t, db.SaveInsightWithCooldown(ctx, ins))
	}
	trend := testInsight("sparkling", 1)
	trend.Channel = models.ChannelTrends
	trend.CTAType = models.CTAPromoteThisTheme
	trend.EntityType = models.EntityTopic
	checkNoError(t, db.ReplaceTrendsInsights(ctx, "store-alpha", testWeek, []models.Insight{*trend}))

	t.Run("by store", func(t *testing.T) {
		got, err := db.ListInsights(ctx, InsightFilter{StoreID: "store-beta"})
		checkNoError(t, err)
		checkSliceLen(t, "insights", len(got), 1)
		checkStringEqual(t, "EntityKey", got[0].EntityKey, "riesling")
	})

	t.Run("by week", func(t *testing.T) {
		got, err := db.ListInsights(ctx, InsightFilter{StoreID: "store-alpha", WeekStart: &prevWeek})
		checkNoError(t, err)
		checkSliceLen(t, "insights", len(got), 1)
		checkStringEqual(t, "EntityKey", got[0].EntityKey, "chablis")
	})

	t.Run("by channel", func(t *testing.T) {
		got, err := db.ListInsights(ctx, InsightFilter{StoreID: "store-alpha", Channel: models.ChannelTrends})
		checkNoError(t, err)
		checkSliceLen(t, "insights", len(got), 1)
		checkStringEqual(t, "EntityKey", got[0].EntityKey, "sparkling")
	})

	t.Run("freshest week first then priority", func(t *testing.T) {
		got, err := db.ListInsights(ctx, InsightFilter{StoreID: "store-alpha", Channel: models.ChannelStore})
		checkNoError(t, err)
		checkSliceLen(t, "insights", len(got), 3)
		checkStringEqual(t, "got[0].EntityKey", got[0].EntityKey, "natural wine")
		checkStringEqual(t, "got[1].EntityKey", got[1].EntityKey, "orange wine")
		checkStringEqual(t, "got[2].EntityKey", got[2].EntityKey, "chablis")
	})

	t.Run("limit and offset", func(t *testing.T) {
		got, err := db.ListInsights(ctx, InsightFilter{StoreID: "store-alpha", Channel: models.ChannelStore, Limit: 1, Offset: 1})
		checkNoError(t, err)
		checkSliceLen(t, "insights", len(got), 1)
		checkStringEqual(t, "EntityKey", got[0].EntityKey, "orange wine")
	})
}

func TestGetInsight_NotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	_, err := db.GetInsight(context.Background(), uuid.New())
	if !errors.Is(err, ErrInsightNotFound) {
		t.Errorf("expected ErrInsightNotFound, got %v", err)
	}
}

func TestApplyInsightFeedback_Executed(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	checkNoError(t, db.EnsureStore(ctx, "store-alpha"))

	ins := testInsight("natural wine", 1)
	checkNoError(t, db.SaveInsightWithCooldown(ctx, ins))

	checkNoError(t, db.ApplyInsightFeedback(ctx, ins.ID, models.StatusExecuted))

	got, err := db.GetInsight(ctx, ins.ID)
	checkNoError(t, err)
	checkStringEqual(t, "Status", string(got.Status), "EXECUTED")
	if got.UpdatedAt.Equal(ins.UpdatedAt) {
		t.Errorf("UpdatedAt should change on feedback, still %v", got.UpdatedAt)
	}

	// EXECUTED stamps the cooldown so the decision stage can see the
	// merchant acted on this entity.
	cooldowns, err := db.GetCooldowns(ctx, "store-alpha")
	checkNoError(t, err)
	cd := cooldowns[CooldownKey(models.EntityQuery, "natural wine")]
	if cd.LastExecutedAt == nil {
		t.Fatal("LastExecutedAt should be set after EXECUTED feedback")
	}
}

func TestApplyInsightFeedback_Dismissed(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	checkNoError(t, db.EnsureStore(ctx, "store-alpha"))

	ins := testInsight("orange wine", 1)
	checkNoError(t, db.SaveInsightWithCooldown(ctx, ins))

	checkNoError(t, db.ApplyInsightFeedback(ctx, ins.ID, models.StatusDismissed))

	got, err := db.GetInsight(ctx, ins.ID)
	checkNoError(t, err)
	checkStringEqual(t, "Status", string(got.Status), "DISMISSED")

	// Dismissal must not stamp an execution.
	cooldowns, err := db.GetCooldowns(ctx, "store-alpha")
	checkNoError(t, err)
	cd := cooldowns[CooldownKey(models.EntityQuery, "orange wine")]
	if cd.LastExecutedAt != nil {
		t.Errorf("LastExecutedAt should stay nil after DISMISSED, got %v", cd.LastExecutedAt)
	}
}

func TestApplyInsightFeedback_NotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	err := db.ApplyInsightFeedback(context.Background(), uuid.New(), models.StatusExecuted)
	if !errors.Is(err, ErrInsightNotFound) {
		t.Errorf("expected ErrInsightNotFound, got %v", err)
	}
}

func TestReplaceTrendsInsights_WipesOnlyTrendsChannel(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	checkNoError(t, db.EnsureStore(ctx, "store-alpha"))

	store := testInsight("natural wine", 1)
	checkNoError(t, db.SaveInsightWithCooldown(ctx, store))

	first := *testInsight("sparkling", 1)
	first.Channel = models.ChannelTrends
	first.CTAType = models.CTAPromoteThisTheme
	first.EntityType = models.EntityTopic
	checkNoError(t, db.ReplaceTrendsInsights(ctx, "store-alpha", testWeek, []models.Insight{first}))

	// The next trends run replaces the whole channel for the week.
	second := *testInsight("loire valley", 1)
	second.Channel = models.ChannelTrends
	second.CTAType = models.CTATalkAboutThis
	second.EntityType = models.EntityTopic
	third := *testInsight("biodynamic", 2)
	third.Channel = models.ChannelTrends
	third.CTAType = models.CTAPromoteThisTheme
	third.EntityType = models.EntityTopic
	checkNoError(t, db.ReplaceTrendsInsights(ctx, "store-alpha", testWeek, []models.Insight{second, third}))

	trends, err := db.ListInsights(ctx, InsightFilter{StoreID: "store-alpha", Channel: models.ChannelTrends})
	checkNoError(t, err)
	checkSliceLen(t, "trends insights", len(trends), 2)
	for _, ins := range trends {
		if ins.EntityKey == "sparkling" {
			t.Error("first trends batch should have been replaced")
		}
	}

	// The store channel is untouched.
	stores, err := db.ListInsights(ctx, InsightFilter{StoreID: "store-alpha", Channel: models.ChannelStore})
	checkNoError(t, err)
	checkSliceLen(t, "store insights", len(stores), 1)
}

func TestReplaceTrendsInsights_EmptyClearsWeek(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	checkNoError(t, db.EnsureStore(ctx, "store-alpha"))

	ins := *testInsight("sparkling", 1)
	ins.Channel = models.ChannelTrends
	ins.CTAType = models.CTAPromoteThisTheme
	checkNoError(t, db.ReplaceTrendsInsights(ctx, "store-alpha", testWeek, []models.Insight{ins}))
	checkNoError(t, db.ReplaceTrendsInsights(ctx, "store-alpha", testWeek, nil))

	got, err := db.ListInsights(ctx, InsightFilter{StoreID: "store-alpha", Channel: models.ChannelTrends})
	checkNoError(t, err)
	checkSliceLen(t, "trends insights", len(got), 0)
}

func TestGetCooldowns_EmptyStore(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	cooldowns, err := db.GetCooldowns(context.Background(), "store-alpha")
	checkNoError(t, err)
	checkSliceLen(t, "cooldowns", len(cooldowns), 0)
}

func TestCooldownKey_Distinct(t *testing.T) {
	a := CooldownKey(models.EntityQuery, "x")
	b := CooldownKey(models.EntityTopic, "x")
	c := CooldownKey(models.EntityQuery, "y")
	if a == b || a == c || b == c {
		t.Errorf("cooldown keys should be distinct: %q %q %q", a, b, c)
	}
}
