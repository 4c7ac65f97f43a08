// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package models

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Channel separates the weekly per-store pipeline ("store") from the
// long-range trends miner ("trends"). Both write the insights table; the
// channel column keeps their lifecycles independent.
type Channel string

const (
	ChannelStore  Channel = "store"
	ChannelTrends Channel = "trends"
)

// CTAType is the merchandising call-to-action an insight recommends.
// The first three belong to the store channel, the last three to trends.
type CTAType string

const (
	CTAPushThisWeek   CTAType = "PUSH_THIS_WEEK"
	CTAFixThis        CTAType = "FIX_THIS"
	CTARepositionThis CTAType = "REPOSITION_THIS"

	CTAPromoteThisTheme CTAType = "PROMOTE_THIS_THEME"
	CTAFixThisIssue     CTAType = "FIX_THIS_ISSUE"
	CTATalkAboutThis    CTAType = "TALK_ABOUT_THIS"
)

// InsightStatus is the merchant-facing lifecycle of an insight.
type InsightStatus string

const (
	StatusActive    InsightStatus = "ACTIVE"
	StatusExecuted  InsightStatus = "EXECUTED"
	StatusDismissed InsightStatus = "DISMISSED"
)

// ValidFeedbackStatus reports whether s is a status merchants may set via
// the feedback endpoint. ACTIVE is the initial state only.
func ValidFeedbackStatus(s InsightStatus) bool {
	return s == StatusExecuted || s == StatusDismissed
}

// Insight is one prioritized call-to-action for a store-week. Priority is
// 1-based rank within its store-week and channel; lower means more urgent.
// Score is the raw priority score the rank was derived from.
type Insight struct {
	ID                uuid.UUID       `json:"id"`
	StoreID           string          `json:"store_id"`
	WeekStart         time.Time       `json:"week_start"`
	Channel           Channel         `json:"channel"`
	CTAType           CTAType         `json:"cta_type"`
	EntityType        EntityType      `json:"entity_type"`
	EntityKey         string          `json:"entity_key"`
	Priority          int             `json:"priority"`
	Score             float64         `json:"score"`
	Confidence        float64         `json:"confidence"`
	Evidence          json.RawMessage `json:"evidence,omitempty"`
	RecommendedAction string          `json:"recommended_action"`
	Status            InsightStatus   `json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// InsightCooldown records when an entity last produced an insight and when
// the merchant last acted on one, keyed by (store, entity type, entity key).
// The decision stage consults it to keep the same recommendation from
// reappearing week after week.
type InsightCooldown struct {
	StoreID        string     `json:"store_id"`
	EntityType     EntityType `json:"entity_type"`
	EntityKey      string     `json:"entity_key"`
	LastGenerated  time.Time  `json:"last_generated"`
	LastExecutedAt *time.Time `json:"last_executed_at,omitempty"`
}
