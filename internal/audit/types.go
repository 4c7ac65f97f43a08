// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

// Package audit records operator actions against insights for later review.
// Every feedback transition and manually triggered run leaves a durable
// entry, so a merchandiser can answer "who dismissed this and when".
package audit

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Action categorizes audit entries.
type Action string

const (
	// ActionFeedbackExecuted records an insight being marked as acted on.
	ActionFeedbackExecuted Action = "feedback.executed"

	// ActionFeedbackDismissed records an insight being dismissed.
	ActionFeedbackDismissed Action = "feedback.dismissed"

	// ActionRunTriggered records a manually triggered pipeline run.
	ActionRunTriggered Action = "run.triggered"

	// ActionTrendsRunTriggered records a manually triggered trends run.
	ActionTrendsRunTriggered Action = "trends_run.triggered"
)

// Entry is a single recorded operator action.
type Entry struct {
	// ID is a unique identifier for this entry.
	ID uuid.UUID `json:"id"`

	// Timestamp when the action occurred.
	Timestamp time.Time `json:"timestamp"`

	// Action categorizes what happened.
	Action Action `json:"action"`

	// StoreID is the store the action applies to.
	StoreID string `json:"store_id"`

	// InsightID is set for feedback actions.
	InsightID string `json:"insight_id,omitempty"`

	// FromStatus and ToStatus capture a feedback status transition.
	FromStatus string `json:"from_status,omitempty"`
	ToStatus   string `json:"to_status,omitempty"`

	// SourceIP of the request that performed the action.
	SourceIP string `json:"source_ip,omitempty"`

	// RequestID from the originating HTTP request.
	RequestID string `json:"request_id,omitempty"`

	// Metadata carries action-specific details.
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// Store defines the interface for audit entry persistence.
type Store interface {
	// Save persists an audit entry.
	Save(ctx context.Context, entry *Entry) error

	// Query retrieves entries matching the filter, newest first.
	Query(ctx context.Context, filter QueryFilter) ([]Entry, error)

	// Count returns the number of entries matching the filter.
	Count(ctx context.Context, filter QueryFilter) (int64, error)

	// PurgeBefore removes entries older than the cutoff.
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// QueryFilter defines filtering options for audit queries.
type QueryFilter struct {
	// StoreID filters by store.
	StoreID string `json:"store_id,omitempty"`

	// InsightID filters by insight.
	InsightID string `json:"insight_id,omitempty"`

	// Actions filters by action types.
	Actions []Action `json:"actions,omitempty"`

	// Start is the beginning of the time range.
	Start *time.Time `json:"start,omitempty"`

	// End is the end of the time range.
	End *time.Time `json:"end,omitempty"`

	// Limit is the maximum number of results.
	Limit int `json:"limit,omitempty"`

	// Offset for pagination.
	Offset int `json:"offset,omitempty"`
}

// DefaultQueryFilter returns a sensible default filter.
func DefaultQueryFilter() QueryFilter {
	return QueryFilter{Limit: 100}
}
