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

// SignalType identifies a detection rule.
type SignalType string

const (
	// SignalSpikeDemand fires when search volume jumps week over week for
	// a query or topic with enough absolute volume to matter.
	SignalSpikeDemand SignalType = "SPIKE_DEMAND"

	// SignalNoResultsSpike fires when a high-volume query returns no
	// results on average: demand the storefront cannot answer.
	SignalNoResultsSpike SignalType = "NO_RESULTS_SPIKE"

	// SignalLowConversion fires when shoppers click through a query at a
	// healthy rate but almost never buy.
	SignalLowConversion SignalType = "HIGH_INTEREST_LOW_CONVERSION"
)

// EntityType names the kind of entity a signal or insight is about.
type EntityType string

const (
	EntityQuery   EntityType = "query"
	EntityTopic   EntityType = "topic"
	EntityProduct EntityType = "product"
)

// Signal is one detected anomaly for one entity in one store-week.
// Evidence holds the rule's typed payload serialized as JSON.
type Signal struct {
	ID         uuid.UUID       `json:"id"`
	StoreID    string          `json:"store_id"`
	WeekStart  time.Time       `json:"week_start"`
	Type       SignalType      `json:"type"`
	EntityType EntityType      `json:"entity_type"`
	EntityKey  string          `json:"entity_key"`
	Confidence float64         `json:"confidence"`
	Evidence   json.RawMessage `json:"evidence,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// SpikeDemandEvidence backs SignalSpikeDemand.
type SpikeDemandEvidence struct {
	Searches int64   `json:"searches"`
	DeltaWoW float64 `json:"delta_wow"`
}

// NoResultsEvidence backs SignalNoResultsSpike.
type NoResultsEvidence struct {
	Searches        int64   `json:"searches"`
	DeltaWoW        float64 `json:"delta_wow"`
	AvgResultsCount float64 `json:"avg_results_count"`
}

// LowConversionEvidence backs SignalLowConversion.
type LowConversionEvidence struct {
	Searches       int64   `json:"searches"`
	DeltaWoW       float64 `json:"delta_wow"`
	CTR            float64 `json:"ctr"`
	ConversionRate float64 `json:"conversion_rate"`
}

// EvidenceCore is the subset of evidence fields every signal type carries.
// The decision stage decodes into it without caring which rule produced
// the signal.
type EvidenceCore struct {
	Searches int64   `json:"searches"`
	DeltaWoW float64 `json:"delta_wow"`
}

// DecodeEvidenceCore extracts the common evidence fields from a signal.
// Missing or malformed evidence decodes to the zero value, which downstream
// volume re-checks then reject.
func (s *Signal) DecodeEvidenceCore() EvidenceCore {
	var core EvidenceCore
	if len(s.Evidence) > 0 {
		// Best effort: a zero core fails the volume floor downstream.
		_ = json.Unmarshal(s.Evidence, &core)
	}
	return core
}
