// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package detection

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/vinsight/vinsight/internal/logging"
	"github.com/vinsight/vinsight/internal/models"
	"github.com/vinsight/vinsight/internal/scoring"
)

// evaluateQuery runs all query-scoped rules against one aggregate row.
// Rules are independent: the same query may spike, return nothing, and
// fail to convert all in one week.
func (e *Engine) evaluateQuery(agg *models.QueryAggregate) []models.Signal {
	if agg.Searches < e.cfg.MinSearches {
		return nil
	}

	var signals []models.Signal

	if agg.DeltaWoW > e.cfg.SpikeDeltaPct {
		signals = append(signals, e.newSignal(
			agg.StoreID, agg.WeekStart,
			models.SignalSpikeDemand, models.EntityQuery, agg.Query,
			agg.Searches, agg.DeltaWoW,
			models.SpikeDemandEvidence{
				Searches: agg.Searches,
				DeltaWoW: agg.DeltaWoW,
			},
		))
	}

	if agg.AvgResultsCount <= e.cfg.NoResultsAvgMax {
		signals = append(signals, e.newSignal(
			agg.StoreID, agg.WeekStart,
			models.SignalNoResultsSpike, models.EntityQuery, agg.Query,
			agg.Searches, agg.DeltaWoW,
			models.NoResultsEvidence{
				Searches:        agg.Searches,
				DeltaWoW:        agg.DeltaWoW,
				AvgResultsCount: agg.AvgResultsCount,
			},
		))
	}

	if agg.CTR >= e.cfg.MinCTR && agg.ConversionRate <= e.cfg.MaxConversionRate {
		signals = append(signals, e.newSignal(
			agg.StoreID, agg.WeekStart,
			models.SignalLowConversion, models.EntityQuery, agg.Query,
			agg.Searches, agg.DeltaWoW,
			models.LowConversionEvidence{
				Searches:       agg.Searches,
				DeltaWoW:       agg.DeltaWoW,
				CTR:            agg.CTR,
				ConversionRate: agg.ConversionRate,
			},
		))
	}

	return signals
}

// evaluateTopic runs the spike rule against one topic row. Topics carry
// no funnel ratios, so demand spikes are the only topic-scoped rule.
func (e *Engine) evaluateTopic(agg *models.TopicAggregate) (models.Signal, bool) {
	if agg.Searches < e.cfg.MinSearches || agg.DeltaWoW <= e.cfg.SpikeDeltaPct {
		return models.Signal{}, false
	}
	return e.newSignal(
		agg.StoreID, agg.WeekStart,
		models.SignalSpikeDemand, models.EntityTopic, agg.Topic,
		agg.Searches, agg.DeltaWoW,
		models.SpikeDemandEvidence{
			Searches: agg.Searches,
			DeltaWoW: agg.DeltaWoW,
		},
	), true
}

// newSignal assembles one signal with the shared confidence score and a
// serialized evidence snapshot.
func (e *Engine) newSignal(
	storeID string, weekStart time.Time,
	signalType models.SignalType, entityType models.EntityType, entityKey string,
	searches int64, deltaWoW float64,
	evidence any,
) models.Signal {
	raw, err := json.Marshal(evidence)
	if err != nil {
		// Evidence is display/audit data; the signal stands without it.
		logging.Warn().Err(err).
			Str("signal_type", string(signalType)).
			Str("entity_key", entityKey).
			Msg("Failed to serialize signal evidence")
		raw = nil
	}
	return models.Signal{
		ID:         uuid.New(),
		StoreID:    storeID,
		WeekStart:  weekStart,
		Type:       signalType,
		EntityType: entityType,
		EntityKey:  entityKey,
		Confidence: scoring.Confidence(searches, deltaWoW),
		Evidence:   raw,
		CreatedAt:  time.Now().UTC(),
	}
}
