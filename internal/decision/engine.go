// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package decision

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vinsight/vinsight/internal/config"
	"github.com/vinsight/vinsight/internal/database"
	"github.com/vinsight/vinsight/internal/logging"
	"github.com/vinsight/vinsight/internal/metrics"
	"github.com/vinsight/vinsight/internal/models"
)

// SignalSource supplies the detected signals for a store-week.
// *database.DB satisfies it.
type SignalSource interface {
	ListSignals(ctx context.Context, storeID string, weekStart time.Time) ([]models.Signal, error)
}

// InsightStore persists selected insights and their cooldown updates.
// *database.DB satisfies it.
type InsightStore interface {
	SaveInsightWithCooldown(ctx context.Context, insight *models.Insight) error
	GetCooldowns(ctx context.Context, storeID string) (map[string]models.InsightCooldown, error)
}

// InventorySource answers the coarse stock guardrail. *eventstore.Store
// satisfies it through the catalog snapshot.
type InventorySource interface {
	FetchCatalog(ctx context.Context, storeID string) (*models.CatalogSnapshot, error)
}

// Engine selects and ranks CTAs for one store-week.
type Engine struct {
	signals   SignalSource
	insights  InsightStore
	inventory InventorySource
	cfg       config.DecisionConfig

	// now is swappable for cooldown tests.
	now func() time.Time
}

// NewEngine creates a decision engine. The config must already be
// validated.
func NewEngine(signals SignalSource, insights InsightStore, inventory InventorySource, cfg config.DecisionConfig) *Engine {
	return &Engine{
		signals:   signals,
		insights:  insights,
		inventory: inventory,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Result summarizes one selection run.
type Result struct {
	StoreID   string    `json:"store_id"`
	WeekStart time.Time `json:"week_start"`

	Candidates int `json:"candidates"`
	Suppressed int `json:"suppressed"`
	Selected   int `json:"selected"`

	Insights []models.Insight `json:"insights,omitempty"`
}

// candidate pairs a signal with its CTA mapping and priority score while
// selection is still in flight.
type candidate struct {
	signal models.Signal
	cta    models.CTAType
	core   models.EvidenceCore
	score  float64
}

// Run selects the week's insights from its persisted signals. The week
// must already be detected; an empty signal set selects nothing.
func (e *Engine) Run(ctx context.Context, storeID string, weekStart time.Time) (*Result, error) {
	signals, err := e.signals.ListSignals(ctx, storeID, weekStart)
	if err != nil {
		return nil, fmt.Errorf("failed to load signals: %w", err)
	}

	result := &Result{StoreID: storeID, WeekStart: weekStart, Candidates: len(signals)}
	if len(signals) == 0 {
		return result, nil
	}

	cooldowns, err := e.insights.GetCooldowns(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cooldowns: %w", err)
	}

	// The guardrail only suppresses push CTAs, so a catalog outage must
	// not block fixing search gaps: assume stock on error.
	hasStock := true
	if snapshot, err := e.inventory.FetchCatalog(ctx, storeID); err != nil {
		logging.Warn().Err(err).Str("store_id", storeID).Msg("Selecting without inventory guardrail")
	} else {
		hasStock = snapshot.HasInStock
	}

	selected := e.rank(e.filter(signals, cooldowns, hasStock, result))
	now := e.now().UTC()

	for rank := range selected {
		c := &selected[rank]
		insight := e.buildInsight(c, rank+1, now)
		if err := e.insights.SaveInsightWithCooldown(ctx, &insight); err != nil {
			return nil, fmt.Errorf("failed to persist insight for %s %q: %w",
				c.signal.EntityType, c.signal.EntityKey, err)
		}
		metrics.RecordInsightSelected(string(models.ChannelStore), string(c.cta))
		result.Insights = append(result.Insights, insight)
	}
	result.Selected = len(result.Insights)

	logging.Info().
		Str("store_id", storeID).
		Time("week_start", weekStart).
		Int("candidates", result.Candidates).
		Int("suppressed", result.Suppressed).
		Int("selected", result.Selected).
		Bool("has_stock", hasStock).
		Msg("Decision complete")

	return result, nil
}

// filter applies the volume re-check, cooldown window, and CTA mapping.
func (e *Engine) filter(signals []models.Signal, cooldowns map[string]models.InsightCooldown, hasStock bool, result *Result) []candidate {
	cooldownWindow := time.Duration(e.cfg.CooldownDays) * 24 * time.Hour
	now := e.now().UTC()

	candidates := make([]candidate, 0, len(signals))
	for i := range signals {
		s := signals[i]

		// The evidence snapshot is re-validated rather than trusted: a
		// signal persisted under older thresholds must not sneak in.
		core := s.DecodeEvidenceCore()
		if core.Searches < e.cfg.MinSearches {
			result.Suppressed++
			continue
		}

		if cd, ok := cooldowns[database.CooldownKey(s.EntityType, s.EntityKey)]; ok {
			if now.Sub(cd.LastGenerated) < cooldownWindow {
				metrics.RecordCooldownSuppression()
				result.Suppressed++
				continue
			}
		}

		cta, ok := mapCTA(s.Type, hasStock)
		if !ok {
			result.Suppressed++
			continue
		}

		candidates = append(candidates, candidate{
			signal: s,
			cta:    cta,
			core:   core,
			score:  priorityScore(s.Confidence, core.DeltaWoW, core.Searches),
		})
	}
	return candidates
}

// rank deduplicates per entity, orders by score and caps the list.
func (e *Engine) rank(candidates []candidate) []candidate {
	// One CTA per entity per week: a query that both spikes and fails to
	// convert keeps only its stronger recommendation.
	best := make(map[string]candidate, len(candidates))
	for _, c := range candidates {
		key := database.CooldownKey(c.signal.EntityType, c.signal.EntityKey)
		if prev, ok := best[key]; !ok || c.score > prev.score {
			best[key] = c
		}
	}

	deduped := make([]candidate, 0, len(best))
	for _, c := range best {
		deduped = append(deduped, c)
	}
	sort.Slice(deduped, func(i, j int) bool {
		if deduped[i].score != deduped[j].score {
			return deduped[i].score > deduped[j].score
		}
		// Stable order for equal scores so re-runs pick the same set.
		return deduped[i].signal.EntityKey < deduped[j].signal.EntityKey
	})

	if len(deduped) > e.cfg.MaxCTAsPerWeek {
		deduped = deduped[:e.cfg.MaxCTAsPerWeek]
	}
	return deduped
}

func (e *Engine) buildInsight(c *candidate, priority int, now time.Time) models.Insight {
	return models.Insight{
		ID:                uuid.New(),
		StoreID:           c.signal.StoreID,
		WeekStart:         c.signal.WeekStart,
		Channel:           models.ChannelStore,
		CTAType:           c.cta,
		EntityType:        c.signal.EntityType,
		EntityKey:         c.signal.EntityKey,
		Priority:          priority,
		Score:             c.score,
		Confidence:        c.signal.Confidence,
		Evidence:          c.signal.Evidence,
		RecommendedAction: recommendedAction(c.cta, c.signal.EntityType, c.signal.EntityKey),
		Status:            models.StatusActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// mapCTA maps a signal type to its call-to-action. Demand spikes with an
// empty warehouse are dropped: pushing demand with nothing to sell is a
// contradiction.
func mapCTA(signalType models.SignalType, hasStock bool) (models.CTAType, bool) {
	switch signalType {
	case models.SignalSpikeDemand:
		if !hasStock {
			return "", false
		}
		return models.CTAPushThisWeek, true
	case models.SignalNoResultsSpike:
		return models.CTAFixThis, true
	case models.SignalLowConversion:
		return models.CTARepositionThis, true
	default:
		return "", false
	}
}

// priorityScore ranks candidates: confidence dominates, effect size
// contributes up to a cap so the 999 new-growth sentinel cannot swamp
// everything, and volume breaks near-ties.
func priorityScore(confidence, deltaWoW float64, searches int64) float64 {
	return confidence*100 +
		math.Min(200, math.Abs(deltaWoW)) +
		math.Log10(math.Max(1, float64(searches)))*10
}

// recommendedAction renders the merchant-facing action line for a CTA.
func recommendedAction(cta models.CTAType, entityType models.EntityType, entityKey string) string {
	noun := "searches for"
	if entityType == models.EntityTopic {
		noun = "interest in"
	}
	switch cta {
	case models.CTAPushThisWeek:
		return fmt.Sprintf("Feature %q on your homepage and campaigns this week: %s it are surging.", entityKey, noun)
	case models.CTAFixThis:
		return fmt.Sprintf("Shoppers searching %q find nothing. Add matching products or synonyms so the demand lands somewhere.", entityKey)
	case models.CTARepositionThis:
		return fmt.Sprintf("Shoppers click results for %q but rarely buy. Review pricing, imagery and availability on those products.", entityKey)
	default:
		return fmt.Sprintf("Review recent activity for %q.", entityKey)
	}
}
