// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package trends

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/goccy/go-json"

	"github.com/vinsight/vinsight/internal/models"
	"github.com/vinsight/vinsight/internal/normalize"
	"github.com/vinsight/vinsight/internal/scoring"
)

// Confidence ceilings per heuristic. Mined trends are weaker evidence
// than a store's own funnel, so nothing here reaches certainty.
const (
	risingConfidenceCap    = 0.95
	decliningConfidenceCap = 0.90
)

// peakWindowHours is the width of the sliding peak-traffic window.
const peakWindowHours = 3

// evergreenMaxCV is the share-of-voice consistency bound: a query whose
// monthly share varies less than this is considered evergreen.
const evergreenMaxCV = 0.8

// evergreenMinGlobalMonthly excludes months with too little overall
// traffic for share-of-voice to mean anything.
const evergreenMinGlobalMonthly = 100

// VelocityEvidence backs rising and declining velocity insights.
type VelocityEvidence struct {
	Query       string  `json:"query"`
	Volume      int64   `json:"volume"`
	RecentVol   int64   `json:"recent_vol"`
	PrevVol     int64   `json:"prev_vol"`
	ChangePct   float64 `json:"change_pct"`
	WindowWeeks int     `json:"window_weeks"`
}

// SeasonalEvidence backs calendar-event insights.
type SeasonalEvidence struct {
	Query       string   `json:"query"`
	Event       string   `json:"event"`
	Volume      int64    `json:"volume"`
	SpikeMonths []string `json:"spike_months"`
	SpikePct    float64  `json:"spike_pct"`
}

// PeakHoursEvidence backs the peak-traffic-window insight.
type PeakHoursEvidence struct {
	StartHour int     `json:"start_hour"`
	EndHour   int     `json:"end_hour"`
	Volume    int64   `json:"volume"`
	SharePct  float64 `json:"share_pct"`
}

// EmergingEvidence backs emerging-query insights.
type EmergingEvidence struct {
	Query     string    `json:"query"`
	Volume    int64     `json:"volume"`
	FirstSeen time.Time `json:"first_seen"`
	AgeWeeks  float64   `json:"age_weeks"`
}

// EvergreenEvidence backs evergreen-leader insights.
type EvergreenEvidence struct {
	Query       string  `json:"query"`
	Volume      int64   `json:"volume"`
	Months      int     `json:"months"`
	AvgSharePct float64 `json:"avg_share_pct"`
	CV          float64 `json:"cv"`
}

// detectVelocity compares each query's recent-weeks volume against the
// preceding window of the same width. The comparison only runs once the
// data set spans enough distinct weeks to fill both windows.
func (e *Engine) detectVelocity(series []*QueryTimeSeries, distinctWeeks int, now time.Time) []models.Insight {
	if distinctWeeks < 2*e.cfg.RecentWeeks {
		return nil
	}

	// Week keys for [now-recent, now] and the window before it.
	weekStart := normalize.StartOfWeek(now)
	recentKeys := make([]string, 0, e.cfg.RecentWeeks)
	prevKeys := make([]string, 0, e.cfg.RecentWeeks)
	for i := 0; i < e.cfg.RecentWeeks; i++ {
		recentKeys = append(recentKeys, normalize.WeekKey(normalize.AddDays(weekStart, -7*i)))
		prevKeys = append(prevKeys, normalize.WeekKey(normalize.AddDays(weekStart, -7*(i+e.cfg.RecentWeeks))))
	}

	type mover struct {
		ts        *QueryTimeSeries
		recent    int64
		prev      int64
		changePct float64
	}
	var rising, declining []mover

	for _, ts := range series {
		if ts.Volume < int64(e.cfg.MinVolume) {
			continue
		}
		var recent, prev int64
		for _, k := range recentKeys {
			recent += ts.Weekly[k]
		}
		for _, k := range prevKeys {
			prev += ts.Weekly[k]
		}

		changePct := scoring.PercentChange(float64(recent), float64(prev))
		switch {
		case changePct > e.cfg.VelocityThresholdPct:
			rising = append(rising, mover{ts, recent, prev, changePct})
		case changePct < -e.cfg.VelocityThresholdPct:
			declining = append(declining, mover{ts, recent, prev, changePct})
		}
	}

	byMagnitude := func(movers []mover) func(i, j int) bool {
		return func(i, j int) bool {
			return math.Abs(movers[i].changePct) > math.Abs(movers[j].changePct)
		}
	}
	sort.SliceStable(rising, byMagnitude(rising))
	sort.SliceStable(declining, byMagnitude(declining))
	rising = capMovers(rising, e.cfg.MaxPerType)
	declining = capMovers(declining, e.cfg.MaxPerType)

	var insights []models.Insight
	for _, m := range rising {
		insights = append(insights, models.Insight{
			CTAType:    models.CTAPromoteThisTheme,
			EntityType: models.EntityQuery,
			EntityKey:  m.ts.Query,
			Confidence: capBelow(scoring.Confidence(m.ts.Volume, m.changePct), risingConfidenceCap),
			Evidence: marshalEvidence(VelocityEvidence{
				Query: m.ts.Display, Volume: m.ts.Volume,
				RecentVol: m.recent, PrevVol: m.prev,
				ChangePct: m.changePct, WindowWeeks: e.cfg.RecentWeeks,
			}),
			RecommendedAction: fmt.Sprintf("Searches for %q are accelerating. Put it front and center while the momentum lasts.", m.ts.Display),
		})
	}
	for _, m := range declining {
		insights = append(insights, models.Insight{
			CTAType:    models.CTAFixThisIssue,
			EntityType: models.EntityQuery,
			EntityKey:  m.ts.Query,
			Confidence: capBelow(scoring.Confidence(m.ts.Volume, m.changePct), decliningConfidenceCap),
			Evidence: marshalEvidence(VelocityEvidence{
				Query: m.ts.Display, Volume: m.ts.Volume,
				RecentVol: m.recent, PrevVol: m.prev,
				ChangePct: m.changePct, WindowWeeks: e.cfg.RecentWeeks,
			}),
			RecommendedAction: fmt.Sprintf("Interest in %q is fading. Check availability, pricing and placement before the demand is gone.", m.ts.Display),
		})
	}
	return insights
}

func capMovers[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// capBelow keeps v strictly under ceiling. Saturated confidence scores
// would otherwise land exactly on the heuristic's cap.
func capBelow(v, ceiling float64) float64 {
	if v >= ceiling {
		return math.Nextafter(ceiling, 0)
	}
	return v
}

// detectSeasonal intersects each query's spike months with the commerce
// calendar on both axes: the query must mention an event's keyword and
// spike in an event month. One insight per calendar event survives.
func (e *Engine) detectSeasonal(series []*QueryTimeSeries) []models.Insight {
	bestPerEvent := make(map[string]models.Insight)

	for _, ts := range series {
		if ts.Volume < 2*int64(e.cfg.MinVolume) || len(ts.Monthly) == 0 {
			continue
		}
		avgMonthly := float64(ts.Volume) / float64(len(ts.Monthly))
		if avgMonthly < 2 {
			continue
		}

		var spikeMonths []string
		spikeMonthSet := make(map[time.Month]bool)
		var maxSpikePct float64
		for key, count := range ts.Monthly {
			if float64(count) <= 2*avgMonthly {
				continue
			}
			spikeMonths = append(spikeMonths, key)
			if m, ok := parseMonthKey(key); ok {
				spikeMonthSet[m] = true
			}
			if pct := (float64(count)/avgMonthly - 1) * 100; pct > maxSpikePct {
				maxSpikePct = pct
			}
		}
		if len(spikeMonths) == 0 {
			continue
		}
		sort.Strings(spikeMonths)

		for _, event := range normalize.MatchEvents(ts.Query) {
			aligned := false
			for _, m := range event.Months {
				if spikeMonthSet[m] {
					aligned = true
					break
				}
			}
			if !aligned {
				continue
			}

			insight := models.Insight{
				CTAType:    models.CTAPromoteThisTheme,
				EntityType: models.EntityTopic,
				EntityKey:  event.Name,
				Confidence: scoring.Confidence(ts.Volume, maxSpikePct),
				Evidence: marshalEvidence(SeasonalEvidence{
					Query: ts.Display, Event: event.Name,
					Volume: ts.Volume, SpikeMonths: spikeMonths, SpikePct: maxSpikePct,
				}),
				RecommendedAction: fmt.Sprintf("Demand around %s is seasonal and predictable (e.g. %q). Prepare a themed collection ahead of it.", event.Name, ts.Display),
			}
			if prev, ok := bestPerEvent[event.Name]; !ok || insight.Confidence > prev.Confidence {
				bestPerEvent[event.Name] = insight
			}
		}
	}

	insights := make([]models.Insight, 0, len(bestPerEvent))
	for _, ins := range bestPerEvent {
		insights = append(insights, ins)
	}
	sort.SliceStable(insights, func(i, j int) bool {
		if insights[i].Confidence != insights[j].Confidence {
			return insights[i].Confidence > insights[j].Confidence
		}
		return insights[i].EntityKey < insights[j].EntityKey
	})
	return capMovers(insights, e.cfg.MaxPerType)
}

// detectPeakHours sums the hourly histograms of every qualifying query
// and slides a wrapping 3-hour window over the result. Exactly one
// insight names the busiest window and its share of total traffic.
func (e *Engine) detectPeakHours(series []*QueryTimeSeries) []models.Insight {
	var hourly [24]int64
	var total int64
	for _, ts := range series {
		if ts.Volume < int64(e.cfg.MinVolume) {
			continue
		}
		for h, v := range ts.Hourly {
			hourly[h] += v
			total += v
		}
	}
	if total == 0 {
		return nil
	}

	bestStart, bestVolume := 0, int64(-1)
	for start := 0; start < 24; start++ {
		var windowVolume int64
		for offset := 0; offset < peakWindowHours; offset++ {
			windowVolume += hourly[(start+offset)%24]
		}
		if windowVolume > bestVolume {
			bestStart, bestVolume = start, windowVolume
		}
	}

	endHour := (bestStart + peakWindowHours) % 24
	sharePct := float64(bestVolume) / float64(total) * 100
	window := fmt.Sprintf("%02d:00-%02d:00", bestStart, endHour)

	return []models.Insight{{
		CTAType:    models.CTATalkAboutThis,
		EntityType: models.EntityTopic,
		EntityKey:  "peak-hours-" + window,
		Confidence: scoring.Confidence(bestVolume, sharePct),
		Evidence: marshalEvidence(PeakHoursEvidence{
			StartHour: bestStart, EndHour: endHour,
			Volume: bestVolume, SharePct: sharePct,
		}),
		RecommendedAction: fmt.Sprintf("%.0f%% of search traffic lands between %s UTC. Schedule campaigns, posts and flash offers for that window.", sharePct, window),
	}}
}

// detectEmerging surfaces queries that appeared recently and already
// carry volume.
func (e *Engine) detectEmerging(series []*QueryTimeSeries, now time.Time) []models.Insight {
	maxAge := time.Duration(e.cfg.EmergingMaxWeeks) * 7 * 24 * time.Hour

	var emerging []*QueryTimeSeries
	for _, ts := range series {
		if ts.Volume < int64(e.cfg.EmergingMinVolume) {
			continue
		}
		if now.Sub(ts.FirstSeen) > maxAge {
			continue
		}
		emerging = append(emerging, ts)
	}
	sort.SliceStable(emerging, func(i, j int) bool {
		return emerging[i].Volume > emerging[j].Volume
	})
	emerging = capMovers(emerging, e.cfg.MaxPerType)

	insights := make([]models.Insight, 0, len(emerging))
	for _, ts := range emerging {
		ageWeeks := now.Sub(ts.FirstSeen).Hours() / (24 * 7)
		// Newer arrivals score a larger effect: a week-old query at this
		// volume is a stronger tell than one near the age cutoff.
		effectPct := (1 - ageWeeks/float64(e.cfg.EmergingMaxWeeks)) * 100
		insights = append(insights, models.Insight{
			CTAType:    models.CTAPromoteThisTheme,
			EntityType: models.EntityQuery,
			EntityKey:  ts.Query,
			Confidence: scoring.Confidence(ts.Volume, effectPct),
			Evidence: marshalEvidence(EmergingEvidence{
				Query: ts.Display, Volume: ts.Volume,
				FirstSeen: ts.FirstSeen, AgeWeeks: ageWeeks,
			}),
			RecommendedAction: fmt.Sprintf("%q is a brand-new search with real volume. Stock it, name it and ride the wave early.", ts.Display),
		})
	}
	return insights
}

// detectEvergreen finds queries holding a steady share of global search
// volume month after month. Share of voice is only computed for months
// with enough global traffic to make a ratio meaningful.
func (e *Engine) detectEvergreen(series []*QueryTimeSeries) []models.Insight {
	globalMonthly := make(map[string]int64)
	for _, ts := range series {
		for key, count := range ts.Monthly {
			globalMonthly[key] += count
		}
	}

	type leader struct {
		ts       *QueryTimeSeries
		months   int
		avgShare float64
		cv       float64
	}
	var leaders []leader

	for _, ts := range series {
		if ts.Volume < 5*int64(e.cfg.MinVolume) {
			continue
		}

		var shares []float64
		for key, count := range ts.Monthly {
			if global := globalMonthly[key]; global > evergreenMinGlobalMonthly {
				shares = append(shares, float64(count)/float64(global))
			}
		}
		if len(shares) < 3 {
			continue
		}

		mean, stddev := meanStddev(shares)
		if mean <= 0 {
			continue
		}
		cv := stddev / mean
		if cv >= evergreenMaxCV {
			continue
		}
		leaders = append(leaders, leader{ts, len(shares), mean * 100, cv})
	}

	sort.SliceStable(leaders, func(i, j int) bool {
		return leaders[i].ts.Volume > leaders[j].ts.Volume
	})
	leaders = capMovers(leaders, e.cfg.MaxPerType)

	insights := make([]models.Insight, 0, len(leaders))
	for _, l := range leaders {
		// Consistency is the effect: a flat share series scores higher
		// than one near the CV bound.
		effectPct := (1 - l.cv/evergreenMaxCV) * 100
		insights = append(insights, models.Insight{
			CTAType:    models.CTAPromoteThisTheme,
			EntityType: models.EntityQuery,
			EntityKey:  l.ts.Query,
			Confidence: scoring.Confidence(l.ts.Volume, effectPct),
			Evidence: marshalEvidence(EvergreenEvidence{
				Query: l.ts.Display, Volume: l.ts.Volume,
				Months: l.months, AvgSharePct: l.avgShare, CV: l.cv,
			}),
			RecommendedAction: fmt.Sprintf("%q holds a steady %.1f%% of searches month after month. Keep it stocked and give it permanent shelf space.", l.ts.Display, l.avgShare),
		})
	}
	return insights
}

func meanStddev(values []float64) (mean, stddev float64) {
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}

// parseMonthKey converts "2026-02" into its calendar month.
func parseMonthKey(key string) (time.Month, bool) {
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return 0, false
	}
	return t.Month(), true
}

// marshalEvidence serializes an evidence snapshot, degrading to nil on
// failure: evidence is display data, never load-bearing.
func marshalEvidence(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}
