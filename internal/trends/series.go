// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package trends

import (
	"time"

	"github.com/vinsight/vinsight/internal/models"
	"github.com/vinsight/vinsight/internal/normalize"
)

// QueryTimeSeries is the derived search history of one normalized query.
// It lives only for the duration of a run; nothing here is persisted.
type QueryTimeSeries struct {
	// Query is the normalized form; Display the most frequent raw
	// spelling, kept for merchant-facing output.
	Query   string
	Display string

	Volume    int64
	FirstSeen time.Time
	LastSeen  time.Time

	// Weekly and Monthly are histograms keyed by ISO-week ("2026-W07")
	// and month ("2026-02"). Hourly buckets by UTC hour of day.
	Weekly  map[string]int64
	Monthly map[string]int64
	Hourly  [24]int64
}

// seriesBuilder accumulates one run's event stream into per-query time
// series. It is created per run and discarded with it.
type seriesBuilder struct {
	series map[string]*QueryTimeSeries

	// rawCounts tracks spellings per normalized query so the most
	// frequent one can be elected as the display form.
	rawCounts map[string]map[string]int64

	// weeks is the global set of week buckets seen across all queries;
	// velocity eligibility depends on its size.
	weeks map[string]struct{}

	skipped int
}

func newSeriesBuilder() *seriesBuilder {
	return &seriesBuilder{
		series:    make(map[string]*QueryTimeSeries),
		rawCounts: make(map[string]map[string]int64),
		weeks:     make(map[string]struct{}),
	}
}

// add folds one search event into the builder. Events whose query
// normalizes to nothing are counted as skipped and otherwise ignored.
func (b *seriesBuilder) add(event *models.RawEvent) {
	query := normalize.Query(event.Query)
	if query == "" {
		b.skipped++
		return
	}
	at := event.Time.UTC()

	ts, ok := b.series[query]
	if !ok {
		ts = &QueryTimeSeries{
			Query:     query,
			FirstSeen: at,
			LastSeen:  at,
			Weekly:    make(map[string]int64),
			Monthly:   make(map[string]int64),
		}
		b.series[query] = ts
		b.rawCounts[query] = make(map[string]int64)
	}

	ts.Volume++
	if at.Before(ts.FirstSeen) {
		ts.FirstSeen = at
	}
	if at.After(ts.LastSeen) {
		ts.LastSeen = at
	}

	week := normalize.WeekKey(normalize.StartOfWeek(at))
	ts.Weekly[week]++
	b.weeks[week] = struct{}{}
	ts.Monthly[normalize.MonthKey(at)]++
	ts.Hourly[at.Hour()]++

	b.rawCounts[query][event.Query]++
}

// build finalizes the series set, electing each query's display form.
// Ties on spelling frequency break lexicographically so runs over the
// same events produce identical output.
func (b *seriesBuilder) build() []*QueryTimeSeries {
	out := make([]*QueryTimeSeries, 0, len(b.series))
	for query, ts := range b.series {
		var (
			bestRaw   string
			bestCount int64
		)
		for raw, count := range b.rawCounts[query] {
			if count > bestCount || (count == bestCount && raw < bestRaw) {
				bestRaw, bestCount = raw, count
			}
		}
		ts.Display = bestRaw
		out = append(out, ts)
	}
	return out
}

// distinctWeeks is the number of week buckets observed globally.
func (b *seriesBuilder) distinctWeeks() int {
	return len(b.weeks)
}
