// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package aggregation

import (
	"time"

	"github.com/vinsight/vinsight/internal/models"
	"github.com/vinsight/vinsight/internal/normalize"
	"github.com/vinsight/vinsight/internal/scoring"
)

// queryTally accumulates one normalized query's funnel for one week.
// searches counts explicit search events only; the implicit-click
// fallback is applied at read time via weekGroups.searches.
type queryTally struct {
	searches   int64
	clicks     int64
	purchases  int64
	resultsSum float64
}

// productTally accumulates one product's engagement for one week.
type productTally struct {
	views        int64
	purchases    int64
	revenueCents int64
}

// weekGroups is the grouped view of one week window's events.
type weekGroups struct {
	queries  map[string]*queryTally
	products map[string]*productTally

	// explicitSearches is the window-wide count of real search events.
	// Zero activates the implicit-click fallback for the whole window.
	explicitSearches int64

	// skippedEmpty counts events whose query normalized to nothing.
	skippedEmpty int
}

// groupWeek groups one week's raw events by normalized query and by
// product. Search events with an empty normalized query are dropped;
// clicks and purchases keep their product contribution even when their
// query is unusable.
func groupWeek(events []models.RawEvent) *weekGroups {
	g := &weekGroups{
		queries:  make(map[string]*queryTally),
		products: make(map[string]*productTally),
	}

	for i := range events {
		e := &events[i]
		query := normalize.Query(e.Query)

		switch e.Kind {
		case models.EventSearch:
			if query == "" {
				g.skippedEmpty++
				continue
			}
			t := g.query(query)
			t.searches++
			t.resultsSum += e.ResultsCount
			g.explicitSearches++

		case models.EventClick:
			if e.ProductID != "" {
				g.product(e.ProductID).views++
			}
			if query != "" {
				g.query(query).clicks++
			}

		case models.EventPurchase:
			if e.ProductID != "" {
				p := g.product(e.ProductID)
				p.purchases++
				p.revenueCents += e.RevenueCents
			}
			if query != "" {
				g.query(query).purchases++
			}
		}
	}

	return g
}

func (g *weekGroups) query(q string) *queryTally {
	t, ok := g.queries[q]
	if !ok {
		t = &queryTally{}
		g.queries[q] = t
	}
	return t
}

func (g *weekGroups) product(id string) *productTally {
	t, ok := g.products[id]
	if !ok {
		t = &productTally{}
		g.products[id] = t
	}
	return t
}

// fallbackActive reports whether the implicit-click fallback applies to
// this window: no explicit search tracking at all.
func (g *weekGroups) fallbackActive() bool {
	return g.explicitSearches == 0
}

// searches returns one query's effective search count, substituting
// clicks when the fallback is active.
func (g *weekGroups) searches(q string) int64 {
	t, ok := g.queries[q]
	if !ok {
		return 0
	}
	if g.fallbackActive() {
		return t.clicks
	}
	return t.searches
}

// buildQueryAggregates derives the persisted query rows for every query
// with any current-week activity.
func buildQueryAggregates(storeID string, weekStart time.Time, cur, prev *weekGroups) []models.QueryAggregate {
	aggs := make([]models.QueryAggregate, 0, len(cur.queries))

	for query, tally := range cur.queries {
		searches := cur.searches(query)

		var ctr, conversion float64
		if searches > 0 {
			ctr = float64(tally.clicks) / float64(searches)
			conversion = float64(tally.purchases) / float64(searches)
		}

		// Average results only over explicit searches; implicit clicks
		// carry no results information.
		var avgResults float64
		if tally.searches > 0 {
			avgResults = tally.resultsSum / float64(tally.searches)
		}

		aggs = append(aggs, models.QueryAggregate{
			StoreID:         storeID,
			WeekStart:       weekStart,
			Query:           query,
			Searches:        searches,
			Clicks:          tally.clicks,
			Purchases:       tally.purchases,
			CTR:             ctr,
			ConversionRate:  conversion,
			DeltaWoW:        scoring.PercentChange(float64(searches), float64(prev.searches(query))),
			AvgResultsCount: avgResults,
		})
	}

	return aggs
}

// buildTopicAggregates rolls query search volume up to topics with the
// classifier and computes topic deltas against the same rollup of the
// previous week.
func buildTopicAggregates(storeID string, weekStart time.Time, classifier *normalize.Classifier, cur, prev *weekGroups) []models.TopicAggregate {
	curTopics := topicSearchCounts(classifier, cur)
	prevTopics := topicSearchCounts(classifier, prev)

	aggs := make([]models.TopicAggregate, 0, len(curTopics))
	for topic, searches := range curTopics {
		aggs = append(aggs, models.TopicAggregate{
			StoreID:   storeID,
			WeekStart: weekStart,
			Topic:     topic,
			Searches:  searches,
			DeltaWoW:  scoring.PercentChange(float64(searches), float64(prevTopics[topic])),
		})
	}

	return aggs
}

func topicSearchCounts(classifier *normalize.Classifier, g *weekGroups) map[string]int64 {
	counts := make(map[string]int64, len(g.queries))
	for query := range g.queries {
		counts[classifier.Classify(query)] += g.searches(query)
	}
	return counts
}

// buildProductAggregates derives the persisted product rows. productSet
// is the referential guard: when the catalog is known, rows for unknown
// products are dropped rather than force-created. A nil set (catalog
// unavailable) bypasses the guard; wiping product analytics on a catalog
// outage would poison next week's deltas.
func buildProductAggregates(storeID string, weekStart time.Time, cur, prev *weekGroups, productSet map[string]struct{}) []models.ProductAggregate {
	aggs := make([]models.ProductAggregate, 0, len(cur.products))

	for productID, tally := range cur.products {
		if productSet != nil {
			if _, known := productSet[productID]; !known {
				continue
			}
		}

		var prevViews int64
		if prevTally, ok := prev.products[productID]; ok {
			prevViews = prevTally.views
		}

		aggs = append(aggs, models.ProductAggregate{
			StoreID:      storeID,
			WeekStart:    weekStart,
			ProductID:    productID,
			Views:        tally.views,
			Purchases:    tally.purchases,
			RevenueCents: tally.revenueCents,
			DeltaWoW:     scoring.PercentChange(float64(tally.views), float64(prevViews)),
		})
	}

	return aggs
}
