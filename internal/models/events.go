// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package models

import "time"

// EventKind identifies the behavioral event streams the engine reads.
type EventKind string

const (
	EventSearch   EventKind = "search"
	EventClick    EventKind = "click"
	EventPurchase EventKind = "purchase"
)

// EventKinds lists all streams in fetch order.
var EventKinds = []EventKind{EventSearch, EventClick, EventPurchase}

// RawEvent is one shopper action after forgiving field extraction from the
// event store. Time is always populated; records whose timestamp could not
// be recognized are dropped at read time. The remaining fields are
// populated per kind: Query for searches and attributed clicks/purchases,
// ProductID for clicks and purchases, RevenueCents and ResultsCount where
// the source document carried them (zero otherwise).
type RawEvent struct {
	Kind         EventKind `json:"kind"`
	StoreID      string    `json:"store_id"`
	Time         time.Time `json:"time"`
	Query        string    `json:"query,omitempty"`
	ProductID    string    `json:"product_id,omitempty"`
	RevenueCents int64     `json:"revenue_cents,omitempty"`
	ResultsCount float64   `json:"results_count,omitempty"`
}

// CatalogSnapshot is the slice of a store's product catalog the pipeline
// needs: product identity for referential guards, entity names for topic
// classification, and whether anything is in stock for the push guardrail.
// Snapshots are cached locally so a catalog outage degrades to slightly
// stale data instead of a failed run.
type CatalogSnapshot struct {
	StoreID     string    `json:"store_id"`
	ProductIDs  []string  `json:"product_ids"`
	EntityNames []string  `json:"entity_names"`
	HasInStock  bool      `json:"has_in_stock"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// ProductSet returns the catalog's product IDs as a set. Aggregation uses
// it as the referential guard that drops rollups for products no longer in
// the catalog.
func (c *CatalogSnapshot) ProductSet() map[string]struct{} {
	if c == nil {
		return nil
	}
	set := make(map[string]struct{}, len(c.ProductIDs))
	for _, id := range c.ProductIDs {
		set[id] = struct{}{}
	}
	return set
}
