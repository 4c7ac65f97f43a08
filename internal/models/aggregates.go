// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package models

import "time"

// QueryAggregate is the weekly funnel rollup for one normalized query in
// one store. CTR and ConversionRate are ratios over Searches (zero when
// Searches is zero). DeltaWoW is the percent change of Searches against
// the previous week; 999 marks growth from zero.
type QueryAggregate struct {
	StoreID         string    `json:"store_id"`
	WeekStart       time.Time `json:"week_start"`
	Query           string    `json:"query"`
	Searches        int64     `json:"searches"`
	Clicks          int64     `json:"clicks"`
	Purchases       int64     `json:"purchases"`
	CTR             float64   `json:"ctr"`
	ConversionRate  float64   `json:"conversion_rate"`
	DeltaWoW        float64   `json:"delta_wow"`
	AvgResultsCount float64   `json:"avg_results_count"`
}

// TopicAggregate rolls query search volume up to topic labels produced by
// the classifier, so demand shifts surface even when spread across many
// query variants.
type TopicAggregate struct {
	StoreID   string    `json:"store_id"`
	WeekStart time.Time `json:"week_start"`
	Topic     string    `json:"topic"`
	Searches  int64     `json:"searches"`
	DeltaWoW  float64   `json:"delta_wow"`
}

// ProductAggregate is the weekly engagement rollup for one catalog product:
// click views, purchase count and revenue, with DeltaWoW computed on views.
type ProductAggregate struct {
	StoreID      string    `json:"store_id"`
	WeekStart    time.Time `json:"week_start"`
	ProductID    string    `json:"product_id"`
	Views        int64     `json:"views"`
	Purchases    int64     `json:"purchases"`
	RevenueCents int64     `json:"revenue_cents"`
	DeltaWoW     float64   `json:"delta_wow"`
}
