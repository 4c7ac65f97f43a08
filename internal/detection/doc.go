// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

/*
Package detection evaluates a store-week's aggregates against the signal
rules and persists the typed signals the decision stage ranks.

Three rules run, all gated on the same weekly volume floor:

  - SPIKE_DEMAND: search volume jumped week over week, for queries and
    for topics independently.
  - NO_RESULTS_SPIKE: a high-volume query averages zero results.
  - HIGH_INTEREST_LOW_CONVERSION: shoppers click a query's results at a
    healthy rate but almost never buy.

Rules are independent; one entity may carry several signal types in the
same week. Every signal gets a confidence from the shared scoring
function and an evidence snapshot holding the numbers that justified it.
Writes are idempotent upserts keyed by (store, week, type, entity), so
re-running detection supersedes rather than appends.
*/
package detection
