// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

/*
Package aggregation turns one store-week of raw behavioral events into the
three persisted aggregate tables the rest of the pipeline reads.

A run fetches searches, clicks and purchases for the target week and the
week before it, groups them by normalized query, and derives the funnel
per query (searches, clicks, purchases, CTR, conversion rate, average
results count, week-over-week delta). Query rows roll up into topic rows
through the catalog-aware classifier, and click/purchase product ids roll
up into product rows guarded against products the catalog no longer
knows.

Stores with no search tracking get the implicit-search fallback: when a
week window contains zero explicit search events, every click counts as a
search, so the funnel still surfaces what shoppers wanted.

All writes are idempotent upserts keyed by (store, week, entity);
re-running a week converges instead of doubling.
*/
package aggregation
