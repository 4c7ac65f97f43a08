// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

/*
Package eventstore reads raw behavioral events and catalog data from the
MongoDB store shared with the storefront platform.

Event documents are heterogeneous: a decade of producers wrote timestamps,
query text, product ids and revenue under different names and encodings.
Every logical field is therefore read through an ordered accessor list
(fields.go) that tries each historical variant in a fixed order, and week
window filters accept every stored timestamp representation at once
(filter.go). Records whose timestamp cannot be recognized are skipped and
counted, never fatal.

All reads go through a shared circuit breaker and rate limiter; this
engine is a guest on a production database. Catalog reads additionally
fall back to a local Badger snapshot from a previous successful read, so
a catalog outage degrades a run instead of failing it.
*/
package eventstore
