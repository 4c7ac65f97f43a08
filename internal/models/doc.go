// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

/*
Package models defines the data structures shared across the Vinsight
pipeline stages and API.

The pipeline carries four shapes of data, in order of refinement:

 1. RawEvent: a single shopper action (search, click, purchase) read from
    the behavioral event store, after forgiving field extraction.
 2. Aggregates: weekly per-store rollups keyed by normalized query, topic
    or product (QueryAggregate, TopicAggregate, ProductAggregate).
 3. Signal: a detected anomaly over one aggregate row, with typed evidence
    serialized alongside it.
 4. Insight: a prioritized call-to-action selected from signals (channel
    "store") or mined from long-range query history (channel "trends").

All week fields hold Monday 00:00 UTC boundaries produced by the normalize
package. Evidence payloads are JSON so that each signal type can carry its
own fields without schema churn.
*/
package models
