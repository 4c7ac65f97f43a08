// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

/*
Package database provides the DuckDB-backed insight store.

DuckDB holds everything the pipeline derives from raw behavioral events:
weekly aggregates, detector signals, published insights and the per-entity
cooldown ledger. Raw events never land here; they stay in the merchant's
event store and are re-read on demand.

Tables:
  - stores: known store identifiers and their last completed run
  - query_aggregates: per (store, week, normalized query) search metrics
  - topic_aggregates: per (store, week, topic) rollups
  - product_aggregates: per (store, week, product) view and revenue metrics
  - signals: detector output, unique per (store, week, type, entity)
  - insights: published CTAs for both the store and trends channels,
    unique per (store, week, cta_type, entity)
  - insight_cooldowns: last time each entity produced an insight

Write Strategy:
Aggregates and signals are idempotent upserts keyed on their natural keys,
so re-running a week replaces that week's derived rows without touching
neighbors. Insights for the trends channel are replaced wholesale per run;
store-channel insights are written one transaction per insight together
with their cooldown row, so a crash cannot publish an insight without
arming its cooldown.

Evidence columns store the JSON snapshot that justified the row, as TEXT.
DuckDB's JSON extension is not required to read it back.
*/
package database
