// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

/*
Package decision turns a store-week's signals into the small set of
insights a merchant actually sees.

The stage is a filter and ranker, never a generator: every insight it
writes corresponds to a signal detection already emitted. Candidates are
re-checked against the volume floor, dropped while their entity is on
cooldown, mapped to a call-to-action (demand spikes are suppressed
entirely when the store has nothing in stock), deduplicated per entity
keeping the strongest, and ranked by a priority score that weighs
confidence, capped effect size and volume. The top few survive, capped
by MaxCTAsPerWeek.

Each selected insight is persisted together with its cooldown update in
one transaction, so an entity is never marked selected without starting
its suppression window.
*/
package decision
