// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

/*
Package trends mines raw search history directly, without the weekly
per-store aggregation pipeline.

A run rebuilds an in-memory time series per normalized query (weekly,
monthly and hourly histograms plus first/last seen and the most frequent
raw spelling) and applies five independent heuristics:

  - velocity: queries rising or declining sharply across recent weeks
  - seasonal: queries whose spike months align with a commerce calendar
    event they also mention
  - peak hours: the 3-hour window where search traffic concentrates
  - emerging: queries first seen recently that already carry volume
  - evergreen: queries holding a steady share of voice month after month

Results are written to the insights table under the trends channel with
its own CTA taxonomy, replacing the previous trends set for the
store-week wholesale: the pipeline is a full recompute, never
incremental.
*/
package trends
