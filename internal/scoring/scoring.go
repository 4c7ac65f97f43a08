// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

// Package scoring holds the two scalar formulas every pipeline stage shares:
// the evidence-volume confidence score and the week-over-week percent delta.
// Detection, decision and trends must agree on these numbers, so they live
// here and nowhere else.
package scoring

import "math"

// NewGrowthSentinel is the percent-change value reported when an entity
// grows from zero. Growth from nothing has no finite percentage; callers
// treat the sentinel as "new this week" and it deliberately saturates any
// magnitude cap applied downstream.
const NewGrowthSentinel = 999.0

// Confidence blends evidence volume and effect size into a 0..1 score:
// 60% from volume on a log10 scale that saturates at 1000 events, 40% from
// the absolute effect percentage saturating at 100%.
//
// The volume term makes 10 events worth a third of 1000; the effect term
// treats a 100% swing as maximal. Both terms clamp before blending so the
// result is always within [0, 1].
func Confidence(volume int64, effectPct float64) float64 {
	if volume < 1 {
		volume = 1
	}
	volumeTerm := clamp01(math.Log10(float64(volume)) / 3)
	effectTerm := clamp01(math.Abs(effectPct) / 100)
	return clamp01(0.6*volumeTerm + 0.4*effectTerm)
}

// PercentChange returns the percent delta from prev to cur.
//
// Both sides zero (or negative, which cannot occur for counts) yields 0:
// no change. Growth from zero yields NewGrowthSentinel. Otherwise the
// ordinary (cur-prev)/prev*100, which may be negative.
func PercentChange(cur, prev float64) float64 {
	if cur <= 0 && prev <= 0 {
		return 0
	}
	if prev <= 0 {
		return NewGrowthSentinel
	}
	return (cur - prev) / prev * 100
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
