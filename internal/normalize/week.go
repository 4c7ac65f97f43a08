// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package normalize

import (
	"fmt"
	"time"
)

// StartOfWeek returns the Monday 00:00:00 UTC boundary of the ISO week
// containing t. Aggregation, detection and decision all key their rows on
// this instant, so it is the only week-truncation function in the engine.
func StartOfWeek(t time.Time) time.Time {
	t = t.UTC()
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	year, month, day := t.Date()
	monday := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return monday.AddDate(0, 0, -daysSinceMonday)
}

// AddDays shifts t by n whole days in UTC. Shifting a week boundary keeps
// it a week boundary: AddDays(StartOfWeek(t), -7) is the previous week.
func AddDays(t time.Time, n int) time.Time {
	return t.UTC().AddDate(0, 0, n)
}

// WeekKey formats the ISO-8601 week of t, for example "2026-W08".
// Keys sort lexicographically in chronological order.
func WeekKey(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// MonthKey formats the UTC calendar month of t, for example "2026-02".
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// ParseWeek parses a YYYY-MM-DD date string and truncates it to its week
// boundary. Any day within a week selects that week.
func ParseWeek(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid week date %q: %w", s, err)
	}
	return StartOfWeek(t), nil
}
