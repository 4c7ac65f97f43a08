// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package normalize

import (
	"testing"
	"time"
)

func TestStartOfWeek(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			name: "monday maps to itself",
			in:   time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC),
			want: time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "midweek truncates to monday",
			in:   time.Date(2026, 2, 19, 14, 30, 45, 123, time.UTC),
			want: time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "sunday belongs to the week that started six days earlier",
			in:   time.Date(2026, 2, 22, 23, 59, 59, 0, time.UTC),
			want: time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "year boundary week",
			in:   time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
			want: time.Date(2025, 12, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "non utc input converted first",
			in:   time.Date(2026, 2, 16, 1, 0, 0, 0, time.FixedZone("IST", 2*3600)),
			want: time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -6),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := StartOfWeek(tt.in)
			if !got.Equal(tt.want) {
				t.Errorf("StartOfWeek(%v) = %v, want %v", tt.in, got, tt.want)
			}
			if got.Location() != time.UTC {
				t.Errorf("StartOfWeek location = %v, want UTC", got.Location())
			}
		})
	}
}

func TestStartOfWeekIdempotent(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 3, 11, 9, 15, 0, 0, time.UTC)
	once := StartOfWeek(day)
	if twice := StartOfWeek(once); !twice.Equal(once) {
		t.Errorf("StartOfWeek not idempotent: %v then %v", once, twice)
	}
}

func TestAddDays(t *testing.T) {
	t.Parallel()

	week := time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC)
	prev := AddDays(week, -7)
	want := time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC)
	if !prev.Equal(want) {
		t.Errorf("AddDays(week, -7) = %v, want %v", prev, want)
	}
	if !StartOfWeek(prev).Equal(prev) {
		t.Error("shifting a week boundary by -7 days must stay a week boundary")
	}
}

func TestWeekKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   time.Time
		want string
	}{
		{time.Date(2026, 2, 19, 10, 0, 0, 0, time.UTC), "2026-W08"},
		{time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "2026-W01"},
		// 2024-12-30 is a Monday belonging to ISO week 1 of 2025.
		{time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC), "2025-W01"},
	}

	for _, tt := range tests {
		if got := WeekKey(tt.in); got != tt.want {
			t.Errorf("WeekKey(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMonthKey(t *testing.T) {
	t.Parallel()

	if got := MonthKey(time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)); got != "2026-02" {
		t.Errorf("MonthKey = %q, want %q", got, "2026-02")
	}
}

func TestParseWeek(t *testing.T) {
	t.Parallel()

	got, err := ParseWeek("2026-02-19")
	if err != nil {
		t.Fatalf("ParseWeek returned error: %v", err)
	}
	want := time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseWeek = %v, want %v", got, want)
	}

	if _, err := ParseWeek("19/02/2026"); err == nil {
		t.Error("ParseWeek accepted a malformed date")
	}
}
