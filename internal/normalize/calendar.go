// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package normalize

import (
	"time"

	"github.com/vinsight/vinsight/internal/match"
)

// CalendarEvent is a recurring commerce moment with the calendar months it
// lands in and the query keywords shoppers use around it. The trends engine
// intersects a query's seasonal spike months with these tables to name the
// event driving the spike.
type CalendarEvent struct {
	Name     string
	Months   []time.Month
	Keywords []string
}

// CalendarEvents is the fixed event table. Months cover the shopping
// run-up, not just the holiday itself; lunisolar holidays span the two
// Gregorian months they drift across.
var CalendarEvents = []CalendarEvent{
	{
		Name:     "rosh-hashanah",
		Months:   []time.Month{time.September, time.October},
		Keywords: []string{"rosh hashana", "rosh hashanah", "shana tova", "ראש השנה", "שנה טובה", "חג"},
	},
	{
		Name:     "passover",
		Months:   []time.Month{time.March, time.April},
		Keywords: []string{"passover", "pesach", "seder", "פסח", "ליל הסדר", "כשר לפסח"},
	},
	{
		Name:     "purim",
		Months:   []time.Month{time.February, time.March},
		Keywords: []string{"purim", "mishloach manot", "פורים", "משלוח מנות"},
	},
	{
		Name:     "hanukkah",
		Months:   []time.Month{time.November, time.December},
		Keywords: []string{"hanukkah", "chanukah", "חנוכה"},
	},
	{
		Name:     "shavuot",
		Months:   []time.Month{time.May, time.June},
		Keywords: []string{"shavuot", "שבועות"},
	},
	{
		Name:     "tu-bav",
		Months:   []time.Month{time.July, time.August},
		Keywords: []string{"tu bav", "טו באב", "יום האהבה"},
	},
	{
		Name:     "valentines-day",
		Months:   []time.Month{time.February},
		Keywords: []string{"valentine", "valentines", "ולנטיין"},
	},
	{
		Name:     "independence-day",
		Months:   []time.Month{time.April, time.May},
		Keywords: []string{"independence day", "bbq", "barbecue", "יום העצמאות", "מנגל", "על האש"},
	},
	{
		Name:     "black-friday",
		Months:   []time.Month{time.November},
		Keywords: []string{"black friday", "בלאק פריידי"},
	},
	{
		Name:     "new-year",
		Months:   []time.Month{time.December, time.January},
		Keywords: []string{"new year", "sylvester", "סילבסטר", "שנה חדשה"},
	},
}

var calendarMatcher = newCalendarMatcher()

func newCalendarMatcher() *match.Matcher {
	var patterns []match.Pattern
	for i, ev := range CalendarEvents {
		for _, kw := range ev.Keywords {
			patterns = append(patterns, match.Pattern{Text: Query(kw), Data: i})
		}
	}
	return match.NewMatcher(patterns...)
}

// MatchEvents returns the calendar events whose keywords occur in the
// normalized query, deduplicated, in keyword scan order. Most queries
// return nil.
func MatchEvents(normalizedQuery string) []CalendarEvent {
	if normalizedQuery == "" {
		return nil
	}
	var events []CalendarEvent
	seen := make(map[int]bool)
	for _, m := range calendarMatcher.Search(normalizedQuery) {
		idx, ok := m.Data.(int)
		if !ok || seen[idx] {
			continue
		}
		seen[idx] = true
		events = append(events, CalendarEvents[idx])
	}
	return events
}

// InMonth reports whether the event is active in the given calendar month.
func (e CalendarEvent) InMonth(m time.Month) bool {
	for _, em := range e.Months {
		if em == m {
			return true
		}
	}
	return false
}
