// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

// Package normalize canonicalizes the raw storefront vocabulary the insight
// engine aggregates over: free-text search queries, week boundaries, topic
// labels and calendar-event keywords.
//
// Every grouping key in the pipeline flows through Query first, so two
// renderings of the same intent ("Merlot ", "merlot", "מרלו?") land in the
// same aggregate bucket. Week arithmetic is fixed to ISO weeks starting
// Monday 00:00 UTC; all stages share these helpers so that "this week" and
// "previous week" mean the same instant everywhere.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Query canonicalizes a raw search query for use as a grouping key.
//
// The text is NFKD-decomposed, combining marks are stripped (Latin
// diacritics, Hebrew niqqud and cantillation), Latin letters are lowercased,
// and only Hebrew-block runes, a-z, digits and spaces survive. Runs of
// whitespace collapse to a single space and the result is trimmed.
// Queries that normalize to the empty string are dropped by callers.
func Query(raw string) string {
	if raw == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(raw))
	pendingSpace := false

	for _, r := range norm.NFKD.String(raw) {
		switch {
		case unicode.Is(unicode.Mn, r):
			// combining marks stripped after decomposition
		case unicode.IsSpace(r):
			if b.Len() > 0 {
				pendingSpace = true
			}
		case keepRune(r):
			if pendingSpace {
				b.WriteByte(' ')
				pendingSpace = false
			}
			b.WriteRune(foldRune(r))
		}
	}
	return b.String()
}

// keepRune reports whether r survives normalization: Hebrew block,
// Latin letters, ASCII digits.
func keepRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r >= 0x0590 && r <= 0x05FF:
		return true
	}
	return false
}

func foldRune(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}
