// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package normalize

import (
	"strings"
	"testing"
	"unicode"
)

func TestQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "lowercases latin",
			raw:  "MERLOT Reserve",
			want: "merlot reserve",
		},
		{
			name: "strips latin diacritics",
			raw:  "Côtes du Rhône rosé",
			want: "cotes du rhone rose",
		},
		{
			name: "strips hebrew niqqud",
			raw:  "יַיִן אָדֹם",
			want: "יין אדם",
		},
		{
			name: "keeps digits",
			raw:  "Cabernet 2019",
			want: "cabernet 2019",
		},
		{
			name: "drops punctuation without splitting words",
			raw:  "don't",
			want: "dont",
		},
		{
			name: "collapses whitespace runs",
			raw:  "  red \t wine \n sale  ",
			want: "red wine sale",
		},
		{
			name: "mixed hebrew and latin",
			raw:  "  יין Merlot מבצע!! ",
			want: "יין merlot מבצע",
		},
		{
			name: "drops emoji and symbols",
			raw:  "🍷 wine & cheese",
			want: "wine cheese",
		},
		{
			name: "drops other scripts",
			raw:  "вино wine",
			want: "wine",
		},
		{
			name: "punctuation only normalizes to empty",
			raw:  "?!... --- ",
			want: "",
		},
		{
			name: "empty input",
			raw:  "",
			want: "",
		},
		{
			name: "compatibility decomposition folds width variants",
			raw:  "ｗｉｎｅ",
			want: "wine",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Query(tt.raw); got != tt.want {
				t.Errorf("Query(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestQueryIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{"Côtes du Rhône", "יַיִן אָדֹם 2020", "RED   wine", "מבצע"}
	for _, in := range inputs {
		once := Query(in)
		twice := Query(once)
		if once != twice {
			t.Errorf("Query not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

// FuzzQuery asserts the normalizer's output alphabet and shape invariants
// for arbitrary input: never panics, never emits uppercase Latin, combining
// marks, leading/trailing or doubled spaces, and is always idempotent.
func FuzzQuery(f *testing.F) {
	f.Add("Cabernet Sauvignon 2019")
	f.Add("יין אדום יבש")
	f.Add("יַיִן כָּשֵׁר")
	f.Add("  rosé   d'été  ")
	f.Add("🍷🍷🍷")
	f.Add("'; DROP TABLE insights; --")
	f.Add("\x00\x01\x02")
	f.Add(strings.Repeat("א", 4096))
	f.Add("ｗｉｎｅ ①②③")

	f.Fuzz(func(t *testing.T, raw string) {
		got := Query(raw)

		if strings.HasPrefix(got, " ") || strings.HasSuffix(got, " ") {
			t.Errorf("Query(%q) = %q has edge whitespace", raw, got)
		}
		if strings.Contains(got, "  ") {
			t.Errorf("Query(%q) = %q has doubled spaces", raw, got)
		}
		for _, r := range got {
			if r == ' ' {
				continue
			}
			if !keepRune(r) {
				t.Errorf("Query(%q) emitted disallowed rune %q", raw, r)
			}
			if r >= 'A' && r <= 'Z' {
				t.Errorf("Query(%q) emitted uppercase %q", raw, r)
			}
			if unicode.Is(unicode.Mn, r) {
				t.Errorf("Query(%q) emitted combining mark %q", raw, r)
			}
		}
		if again := Query(got); again != got {
			t.Errorf("Query(%q) not idempotent: %q then %q", raw, got, again)
		}
	})
}
