// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package match

import (
	"sync"
	"testing"
)

func TestSearch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		keywords []string
		text     string
		want     []string
	}{
		{
			name:     "single match",
			keywords: []string{"merlot", "syrah"},
			text:     "dry merlot 2020",
			want:     []string{"merlot"},
		},
		{
			name:     "multiple matches in scan order",
			keywords: []string{"red", "wine"},
			text:     "red wine for dinner",
			want:     []string{"red", "wine"},
		},
		{
			name:     "nested patterns both reported",
			keywords: []string{"pinot", "pinot noir"},
			text:     "chilled pinot noir",
			want:     []string{"pinot", "pinot noir"},
		},
		{
			name:     "case insensitive",
			keywords: []string{"riesling"},
			text:     "Dry RIESLING Kabinett",
			want:     []string{"riesling"},
		},
		{
			name:     "hebrew keyword",
			keywords: []string{"יין אדום"},
			text:     "מבצע יין אדום יבש",
			want:     []string{"יין אדום"},
		},
		{
			name:     "no match",
			keywords: []string{"whisky"},
			text:     "sparkling rose",
			want:     nil,
		},
		{
			name:     "empty text",
			keywords: []string{"wine"},
			text:     "",
			want:     nil,
		},
		{
			name:     "overlapping suffix via failure links",
			keywords: []string{"shers", "hershey"},
			text:     "hershers",
			want:     []string{"shers"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := NewKeywordMatcher(tt.keywords)
			matches := m.Search(tt.text)

			if len(matches) != len(tt.want) {
				t.Fatalf("got %d matches, want %d: %+v", len(matches), len(tt.want), matches)
			}
			for i, match := range matches {
				if match.Pattern != tt.want[i] {
					t.Errorf("match[%d] = %q, want %q", i, match.Pattern, tt.want[i])
				}
			}
		})
	}
}

func TestSearchPositionsAreRuneOffsets(t *testing.T) {
	t.Parallel()

	// "יין" starts at rune 2 of the text; byte offsets would differ.
	m := NewKeywordMatcher([]string{"יין"})
	matches := m.Search("🍷 יין לבן")
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if matches[0].Position != 2 {
		t.Errorf("Position = %d, want 2", matches[0].Position)
	}
}

func TestLongest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		keywords []string
		text     string
		want     string
		wantOK   bool
	}{
		{
			name:     "longest wins over shorter",
			keywords: []string{"pinot", "pinot noir"},
			text:     "reserve pinot noir",
			want:     "pinot noir",
			wantOK:   true,
		},
		{
			name:     "tie broken by insertion order",
			keywords: []string{"rose", "cava"},
			text:     "cava rose brut",
			want:     "rose",
			wantOK:   true,
		},
		{
			name:     "rune length beats byte length",
			keywords: []string{"port", "יין מבעבע"},
			text:     "port יין מבעבע",
			want:     "יין מבעבע",
			wantOK:   true,
		},
		{
			name:     "no match",
			keywords: []string{"gin"},
			text:     "tonic water",
			want:     "",
			wantOK:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := NewKeywordMatcher(tt.keywords)
			got, ok := m.Longest(tt.text)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got.Pattern != tt.want {
				t.Errorf("Longest = %q, want %q", got.Pattern, tt.want)
			}
		})
	}
}

func TestLongestCarriesPatternData(t *testing.T) {
	t.Parallel()

	m := NewMatcher(
		Pattern{Text: "cabernet", Data: "red"},
		Pattern{Text: "chardonnay", Data: "white"},
	)
	got, ok := m.Longest("oaked chardonnay 2019")
	if !ok {
		t.Fatal("expected a match")
	}
	if got.Data != "white" {
		t.Errorf("Data = %v, want %q", got.Data, "white")
	}
}

func TestContains(t *testing.T) {
	t.Parallel()

	m := NewKeywordMatcher([]string{"gift", "מתנה"})

	if !m.Contains("wine gift box") {
		t.Error("Contains(gift) = false, want true")
	}
	if !m.Contains("מארז מתנה ליין") {
		t.Error("Contains(מתנה) = false, want true")
	}
	if m.Contains("sparkling water") {
		t.Error("Contains(no keyword) = true, want false")
	}
}

func TestEmptyPatternsSkipped(t *testing.T) {
	t.Parallel()

	m := NewMatcher(Pattern{Text: ""}, Pattern{Text: "wine"})
	if m.PatternCount() != 1 {
		t.Errorf("PatternCount = %d, want 1", m.PatternCount())
	}
	if matches := m.Search("wine"); len(matches) != 1 {
		t.Errorf("got %d matches, want 1", len(matches))
	}
}

func TestConcurrentSearch(t *testing.T) {
	t.Parallel()

	m := NewKeywordMatcher([]string{"wine", "beer", "whisky"})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if !m.Contains("red wine sale") {
					t.Error("Contains returned false under concurrency")
					return
				}
			}
		}()
	}
	wg.Wait()
}
