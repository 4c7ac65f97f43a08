// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

// Package match provides multi-pattern substring matching built on the
// Aho-Corasick algorithm. It finds all occurrences of a fixed keyword set
// in a text in O(n + m + z) time, where n is the text length, m the total
// pattern length and z the number of matches.
//
// The insight engine uses it for topic classification and calendar-event
// keyword lookup, where a single normalized query is matched against
// hundreds of taxonomy terms at once. Patterns and text may be any UTF-8,
// including Hebrew; positions and lengths are measured in runes so that
// "longest match" means most specific term, not most bytes.
//
// Example:
//
//	m := match.NewKeywordMatcher([]string{"pinot noir", "pinot", "rose"})
//	best, ok := m.Longest("organic pinot noir 2022")
//	// best.Pattern == "pinot noir"
package match

import (
	"strings"
	"unicode/utf8"
)

// Pattern is a search term with optional associated data
// (for example the taxonomy topic it resolves to).
type Pattern struct {
	Text string
	Data any
}

// Match reports a single pattern occurrence in the searched text.
type Match struct {
	Pattern  string // matched pattern text (lowercased form)
	Data     any    // data attached to the pattern
	Index    int    // insertion order of the pattern, used for tie-breaks
	Position int    // rune offset of the match start in the text
}

// Matcher is an immutable Aho-Corasick automaton. Construction builds the
// trie and failure links; afterwards the matcher is safe for concurrent use
// by any number of goroutines without locking.
//
// Matching is case-insensitive: patterns and search text are lowercased.
type Matcher struct {
	root     *node
	patterns []pattern
}

type pattern struct {
	text  string
	data  any
	runes int
}

type node struct {
	children map[rune]*node
	failure  *node
	output   []int // indices of patterns ending at this node
}

func newNode() *node {
	return &node{children: make(map[rune]*node)}
}

// NewMatcher builds an automaton from the given patterns. Empty patterns
// are skipped. Insertion order is preserved in Match.Index so callers can
// break length ties deterministically.
func NewMatcher(patterns ...Pattern) *Matcher {
	m := &Matcher{root: newNode()}
	for _, p := range patterns {
		if p.Text == "" {
			continue
		}
		text := strings.ToLower(p.Text)
		m.patterns = append(m.patterns, pattern{
			text:  text,
			data:  p.Data,
			runes: utf8.RuneCountInString(text),
		})
		m.insert(len(m.patterns)-1, text)
	}
	m.buildFailureLinks()
	return m
}

// NewKeywordMatcher builds an automaton from plain keywords with no
// attached data.
func NewKeywordMatcher(keywords []string) *Matcher {
	patterns := make([]Pattern, 0, len(keywords))
	for _, k := range keywords {
		patterns = append(patterns, Pattern{Text: k})
	}
	return NewMatcher(patterns...)
}

func (m *Matcher) insert(index int, text string) {
	n := m.root
	for _, ch := range text {
		child := n.children[ch]
		if child == nil {
			child = newNode()
			n.children[ch] = child
		}
		n = child
	}
	n.output = append(n.output, index)
}

// buildFailureLinks wires each node to the node representing its longest
// proper suffix, breadth-first from the root.
func (m *Matcher) buildFailureLinks() {
	queue := make([]*node, 0, len(m.root.children))
	for _, child := range m.root.children {
		child.failure = m.root
		queue = append(queue, child)
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for ch, child := range current.children {
			queue = append(queue, child)

			fail := current.failure
			for fail != nil && fail.children[ch] == nil {
				fail = fail.failure
			}
			if fail == nil {
				child.failure = m.root
			} else {
				child.failure = fail.children[ch]
				child.output = append(child.output, child.failure.output...)
			}
		}
	}
}

// Search returns every pattern occurrence in text, in scan order.
// Overlapping and nested matches are all reported.
func (m *Matcher) Search(text string) []Match {
	if m == nil || len(m.patterns) == 0 {
		return nil
	}
	text = strings.ToLower(text)

	var matches []Match
	n := m.root
	pos := 0
	for _, ch := range text {
		for n != nil && n.children[ch] == nil {
			n = n.failure
		}
		if n == nil {
			n = m.root
			pos++
			continue
		}
		n = n.children[ch]

		for _, idx := range n.output {
			p := m.patterns[idx]
			matches = append(matches, Match{
				Pattern:  p.text,
				Data:     p.data,
				Index:    idx,
				Position: pos - p.runes + 1,
			})
		}
		pos++
	}
	return matches
}

// Longest returns the longest match in text, measured in runes. Ties on
// length are broken by insertion order, earliest pattern first. The second
// return value is false when nothing matched.
func (m *Matcher) Longest(text string) (Match, bool) {
	var best Match
	bestRunes := 0
	for _, candidate := range m.Search(text) {
		runes := utf8.RuneCountInString(candidate.Pattern)
		if runes > bestRunes || (runes == bestRunes && candidate.Index < best.Index) {
			best = candidate
			bestRunes = runes
		}
	}
	return best, bestRunes > 0
}

// Contains reports whether any pattern occurs in text.
func (m *Matcher) Contains(text string) bool {
	if m == nil || len(m.patterns) == 0 {
		return false
	}
	text = strings.ToLower(text)

	n := m.root
	for _, ch := range text {
		for n != nil && n.children[ch] == nil {
			n = n.failure
		}
		if n == nil {
			n = m.root
			continue
		}
		n = n.children[ch]
		if len(n.output) > 0 {
			return true
		}
	}
	return false
}

// PatternCount returns the number of patterns in the automaton.
func (m *Matcher) PatternCount() int {
	return len(m.patterns)
}
