// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package models

import (
	"testing"

	"github.com/goccy/go-json"
)

func TestDecodeEvidenceCore(t *testing.T) {
	t.Parallel()

	evidence, err := json.Marshal(LowConversionEvidence{
		Searches:       120,
		DeltaWoW:       45.5,
		CTR:            0.31,
		ConversionRate: 0.004,
	})
	if err != nil {
		t.Fatalf("marshal evidence: %v", err)
	}

	s := &Signal{Type: SignalLowConversion, Evidence: evidence}
	core := s.DecodeEvidenceCore()
	if core.Searches != 120 {
		t.Errorf("Searches = %d, want 120", core.Searches)
	}
	if core.DeltaWoW != 45.5 {
		t.Errorf("DeltaWoW = %v, want 45.5", core.DeltaWoW)
	}
}

func TestDecodeEvidenceCoreMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		evidence json.RawMessage
	}{
		{name: "nil evidence", evidence: nil},
		{name: "empty evidence", evidence: json.RawMessage{}},
		{name: "truncated json", evidence: json.RawMessage(`{"searches": 5`)},
		{name: "wrong shape", evidence: json.RawMessage(`[1,2,3]`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := &Signal{Evidence: tt.evidence}
			core := s.DecodeEvidenceCore()
			if core.Searches != 0 || core.DeltaWoW != 0 {
				t.Errorf("malformed evidence decoded to %+v, want zero core", core)
			}
		})
	}
}

func TestValidFeedbackStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status InsightStatus
		want   bool
	}{
		{StatusExecuted, true},
		{StatusDismissed, true},
		{StatusActive, false},
		{InsightStatus("deleted"), false},
		{InsightStatus(""), false},
	}

	for _, tt := range tests {
		if got := ValidFeedbackStatus(tt.status); got != tt.want {
			t.Errorf("ValidFeedbackStatus(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestProductSet(t *testing.T) {
	t.Parallel()

	snap := &CatalogSnapshot{ProductIDs: []string{"p1", "p2", "p2"}}
	set := snap.ProductSet()
	if len(set) != 2 {
		t.Errorf("ProductSet size = %d, want 2", len(set))
	}
	if _, ok := set["p1"]; !ok {
		t.Error("p1 missing from set")
	}

	var nilSnap *CatalogSnapshot
	if nilSnap.ProductSet() != nil {
		t.Error("nil snapshot should yield nil set")
	}
}
