// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}
	if v1 == nil {
		t.Error("GetValidator() should not return nil")
	}
}

// feedbackRequest mirrors the API payload shape used for insight feedback.
type feedbackRequest struct {
	Status string `validate:"required,oneof=EXECUTED DISMISSED"`
}

// runRequest mirrors the API payload shape used for run triggers.
type runRequest struct {
	StoreID string `validate:"required,storeid"`
	Week    string `validate:"omitempty,datetime=2006-01-02"`
	Limit   int    `validate:"min=0,max=100"`
}

func TestValidateStruct_Valid(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
	}{
		{
			name:  "feedback executed",
			input: &feedbackRequest{Status: "EXECUTED"},
		},
		{
			name:  "feedback dismissed",
			input: &feedbackRequest{Status: "DISMISSED"},
		},
		{
			name:  "run with explicit week",
			input: &runRequest{StoreID: "wine-depot", Week: "2026-02-16", Limit: 20},
		},
		{
			name:  "run without week",
			input: &runRequest{StoreID: "store_7.eu", Limit: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateStruct(tt.input); err != nil {
				t.Errorf("ValidateStruct() returned unexpected error: %v", err)
			}
		})
	}
}

func TestValidateStruct_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		input     interface{}
		wantField string
		wantTag   string
	}{
		{
			name:      "missing status",
			input:     &feedbackRequest{},
			wantField: "Status",
			wantTag:   "required",
		},
		{
			name:      "status outside enum",
			input:     &feedbackRequest{Status: "DONE"},
			wantField: "Status",
			wantTag:   "oneof",
		},
		{
			name:      "lowercase status rejected",
			input:     &feedbackRequest{Status: "executed"},
			wantField: "Status",
			wantTag:   "oneof",
		},
		{
			name:      "missing store id",
			input:     &runRequest{Week: "2026-02-16"},
			wantField: "StoreID",
			wantTag:   "required",
		},
		{
			name:      "store id with slash",
			input:     &runRequest{StoreID: "../etc/passwd"},
			wantField: "StoreID",
			wantTag:   "storeid",
		},
		{
			name:      "store id with space",
			input:     &runRequest{StoreID: "wine depot"},
			wantField: "StoreID",
			wantTag:   "storeid",
		},
		{
			name:      "store id too long",
			input:     &runRequest{StoreID: strings.Repeat("a", 65)},
			wantField: "StoreID",
			wantTag:   "storeid",
		},
		{
			name:      "malformed week",
			input:     &runRequest{StoreID: "wine-depot", Week: "16/02/2026"},
			wantField: "Week",
			wantTag:   "datetime",
		},
		{
			name:      "limit above max",
			input:     &runRequest{StoreID: "wine-depot", Limit: 500},
			wantField: "Limit",
			wantTag:   "max",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.input)
			if err == nil {
				t.Fatal("ValidateStruct() = nil, want error")
			}

			found := false
			for _, fe := range err.Errors() {
				if fe.Field() == tt.wantField && fe.Tag() == tt.wantTag {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("ValidateStruct() errors = %v, want field %q tag %q",
					err.Error(), tt.wantField, tt.wantTag)
			}
		})
	}
}

func TestValidateStoreID(t *testing.T) {
	tests := []struct {
		name  string
		id    string
		valid bool
	}{
		{name: "simple", id: "winestore", valid: true},
		{name: "with separators", id: "wine-store_7.il", valid: true},
		{name: "single char", id: "a", valid: true},
		{name: "exactly 64 chars", id: strings.Repeat("x", 64), valid: true},
		{name: "empty", id: "", valid: false},
		{name: "65 chars", id: strings.Repeat("x", 65), valid: false},
		{name: "hebrew letters", id: "חנות", valid: false},
		{name: "path traversal", id: "../secrets", valid: false},
		{name: "embedded null", id: "store\x00", valid: false},
	}

	type probe struct {
		ID string `validate:"storeid"`
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&probe{ID: tt.id})
			if tt.valid && err != nil {
				t.Errorf("storeid %q rejected: %v", tt.id, err)
			}
			if !tt.valid && err == nil {
				t.Errorf("storeid %q accepted, want rejection", tt.id)
			}
		})
	}
}

func TestToAPIError_SingleError(t *testing.T) {
	err := ValidateStruct(&feedbackRequest{Status: "DONE"})
	if err == nil {
		t.Fatal("expected validation error")
	}

	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q, want VALIDATION_ERROR", apiErr.Code)
	}
	if !strings.Contains(apiErr.Message, "Status") {
		t.Errorf("Message = %q, want field name mentioned", apiErr.Message)
	}
	if apiErr.Details["field"] != "Status" {
		t.Errorf("Details[field] = %v, want Status", apiErr.Details["field"])
	}
}

func TestToAPIError_MultipleErrors(t *testing.T) {
	err := ValidateStruct(&runRequest{StoreID: "", Week: "not-a-date", Limit: -1})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if len(err.Errors()) < 2 {
		t.Fatalf("Errors() = %d, want at least 2", len(err.Errors()))
	}

	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q, want VALIDATION_ERROR", apiErr.Code)
	}
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok {
		t.Fatalf("Details[fields] has type %T, want slice of field maps", apiErr.Details["fields"])
	}
	if len(fields) != len(err.Errors()) {
		t.Errorf("Details[fields] = %d entries, want %d", len(fields), len(err.Errors()))
	}
}

func TestTranslateError_Messages(t *testing.T) {
	tests := []struct {
		name    string
		input   interface{}
		wantMsg string
	}{
		{
			name:    "required",
			input:   &feedbackRequest{},
			wantMsg: "Status is required",
		},
		{
			name:    "oneof lists values",
			input:   &feedbackRequest{Status: "MAYBE"},
			wantMsg: "Status must be one of: EXECUTED DISMISSED",
		},
		{
			name:    "datetime format",
			input:   &runRequest{StoreID: "s", Week: "02-16-2026"},
			wantMsg: "Week must be a date in YYYY-MM-DD format",
		},
		{
			name:    "numeric max",
			input:   &runRequest{StoreID: "s", Limit: 101},
			wantMsg: "Limit must be at most 100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.input)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Error() = %q, want substring %q", err.Error(), tt.wantMsg)
			}
		})
	}
}
