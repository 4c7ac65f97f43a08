// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

// Package validation provides struct validation using go-playground/validator v10.
//
// This package wraps the go-playground/validator library to provide a
// thread-safe singleton validator instance with custom validators and
// user-friendly error messages. It integrates with the API error format
// for consistent error responses.
//
// # Quick Start
//
//	type FeedbackRequest struct {
//	    Status string `validate:"required,oneof=EXECUTED DISMISSED"`
//	}
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    var req FeedbackRequest
//	    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
//	        // handle decode error
//	    }
//
//	    if verr := validation.ValidateStruct(&req); verr != nil {
//	        apiErr := verr.ToAPIError()
//	        respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
//	        return
//	    }
//
//	    // proceed with valid request
//	}
//
// # Validation Tags In Use
//
//   - required: field must not be empty
//   - oneof=a b c: must be one of the listed values
//   - datetime=2006-01-02: date string in week-parameter format
//   - min=n, max=n: bounds for numbers, lengths for strings
//   - gte=n, lte=n: numeric bounds
//   - storeid: custom; non-empty identifier limited to [A-Za-z0-9._-],
//     at most 64 characters. Applied to store path parameters before
//     they reach filters or the event store.
//
// # Error Handling
//
// ValidateStruct returns *RequestValidationError carrying every failed
// field. ToAPIError flattens it into a VALIDATION_ERROR response body
// with per-field details, so clients can highlight the offending input.
package validation
