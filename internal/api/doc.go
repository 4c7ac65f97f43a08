// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

// Package api exposes the HTTP surface of the insight engine: run
// triggers, insight listing and feedback, signal and aggregate lookups,
// health probes and the dashboard websocket feed.
//
// Routing uses Chi with production middleware from its ecosystem
// (go-chi/cors for CORS, go-chi/httprate for per-IP rate limiting).
// Every response travels in the APIResponse envelope; request bodies
// are validated with go-playground/validator before any work starts.
package api
