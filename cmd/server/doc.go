// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

// Package main is the entry point for the Vinsight server.
//
// Vinsight turns raw storefront behavior (searches, clicks, purchases)
// into a short, prioritized list of merchandising calls-to-action per
// store and week, plus a long-range trends channel mined from months of
// search history.
//
// # Startup order
//
//  1. Configuration: Koanf v2 layered load (defaults, config.yaml,
//     environment variables)
//  2. Analytics store: embedded DuckDB holding aggregates, signals,
//     insights and cooldowns, plus the operator audit trail
//  3. Event store: MongoDB client with rate limiting and a circuit
//     breaker, plus the Badger catalog snapshot cache
//  4. Messaging: optional embedded NATS server and the JetStream
//     insight publisher
//  5. Engines: aggregation, detection, decision, trends, pipeline
//  6. Supervision: websocket hub, weekly scheduler and HTTP server run
//     under a suture tree with per-layer failure isolation
//
// # Configuration
//
// Environment variables override config.yaml which overrides built-in
// defaults. The minimum viable setup is the event store URI and a
// database path:
//
//	export MONGO_URI=mongodb://localhost:27017
//	export DUCKDB_PATH=/var/lib/vinsight/vinsight.db
//	./vinsight
//
// # Signal handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the HTTP server drains
// (10s), the scheduler and hub stop, then messaging, the event store
// and the database close in reverse startup order.
package main
