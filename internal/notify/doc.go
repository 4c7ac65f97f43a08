// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

/*
Package notify publishes selected insights over NATS JetStream for the
voice/copy layer and other downstream consumers.

Each insight becomes one message on insights.<channel>.<cta>, e.g.
insights.store.push_this_week, carrying the full insight as JSON with
the insight ID as the deduplication key. Publishing is best effort by
contract: the weekly pipeline must never fail because a broker is down,
so errors are logged and counted but not returned to the pipeline.

For single-binary deployments the package can run an embedded NATS
server with JetStream enabled; the stream is provisioned idempotently at
startup either way.
*/
package notify
