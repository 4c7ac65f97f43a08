// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

/*
Package websocket pushes live pipeline activity to dashboard clients:
run started/completed messages per store and one message per selected
insight, so a merchant watching the dashboard sees recommendations land
the moment a weekly run finishes.

The hub runs under supervision and owns all client state; clients that
fall behind are dropped rather than allowed to block a broadcast.
*/
package websocket
