// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package websocket

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vinsight/vinsight/internal/models"
)

// newHubClient attaches a bare client to a running hub, bypassing the
// network: the send channel is all the hub ever touches.
func newHubClient(t *testing.T, h *Hub) *Client {
	t.Helper()
	c := &Client{id: clientIDCounter.Add(1), hub: h, send: make(chan Message, 16)}
	h.register <- c
	return c
}

func startHub(t *testing.T) (*Hub, context.CancelFunc, chan error) {
	t.Helper()
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Serve(ctx) }()
	return h, cancel, done
}

func waitMessage(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		if !ok {
			t.Fatal("send channel closed while waiting for message")
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	return Message{}
}

func TestHubBroadcastReachesAllClients(t *testing.T) {
	h, cancel, done := startHub(t)
	defer func() { cancel(); <-done }()

	a := newHubClient(t, h)
	b := newHubClient(t, h)

	h.Broadcast(Message{Type: MessageTypeRunCompleted, Data: RunProgress{StoreID: "demo-store", Channel: "store"}})

	for _, c := range []*Client{a, b} {
		msg := waitMessage(t, c)
		if msg.Type != MessageTypeRunCompleted {
			t.Errorf("Type = %q, want run_completed", msg.Type)
		}
	}
}

func TestHubInsightsSelected(t *testing.T) {
	h, cancel, done := startHub(t)
	defer func() { cancel(); <-done }()

	c := newHubClient(t, h)

	h.InsightsSelected(context.Background(), []models.Insight{
		{EntityKey: "pinot noir", CTAType: models.CTAPushThisWeek},
		{EntityKey: "orange wine", CTAType: models.CTAFixThis},
	})

	first := waitMessage(t, c)
	second := waitMessage(t, c)
	if first.Type != MessageTypeInsightCreated || second.Type != MessageTypeInsightCreated {
		t.Errorf("types = %q, %q, want insight_created twice", first.Type, second.Type)
	}
}

func TestHubUnregisterClosesSend(t *testing.T) {
	h, cancel, done := startHub(t)
	defer func() { cancel(); <-done }()

	c := newHubClient(t, h)
	h.unregister <- c

	select {
	case _, ok := <-c.send:
		if ok {
			t.Error("expected closed send channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("send channel not closed after unregister")
	}
}

func TestHubServeStopsOnCancel(t *testing.T) {
	h, cancel, done := startHub(t)
	newHubClient(t, h)

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop on cancel")
	}
	if h.ClientCount() != 0 {
		t.Errorf("ClientCount = %d after shutdown, want 0", h.ClientCount())
	}
}

func TestHubDropsStalledClients(t *testing.T) {
	h, cancel, done := startHub(t)
	defer func() { cancel(); <-done }()

	// Buffer of one: the second broadcast overflows it.
	stalled := &Client{id: clientIDCounter.Add(1), hub: h, send: make(chan Message, 1)}
	h.register <- stalled

	h.Broadcast(Message{Type: MessageTypeRunStarted})
	h.Broadcast(Message{Type: MessageTypeRunStarted})

	deadline := time.After(2 * time.Second)
	for h.ClientCount() != 0 {
		select {
		case <-deadline:
			t.Fatal("stalled client was not dropped")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
