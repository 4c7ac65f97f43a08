// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/vinsight/vinsight/internal/logging"
	"github.com/vinsight/vinsight/internal/metrics"
	"github.com/vinsight/vinsight/internal/models"
)

// Message types pushed to dashboard clients.
const (
	MessageTypeRunStarted     = "run_started"
	MessageTypeRunCompleted   = "run_completed"
	MessageTypeInsightCreated = "insight_created"
	MessageTypePing           = "ping"
	MessageTypePong           = "pong"
)

// Message is one frame on the dashboard feed.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// RunProgress is the payload of run_started / run_completed messages.
type RunProgress struct {
	StoreID  string `json:"store_id"`
	Week     string `json:"week,omitempty"`
	Channel  string `json:"channel"`
	Insights int    `json:"insights,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Hub owns the set of connected clients and fans broadcasts out to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates an idle hub; Serve must be running before clients
// connect.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Serve runs the hub loop until ctx is canceled, then closes every
// client. It satisfies suture.Service.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			logging.Info().Str("component", "websocket-hub").Msg("Hub stopped")
			return ctx.Err()

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			metrics.TrackWSConnection(true)
			logging.Debug().Int("clients", total).Msg("Dashboard client connected")

		case client := <-h.unregister:
			h.drop(client)

		case msg := <-h.broadcast:
			h.fanOut(msg)
		}
	}
}

// Broadcast queues a message for every connected client. It never
// blocks; when the hub is saturated the message is dropped and counted.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		metrics.RecordWSError("broadcast_dropped")
	}
}

// InsightsSelected pushes one insight_created frame per insight. It
// satisfies pipeline.Notifier.
func (h *Hub) InsightsSelected(_ context.Context, insights []models.Insight) {
	for i := range insights {
		h.Broadcast(Message{Type: MessageTypeInsightCreated, Data: insights[i]})
	}
}

// ClientCount reports currently connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) drop(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		metrics.TrackWSConnection(false)
		logging.Debug().Int("clients", len(h.clients)).Msg("Dashboard client disconnected")
	}
}

// fanOut delivers one message to every client in stable ID order.
// Clients whose buffers are full are disconnected: a stuck dashboard
// must not stall the rest.
func (h *Hub) fanOut(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ordered := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		ordered = append(ordered, client)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].id < ordered[j].id })

	var stalled []*Client
	for _, client := range ordered {
		select {
		case client.send <- msg:
		default:
			stalled = append(stalled, client)
		}
	}

	for _, client := range stalled {
		close(client.send)
		delete(h.clients, client)
		metrics.TrackWSConnection(false)
		metrics.RecordWSError("client_stalled")
	}
	metrics.RecordWSBroadcast(len(ordered) - len(stalled))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
		metrics.TrackWSConnection(false)
	}
}
