// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package api

import (
	"net/http"
	"time"
)

// HealthStatus is the health endpoint payload.
type HealthStatus struct {
	Status              string  `json:"status"`
	DatabaseConnected   bool    `json:"database_connected"`
	EventStoreConnected bool    `json:"event_store_connected"`
	EventStoreBreaker   string  `json:"event_store_breaker,omitempty"`
	WebsocketClients    int     `json:"websocket_clients"`
	UptimeSeconds       float64 `json:"uptime_seconds"`
}

// Health reports overall service health. The service is degraded, not
// down, when the event store is unreachable: reads of already-computed
// insights still work, only new runs would fail.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	dbConnected := h.db != nil && h.db.Ping(r.Context()) == nil
	eventsConnected := h.events != nil && h.events.Ping(r.Context()) == nil

	status := "healthy"
	if !dbConnected {
		status = "unhealthy"
	} else if !eventsConnected {
		status = "degraded"
	}

	health := HealthStatus{
		Status:              status,
		DatabaseConnected:   dbConnected,
		EventStoreConnected: eventsConnected,
		UptimeSeconds:       time.Since(h.startTime).Seconds(),
	}
	if h.events != nil {
		health.EventStoreBreaker = h.events.BreakerState()
	}
	if h.hub != nil {
		health.WebsocketClients = h.hub.ClientCount()
	}

	if !dbConnected {
		rw.writeJSON(http.StatusServiceUnavailable, APIResponse{Success: false, Data: health})
		return
	}

	rw.Success(health)
}

// HealthLive is the liveness probe: the process is up and serving.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, map[string]string{"status": "alive"})
}

// HealthReady is the readiness probe: the analytics store answers.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if h.db == nil || h.db.Ping(r.Context()) != nil {
		rw.ServiceUnavailable("analytics store not ready")
		return
	}

	rw.Success(map[string]string{"status": "ready"})
}
