// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vinsight/vinsight/internal/audit"
	"github.com/vinsight/vinsight/internal/config"
	"github.com/vinsight/vinsight/internal/database"
	"github.com/vinsight/vinsight/internal/logging"
	"github.com/vinsight/vinsight/internal/models"
	"github.com/vinsight/vinsight/internal/normalize"
	"github.com/vinsight/vinsight/internal/pipeline"
	"github.com/vinsight/vinsight/internal/trends"
	"github.com/vinsight/vinsight/internal/validation"
	ws "github.com/vinsight/vinsight/internal/websocket"
)

// timeNow is swapped in tests that pin the current week.
var timeNow = time.Now

// PipelineRunner triggers one weekly store run. *pipeline.Pipeline
// satisfies this.
type PipelineRunner interface {
	Run(ctx context.Context, storeID string, week time.Time) (*pipeline.RunReport, error)
}

// TrendsRunner triggers one full trends recompute. *trends.Engine
// satisfies this.
type TrendsRunner interface {
	Run(ctx context.Context, storeID string) (*trends.Result, error)
}

// InsightStore is the slice of the analytics store the handlers read
// and write. *database.DB satisfies this.
type InsightStore interface {
	Ping(ctx context.Context) error
	ListInsights(ctx context.Context, filter database.InsightFilter) ([]models.Insight, error)
	GetInsight(ctx context.Context, id uuid.UUID) (*models.Insight, error)
	ApplyInsightFeedback(ctx context.Context, id uuid.UUID, status models.InsightStatus) error
	ListSignals(ctx context.Context, storeID string, weekStart time.Time) ([]models.Signal, error)
	TopQueryAggregates(ctx context.Context, storeID string, weekStart time.Time, limit int) ([]models.QueryAggregate, error)
	LastRunAt(ctx context.Context, storeID string) (*time.Time, error)
}

// EventSourceHealth reports event store reachability for the health
// endpoint. *eventstore.Store satisfies this.
type EventSourceHealth interface {
	Ping(ctx context.Context) error
	BreakerState() string
}

// Handler carries the dependencies for all API endpoints. Any of
// pipeline, trends, events and hub may be nil; the affected endpoints
// then answer 503 instead of panicking.
type Handler struct {
	db        InsightStore
	events    EventSourceHealth
	pipeline  PipelineRunner
	trends    TrendsRunner
	hub       *ws.Hub
	audit     *audit.Trail
	config    *config.Config
	startTime time.Time
	upgrader  websocket.Upgrader
}

// NewHandler creates the API handler.
func NewHandler(db InsightStore, events EventSourceHealth, pl PipelineRunner, tr TrendsRunner, hub *ws.Hub, cfg *config.Config) *Handler {
	return &Handler{
		db:        db,
		events:    events,
		pipeline:  pl,
		trends:    tr,
		hub:       hub,
		config:    cfg,
		startTime: time.Now(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg),
		},
	}
}

// WithAudit attaches the operator audit trail. Without it feedback and
// run triggers still work, they just leave no trail and the audit
// endpoint answers 503.
func (h *Handler) WithAudit(trail *audit.Trail) *Handler {
	h.audit = trail
	return h
}

func originChecker(cfg *config.Config) func(*http.Request) bool {
	var allowed []string
	if cfg != nil {
		allowed = cfg.API.CORSOrigins
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// WebSocket upgrades the connection and attaches it to the dashboard
// hub.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		WriteError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "WebSocket service unavailable")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error().Err(err).Msg("WebSocket upgrade error")
		return
	}

	ws.NewClient(h.hub, conn).Start()
}

// storeIDParam extracts and validates the storeID path parameter.
// Returns "" after writing a 400 when the identifier is unusable.
func storeIDParam(w http.ResponseWriter, r *http.Request) string {
	storeID := chi.URLParam(r, "storeID")

	req := struct {
		StoreID string `validate:"required,storeid"`
	}{StoreID: storeID}
	if verr := validation.ValidateStruct(&req); verr != nil {
		NewResponseWriter(w, r).ValidationError("invalid store identifier", verr.Errors())
		return ""
	}
	return storeID
}

// weekParam parses the optional week query parameter, snapping it to the
// Monday of its ISO week. A zero time with ok=true means "not provided".
func weekParam(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("week")
	if raw == "" {
		return time.Time{}, true
	}
	week, err := normalize.ParseWeek(raw)
	if err != nil {
		WriteBadRequest(w, r, "week must be a date in YYYY-MM-DD form")
		return time.Time{}, false
	}
	return week, true
}

// getIntParam extracts an integer query parameter with a default value.
func getIntParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

// pageSizeConfig returns the configured default and maximum page sizes.
func (h *Handler) pageSizeConfig() (defaultSize, maxSize int) {
	defaultSize, maxSize = 50, 200
	if h.config != nil {
		if h.config.API.DefaultPageSize > 0 {
			defaultSize = h.config.API.DefaultPageSize
		}
		if h.config.API.MaxPageSize > 0 {
			maxSize = h.config.API.MaxPageSize
		}
	}
	return defaultSize, maxSize
}
