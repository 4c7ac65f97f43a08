// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/vinsight/vinsight/internal/audit"
	"github.com/vinsight/vinsight/internal/logging"
	"github.com/vinsight/vinsight/internal/normalize"
	"github.com/vinsight/vinsight/internal/validation"
	ws "github.com/vinsight/vinsight/internal/websocket"
)

// RunRequest is the optional body of a store run trigger. Week selects
// the ISO week to process; empty means the current week.
type RunRequest struct {
	Week string `json:"week" validate:"omitempty,datetime=2006-01-02"`
}

// TriggerRun runs the weekly pipeline for one store synchronously and
// returns the stage report. Re-running a week is safe; every stage
// upserts.
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	storeID := storeIDParam(w, r)
	if storeID == "" {
		return
	}
	if h.pipeline == nil {
		rw.ServiceUnavailable("Pipeline not available")
		return
	}

	var req RunRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			rw.BadRequest("invalid JSON body")
			return
		}
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError("invalid run request", verr.Errors())
		return
	}

	var week time.Time
	if req.Week != "" {
		parsed, err := normalize.ParseWeek(req.Week)
		if err != nil {
			rw.BadRequest("week must be a date in YYYY-MM-DD form")
			return
		}
		week = parsed
	}

	h.audit.RecordRun(r.Context(), audit.ActionRunTriggered, storeID, req.Week, audit.SourceFromRequest(r))
	h.broadcastRun(ws.MessageTypeRunStarted, storeID, week, 0, nil)

	report, err := h.pipeline.Run(r.Context(), storeID, week)
	if err != nil {
		h.broadcastRun(ws.MessageTypeRunCompleted, storeID, week, 0, err)
		logging.Error().Err(err).Str("store_id", storeID).Msg("Store run failed")
		rw.InternalError("run failed: " + err.Error())
		return
	}

	insights := 0
	if report.Decision != nil {
		insights = report.Decision.Selected
	}
	h.broadcastRun(ws.MessageTypeRunCompleted, storeID, report.WeekStart, insights, nil)

	rw.Success(report)
}

// TriggerTrendsRun recomputes the long-range trends channel for one
// store, replacing its previous trends insights wholesale.
func (h *Handler) TriggerTrendsRun(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	storeID := storeIDParam(w, r)
	if storeID == "" {
		return
	}
	if h.trends == nil {
		rw.ServiceUnavailable("Trends engine not available")
		return
	}

	h.audit.RecordRun(r.Context(), audit.ActionTrendsRunTriggered, storeID, "", audit.SourceFromRequest(r))

	result, err := h.trends.Run(r.Context(), storeID)
	if err != nil {
		logging.Error().Err(err).Str("store_id", storeID).Msg("Trends run failed")
		rw.InternalError("trends run failed: " + err.Error())
		return
	}

	rw.Success(result)
}

func (h *Handler) broadcastRun(msgType, storeID string, week time.Time, insights int, runErr error) {
	if h.hub == nil {
		return
	}

	progress := ws.RunProgress{
		StoreID:  storeID,
		Channel:  "store",
		Insights: insights,
	}
	if !week.IsZero() {
		progress.Week = normalize.WeekKey(week)
	}
	if runErr != nil {
		progress.Error = runErr.Error()
	}

	h.hub.Broadcast(ws.Message{Type: msgType, Data: progress})
}
