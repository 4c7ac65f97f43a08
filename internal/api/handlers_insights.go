// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/vinsight/vinsight/internal/audit"
	"github.com/vinsight/vinsight/internal/database"
	"github.com/vinsight/vinsight/internal/models"
	"github.com/vinsight/vinsight/internal/validation"
)

// ListInsights returns the insights for one store, optionally filtered
// by week, channel and status. Results are ordered by priority within
// each week.
func (h *Handler) ListInsights(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	storeID := storeIDParam(w, r)
	if storeID == "" {
		return
	}

	week, ok := weekParam(w, r)
	if !ok {
		return
	}

	channel := models.Channel(r.URL.Query().Get("channel"))
	switch channel {
	case "", models.ChannelStore, models.ChannelTrends:
	default:
		rw.BadRequest("channel must be store or trends")
		return
	}

	status := models.InsightStatus(r.URL.Query().Get("status"))
	switch status {
	case "", models.StatusActive, models.StatusExecuted, models.StatusDismissed:
	default:
		rw.BadRequest("status must be ACTIVE, EXECUTED or DISMISSED")
		return
	}

	defaultSize, maxSize := h.pageSizeConfig()
	limit := getIntParam(r, "limit", defaultSize)
	if limit < 1 || limit > maxSize {
		rw.BadRequest("limit out of range")
		return
	}
	offset := getIntParam(r, "offset", 0)
	if offset < 0 {
		rw.BadRequest("offset must not be negative")
		return
	}

	filter := database.InsightFilter{
		StoreID: storeID,
		Channel: channel,
		Status:  status,
		// One extra row decides HasMore without a count query.
		Limit:  limit + 1,
		Offset: offset,
	}
	if !week.IsZero() {
		filter.WeekStart = &week
	}

	insights, err := h.db.ListInsights(r.Context(), filter)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	hasMore := len(insights) > limit
	if hasMore {
		insights = insights[:limit]
	}

	rw.SuccessWithPagination(insights, &PaginationMeta{
		Count:   len(insights),
		Offset:  offset,
		Limit:   limit,
		HasMore: hasMore,
	})
}

// FeedbackRequest is the body of an insight feedback call.
type FeedbackRequest struct {
	Status string `json:"status" validate:"required,oneof=EXECUTED DISMISSED"`
}

// InsightFeedback records merchant feedback on one insight. EXECUTED
// additionally stamps the entity cooldown so the same recommendation
// stays quiet for a while.
func (h *Handler) InsightFeedback(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	id, err := uuid.Parse(chi.URLParam(r, "insightID"))
	if err != nil {
		rw.BadRequest("insight id must be a UUID")
		return
	}

	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("invalid JSON body")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError("invalid feedback request", verr.Errors())
		return
	}

	status := models.InsightStatus(req.Status)
	if !models.ValidFeedbackStatus(status) {
		rw.BadRequest("status must be EXECUTED or DISMISSED")
		return
	}

	prior, err := h.db.GetInsight(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrInsightNotFound) {
			rw.NotFound("insight not found")
			return
		}
		rw.DatabaseError(err)
		return
	}
	priorStatus := prior.Status

	if err := h.db.ApplyInsightFeedback(r.Context(), id, status); err != nil {
		if errors.Is(err, database.ErrInsightNotFound) {
			rw.NotFound("insight not found")
			return
		}
		rw.DatabaseError(err)
		return
	}

	insight, err := h.db.GetInsight(r.Context(), id)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	h.audit.RecordFeedback(r.Context(), insight.StoreID, id.String(),
		string(priorStatus), string(status), audit.SourceFromRequest(r))

	rw.Success(insight)
}

// AuditLog lists recorded operator actions for one store, newest first.
func (h *Handler) AuditLog(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if h.audit == nil {
		rw.ServiceUnavailable("audit trail unavailable")
		return
	}

	storeID := storeIDParam(w, r)
	if storeID == "" {
		return
	}

	defaultSize, maxSize := h.pageSizeConfig()
	limit := getIntParam(r, "limit", defaultSize)
	if limit < 1 || limit > maxSize {
		rw.BadRequest("limit out of range")
		return
	}
	offset := getIntParam(r, "offset", 0)
	if offset < 0 {
		rw.BadRequest("offset must not be negative")
		return
	}

	filter := audit.QueryFilter{
		StoreID: storeID,
		Limit:   limit,
		Offset:  offset,
	}
	if action := r.URL.Query().Get("action"); action != "" {
		switch a := audit.Action(action); a {
		case audit.ActionFeedbackExecuted, audit.ActionFeedbackDismissed,
			audit.ActionRunTriggered, audit.ActionTrendsRunTriggered:
			filter.Actions = []audit.Action{a}
		default:
			rw.BadRequest("unknown audit action")
			return
		}
	}

	entries, err := h.audit.Query(r.Context(), filter)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.SuccessWithPagination(entries, &PaginationMeta{
		Count:  len(entries),
		Offset: offset,
		Limit:  limit,
	})
}
