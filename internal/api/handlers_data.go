// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package api

import (
	"net/http"

	"github.com/vinsight/vinsight/internal/normalize"
)

// Signals returns the detected signals for one store-week. These are the
// raw findings the decision stage ranks into insights; dashboards use
// them for the evidence drill-down.
func (h *Handler) Signals(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	storeID := storeIDParam(w, r)
	if storeID == "" {
		return
	}

	week, ok := weekParam(w, r)
	if !ok {
		return
	}
	if week.IsZero() {
		week = normalize.StartOfWeek(timeNow())
	}

	signals, err := h.db.ListSignals(r.Context(), storeID, week)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.SuccessWithPagination(signals, &PaginationMeta{Count: len(signals)})
}

// StoreStatus reports when a store's pipeline last completed. A null
// last_run_at means the store has never been processed.
func (h *Handler) StoreStatus(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	storeID := storeIDParam(w, r)
	if storeID == "" {
		return
	}

	lastRun, err := h.db.LastRunAt(r.Context(), storeID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Success(map[string]any{
		"store_id":    storeID,
		"last_run_at": lastRun,
	})
}

// QueryAggregates returns the top query rollups for one store-week,
// ordered by search volume.
func (h *Handler) QueryAggregates(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	storeID := storeIDParam(w, r)
	if storeID == "" {
		return
	}

	week, ok := weekParam(w, r)
	if !ok {
		return
	}
	if week.IsZero() {
		week = normalize.StartOfWeek(timeNow())
	}

	defaultSize, maxSize := h.pageSizeConfig()
	limit := getIntParam(r, "limit", defaultSize)
	if limit < 1 || limit > maxSize {
		rw.BadRequest("limit out of range")
		return
	}

	aggs, err := h.db.TopQueryAggregates(r.Context(), storeID, week, limit)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.SuccessWithPagination(aggs, &PaginationMeta{Count: len(aggs), Limit: limit})
}
