// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vinsight/vinsight/internal/middleware"
)

// Router assembles the Chi route tree from the handler and the
// middleware factories.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. mw may be nil; defaults are used then.
func NewRouter(handler *Handler, mw *ChiMiddleware) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, chiMiddleware: mw}
}

// chiMiddleware adapts http.HandlerFunc middleware to Chi's
// func(http.Handler) http.Handler shape.
func chiAdapt(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order.
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())

	// Health and metrics stay outside the general rate limit so
	// monitoring cannot be starved by dashboard traffic.
	r.Get("/health", router.handler.Health)
	r.Get("/health/live", router.handler.HealthLive)
	r.Get("/health/ready", router.handler.HealthReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(chiAdapt(middleware.PrometheusMetrics))

		// Read endpoints share the general per-IP limit.
		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit())

			r.Get("/stores/{storeID}/status", router.handler.StoreStatus)
			r.Get("/stores/{storeID}/insights", router.handler.ListInsights)
			r.Get("/stores/{storeID}/signals", router.handler.Signals)
			r.Get("/stores/{storeID}/aggregates/queries", router.handler.QueryAggregates)
			r.Get("/stores/{storeID}/audit", router.handler.AuditLog)
			r.Post("/insights/{insightID}/feedback", router.handler.InsightFeedback)

			r.Get("/ws", router.handler.WebSocket)
		})

		// Run triggers start real pipeline work and get a much
		// tighter limit.
		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimitRuns())

			r.Post("/stores/{storeID}/runs", router.handler.TriggerRun)
			r.Post("/stores/{storeID}/trends/runs", router.handler.TriggerTrendsRun)
		})
	})

	return r
}
