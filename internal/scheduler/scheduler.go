// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

// Package scheduler runs the weekly pipeline for every known store when
// a new ISO week begins. Runs are paced so a large fleet does not hit
// the event store all at once, and one store's failure never blocks the
// rest.
package scheduler

import (
	"context"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/vinsight/vinsight/internal/config"
	"github.com/vinsight/vinsight/internal/logging"
	"github.com/vinsight/vinsight/internal/metrics"
	"github.com/vinsight/vinsight/internal/normalize"
	"github.com/vinsight/vinsight/internal/pipeline"
)

// Runner executes one store-week pipeline run. *pipeline.Pipeline
// satisfies it.
type Runner interface {
	Run(ctx context.Context, storeID string, week time.Time) (*pipeline.RunReport, error)
}

// StoreRegistry lists the stores already known to the analytics store
// and records run completion. *database.DB satisfies it.
type StoreRegistry interface {
	ListStoreIDs(ctx context.Context) ([]string, error)
	TouchStoreRun(ctx context.Context, storeID string, at time.Time) error
}

// Scheduler fires the pipeline at week boundaries.
type Scheduler struct {
	runner   Runner
	registry StoreRegistry
	cfg      config.SchedulerConfig
	limiter  *rate.Limiter

	// lastWeek is the ISO week key the scheduler last processed; ticks
	// inside the same week are no-ops.
	lastWeek string

	// now is swappable for tests.
	now func() time.Time
}

// New creates a scheduler. The config must already be validated.
func New(runner Runner, registry StoreRegistry, cfg config.SchedulerConfig) *Scheduler {
	perSecond := rate.Limit(float64(cfg.StoresPerMinute) / 60.0)
	return &Scheduler{
		runner:   runner,
		registry: registry,
		cfg:      cfg,
		limiter:  rate.NewLimiter(perSecond, 1),
		now:      time.Now,
	}
}

// Serve runs the scheduling loop until ctx is canceled. It satisfies
// suture.Service.
func (s *Scheduler) Serve(ctx context.Context) error {
	if s.cfg.RunOnStart {
		s.tick(ctx)
	} else {
		// Do not re-process the week a restart lands in; wait for the
		// next boundary.
		s.lastWeek = normalize.WeekKey(normalize.StartOfWeek(s.now().UTC()))
	}

	ticker := time.NewTicker(s.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick processes the just-completed week once per ISO week boundary.
func (s *Scheduler) tick(ctx context.Context) {
	now := s.now().UTC()
	currentWeek := normalize.WeekKey(normalize.StartOfWeek(now))
	if currentWeek == s.lastWeek {
		return
	}

	target := normalize.AddDays(normalize.StartOfWeek(now), -7)
	stores, err := s.collectStores(ctx)
	if err != nil {
		metrics.RecordSchedulerRun(err)
		logging.Error().Err(err).Msg("Failed to list stores for scheduled run")
		return
	}

	logging.Info().
		Str("week", normalize.WeekKey(target)).
		Int("stores", len(stores)).
		Msg("Scheduled pipeline sweep starting")

	var failed int
	for i, storeID := range stores {
		metrics.SchedulerStoresPending.Set(float64(len(stores) - i))
		if err := s.limiter.Wait(ctx); err != nil {
			metrics.SchedulerStoresPending.Set(0)
			return
		}

		if _, err := s.runner.Run(ctx, storeID, target); err != nil {
			failed++
			metrics.RecordSchedulerRun(err)
			logging.Error().Err(err).
				Str("store_id", storeID).
				Str("week", normalize.WeekKey(target)).
				Msg("Scheduled run failed")
			continue
		}
		metrics.RecordSchedulerRun(nil)
		if err := s.registry.TouchStoreRun(ctx, storeID, s.now().UTC()); err != nil {
			logging.Warn().Err(err).Str("store_id", storeID).Msg("Failed to record run timestamp")
		}
	}
	metrics.SchedulerStoresPending.Set(0)

	// Only advance past the boundary when the sweep ran; a fully failed
	// sweep is retried on the next tick.
	if failed < len(stores) || len(stores) == 0 {
		s.lastWeek = currentWeek
	}

	logging.Info().
		Str("week", normalize.WeekKey(target)).
		Int("stores", len(stores)).
		Int("failed", failed).
		Msg("Scheduled pipeline sweep finished")
}

// collectStores merges configured store IDs with those already
// registered, deduplicated and sorted for a stable sweep order.
func (s *Scheduler) collectStores(ctx context.Context) ([]string, error) {
	known, err := s.registry.ListStoreIDs(ctx)
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{}, len(known)+len(s.cfg.Stores))
	for _, id := range known {
		set[id] = struct{}{}
	}
	for _, id := range s.cfg.Stores {
		set[id] = struct{}{}
	}

	stores := make([]string, 0, len(set))
	for id := range set {
		stores = append(stores, id)
	}
	sort.Strings(stores)
	return stores, nil
}
