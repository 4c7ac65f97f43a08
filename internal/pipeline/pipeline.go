// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

// Package pipeline sequences the weekly store pipeline: aggregation,
// then detection, then decision, each stage reading only the persisted
// output of the one before it. Stages are idempotent, so a failed run is
// retried by running the whole pipeline again.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/vinsight/vinsight/internal/aggregation"
	"github.com/vinsight/vinsight/internal/decision"
	"github.com/vinsight/vinsight/internal/detection"
	"github.com/vinsight/vinsight/internal/logging"
	"github.com/vinsight/vinsight/internal/metrics"
	"github.com/vinsight/vinsight/internal/models"
	"github.com/vinsight/vinsight/internal/normalize"
)

// Notifier receives the insights a run selected. Implementations must
// not fail the run; publish errors are theirs to log and count.
type Notifier interface {
	InsightsSelected(ctx context.Context, insights []models.Insight)
}

// Pipeline wires the three store-pipeline stages together.
type Pipeline struct {
	aggregation *aggregation.Engine
	detection   *detection.Engine
	decision    *decision.Engine
	notifier    Notifier
}

// New creates a pipeline. notifier may be nil when no one listens for
// selected insights.
func New(agg *aggregation.Engine, det *detection.Engine, dec *decision.Engine, notifier Notifier) *Pipeline {
	return &Pipeline{aggregation: agg, detection: det, decision: dec, notifier: notifier}
}

// RunReport collects per-stage outcomes for one pipeline run.
type RunReport struct {
	StoreID   string        `json:"store_id"`
	WeekStart time.Time     `json:"week_start"`
	Duration  time.Duration `json:"duration"`

	Aggregation *aggregation.Result `json:"aggregation"`
	Detection   *detection.Result   `json:"detection"`
	Decision    *decision.Result    `json:"decision"`
}

// Run executes the full pipeline for one store-week. A zero week means
// the current ISO week.
func (p *Pipeline) Run(ctx context.Context, storeID string, week time.Time) (*RunReport, error) {
	if week.IsZero() {
		week = time.Now().UTC()
	}
	weekStart := normalize.StartOfWeek(week)
	start := time.Now()

	report := &RunReport{StoreID: storeID, WeekStart: weekStart}
	var runErr error
	defer func() {
		metrics.RecordPipelineRun("store", time.Since(start), runErr)
	}()

	aggResult, err := runStage(ctx, "aggregation", func(ctx context.Context) (*aggregation.Result, error) {
		return p.aggregation.Run(ctx, storeID, weekStart)
	})
	if err != nil {
		runErr = fmt.Errorf("aggregation stage: %w", err)
		return nil, runErr
	}
	report.Aggregation = aggResult

	detResult, err := runStage(ctx, "detection", func(ctx context.Context) (*detection.Result, error) {
		return p.detection.Run(ctx, storeID, weekStart)
	})
	if err != nil {
		runErr = fmt.Errorf("detection stage: %w", err)
		return nil, runErr
	}
	report.Detection = detResult

	decResult, err := runStage(ctx, "decision", func(ctx context.Context) (*decision.Result, error) {
		return p.decision.Run(ctx, storeID, weekStart)
	})
	if err != nil {
		runErr = fmt.Errorf("decision stage: %w", err)
		return nil, runErr
	}
	report.Decision = decResult

	if p.notifier != nil && len(decResult.Insights) > 0 {
		p.notifier.InsightsSelected(ctx, decResult.Insights)
	}

	report.Duration = time.Since(start)
	logging.Info().
		Str("store_id", storeID).
		Str("week", normalize.WeekKey(weekStart)).
		Dur("duration", report.Duration).
		Int("signals", detResult.Total).
		Int("insights", decResult.Selected).
		Msg("Pipeline run complete")

	return report, nil
}

// runStage times one stage and records its outcome.
func runStage[T any](ctx context.Context, name string, fn func(context.Context) (T, error)) (T, error) {
	start := time.Now()
	result, err := fn(ctx)
	metrics.RecordPipelineStage(name, time.Since(start), err)
	return result, err
}
