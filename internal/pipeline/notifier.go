// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package pipeline

import (
	"context"

	"github.com/vinsight/vinsight/internal/models"
)

// FanOutNotifier delivers selections to several notifiers in order. Nil
// entries are skipped so callers can pass optional sinks directly.
type FanOutNotifier []Notifier

// NewFanOutNotifier builds a notifier over the non-nil sinks. Returns
// nil when nothing listens, which Pipeline treats as no notifier.
func NewFanOutNotifier(sinks ...Notifier) Notifier {
	var active FanOutNotifier
	for _, s := range sinks {
		if s != nil {
			active = append(active, s)
		}
	}
	if len(active) == 0 {
		return nil
	}
	return active
}

// InsightsSelected implements Notifier.
func (f FanOutNotifier) InsightsSelected(ctx context.Context, insights []models.Insight) {
	for _, n := range f {
		n.InsightsSelected(ctx, insights)
	}
}
