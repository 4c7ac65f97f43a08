// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package audit

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/vinsight/vinsight/internal/logging"
)

// Config holds configuration for the audit trail.
type Config struct {
	// RetentionDays is how long to keep audit entries.
	RetentionDays int `json:"retention_days"`

	// CleanupInterval is how often to run retention cleanup.
	CleanupInterval time.Duration `json:"cleanup_interval"`

	// BufferSize is the size of the async write buffer.
	BufferSize int `json:"buffer_size"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays:   90,
		CleanupInterval: 24 * time.Hour,
		BufferSize:      256,
	}
}

// Trail records operator actions asynchronously so request handlers
// never block on audit persistence. A nil *Trail is safe to call;
// every Record* method becomes a no-op.
type Trail struct {
	config    *Config
	store     Store
	entryChan chan *Entry
	stopChan  chan struct{}
	done      chan struct{}
}

// NewTrail creates an audit trail backed by the given store and starts
// its async writer.
func NewTrail(store Store, config *Config) *Trail {
	if config == nil {
		config = DefaultConfig()
	}

	t := &Trail{
		config:    config,
		store:     store,
		entryChan: make(chan *Entry, config.BufferSize),
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	go t.asyncWriter()
	return t
}

func (t *Trail) asyncWriter() {
	defer close(t.done)

	for {
		select {
		case <-t.stopChan:
			// Drain what is already buffered before exiting.
			for {
				select {
				case entry := <-t.entryChan:
					t.writeEntry(entry)
				default:
					return
				}
			}
		case entry := <-t.entryChan:
			t.writeEntry(entry)
		}
	}
}

func (t *Trail) writeEntry(entry *Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := t.store.Save(ctx, entry); err != nil {
		logging.Error().Err(err).Str("action", string(entry.Action)).Msg("Failed to save audit entry")
	}
}

// Record queues an entry for persistence. If the buffer is full the
// entry is dropped with a warning rather than blocking the caller.
func (t *Trail) Record(entry *Entry) {
	if t == nil {
		return
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	select {
	case t.entryChan <- entry:
	default:
		logging.Warn().Str("action", string(entry.Action)).Msg("Audit buffer full, dropping entry")
	}
}

// RecordFeedback records an insight feedback status transition.
func (t *Trail) RecordFeedback(ctx context.Context, storeID, insightID, fromStatus, toStatus, sourceIP string) {
	if t == nil {
		return
	}
	action := ActionFeedbackExecuted
	if toStatus == "DISMISSED" {
		action = ActionFeedbackDismissed
	}
	t.Record(&Entry{
		Action:     action,
		StoreID:    storeID,
		InsightID:  insightID,
		FromStatus: fromStatus,
		ToStatus:   toStatus,
		SourceIP:   sourceIP,
		RequestID:  logging.RequestIDFromContext(ctx),
	})
}

// RecordRun records a manually triggered pipeline or trends run.
func (t *Trail) RecordRun(ctx context.Context, action Action, storeID, week, sourceIP string) {
	if t == nil {
		return
	}
	var metadata json.RawMessage
	if week != "" {
		metadata, _ = json.Marshal(map[string]string{"week": week})
	}
	t.Record(&Entry{
		Action:    action,
		StoreID:   storeID,
		SourceIP:  sourceIP,
		RequestID: logging.RequestIDFromContext(ctx),
		Metadata:  metadata,
	})
}

// Query retrieves entries matching the filter.
func (t *Trail) Query(ctx context.Context, filter QueryFilter) ([]Entry, error) {
	return t.store.Query(ctx, filter)
}

// StartCleanup runs retention cleanup on the configured interval until
// the context is canceled.
func (t *Trail) StartCleanup(ctx context.Context) {
	if t == nil {
		return
	}
	interval := t.config.CleanupInterval
	retention := t.config.RetentionDays

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().AddDate(0, 0, -retention)
				count, err := t.store.PurgeBefore(ctx, cutoff)
				if err != nil {
					logging.Error().Err(err).Msg("Audit cleanup error")
				} else if count > 0 {
					logging.Info().Int64("count", count).Msg("Purged old audit entries")
				}
			}
		}
	}()
}

// Close stops the async writer after draining buffered entries.
func (t *Trail) Close() error {
	if t == nil {
		return nil
	}
	close(t.stopChan)
	<-t.done
	return nil
}

// SourceFromRequest extracts the client IP for audit entries,
// preferring proxy headers over the socket address.
func SourceFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
