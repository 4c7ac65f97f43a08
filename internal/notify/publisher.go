// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/vinsight/vinsight/internal/config"
	"github.com/vinsight/vinsight/internal/logging"
	"github.com/vinsight/vinsight/internal/metrics"
	"github.com/vinsight/vinsight/internal/models"
)

// Publisher sends selected insights to JetStream. It satisfies
// pipeline.Notifier and never propagates publish failures to callers.
type Publisher struct {
	publisher message.Publisher
	breaker   *gobreaker.CircuitBreaker[any]

	mu     sync.Mutex
	closed bool
}

// NewPublisher connects to the broker at url, provisions the insights
// stream idempotently, and returns a ready publisher.
func NewPublisher(ctx context.Context, cfg *config.MessagingConfig, url string) (*Publisher, error) {
	logger := newWatermillLogger()

	if err := ensureStream(ctx, cfg, url); err != nil {
		return nil, err
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Str("component", "notify").Msg("NATS disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logging.Info().Str("component", "notify").Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: false, // ensureStream ran already
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create insight publisher: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "insight-publisher",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.RecordBreakerTransition(name, from.String(), to.String())
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Publisher circuit breaker state change")
		},
	})

	return &Publisher{publisher: pub, breaker: breaker}, nil
}

// ensureStream creates or updates the insights stream. Safe to run on
// every startup.
func ensureStream(ctx context.Context, cfg *config.MessagingConfig, url string) error {
	nc, err := natsgo.Connect(url)
	if err != nil {
		return fmt.Errorf("failed to connect for stream setup: %w", err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("failed to open JetStream: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     cfg.StreamName,
		Subjects: []string{"insights.>"},
		MaxAge:   time.Duration(cfg.StreamRetentionDays) * 24 * time.Hour,
		Storage:  jetstream.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("failed to ensure stream %s: %w", cfg.StreamName, err)
	}
	return nil
}

// Subject returns the JetStream subject for one insight.
func Subject(insight *models.Insight) string {
	return fmt.Sprintf("insights.%s.%s", insight.Channel, strings.ToLower(string(insight.CTAType)))
}

// InsightsSelected publishes each insight on its subject. Failures are
// logged and counted, never returned: a down broker must not fail the
// pipeline run that produced the insights.
func (p *Publisher) InsightsSelected(_ context.Context, insights []models.Insight) {
	for i := range insights {
		insight := &insights[i]

		payload, err := json.Marshal(insight)
		if err != nil {
			metrics.RecordNATSPublish(err)
			logging.Error().Err(err).
				Str("insight_id", insight.ID.String()).
				Msg("Failed to serialize insight for publish")
			continue
		}

		msg := message.NewMessage(insight.ID.String(), payload)
		msg.Metadata.Set(natsgo.MsgIdHdr, insight.ID.String())

		_, err = p.breaker.Execute(func() (any, error) {
			return nil, p.publish(Subject(insight), msg)
		})
		metrics.RecordNATSPublish(err)
		if err != nil {
			logging.Warn().Err(err).
				Str("insight_id", insight.ID.String()).
				Str("subject", Subject(insight)).
				Msg("Failed to publish insight")
		}
	}
}

func (p *Publisher) publish(subject string, msg *message.Message) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return fmt.Errorf("publisher is closed")
	}
	p.mu.Unlock()
	return p.publisher.Publish(subject, msg)
}

// Close shuts the underlying publisher down. Idempotent.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}
