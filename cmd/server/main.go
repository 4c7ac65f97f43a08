// Vinsight - Merchandising Insight Engine for E-commerce Storefronts
// Copyright 2026 The Vinsight Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vinsight/vinsight

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vinsight/vinsight/internal/aggregation"
	"github.com/vinsight/vinsight/internal/audit"
	"github.com/vinsight/vinsight/internal/api"
	"github.com/vinsight/vinsight/internal/config"
	"github.com/vinsight/vinsight/internal/database"
	"github.com/vinsight/vinsight/internal/decision"
	"github.com/vinsight/vinsight/internal/detection"
	"github.com/vinsight/vinsight/internal/eventstore"
	"github.com/vinsight/vinsight/internal/logging"
	"github.com/vinsight/vinsight/internal/notify"
	"github.com/vinsight/vinsight/internal/pipeline"
	"github.com/vinsight/vinsight/internal/scheduler"
	"github.com/vinsight/vinsight/internal/supervisor"
	"github.com/vinsight/vinsight/internal/trends"
	ws "github.com/vinsight/vinsight/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("event_store", cfg.EventStore.Database).
		Bool("scheduler", cfg.Scheduler.Enabled).
		Bool("messaging", cfg.Messaging.Enabled).
		Msg("Starting Vinsight")

	// Analytics store first; nothing works without it.
	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize analytics store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing analytics store")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Operator audit trail shares the DuckDB handle with the insight
	// store.
	auditStore := audit.NewDuckDBStore(db.Conn())
	if err := auditStore.CreateTable(ctx); err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize audit trail schema")
	}
	trail := audit.NewTrail(auditStore, audit.DefaultConfig())
	defer func() {
		if err := trail.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing audit trail")
		}
	}()
	trail.StartCleanup(ctx)

	// Catalog snapshot cache is optional; a failure degrades the catalog
	// fallback, it does not block startup. The event store takes ownership
	// and closes it on shutdown.
	var snapshots *eventstore.SnapshotCache
	if cfg.EventStore.SnapshotPath != "" {
		snapshots, err = eventstore.NewSnapshotCache(cfg.EventStore.SnapshotPath)
		if err != nil {
			logging.Warn().Err(err).Msg("Catalog snapshot cache unavailable, continuing without it")
			snapshots = nil
		}
	}

	events, err := eventstore.New(ctx, &cfg.EventStore, snapshots)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize event store client")
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		if err := events.Close(closeCtx); err != nil {
			logging.Error().Err(err).Msg("Error closing event store client")
		}
	}()

	if err := events.Ping(ctx); err != nil {
		logging.Warn().Err(err).Msg("Event store unreachable at startup (will retry per run)")
	}

	// Optional NATS messaging for insight notifications.
	var publisher *notify.Publisher
	if cfg.Messaging.Enabled {
		natsURL := cfg.Messaging.URL
		if cfg.Messaging.EmbeddedServer {
			embedded, err := notify.NewEmbeddedServer(&cfg.Messaging)
			if err != nil {
				logging.Fatal().Err(err).Msg("Failed to start embedded NATS server")
			}
			natsURL = embedded.ClientURL()
			defer func() {
				shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutCancel()
				if err := embedded.Shutdown(shutCtx); err != nil {
					logging.Error().Err(err).Msg("Error stopping embedded NATS server")
				}
			}()
		}

		publisher, err = notify.NewPublisher(ctx, &cfg.Messaging, natsURL)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize insight publisher")
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing insight publisher")
			}
		}()
		logging.Info().Str("url", natsURL).Msg("Insight publisher ready")
	}

	// Websocket hub feeds dashboards; it also receives pipeline
	// selections through the fan-out notifier.
	wsHub := ws.NewHub()

	var notifier pipeline.Notifier
	if publisher != nil {
		notifier = pipeline.NewFanOutNotifier(publisher, wsHub)
	} else {
		notifier = pipeline.NewFanOutNotifier(wsHub)
	}

	// The engines share the analytics store; decision additionally reads
	// the catalog for the inventory guardrail.
	agg := aggregation.NewEngine(events, db)
	det := detection.NewEngine(db, db, cfg.Detection)
	dec := decision.NewEngine(db, db, events, cfg.Decision)
	pl := pipeline.New(agg, det, dec, notifier)
	trendsEngine := trends.NewEngine(events, db, cfg.Trends)

	// Supervisor tree; sutureslog logs through the zerolog bridge.
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddMessagingService(wsHub)

	if cfg.Scheduler.Enabled {
		sched := scheduler.New(pl, db, cfg.Scheduler)
		tree.AddPipelineService(sched)
		logging.Info().
			Dur("check_interval", cfg.Scheduler.CheckInterval).
			Bool("run_on_start", cfg.Scheduler.RunOnStart).
			Msg("Weekly scheduler enabled")
	} else {
		logging.Info().Msg("Weekly scheduler disabled, runs trigger via API only")
	}

	handler := api.NewHandler(db, events, pl, trendsEngine, wsHub, cfg).WithAudit(trail)
	router := api.NewRouter(handler, api.NewChiMiddleware(api.NewChiMiddlewareConfig(cfg.API)))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}
	tree.AddAPIService(supervisor.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Vinsight stopped gracefully")
}
