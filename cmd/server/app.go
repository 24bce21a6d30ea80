// Cinematch - Movie Catalog Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/cinematch/internal/api"
	"github.com/tomtom215/cinematch/internal/catalog"
	"github.com/tomtom215/cinematch/internal/config"
	"github.com/tomtom215/cinematch/internal/database"
	"github.com/tomtom215/cinematch/internal/logging"
	"github.com/tomtom215/cinematch/internal/scheduler"
	"github.com/tomtom215/cinematch/internal/supervisor"
	"github.com/tomtom215/cinematch/internal/supervisor/services"
	"github.com/tomtom215/cinematch/internal/sync"
	"github.com/tomtom215/cinematch/internal/tasks"
)

// app owns everything one process opened, in the order it must be closed.
type app struct {
	cfg       *config.Config
	tree      *supervisor.Tree
	db        *database.DB
	transport *tasks.Transport
	status    *tasks.StatusStore
	queue     *tasks.Queue

	// handler is the API router, nil without the api role.
	handler http.Handler

	// consumers close once the local worker and recorder have subscribed;
	// ready closes after all of them.
	consumers []<-chan struct{}
	ready     chan struct{}
}

// newApp opens the shared infrastructure and registers one supervised
// service per enabled role. On error everything opened so far is closed.
func newApp(cfg *config.Config) (_ *app, err error) {
	a := &app{cfg: cfg, ready: make(chan struct{})}
	defer func() {
		if err != nil {
			_ = a.close()
		}
	}()

	hasAPI := cfg.Server.HasRole(config.RoleAPI)
	hasWorker := cfg.Server.HasRole(config.RoleWorker)
	hasScheduler := cfg.Server.HasRole(config.RoleScheduler)

	if hasAPI || hasWorker {
		a.db, err = database.New(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		logging.Info().Str("driver", a.db.Driver()).Msg("Database initialized")
	}

	a.transport, err = tasks.NewTransport(&cfg.Queue)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize task transport: %w", err)
	}

	if hasAPI {
		a.status, err = tasks.OpenStatusStore(cfg.Queue.StatusPath, cfg.Queue.StatusTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to open task status store: %w", err)
		}
	}

	a.queue = tasks.NewQueue(a.transport.Publisher, cfg.Queue.TasksTopic, config.RoleAPI, a.status)

	a.tree = supervisor.NewTree(logging.NewComponentSlogLogger("supervisor"), supervisor.RestartPolicy{
		StopTimeout: cfg.Server.ShutdownTimeout,
	})

	if a.status != nil {
		recorder := tasks.NewRecorder(a.transport.WatchSubscriber, a.status, cfg.Queue.TasksTopic, cfg.Queue.ResultsTopic)
		a.consumers = append(a.consumers, recorder.Running())
		a.tree.Add(supervisor.LayerStatus, recorder)
	}

	if hasWorker {
		worker := a.newWorker()
		a.consumers = append(a.consumers, worker.Running())
		a.tree.Add(supervisor.LayerTasks, worker)
	}

	if hasScheduler {
		sched, err := scheduler.New(&cfg.Scheduler, a.queue.WithSource(config.RoleScheduler))
		if err != nil {
			return nil, fmt.Errorf("failed to create scheduler: %w", err)
		}
		a.tree.Add(supervisor.LayerTasks, a.gate(services.NewSchedulerService(sched)))
	}

	if hasAPI {
		handler := api.NewHandler(a.queue, a.status, a.db, version)
		a.handler = api.NewRouter(handler, api.ChiMiddlewareConfigFrom(&cfg.API)).SetupChi()
		server := &http.Server{
			Addr:              cfg.Server.ListenAddr,
			Handler:           a.handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		}
		a.tree.Add(supervisor.LayerAPI, a.gate(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout)))
	}

	logging.Info().
		Strs("roles", cfg.Server.Roles).
		Str("queue_backend", cfg.Queue.Backend).
		Msg("Services registered")
	return a, nil
}

func (a *app) newWorker() *tasks.Worker {
	cfg := a.cfg
	client := catalog.NewClient(&cfg.Catalog)
	store := sync.NewStore(a.db)

	handlers := tasks.CatalogHandlers(tasks.CatalogServices{
		Importer:         sync.NewImporter(client, store, cfg.Catalog.MaxCast),
		Crawler:          sync.NewCrawler(client, store, a.queue.WithSource("crawler"), cfg.Crawl.PageDelay),
		Refresher:        sync.NewRefresher(client, store, a.queue.WithSource("refresher")),
		DefaultBatchSize: cfg.Refresh.BatchSize,
	})
	return tasks.NewWorker(a.transport, cfg.Queue.TasksTopic, cfg.Queue.ResultsTopic, handlers, cfg.Queue.Workers)
}

// gate holds producers back until the local consumers are subscribed. Only
// the memory backend needs it; JetStream keeps messages for durables that
// are not connected yet.
func (a *app) gate(svc suture.Service) suture.Service {
	if a.cfg.Queue.Backend != "memory" {
		return svc
	}
	return services.NewGatedService(a.ready, svc)
}

// signalReady closes a.ready once every local consumer is running.
func (a *app) signalReady(ctx context.Context) {
	for _, running := range a.consumers {
		select {
		case <-running:
		case <-ctx.Done():
			return
		}
	}
	close(a.ready)
	logging.Info().Int("consumers", len(a.consumers)).Msg("Task consumers subscribed")
}

// close releases resources in reverse order of opening. It runs after the
// supervisor tree has stopped.
func (a *app) close() error {
	var errs []error
	if a.queue != nil {
		a.queue.Close()
	}
	if a.transport != nil {
		if err := a.transport.Close(); err != nil {
			errs = append(errs, fmt.Errorf("transport: %w", err))
		}
	}
	if a.status != nil {
		if err := a.status.Close(); err != nil {
			errs = append(errs, fmt.Errorf("status store: %w", err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}
	return errors.Join(errs...)
}
