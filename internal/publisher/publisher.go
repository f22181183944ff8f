// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Package publisher assembles the orchestrator and its collaborators into
// one service runner.
package publisher

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"opengauss.org/monitor-publisher-go/internal/metrics"
	"opengauss.org/monitor-publisher-go/internal/publisher/orchestrator"
	"opengauss.org/monitor-publisher-go/internal/publisher/schedule"
	"opengauss.org/monitor-publisher-go/internal/publisher/worker"
	"opengauss.org/monitor-publisher-go/internal/query"
	"opengauss.org/monitor-publisher-go/internal/server"
	"opengauss.org/monitor-publisher-go/internal/sink/alerting"
	"opengauss.org/monitor-publisher-go/internal/sink/registry"
	"opengauss.org/monitor-publisher-go/internal/sink/statuspage"
	"opengauss.org/monitor-publisher-go/internal/store"
	servertypes "opengauss.org/monitor-publisher-go/internal/types/server"
	"opengauss.org/monitor-publisher-go/internal/util/logger"
)

// Runner owns the orchestrator's full dependency graph and its lifecycle.
type Runner struct {
	server *server.Server

	store      store.Store
	scheduler  *schedule.CronScheduler
	dispatcher *worker.Dispatcher
	registry   *registry.Sink
	orch       *orchestrator.Orchestrator

	selfRegistry *prometheus.Registry

	logger logger.Logger
}

// New wires stores, trigger engine, dispatcher, sinks and orchestrator
// from the service configuration.
func New(srv *server.Server, activateDelay time.Duration) (*Runner, error) {
	log := srv.Logger

	st, err := store.Open(srv.Config.Publisher.Storage.Path, log)
	if err != nil {
		return nil, err
	}

	selfRegistry := prometheus.NewRegistry()
	selfRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	sched := schedule.NewCronScheduler(log)
	disp := worker.NewDispatcher(
		srv.Config.Publisher.Worker.PoolSize,
		srv.Config.Publisher.Worker.QueueSize,
		log,
	)
	reg := registry.New(log)

	orch := orchestrator.New(orchestrator.Options{
		Store:         st,
		Scheduler:     sched,
		Executor:      query.NewSQLExecutor(log),
		Dispatcher:    disp,
		Registry:      reg,
		Alerting:      alerting.New(log),
		StatusPage:    statuspage.New(srv.Config.Publisher.StatusPage.ConfigPath, log),
		Metrics:       metrics.New(selfRegistry),
		ActivateDelay: activateDelay,
		Logger:        log,
	})

	return &Runner{
		server:       srv,
		store:        st,
		scheduler:    sched,
		dispatcher:   disp,
		registry:     reg,
		orch:         orch,
		selfRegistry: selfRegistry,
		logger:       log.WithName("publisher"),
	}, nil
}

// Start reconciles the trigger engine from the persisted jobs and then
// serves until the context ends.
func (r *Runner) Start(ctx context.Context) error {
	if err := r.orch.Reload(ctx); err != nil {
		return err
	}
	r.logger.Info("publisher started")
	<-ctx.Done()
	return nil
}

func (r *Runner) Info() servertypes.Info {
	return servertypes.Info{Name: "publisher"}
}

func (r *Runner) Close() error {
	r.scheduler.Close()
	r.dispatcher.Close()
	return r.store.Close()
}

// Orchestrator exposes the publish/job operations surface.
func (r *Runner) Orchestrator() *orchestrator.Orchestrator {
	return r.orch
}

// SeriesHandler serves the published-series scrape endpoint.
func (r *Runner) SeriesHandler() http.Handler {
	return r.registry.Handler()
}

// SelfRegistry holds the service's own operational metrics.
func (r *Runner) SelfRegistry() *prometheus.Registry {
	return r.selfRegistry
}
