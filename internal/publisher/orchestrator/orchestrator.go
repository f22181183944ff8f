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

// Package orchestrator drives the publish/unpublish state machine: it
// keeps job↔source bindings consistent, starts and stops schedules on the
// trigger engine, and hands side effects to the async dispatcher.
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"opengauss.org/monitor-publisher-go/internal/metrics"
	"opengauss.org/monitor-publisher-go/internal/publisher/schedule"
	"opengauss.org/monitor-publisher-go/internal/publisher/worker"
	"opengauss.org/monitor-publisher-go/internal/query"
	"opengauss.org/monitor-publisher-go/internal/sink/alerting"
	"opengauss.org/monitor-publisher-go/internal/sink/registry"
	"opengauss.org/monitor-publisher-go/internal/sink/statuspage"
	"opengauss.org/monitor-publisher-go/internal/store"
	errtypes "opengauss.org/monitor-publisher-go/internal/types/err"
	jobtypes "opengauss.org/monitor-publisher-go/internal/types/job"
	"opengauss.org/monitor-publisher-go/internal/util/logger"
)

// Options wires the orchestrator's collaborators.
type Options struct {
	Store         store.Store
	Scheduler     schedule.Scheduler
	Executor      query.Executor
	Dispatcher    *worker.Dispatcher
	Registry      *registry.Sink
	Alerting      *alerting.Sink
	StatusPage    *statuspage.Sink
	Metrics       *metrics.PublisherMetrics
	ActivateDelay time.Duration
	Logger        logger.Logger
}

type Orchestrator struct {
	store      store.Store
	scheduler  schedule.Scheduler
	executor   query.Executor
	dispatcher *worker.Dispatcher
	registry   *registry.Sink
	alerting   *alerting.Sink
	statusPage *statuspage.Sink
	metrics    *metrics.PublisherMetrics

	activateDelay time.Duration

	// serializes alerting registrations: the alerting back-end write is a
	// read-modify-write of shared external state
	alertMu sync.Mutex

	logger logger.Logger
}

func New(opts Options) *Orchestrator {
	if opts.ActivateDelay <= 0 {
		opts.ActivateDelay = 5 * time.Second
	}
	return &Orchestrator{
		store:         opts.Store,
		scheduler:     opts.Scheduler,
		executor:      opts.Executor,
		dispatcher:    opts.Dispatcher,
		registry:      opts.Registry,
		alerting:      opts.Alerting,
		statusPage:    opts.StatusPage,
		metrics:       opts.Metrics,
		activateDelay: opts.ActivateDelay,
		logger:        opts.Logger.WithName("orchestrator"),
	}
}

func (o *Orchestrator) key(j *jobtypes.Job) schedule.Key {
	return schedule.Key{JobID: j.JobID, JobGroup: j.Group()}
}

// activate marks a job NORMAL, persists it, and makes its schedule live.
// Scheduler errors are logged and absorbed; the persisted status is the
// source of truth and the startup reload reconciles divergence.
func (o *Orchestrator) activate(ctx context.Context, j *jobtypes.Job) error {
	j.Status = jobtypes.StatusNormal
	if err := o.store.SaveJob(ctx, j); err != nil {
		return err
	}
	key := o.key(j)
	if o.scheduler.Exists(key) {
		if err := o.scheduler.Resume(key); err != nil {
			o.logger.Error(err, "failed to resume schedule", "job", j.JobName)
		}
		return nil
	}
	if err := o.scheduler.Create(key, j.CronExpression, o.runFor(j.JobID)); err != nil {
		o.logger.Error(err, "failed to create schedule", "job", j.JobName)
	}
	return nil
}

// pause marks a job PAUSED, persists it, and pauses its schedule.
func (o *Orchestrator) pause(ctx context.Context, j *jobtypes.Job) error {
	j.Status = jobtypes.StatusPaused
	if err := o.store.SaveJob(ctx, j); err != nil {
		return err
	}
	if err := o.scheduler.Pause(o.key(j)); err != nil {
		o.logger.Error(err, "failed to pause schedule", "job", j.JobName)
	}
	return nil
}

// sharedElsewhere reports which of the jobs are still referenced by a
// binding other than excludeSource.
func (o *Orchestrator) sharedElsewhere(ctx context.Context, excludeSource int64, jobs []*jobtypes.Job) (map[int64]bool, error) {
	shared := make(map[int64]bool)
	if len(jobs) == 0 {
		return shared, nil
	}
	bindings, err := o.store.ListBindings(ctx)
	if err != nil {
		return nil, err
	}
	for _, j := range jobs {
		for _, b := range bindings {
			if b.DataSourceID == excludeSource {
				continue
			}
			if containsID(b.JobIDs, j.JobID) {
				shared[j.JobID] = true
				break
			}
		}
	}
	return shared, nil
}

// validateBackends checks, before any mutation, that the back-ends the job
// set needs are configured and usable. It returns the alerting and
// status-page configs when the respective platforms occur in jobs.
func (o *Orchestrator) validateBackends(ctx context.Context, jobs []*jobtypes.Job) (alertCfg, pageCfg *jobtypes.Config, err error) {
	var needAlert, needPage bool
	for _, j := range jobs {
		switch j.Platform {
		case jobtypes.PlatformZabbix:
			needAlert = true
		case jobtypes.PlatformNagios:
			needPage = true
		}
	}

	if needAlert {
		alertCfg, err = o.store.GetConfigByPlatform(ctx, jobtypes.PlatformZabbix)
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, errtypes.Validationf("configure the alerting source first")
		}
		if err != nil {
			return nil, nil, err
		}
		if err = o.alerting.Validate(alertCfg); err != nil {
			return nil, nil, err
		}
	}

	if needPage {
		pageCfg, err = o.store.GetConfigByPlatform(ctx, jobtypes.PlatformNagios)
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, errtypes.Validationf("configure the status-page source first")
		}
		if err != nil {
			return nil, nil, err
		}
		if err = o.statusPage.Validate(pageCfg); err != nil {
			return nil, nil, err
		}
	}

	return alertCfg, pageCfg, nil
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func withoutIDs(ids []int64, drop []int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, v := range ids {
		if !containsID(drop, v) {
			out = append(out, v)
		}
	}
	return out
}
