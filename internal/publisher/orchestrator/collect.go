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

package orchestrator

import (
	"context"
	"strconv"
	"time"

	"opengauss.org/monitor-publisher-go/internal/publisher/column"
	"opengauss.org/monitor-publisher-go/internal/publisher/worker"
	jobtypes "opengauss.org/monitor-publisher-go/internal/types/job"
)

// runFor builds the function the trigger engine fires for a job.
func (o *Orchestrator) runFor(jobID int64) func() {
	return func() {
		o.collect(jobID)
	}
}

// collect runs one collection pass for the job against every data source
// it is bound to. Failures are logged; a scheduled run never propagates
// errors anywhere.
func (o *Orchestrator) collect(jobID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	j, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		o.logger.Error(err, "collection skipped, job not loadable", "jobId", jobID)
		return
	}
	bindings, err := o.store.ListBindings(ctx)
	if err != nil {
		o.logger.Error(err, "collection skipped, bindings not loadable", "job", j.JobName)
		return
	}

	for _, b := range bindings {
		if !containsID(b.JobIDs, jobID) {
			continue
		}
		cfg, err := o.store.GetConfig(ctx, b.DataSourceID)
		if err != nil {
			o.logger.Error(err, "collection skipped for source", "job", j.JobName, "source", b.DataSourceID)
			continue
		}
		o.collectOne(ctx, j, cfg)
	}
}

func (o *Orchestrator) collectOne(ctx context.Context, j *jobtypes.Job, cfg *jobtypes.Config) {
	rows, err := o.executor.Run(ctx, cfg, j.Target)
	if err != nil {
		o.logger.Error(err, "collection query failed", "job", j.JobName, "source", cfg.DataSourceID)
		return
	}

	switch j.Platform {
	case jobtypes.PlatformPrometheus:
		// later rows overwrite earlier ones for the same column
		for _, row := range rows {
			for _, c := range row {
				v := column.NormalizeValue(c)
				if !column.IsNumeric(v) {
					continue
				}
				f, err := strconv.ParseFloat(v, 64)
				if err != nil {
					continue
				}
				o.registry.Set(c.Name+"_"+j.JobName+"_"+cfg.ConnectName, f)
			}
		}
	case jobtypes.PlatformNagios:
		if err := o.statusPage.Merge(column.PublishMap(rows, j.JobName, cfg.ConnectName)); err != nil {
			o.logger.Error(err, "status-page merge failed", "job", j.JobName)
		}
	default:
		// the alerting back-end polls its items itself
		o.logger.V(1).Info("collection ran", "job", j.JobName, "rows", len(rows))
	}
}

func (o *Orchestrator) removeSeriesTask(keys []string) worker.Task {
	return worker.Task{Kind: worker.KindRemoveSeries, Run: func(context.Context) error {
		o.registry.Remove(keys...)
		return nil
	}}
}

func (o *Orchestrator) registerSeriesTask(jobID int64) worker.Task {
	return worker.Task{Kind: worker.KindRegisterSeries, Run: func(context.Context) error {
		// an immediate collection pass makes the series visible without
		// waiting for the first cron fire
		o.collect(jobID)
		return nil
	}}
}

func (o *Orchestrator) alertingTask(jobs []*jobtypes.Job, srcCfg, alertCfg *jobtypes.Config) worker.Task {
	return worker.Task{Kind: worker.KindRegisterAlertingJobs, Run: func(ctx context.Context) error {
		o.alertMu.Lock()
		defer o.alertMu.Unlock()
		return o.alerting.Register(ctx, jobs, srcCfg, alertCfg)
	}}
}

func (o *Orchestrator) statusPageMergeTask(jobs []*jobtypes.Job, srcCfg *jobtypes.Config) worker.Task {
	return worker.Task{Kind: worker.KindRegisterStatusPageJobs, Run: func(ctx context.Context) error {
		for _, j := range jobs {
			rows, err := o.executor.Run(ctx, srcCfg, j.Target)
			if err != nil {
				return err
			}
			if err := o.statusPage.Merge(column.PublishMap(rows, j.JobName, srcCfg.ConnectName)); err != nil {
				return err
			}
		}
		return nil
	}}
}

func (o *Orchestrator) activatePageJobsTask(jobs []*jobtypes.Job) worker.Task {
	return worker.Task{Kind: worker.KindDelayedActivateStatusPageJobs, Run: func(ctx context.Context) error {
		for _, j := range jobs {
			if err := o.activate(ctx, j); err != nil {
				return err
			}
		}
		return nil
	}}
}

func (o *Orchestrator) removeJobTask(jobID int64) worker.Task {
	return worker.Task{Kind: worker.KindRemoveJobByID, Run: func(ctx context.Context) error {
		bindings, err := o.store.ListBindings(ctx)
		if err != nil {
			return err
		}
		for _, b := range bindings {
			if !containsID(b.JobIDs, jobID) {
				continue
			}
			b.JobIDs = withoutIDs(b.JobIDs, []int64{jobID})
			if err := o.store.SaveBinding(ctx, b); err != nil {
				return err
			}
		}
		return nil
	}}
}
