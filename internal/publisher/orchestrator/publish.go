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
	"errors"

	"opengauss.org/monitor-publisher-go/internal/publisher/column"
	"opengauss.org/monitor-publisher-go/internal/publisher/worker"
	"opengauss.org/monitor-publisher-go/internal/store"
	errtypes "opengauss.org/monitor-publisher-go/internal/types/err"
	jobtypes "opengauss.org/monitor-publisher-go/internal/types/job"
)

// Publish binds the requested job set to the data source, replacing its
// previous set wholesale. Jobs that drop out of the set are paused unless
// another binding still references them; newly-requested and still-shared
// jobs are activated. Side effects run async.
func (o *Orchestrator) Publish(ctx context.Context, dataSourceID int64, jobIDs []int64) error {
	err := o.publish(ctx, dataSourceID, jobIDs)
	o.metrics.Observe("publish", err)
	return err
}

func (o *Orchestrator) publish(ctx context.Context, dataSourceID int64, jobIDs []int64) error {
	cfg, err := o.store.GetConfig(ctx, dataSourceID)
	if errors.Is(err, store.ErrNotFound) {
		return errtypes.Validationf("no such source %d", dataSourceID)
	}
	if err != nil {
		return err
	}

	newJobs, err := o.store.ListJobsByIDs(ctx, jobIDs)
	if err != nil {
		return err
	}

	var oldIDs []int64
	if b, err := o.store.GetBinding(ctx, dataSourceID); err == nil {
		oldIDs = b.JobIDs
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	oldJobs, err := o.store.ListJobsByIDs(ctx, oldIDs)
	if err != nil {
		return err
	}

	// removed = old − requested
	var removed []*jobtypes.Job
	for _, j := range oldJobs {
		if !containsID(jobIDs, j.JobID) {
			removed = append(removed, j)
		}
	}

	shared, err := o.sharedElsewhere(ctx, dataSourceID, removed)
	if err != nil {
		return err
	}

	// activation set = requested ∪ still-shared removed, status-page jobs
	// deferred to the delayed path
	activation := append([]*jobtypes.Job(nil), newJobs...)
	for _, j := range removed {
		if shared[j.JobID] {
			activation = append(activation, j)
		}
	}

	// back-end usability is checked for every job that will end up active,
	// still-shared removed jobs included, before anything is mutated
	alertCfg, _, err := o.validateBackends(ctx, activation)
	if err != nil {
		return err
	}

	for _, j := range removed {
		if err := o.pause(ctx, j); err != nil {
			return err
		}
	}

	// replace-the-set binding write
	if err := o.store.SaveBinding(ctx, &jobtypes.SourceTarget{
		DataSourceID: dataSourceID,
		JobIDs:       append([]int64(nil), jobIDs...),
	}); err != nil {
		return err
	}

	// registry cleanup for jobs truly leaving, keyed with this source's
	// connection name; shared jobs keep their series
	var removeKeys []string
	for _, j := range removed {
		if !shared[j.JobID] {
			removeKeys = append(removeKeys, column.RegistryKeys(j.Columns, cfg.ConnectName)...)
		}
	}

	var tasks []worker.Task
	if len(removeKeys) > 0 {
		tasks = append(tasks, o.removeSeriesTask(removeKeys))
	}

	var alertJobs, pageJobs []*jobtypes.Job
	for _, j := range activation {
		if j.Platform == jobtypes.PlatformNagios {
			pageJobs = append(pageJobs, j)
			continue
		}
		if err := o.activate(ctx, j); err != nil {
			return err
		}
		switch j.Platform {
		case jobtypes.PlatformPrometheus:
			tasks = append(tasks, o.registerSeriesTask(j.JobID))
		case jobtypes.PlatformZabbix:
			alertJobs = append(alertJobs, j)
		}
	}

	if len(alertJobs) > 0 {
		tasks = append(tasks, o.alertingTask(alertJobs, cfg, alertCfg))
	}
	if len(pageJobs) > 0 {
		tasks = append(tasks, o.statusPageMergeTask(pageJobs, cfg))
	}

	o.dispatcher.Dispatch(tasks...)

	if len(pageJobs) > 0 {
		// activation waits for the just-written configuration to propagate
		o.dispatcher.DispatchAfter(o.activateDelay, o.activatePageJobsTask(pageJobs))
	}

	o.logger.Info("published", "source", dataSourceID,
		"jobs", len(jobIDs), "removed", len(removed), "shared", len(shared))
	return nil
}

// Unpublish removes the given jobs from the data source's binding, pausing
// them and cleaning their registry series unless another binding still
// references them.
func (o *Orchestrator) Unpublish(ctx context.Context, dataSourceID int64, jobIDs []int64) error {
	err := o.unpublish(ctx, dataSourceID, jobIDs)
	o.metrics.Observe("unpublish", err)
	return err
}

func (o *Orchestrator) unpublish(ctx context.Context, dataSourceID int64, jobIDs []int64) error {
	cfg, err := o.store.GetConfig(ctx, dataSourceID)
	if errors.Is(err, store.ErrNotFound) {
		return errtypes.Validationf("no such source %d", dataSourceID)
	}
	if err != nil {
		return err
	}

	binding, err := o.store.GetBinding(ctx, dataSourceID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	var dropIDs []int64
	for _, id := range jobIDs {
		if containsID(binding.JobIDs, id) {
			dropIDs = append(dropIDs, id)
		}
	}
	if len(dropIDs) == 0 {
		return nil
	}

	removed, err := o.store.ListJobsByIDs(ctx, dropIDs)
	if err != nil {
		return err
	}

	for _, j := range removed {
		if err := o.pause(ctx, j); err != nil {
			return err
		}
	}

	binding.JobIDs = withoutIDs(binding.JobIDs, dropIDs)
	if err := o.store.SaveBinding(ctx, binding); err != nil {
		return err
	}

	shared, err := o.sharedElsewhere(ctx, dataSourceID, removed)
	if err != nil {
		return err
	}

	var removeKeys []string
	for _, j := range removed {
		if shared[j.JobID] {
			// still referenced elsewhere: schedule stays active, series stay
			if err := o.activate(ctx, j); err != nil {
				return err
			}
			continue
		}
		removeKeys = append(removeKeys, column.RegistryKeys(j.Columns, cfg.ConnectName)...)
	}

	if len(removeKeys) > 0 {
		o.dispatcher.Dispatch(o.removeSeriesTask(removeKeys))
	}

	o.logger.Info("unpublished", "source", dataSourceID, "jobs", len(dropIDs))
	return nil
}

// BatchPublish applies the same job set to several data sources. There is
// no cross-source transaction: a failure on source N leaves sources 1..N-1
// already mutated.
func (o *Orchestrator) BatchPublish(ctx context.Context, req *jobtypes.TargetSource) error {
	if req == nil || len(req.DataSourceIDs) == 0 {
		return errtypes.Validationf("no data sources in batch publish")
	}
	for _, dsID := range req.DataSourceIDs {
		if err := o.Publish(ctx, dsID, req.JobIDs); err != nil {
			return err
		}
	}
	return nil
}

// BatchUnpublish mirrors BatchPublish for the pause direction.
func (o *Orchestrator) BatchUnpublish(ctx context.Context, req *jobtypes.TargetSource) error {
	if req == nil || len(req.DataSourceIDs) == 0 {
		return errtypes.Validationf("no data sources in batch unpublish")
	}
	for _, dsID := range req.DataSourceIDs {
		if err := o.Unpublish(ctx, dsID, req.JobIDs); err != nil {
			return err
		}
	}
	return nil
}
