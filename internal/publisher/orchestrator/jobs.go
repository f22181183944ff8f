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
	"sort"
	"strconv"
	"strings"
	"time"

	"opengauss.org/monitor-publisher-go/internal/publisher/column"
	"opengauss.org/monitor-publisher-go/internal/publisher/cron"
	"opengauss.org/monitor-publisher-go/internal/publisher/dedup"
	"opengauss.org/monitor-publisher-go/internal/publisher/worker"
	"opengauss.org/monitor-publisher-go/internal/store"
	errtypes "opengauss.org/monitor-publisher-go/internal/types/err"
	jobtypes "opengauss.org/monitor-publisher-go/internal/types/job"
	"opengauss.org/monitor-publisher-go/internal/util/id"
	"opengauss.org/monitor-publisher-go/internal/util/sqlcheck"
)

func (o *Orchestrator) validateDefinition(req *jobtypes.Job) error {
	if strings.EqualFold(req.TargetGroup, jobtypes.SystemTargetGroup) {
		return errtypes.Validationf("group %q is reserved for built-in jobs", jobtypes.SystemTargetGroup)
	}
	if err := cron.ValidateInterval(req.Num, req.TimeUnit); err != nil {
		return err
	}
	return sqlcheck.Validate(req.Target)
}

// probe runs the job's query once against its data source and returns the
// result rows. A nil DataSourceID means the job is a template and is not
// probed.
func (o *Orchestrator) probe(ctx context.Context, req *jobtypes.Job) ([]column.Row, error) {
	if req.DataSourceID == nil {
		return nil, nil
	}
	cfg, err := o.store.GetConfig(ctx, *req.DataSourceID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errtypes.Validationf("no such source %d", *req.DataSourceID)
	}
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := o.executor.Run(ctx, cfg, req.Target)
	if o.metrics != nil {
		o.metrics.ProbeDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 && !req.AllowEmpty {
		return nil, errtypes.Probef(nil, "probe query returned no rows")
	}
	return rows, nil
}

// mintJobName finds the maximum numeric suffix among existing names
// sharing the prefix and increments it.
func mintJobName(existing []*jobtypes.Job, prefix string) string {
	if prefix == "" {
		prefix = "monitor"
	}
	maxSuffix := 0
	for _, j := range existing {
		if !strings.HasPrefix(j.JobName, prefix) {
			continue
		}
		rest := j.JobName[len(prefix):]
		if rest == "" {
			continue
		}
		n, err := strconv.Atoi(rest)
		if err != nil {
			continue
		}
		if n > maxSuffix {
			maxSuffix = n
		}
	}
	return prefix + strconv.Itoa(maxSuffix+1)
}

// InsertJob validates and creates a new job definition: dedup check, probe
// run to derive the column identities, cron derivation, PAUSED persist,
// then schedule creation.
func (o *Orchestrator) InsertJob(ctx context.Context, req *jobtypes.Job) (*jobtypes.Job, error) {
	j, err := o.insertJob(ctx, req)
	o.metrics.Observe("insert_job", err)
	return j, err
}

func (o *Orchestrator) insertJob(ctx context.Context, req *jobtypes.Job) (*jobtypes.Job, error) {
	if err := o.validateDefinition(req); err != nil {
		return nil, err
	}

	existing, err := o.store.ListJobs(ctx)
	if err != nil {
		return nil, err
	}

	req.IsCreate = true
	if err := dedup.Check(req, existing); err != nil {
		return nil, err
	}

	rows, err := o.probe(ctx, req)
	if err != nil {
		return nil, err
	}

	expr, err := cron.Expression(req.Num, req.TimeUnit)
	if err != nil {
		return nil, err
	}

	name := mintJobName(existing, req.JobName)
	j := &jobtypes.Job{
		JobID:          id.Next(),
		JobName:        name,
		JobGroup:       req.Group(),
		Platform:       req.Platform,
		Target:         req.Target,
		TargetGroup:    req.TargetGroup,
		Num:            req.Num,
		TimeUnit:       req.TimeUnit,
		CronExpression: expr,
		Status:         jobtypes.StatusPaused,
		DataSourceID:   req.DataSourceID,
		Columns:        column.Identities(rows, name),
		AllowEmpty:     req.AllowEmpty,
		CreateTime:     time.Now(),
	}

	if err := o.store.SaveJob(ctx, j); err != nil {
		return nil, err
	}

	// schedule exists from day one but stays paused until a publish
	key := o.key(j)
	if err := o.scheduler.Create(key, j.CronExpression, o.runFor(j.JobID)); err != nil {
		o.logger.Error(err, "failed to create schedule", "job", j.JobName)
		return j, nil
	}
	if err := o.scheduler.Pause(key); err != nil {
		o.logger.Error(err, "failed to pause new schedule", "job", j.JobName)
	}

	o.logger.Info("job created", "job", j.JobName, "platform", j.Platform)
	return j, nil
}

// UpdateJob edits an existing definition. The record is deleted and
// recreated under the same id and name, the schedule is refreshed via
// delete-then-create, and a job published anywhere restarts immediately.
func (o *Orchestrator) UpdateJob(ctx context.Context, req *jobtypes.Job) error {
	err := o.updateJob(ctx, req)
	o.metrics.Observe("update_job", err)
	return err
}

func (o *Orchestrator) updateJob(ctx context.Context, req *jobtypes.Job) error {
	prev, err := o.store.GetJob(ctx, req.JobID)
	if errors.Is(err, store.ErrNotFound) {
		return errtypes.Validationf("no such job %d", req.JobID)
	}
	if err != nil {
		return err
	}

	if err := o.validateDefinition(req); err != nil {
		return err
	}

	existing, err := o.store.ListJobs(ctx)
	if err != nil {
		return err
	}
	req.IsCreate = false
	if err := dedup.Check(req, existing); err != nil {
		return err
	}

	rows, err := o.probe(ctx, req)
	if err != nil {
		return err
	}

	expr, err := cron.Expression(req.Num, req.TimeUnit)
	if err != nil {
		return err
	}

	published, err := o.isPublished(ctx, req.JobID)
	if err != nil {
		return err
	}

	status := jobtypes.StatusPaused
	if published {
		status = jobtypes.StatusNormal
	}

	j := &jobtypes.Job{
		JobID:          prev.JobID,
		JobName:        prev.JobName,
		JobGroup:       req.Group(),
		Platform:       req.Platform,
		Target:         req.Target,
		TargetGroup:    req.TargetGroup,
		Num:            req.Num,
		TimeUnit:       req.TimeUnit,
		CronExpression: expr,
		Status:         status,
		DataSourceID:   req.DataSourceID,
		Columns:        column.Identities(rows, prev.JobName),
		AllowEmpty:     req.AllowEmpty,
		CreateTime:     prev.CreateTime,
	}

	// delete-then-recreate, both the record and the schedule
	if err := o.store.DeleteJob(ctx, prev.JobID); err != nil {
		return err
	}
	if err := o.store.SaveJob(ctx, j); err != nil {
		return err
	}

	key := o.key(j)
	if err := o.scheduler.Delete(key); err != nil {
		o.logger.Error(err, "failed to delete old schedule", "job", j.JobName)
	}
	if err := o.scheduler.Create(key, j.CronExpression, o.runFor(j.JobID)); err != nil {
		o.logger.Error(err, "failed to recreate schedule", "job", j.JobName)
		return nil
	}
	if !published {
		if err := o.scheduler.Pause(key); err != nil {
			o.logger.Error(err, "failed to pause schedule", "job", j.JobName)
		}
	} else if j.Platform != jobtypes.PlatformNagios {
		// the refreshed definition produces a datapoint right away instead
		// of waiting for the next cron fire
		o.dispatcher.Dispatch(o.registerSeriesTask(j.JobID))
	}

	o.logger.Info("job updated", "job", j.JobName, "published", published)
	return nil
}

func (o *Orchestrator) isPublished(ctx context.Context, jobID int64) (bool, error) {
	bindings, err := o.store.ListBindings(ctx)
	if err != nil {
		return false, err
	}
	for _, b := range bindings {
		if containsID(b.JobIDs, jobID) {
			return true, nil
		}
	}
	return false, nil
}

// DeleteJobs removes job definitions and their schedules. Binding cleanup
// and registry-series removal run async.
func (o *Orchestrator) DeleteJobs(ctx context.Context, jobIDs []int64) error {
	err := o.deleteJobs(ctx, jobIDs)
	o.metrics.Observe("delete_jobs", err)
	return err
}

func (o *Orchestrator) deleteJobs(ctx context.Context, jobIDs []int64) error {
	bindings, err := o.store.ListBindings(ctx)
	if err != nil {
		return err
	}

	var tasks []worker.Task
	for _, jobID := range jobIDs {
		j, err := o.store.GetJob(ctx, jobID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}

		// series cleanup for every source the job was bound to
		var removeKeys []string
		if j.Platform != jobtypes.PlatformNagios {
			for _, b := range bindings {
				if !containsID(b.JobIDs, jobID) {
					continue
				}
				cfg, err := o.store.GetConfig(ctx, b.DataSourceID)
				if err != nil {
					continue
				}
				removeKeys = append(removeKeys, column.RegistryKeys(j.Columns, cfg.ConnectName)...)
			}
		}

		if err := o.store.DeleteJob(ctx, jobID); err != nil {
			return err
		}
		if err := o.scheduler.Delete(o.key(j)); err != nil {
			o.logger.Error(err, "failed to delete schedule", "job", j.JobName)
		}

		tasks = append(tasks, o.removeJobTask(jobID))
		if len(removeKeys) > 0 {
			tasks = append(tasks, o.removeSeriesTask(removeKeys))
		}
		o.logger.Info("job deleted", "job", j.JobName)
	}

	o.dispatcher.Dispatch(tasks...)
	return nil
}

// CheckJobs returns a human-readable warning naming the connections still
// referencing any of the given jobs, or an empty string when none do.
func (o *Orchestrator) CheckJobs(ctx context.Context, jobIDs []int64) (string, error) {
	bindings, err := o.store.ListBindings(ctx)
	if err != nil {
		return "", err
	}

	nameSet := make(map[string]struct{})
	for _, b := range bindings {
		referenced := false
		for _, id := range jobIDs {
			if containsID(b.JobIDs, id) {
				referenced = true
				break
			}
		}
		if !referenced {
			continue
		}
		cfg, err := o.store.GetConfig(ctx, b.DataSourceID)
		if err != nil {
			continue
		}
		nameSet[cfg.ConnectName] = struct{}{}
	}

	if len(nameSet) == 0 {
		return "", nil
	}
	names := make([]string, 0, len(nameSet))
	for n := range nameSet {
		names = append(names, n)
	}
	sort.Strings(names)
	return "jobs are still published to: " + strings.Join(names, ", "), nil
}

// DefaultJobs lists the built-in jobs of the reserved group.
func (o *Orchestrator) DefaultJobs(ctx context.Context) ([]*jobtypes.Job, error) {
	jobs, err := o.store.ListJobs(ctx)
	if err != nil {
		return nil, err
	}
	var out []*jobtypes.Job
	for _, j := range jobs {
		if strings.EqualFold(j.TargetGroup, jobtypes.SystemTargetGroup) {
			out = append(out, j)
		}
	}
	return out, nil
}

// TriggerNow runs a job's collection once, off the cron timetable.
func (o *Orchestrator) TriggerNow(ctx context.Context, jobID int64) error {
	j, err := o.store.GetJob(ctx, jobID)
	if errors.Is(err, store.ErrNotFound) {
		return errtypes.Validationf("no such job %d", jobID)
	}
	if err != nil {
		return err
	}
	return o.scheduler.TriggerNow(o.key(j))
}

// Reload clears the trigger engine and re-creates a schedule for every
// persisted job, pausing those not marked NORMAL. This is the
// reconciliation pass run at startup.
func (o *Orchestrator) Reload(ctx context.Context) error {
	jobs, err := o.store.ListJobs(ctx)
	if err != nil {
		return err
	}

	o.scheduler.Clear()
	for _, j := range jobs {
		key := o.key(j)
		if err := o.scheduler.Create(key, j.CronExpression, o.runFor(j.JobID)); err != nil {
			o.logger.Error(err, "failed to recreate schedule on reload", "job", j.JobName)
			continue
		}
		if j.Status != jobtypes.StatusNormal {
			if err := o.scheduler.Pause(key); err != nil {
				o.logger.Error(err, "failed to pause schedule on reload", "job", j.JobName)
			}
		}
	}

	if o.metrics != nil {
		o.metrics.ActiveSchedules.Set(float64(len(jobs)))
	}
	o.logger.Info("schedules reloaded", "jobs", len(jobs))
	return nil
}
