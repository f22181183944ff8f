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

// Package worker runs the orchestrator's fire-and-forget side effects on a
// shared pool. One submission is one batch: a single worker executes the
// batch's tasks in order, so tasks dispatched together keep their relative
// order. There is no ordering across submissions.
package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"opengauss.org/monitor-publisher-go/internal/util/logger"
)

// Kind names an async task for logging and stats.
type Kind string

const (
	KindRegisterSeries                Kind = "registerSeries"
	KindRemoveSeries                  Kind = "removeSeries"
	KindRegisterAlertingJobs          Kind = "registerAlertingJobs"
	KindRegisterStatusPageJobs        Kind = "registerStatusPageJobs"
	KindDelayedActivateStatusPageJobs Kind = "delayedActivateStatusPageJobs"
	KindRemoveJobByID                 Kind = "removeJobById"
)

// Task is one unit of asynchronous work. Run errors are logged, never
// surfaced to the submitter.
type Task struct {
	Kind Kind
	Run  func(ctx context.Context) error
}

// DispatcherStats counts submissions and outcomes.
type DispatcherStats struct {
	SubmittedBatches int64 `json:"submittedBatches"`
	DroppedBatches   int64 `json:"droppedBatches"`
	ExecutedTasks    int64 `json:"executedTasks"`
	FailedTasks      int64 `json:"failedTasks"`
}

// Dispatcher is the async work queue. Submission never blocks: a full
// queue drops the batch with a log line.
type Dispatcher struct {
	queue chan []Task

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	submitted atomic.Int64
	dropped   atomic.Int64
	executed  atomic.Int64
	failed    atomic.Int64

	logger logger.Logger
}

// NewDispatcher starts poolSize workers over a queue of queueSize batches.
func NewDispatcher(poolSize, queueSize int, log logger.Logger) *Dispatcher {
	if poolSize <= 0 {
		poolSize = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		queue:  make(chan []Task, queueSize),
		ctx:    ctx,
		cancel: cancel,
		logger: log.WithName("dispatcher"),
	}

	for i := 0; i < poolSize; i++ {
		d.wg.Add(1)
		go d.work()
	}

	d.logger.Info("dispatcher started", "poolSize", poolSize, "queueSize", queueSize)
	return d
}

// Dispatch submits one batch. The batch runs sequentially on one worker;
// submission order within the batch is preserved. Never blocks.
func (d *Dispatcher) Dispatch(tasks ...Task) {
	if len(tasks) == 0 {
		return
	}
	select {
	case d.queue <- tasks:
		d.submitted.Add(1)
	default:
		d.dropped.Add(1)
		d.logger.Error(nil, "dispatch queue full, batch dropped",
			"tasks", len(tasks), "first", string(tasks[0].Kind))
	}
}

// DispatchAfter submits the batch once delay has elapsed. The delay is a
// timer continuation, not a sleeping worker; it fires unconditionally.
func (d *Dispatcher) DispatchAfter(delay time.Duration, tasks ...Task) {
	if len(tasks) == 0 {
		return
	}
	time.AfterFunc(delay, func() {
		d.Dispatch(tasks...)
	})
}

// Stats returns a snapshot of the dispatcher counters.
func (d *Dispatcher) Stats() DispatcherStats {
	return DispatcherStats{
		SubmittedBatches: d.submitted.Load(),
		DroppedBatches:   d.dropped.Load(),
		ExecutedTasks:    d.executed.Load(),
		FailedTasks:      d.failed.Load(),
	}
}

// Close stops the workers after the queued batches drain.
func (d *Dispatcher) Close() {
	d.cancel()
	d.wg.Wait()
	d.logger.Info("dispatcher stopped", "stats", d.Stats())
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for {
		select {
		case batch := <-d.queue:
			for _, task := range batch {
				d.runOne(task)
			}
		case <-d.ctx.Done():
			// drain what is already queued, then exit
			for {
				select {
				case batch := <-d.queue:
					for _, task := range batch {
						d.runOne(task)
					}
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) runOne(task Task) {
	defer func() {
		if r := recover(); r != nil {
			d.failed.Add(1)
			d.logger.Error(nil, "async task panicked", "kind", string(task.Kind), "panic", r)
		}
	}()

	if err := task.Run(d.ctx); err != nil {
		d.failed.Add(1)
		d.logger.Error(err, "async task failed", "kind", string(task.Kind))
		return
	}
	d.executed.Add(1)
}
