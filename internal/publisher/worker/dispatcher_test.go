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

package worker

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	loggertypes "opengauss.org/monitor-publisher-go/internal/types/logger"
	"opengauss.org/monitor-publisher-go/internal/util/logger"
)

func newTestDispatcher(t *testing.T, poolSize, queueSize int) *Dispatcher {
	t.Helper()
	d := NewDispatcher(poolSize, queueSize, logger.DefaultLogger(os.Stdout, loggertypes.LogLevelError))
	t.Cleanup(d.Close)
	return d
}

func TestBatchRunsInOrder(t *testing.T) {

	d := newTestDispatcher(t, 4, 16)

	var (
		mu    sync.Mutex
		order []int
	)
	done := make(chan struct{})

	var tasks []Task
	for i := 0; i < 20; i++ {
		i := i
		tasks = append(tasks, Task{Kind: KindRegisterSeries, Run: func(context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			if i == 19 {
				close(done)
			}
			return nil
		}})
	}

	d.Dispatch(tasks...)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("batch did not finish")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, got := range order {
		if got != i {
			t.Fatalf("batch out of order at %d: %v", i, order)
		}
	}
}

func TestDispatchNeverBlocksAndDrops(t *testing.T) {

	d := newTestDispatcher(t, 1, 1)

	block := make(chan struct{})
	release := make(chan struct{})

	// occupy the single worker
	d.Dispatch(Task{Kind: KindRegisterSeries, Run: func(context.Context) error {
		close(block)
		<-release
		return nil
	}})
	<-block

	// fill the queue
	d.Dispatch(Task{Kind: KindRegisterSeries, Run: func(context.Context) error { return nil }})

	// queue full now: this one must return immediately and be dropped
	start := time.Now()
	d.Dispatch(Task{Kind: KindRemoveSeries, Run: func(context.Context) error { return nil }})
	if time.Since(start) > 100*time.Millisecond {
		t.Error("Dispatch blocked on a full queue")
	}

	if stats := d.Stats(); stats.DroppedBatches != 1 {
		t.Errorf("expected 1 dropped batch, got %+v", stats)
	}

	close(release)
}

func TestFailuresAndPanicsAreAbsorbed(t *testing.T) {

	d := newTestDispatcher(t, 1, 4)

	done := make(chan struct{})
	d.Dispatch(
		Task{Kind: KindRegisterAlertingJobs, Run: func(context.Context) error {
			return errors.New("backend down")
		}},
		Task{Kind: KindRegisterStatusPageJobs, Run: func(context.Context) error {
			panic("boom")
		}},
		Task{Kind: KindRemoveSeries, Run: func(context.Context) error {
			close(done)
			return nil
		}},
	)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("batch did not survive failure and panic")
	}

	stats := d.Stats()
	if stats.FailedTasks != 2 {
		t.Errorf("expected 2 failed tasks, got %+v", stats)
	}
	if stats.ExecutedTasks != 1 {
		t.Errorf("expected 1 executed task, got %+v", stats)
	}
}

func TestDispatchAfter(t *testing.T) {

	d := newTestDispatcher(t, 1, 4)

	fired := make(chan time.Time, 1)
	start := time.Now()
	d.DispatchAfter(50*time.Millisecond, Task{Kind: KindDelayedActivateStatusPageJobs, Run: func(context.Context) error {
		fired <- time.Now()
		return nil
	}})

	select {
	case at := <-fired:
		if at.Sub(start) < 50*time.Millisecond {
			t.Errorf("task fired too early: %v", at.Sub(start))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("delayed task did not fire")
	}
}
