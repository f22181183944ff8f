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
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"opengauss.org/monitor-publisher-go/internal/metrics"
	"opengauss.org/monitor-publisher-go/internal/publisher/column"
	"opengauss.org/monitor-publisher-go/internal/publisher/schedule"
	"opengauss.org/monitor-publisher-go/internal/publisher/worker"
	"opengauss.org/monitor-publisher-go/internal/sink/alerting"
	"opengauss.org/monitor-publisher-go/internal/sink/registry"
	"opengauss.org/monitor-publisher-go/internal/sink/statuspage"
	"opengauss.org/monitor-publisher-go/internal/store"
	errtypes "opengauss.org/monitor-publisher-go/internal/types/err"
	jobtypes "opengauss.org/monitor-publisher-go/internal/types/job"
	loggertypes "opengauss.org/monitor-publisher-go/internal/types/logger"
	"opengauss.org/monitor-publisher-go/internal/util/logger"
)

// fakeScheduler mirrors the trigger-engine bookkeeping without timers and
// counts every call per key.
type fakeScheduler struct {
	mu      sync.Mutex
	entries map[schedule.Key]*fakeEntry
	creates map[schedule.Key]int
	pauses  map[schedule.Key]int
	resumes map[schedule.Key]int
	deletes map[schedule.Key]int
}

type fakeEntry struct {
	spec   string
	run    func()
	paused bool
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{
		entries: make(map[schedule.Key]*fakeEntry),
		creates: make(map[schedule.Key]int),
		pauses:  make(map[schedule.Key]int),
		resumes: make(map[schedule.Key]int),
		deletes: make(map[schedule.Key]int),
	}
}

func (f *fakeScheduler) Create(key schedule.Key, spec string, run func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = &fakeEntry{spec: spec, run: run}
	f.creates[key]++
	return nil
}

func (f *fakeScheduler) Pause(key schedule.Key) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[key]
	if !ok {
		return errtypes.Validationf("no schedule for %s", key)
	}
	if !e.paused {
		e.paused = true
		f.pauses[key]++
	}
	return nil
}

func (f *fakeScheduler) Resume(key schedule.Key) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[key]
	if !ok {
		return errtypes.Validationf("no schedule for %s", key)
	}
	if e.paused {
		e.paused = false
		f.resumes[key]++
	}
	return nil
}

func (f *fakeScheduler) Delete(key schedule.Key) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, key)
	f.deletes[key]++
	return nil
}

func (f *fakeScheduler) TriggerNow(key schedule.Key) error {
	f.mu.Lock()
	e, ok := f.entries[key]
	f.mu.Unlock()
	if !ok {
		return errtypes.Validationf("no schedule for %s", key)
	}
	go e.run()
	return nil
}

func (f *fakeScheduler) Exists(key schedule.Key) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.entries[key]
	return ok
}

func (f *fakeScheduler) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = make(map[schedule.Key]*fakeEntry)
}

func (f *fakeScheduler) Close() {}

func (f *fakeScheduler) live(key schedule.Key) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[key]
	return ok && !e.paused
}

// fakeExecutor serves canned probe results per query text.
type fakeExecutor struct {
	mu   sync.Mutex
	rows map[string][]column.Row
	err  error
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{rows: make(map[string][]column.Row)}
}

func (f *fakeExecutor) Run(_ context.Context, _ *jobtypes.Config, queryText string) ([]column.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.rows[queryText], nil
}

type fixture struct {
	orch      *Orchestrator
	store     store.Store
	scheduler *fakeScheduler
	executor  *fakeExecutor
	registry  *registry.Sink
	page      *statuspage.Sink
	pagePath  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := logger.DefaultLogger(os.Stdout, loggertypes.LogLevelError)
	st := store.NewMemory()
	sched := newFakeScheduler()
	exec := newFakeExecutor()
	reg := registry.New(log)
	pagePath := filepath.Join(t.TempDir(), "statuspage.yaml")
	page := statuspage.New(pagePath, log)
	disp := worker.NewDispatcher(2, 64, log)
	t.Cleanup(disp.Close)

	orch := New(Options{
		Store:         st,
		Scheduler:     sched,
		Executor:      exec,
		Dispatcher:    disp,
		Registry:      reg,
		Alerting:      alerting.New(log),
		StatusPage:    page,
		Metrics:       metrics.New(prometheus.NewRegistry()),
		ActivateDelay: 30 * time.Millisecond,
		Logger:        log,
	})

	return &fixture{
		orch:      orch,
		store:     st,
		scheduler: sched,
		executor:  exec,
		registry:  reg,
		page:      page,
		pagePath:  pagePath,
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func (fx *fixture) addSource(t *testing.T, id int64, conn string) {
	t.Helper()
	require.NoError(t, fx.store.SaveConfig(context.Background(), &jobtypes.Config{
		DataSourceID: id,
		Platform:     jobtypes.PlatformPrometheus,
		ConnectName:  conn,
		Driver:       "postgres",
		URL:          "postgres://localhost:5432/metrics",
	}))
}

func (fx *fixture) addJob(t *testing.T, id int64, name, platform, target string, cols []string) *jobtypes.Job {
	t.Helper()
	j := &jobtypes.Job{
		JobID:          id,
		JobName:        name,
		Platform:       platform,
		Target:         target,
		Num:            1,
		TimeUnit:       "day",
		CronExpression: "0 0 23 * * ?",
		Status:         jobtypes.StatusPaused,
		Columns:        cols,
	}
	require.NoError(t, fx.store.SaveJob(context.Background(), j))
	return j
}

func TestPublishReplaceSemantics(t *testing.T) {

	fx := newFixture(t)
	ctx := context.Background()
	fx.addSource(t, 1, "conn1")

	a := fx.addJob(t, 101, "monA", jobtypes.PlatformPrometheus, "select a", []string{"val_monA_"})
	b := fx.addJob(t, 102, "monB", jobtypes.PlatformPrometheus, "select b", []string{"val_monB_"})
	c := fx.addJob(t, 103, "monC", jobtypes.PlatformPrometheus, "select c", []string{"val_monC_"})

	require.NoError(t, fx.orch.Publish(ctx, 1, []int64{a.JobID, b.JobID}))

	binding, err := fx.store.GetBinding(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []int64{101, 102}, binding.JobIDs)

	keyA := schedule.Key{JobID: 101, JobGroup: "DEFAULT"}
	keyB := schedule.Key{JobID: 102, JobGroup: "DEFAULT"}
	require.True(t, fx.scheduler.live(keyA))
	require.True(t, fx.scheduler.live(keyB))

	// simulate A's series existing before the replacement
	fx.registry.Set("val_monA_conn1", 1)

	require.NoError(t, fx.orch.Publish(ctx, 1, []int64{b.JobID, c.JobID}))

	binding, err = fx.store.GetBinding(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []int64{102, 103}, binding.JobIDs)

	gotA, err := fx.store.GetJob(ctx, 101)
	require.NoError(t, err)
	require.Equal(t, jobtypes.StatusPaused, gotA.Status)
	require.False(t, fx.scheduler.live(keyA))

	gotB, err := fx.store.GetJob(ctx, 102)
	require.NoError(t, err)
	require.Equal(t, jobtypes.StatusNormal, gotB.Status)
	require.True(t, fx.scheduler.live(keyB))

	// B stayed in the requested set both times: no stop/start cycle
	require.Zero(t, fx.scheduler.pauses[keyB], "retained job must not be paused")
	require.Zero(t, fx.scheduler.resumes[keyB], "retained job must not need resuming")

	// A's series removal runs async
	waitFor(t, "series removal", func() bool {
		return !fx.registry.Has("val_monA_conn1")
	})
}

func TestSharedJobPreservedOnUnpublish(t *testing.T) {

	fx := newFixture(t)
	ctx := context.Background()
	fx.addSource(t, 1, "conn1")
	fx.addSource(t, 2, "conn2")

	x := fx.addJob(t, 201, "monX", jobtypes.PlatformPrometheus, "select x", []string{"val_monX_"})

	require.NoError(t, fx.orch.Publish(ctx, 1, []int64{x.JobID}))
	require.NoError(t, fx.orch.Publish(ctx, 2, []int64{x.JobID}))

	fx.registry.Set("val_monX_conn1", 9)

	require.NoError(t, fx.orch.Unpublish(ctx, 1, []int64{x.JobID}))

	// the schedule stays active because source 2 still references X
	key := schedule.Key{JobID: 201, JobGroup: "DEFAULT"}
	require.True(t, fx.scheduler.live(key))

	gotX, err := fx.store.GetJob(ctx, 201)
	require.NoError(t, err)
	require.Equal(t, jobtypes.StatusNormal, gotX.Status)

	binding1, err := fx.store.GetBinding(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, binding1.JobIDs)
	binding2, err := fx.store.GetBinding(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, []int64{201}, binding2.JobIDs)

	// no registry removal may be emitted for a shared job
	time.Sleep(100 * time.Millisecond)
	require.True(t, fx.registry.Has("val_monX_conn1"))
}

func TestUnpublishLastBindingPausesAndCleans(t *testing.T) {

	fx := newFixture(t)
	ctx := context.Background()
	fx.addSource(t, 1, "conn1")

	x := fx.addJob(t, 301, "monX", jobtypes.PlatformPrometheus, "select x", []string{"val_monX_"})
	require.NoError(t, fx.orch.Publish(ctx, 1, []int64{x.JobID}))
	fx.registry.Set("val_monX_conn1", 9)

	require.NoError(t, fx.orch.Unpublish(ctx, 1, []int64{x.JobID}))

	gotX, err := fx.store.GetJob(ctx, 301)
	require.NoError(t, err)
	require.Equal(t, jobtypes.StatusPaused, gotX.Status)

	waitFor(t, "series removal", func() bool {
		return !fx.registry.Has("val_monX_conn1")
	})
}

func TestPublishUnknownSourceFails(t *testing.T) {

	fx := newFixture(t)
	err := fx.orch.Publish(context.Background(), 77, []int64{1})
	require.Error(t, err)
	require.True(t, errtypes.IsValidation(err))
}

func TestPublishAlertingValidatedUpfront(t *testing.T) {

	fx := newFixture(t)
	ctx := context.Background()
	fx.addSource(t, 1, "conn1")
	z := fx.addJob(t, 401, "monZ", jobtypes.PlatformZabbix, "select z", []string{"val_monZ_"})

	// no alerting config at all: publish must fail before any mutation
	err := fx.orch.Publish(ctx, 1, []int64{z.JobID})
	require.True(t, errtypes.IsValidation(err))

	_, err = fx.store.GetBinding(ctx, 1)
	require.ErrorIs(t, err, store.ErrNotFound, "binding must not be written")
	gotZ, err := fx.store.GetJob(ctx, 401)
	require.NoError(t, err)
	require.Equal(t, jobtypes.StatusPaused, gotZ.Status, "job status must not change")

	// a config without a container address is still unusable
	require.NoError(t, fx.store.SaveConfig(ctx, &jobtypes.Config{
		DataSourceID: 50, Platform: jobtypes.PlatformZabbix, ConnectName: "alert",
	}))
	err = fx.orch.Publish(ctx, 1, []int64{z.JobID})
	require.True(t, errtypes.IsValidation(err))
}

func TestPublishAlertingGateCoversSharedJobs(t *testing.T) {

	fx := newFixture(t)
	ctx := context.Background()
	fx.addSource(t, 1, "conn1")
	fx.addSource(t, 2, "conn2")
	require.NoError(t, fx.store.SaveConfig(ctx, &jobtypes.Config{
		DataSourceID:  50,
		Platform:      jobtypes.PlatformZabbix,
		ConnectName:   "alert",
		Driver:        "postgres",
		URL:           "postgres://localhost:5432/alerting",
		ContainerIP:   "10.0.0.7",
		ContainerPort: "10051",
	}))

	z := fx.addJob(t, 411, "monZ", jobtypes.PlatformZabbix, "select z", []string{"val_monZ_"})
	require.NoError(t, fx.orch.Publish(ctx, 1, []int64{z.JobID}))
	require.NoError(t, fx.orch.Publish(ctx, 2, []int64{z.JobID}))

	// the alerting back-end disappears while Z stays shared via source 2
	require.NoError(t, fx.store.DeleteConfig(ctx, 50))

	err := fx.orch.Publish(ctx, 1, nil)
	require.True(t, errtypes.IsValidation(err), "still-shared alerting job must fail the publish up front")

	binding, err := fx.store.GetBinding(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []int64{411}, binding.JobIDs, "binding must not be rewritten")

	gotZ, err := fx.store.GetJob(ctx, 411)
	require.NoError(t, err)
	require.Equal(t, jobtypes.StatusNormal, gotZ.Status, "job status must not change")
	require.True(t, fx.scheduler.live(schedule.Key{JobID: 411, JobGroup: "DEFAULT"}))
}

func TestPublishStatusPageDelayedActivation(t *testing.T) {

	fx := newFixture(t)
	ctx := context.Background()
	fx.addSource(t, 1, "conn1")
	require.NoError(t, fx.store.SaveConfig(ctx, &jobtypes.Config{
		DataSourceID:  60,
		Platform:      jobtypes.PlatformNagios,
		ConnectName:   "page",
		ContainerIP:   "10.0.0.9",
		ContainerPort: "5667",
	}))

	n := fx.addJob(t, 501, "monN", jobtypes.PlatformNagios, "select n", []string{"val_monN_"})
	fx.executor.rows["select n"] = []column.Row{{{Name: "val", Value: "4"}}}

	require.NoError(t, fx.orch.Publish(ctx, 1, []int64{n.JobID}))

	// the configuration merge lands first
	waitFor(t, "status-page merge", func() bool {
		m, err := fx.page.Load()
		return err == nil && m["val_monN_conn1_0"] == "4"
	})

	// then, after the delay, the schedule goes live
	key := schedule.Key{JobID: 501, JobGroup: "DEFAULT"}
	waitFor(t, "delayed activation", func() bool {
		return fx.scheduler.live(key)
	})
	gotN, err := fx.store.GetJob(ctx, 501)
	require.NoError(t, err)
	require.Equal(t, jobtypes.StatusNormal, gotN.Status)
}

func TestBatchPublishIteratesSources(t *testing.T) {

	fx := newFixture(t)
	ctx := context.Background()
	fx.addSource(t, 1, "conn1")
	fx.addSource(t, 2, "conn2")
	j := fx.addJob(t, 601, "monJ", jobtypes.PlatformPrometheus, "select j", []string{"val_monJ_"})

	require.NoError(t, fx.orch.BatchPublish(ctx, &jobtypes.TargetSource{
		DataSourceIDs: []int64{1, 2},
		JobIDs:        []int64{j.JobID},
	}))

	for _, ds := range []int64{1, 2} {
		b, err := fx.store.GetBinding(ctx, ds)
		require.NoError(t, err)
		require.Equal(t, []int64{601}, b.JobIDs)
	}

	require.Error(t, fx.orch.BatchPublish(ctx, &jobtypes.TargetSource{}))
}

func TestEndToEndPublishUnpublish(t *testing.T) {

	fx := newFixture(t)
	ctx := context.Background()
	fx.addSource(t, 1, "conn1")
	fx.executor.rows["select 1 as val"] = []column.Row{{{Name: "val", Value: "1"}}}

	dsID := int64(1)
	created, err := fx.orch.InsertJob(ctx, &jobtypes.Job{
		JobName:      "mon",
		Platform:     jobtypes.PlatformPrometheus,
		Target:       "select 1 as val",
		Num:          5,
		TimeUnit:     "second",
		DataSourceID: &dsID,
	})
	require.NoError(t, err)
	require.Equal(t, jobtypes.StatusPaused, created.Status)
	require.Equal(t, []string{"val_" + created.JobName + "_"}, created.Columns)

	require.NoError(t, fx.orch.Publish(ctx, 1, []int64{created.JobID}))

	got, err := fx.store.GetJob(ctx, created.JobID)
	require.NoError(t, err)
	require.Equal(t, jobtypes.StatusNormal, got.Status)

	seriesKey := "val_" + created.JobName + "_conn1"
	waitFor(t, "series registration", func() bool {
		return fx.registry.Has(seriesKey)
	})

	require.NoError(t, fx.orch.Unpublish(ctx, 1, []int64{created.JobID}))

	got, err = fx.store.GetJob(ctx, created.JobID)
	require.NoError(t, err)
	require.Equal(t, jobtypes.StatusPaused, got.Status)

	waitFor(t, "series removal", func() bool {
		return !fx.registry.Has(seriesKey)
	})
}
