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

package schedule

import (
	"os"
	"testing"
	"time"

	loggertypes "opengauss.org/monitor-publisher-go/internal/types/logger"
	"opengauss.org/monitor-publisher-go/internal/util/logger"
)

func newTestScheduler(t *testing.T) *CronScheduler {
	t.Helper()
	s := NewCronScheduler(logger.DefaultLogger(os.Stdout, loggertypes.LogLevelError))
	t.Cleanup(s.Close)
	return s
}

func TestCreatePauseResumeDelete(t *testing.T) {

	s := newTestScheduler(t)
	key := Key{JobID: 1, JobGroup: "DEFAULT"}

	if s.Exists(key) {
		t.Error("key must not exist before create")
	}
	if err := s.Create(key, "0 0 23 * * ?", func() {}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !s.Exists(key) {
		t.Error("key must exist after create")
	}

	if err := s.Pause(key); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	if !s.Exists(key) {
		t.Error("paused schedule must still exist")
	}
	// pausing twice is a no-op
	if err := s.Pause(key); err != nil {
		t.Fatalf("second Pause failed: %v", err)
	}

	if err := s.Resume(key); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}

	if err := s.Delete(key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if s.Exists(key) {
		t.Error("key must not exist after delete")
	}
	// deleting a missing key is a no-op
	if err := s.Delete(key); err != nil {
		t.Fatalf("Delete of missing key failed: %v", err)
	}

	if err := s.Pause(key); err == nil {
		t.Error("Pause of missing key must fail")
	}
	if err := s.Resume(key); err == nil {
		t.Error("Resume of missing key must fail")
	}
}

func TestQuartzStyleExpressionsParse(t *testing.T) {

	s := newTestScheduler(t)

	exprs := []string{
		"0/5 * * * * ?",
		"0 */30 * * * ?",
		"* * 0/2 * * ?",
		"0 0 23 * * ?",
		"0 0 12 ? * WED",
		"0 15 10 15 * ?",
		"0 10,44 14 ? 3 WED",
	}
	for i, expr := range exprs {
		key := Key{JobID: int64(i + 1), JobGroup: "DEFAULT"}
		if err := s.Create(key, expr, func() {}); err != nil {
			t.Errorf("Create(%q) failed: %v", expr, err)
		}
	}

	if err := s.Create(Key{JobID: 99}, "not a cron", func() {}); err == nil {
		t.Error("expected parse error for invalid expression")
	}
}

func TestTriggerNow(t *testing.T) {

	s := newTestScheduler(t)
	key := Key{JobID: 7, JobGroup: "DEFAULT"}

	fired := make(chan struct{}, 1)
	if err := s.Create(key, "0 0 23 * * ?", func() {
		fired <- struct{}{}
	}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := s.TriggerNow(key); err != nil {
		t.Fatalf("TriggerNow failed: %v", err)
	}
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("schedule function did not run")
	}

	if err := s.TriggerNow(Key{JobID: 404}); err == nil {
		t.Error("TriggerNow of missing key must fail")
	}
}

func TestClear(t *testing.T) {

	s := newTestScheduler(t)
	for i := int64(1); i <= 3; i++ {
		if err := s.Create(Key{JobID: i, JobGroup: "DEFAULT"}, "0 0 23 * * ?", func() {}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	// one paused entry must be cleared too
	if err := s.Pause(Key{JobID: 2, JobGroup: "DEFAULT"}); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}

	s.Clear()
	for i := int64(1); i <= 3; i++ {
		if s.Exists(Key{JobID: i, JobGroup: "DEFAULT"}) {
			t.Errorf("schedule %d survived Clear", i)
		}
	}
}
