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

package statuspage

import (
	"os"
	"path/filepath"
	"testing"

	errtypes "opengauss.org/monitor-publisher-go/internal/types/err"
	jobtypes "opengauss.org/monitor-publisher-go/internal/types/job"
	loggertypes "opengauss.org/monitor-publisher-go/internal/types/logger"
	"opengauss.org/monitor-publisher-go/internal/util/logger"
)

func newTestSink(t *testing.T) *Sink {
	t.Helper()
	path := filepath.Join(t.TempDir(), "statuspage.yaml")
	return New(path, logger.DefaultLogger(os.Stdout, loggertypes.LogLevelError))
}

func TestMergeCreatesAndOverwrites(t *testing.T) {

	s := newTestSink(t)

	if err := s.Merge(map[string]string{
		"val_mon1_conn1_0": "3",
		"cnt_mon1_conn1_0": "7",
	}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	// second merge overwrites one key, keeps the other
	if err := s.Merge(map[string]string{"val_mon1_conn1_0": "5"}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got["val_mon1_conn1_0"] != "5" {
		t.Errorf("expected overwritten value 5, got %q", got["val_mon1_conn1_0"])
	}
	if got["cnt_mon1_conn1_0"] != "7" {
		t.Errorf("expected preserved value 7, got %q", got["cnt_mon1_conn1_0"])
	}
}

func TestValidate(t *testing.T) {

	s := newTestSink(t)

	if err := s.Validate(nil); err == nil {
		t.Error("expected error for nil config")
	} else if !errtypes.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}

	cfg := &jobtypes.Config{Platform: jobtypes.PlatformNagios}
	if err := s.Validate(cfg); err == nil {
		t.Error("expected error for missing container address")
	}

	cfg.ContainerIP = "10.0.0.9"
	cfg.ContainerPort = "5667"
	if err := s.Validate(cfg); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
