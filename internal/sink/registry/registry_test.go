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

package registry

import (
	"io"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	loggertypes "opengauss.org/monitor-publisher-go/internal/types/logger"
	"opengauss.org/monitor-publisher-go/internal/util/logger"
)

func newTestSink() *Sink {
	return New(logger.DefaultLogger(os.Stdout, loggertypes.LogLevelError))
}

func scrape(t *testing.T, s *Sink) string {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/series", nil))
	body, err := io.ReadAll(rec.Result().Body)
	if err != nil {
		t.Fatalf("read scrape body: %v", err)
	}
	return string(body)
}

func TestSetAndRemove(t *testing.T) {

	s := newTestSink()

	s.Set("val_mon1_conn1", 3)
	s.Set("cnt_mon1_conn1", 7)

	if !s.Has("val_mon1_conn1") {
		t.Error("expected series registered")
	}

	body := scrape(t, s)
	if !strings.Contains(body, "val_mon1_conn1") {
		t.Errorf("scrape output missing series: %s", body)
	}
	if !strings.Contains(body, " 3") {
		t.Errorf("scrape output missing value: %s", body)
	}

	// updating an existing series must not re-register
	s.Set("val_mon1_conn1", 5)
	body = scrape(t, s)
	if !strings.Contains(body, " 5") {
		t.Errorf("scrape output missing updated value: %s", body)
	}

	s.Remove("val_mon1_conn1", "never_registered")
	if s.Has("val_mon1_conn1") {
		t.Error("expected series removed")
	}
	body = scrape(t, s)
	if strings.Contains(body, "val_mon1_conn1") {
		t.Errorf("removed series still scraped: %s", body)
	}
	if !strings.Contains(body, "cnt_mon1_conn1") {
		t.Errorf("unrelated series lost: %s", body)
	}
}

func TestSanitize(t *testing.T) {

	tests := []struct {
		in   string
		want string
	}{
		{"val_mon1_conn1", "val_mon1_conn1"},
		{"val_mon1_my-db", "val_mon1_my_db"},
		{"1val", "_val"},
		{"a.b c", "a_b_c"},
	}
	for _, tt := range tests {
		if got := sanitize(tt.in); got != tt.want {
			t.Errorf("sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
