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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {

	content := `
publisher:
  info:
    ip: "127.0.0.1"
    port: "9090"
  storage:
    path: "/tmp/publisher.db"
  metrics:
    port: 9091
  statusPage:
    configPath: "/tmp/statuspage.yaml"
`
	path := filepath.Join(t.TempDir(), "publisher.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	loader := New(path)
	cfg, err := loader.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Publisher.Info.IP != "127.0.0.1" {
		t.Errorf("expected ip '127.0.0.1', got '%s'", cfg.Publisher.Info.IP)
	}
	if cfg.Publisher.Info.Name != DefaultPublisherName {
		t.Errorf("expected default name '%s', got '%s'", DefaultPublisherName, cfg.Publisher.Info.Name)
	}
	if cfg.Publisher.Worker.PoolSize != 4 {
		t.Errorf("expected default pool size 4, got %d", cfg.Publisher.Worker.PoolSize)
	}
	if cfg.Publisher.StatusPage.ActivateDelay != DefaultActivateDelay.String() {
		t.Errorf("expected default activate delay, got '%s'", cfg.Publisher.StatusPage.ActivateDelay)
	}
	if err := loader.ValidateConfig(cfg); err != nil {
		t.Errorf("ValidateConfig failed: %v", err)
	}
}

func TestValidateConfigRejectsMissingAddress(t *testing.T) {

	content := `
publisher:
  info:
    name: "pub"
`
	path := filepath.Join(t.TempDir(), "publisher.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	loader := New(path)
	cfg, err := loader.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if err := loader.ValidateConfig(cfg); err == nil {
		t.Error("expected validation error for missing ip/port")
	}
}

func TestActivateDelay(t *testing.T) {

	loader := New("unused.yaml")

	if got := loader.ActivateDelay(nil); got != DefaultActivateDelay {
		t.Errorf("expected default delay for nil config, got %v", got)
	}

	content := `
publisher:
  info:
    ip: "127.0.0.1"
    port: "9090"
  statusPage:
    activateDelay: "750ms"
`
	path := filepath.Join(t.TempDir(), "publisher.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	loader = New(path)
	cfg, err := loader.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if got := loader.ActivateDelay(cfg); got != 750*time.Millisecond {
		t.Errorf("expected 750ms, got %v", got)
	}
}
