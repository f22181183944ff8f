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

// Package statuspage maintains the status-page back-end's merged key/value
// configuration file. Publishes merge their flattened maps in; the external
// back-end picks the file up on its own cadence, which is why schedule
// activation is delayed after a write.
package statuspage

import (
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	errtypes "opengauss.org/monitor-publisher-go/internal/types/err"
	jobtypes "opengauss.org/monitor-publisher-go/internal/types/job"
	"opengauss.org/monitor-publisher-go/internal/util/logger"
)

type Sink struct {
	mu     sync.Mutex
	path   string
	logger logger.Logger
}

func New(path string, log logger.Logger) *Sink {
	return &Sink{
		path:   path,
		logger: log.WithName("statuspage-sink"),
	}
}

// Validate reports whether the status-page back-end is usable: a config
// must exist and carry the back-end container address.
func (s *Sink) Validate(pageCfg *jobtypes.Config) error {
	if pageCfg == nil || !pageCfg.HasContainerAddress() {
		return errtypes.Validationf("configure the status-page source with a container address first")
	}
	return nil
}

// Merge folds values into the persisted configuration, overwriting existing
// keys and keeping unrelated ones. The file is replaced atomically.
func (s *Sink) Merge(values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged, err := s.load()
	if err != nil {
		return err
	}
	for k, v := range values {
		merged[k] = v
	}

	data, err := yaml.Marshal(merged)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return err
	}

	s.logger.Info("status-page configuration merged", "path", s.path, "keys", len(values))
	return nil
}

// Load returns the current persisted configuration map.
func (s *Sink) Load() (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Sink) load() (map[string]string, error) {
	out := make(map[string]string)
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
