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
	loggertypes "opengauss.org/monitor-publisher-go/internal/types/logger"
)

// PublisherConfig is the root of the YAML configuration file.
type PublisherConfig struct {
	Publisher PublisherSpec `yaml:"publisher"`
}

type PublisherSpec struct {
	Info       Info                          `yaml:"info"`
	Storage    Storage                       `yaml:"storage"`
	Metrics    Metrics                       `yaml:"metrics"`
	StatusPage StatusPage                    `yaml:"statusPage"`
	Worker     Worker                        `yaml:"worker"`
	Logging    *loggertypes.PublisherLogging `yaml:"logging,omitempty"`
}

type Info struct {
	Name string `yaml:"name"`
	IP   string `yaml:"ip"`
	Port string `yaml:"port"`
}

// Storage locates the embedded store file. An empty path selects the
// in-memory stores (useful for tests and dry runs).
type Storage struct {
	Path string `yaml:"path"`
}

type Metrics struct {
	Port int `yaml:"port"`
}

// StatusPage carries the status-page back-end integration knobs:
// ConfigPath is the merged key/value configuration file the sink maintains,
// ActivateDelay is how long to wait after a configuration write before the
// affected schedules are resumed, so the external back-end can pick the new
// file up before the first run fires.
type StatusPage struct {
	ConfigPath    string `yaml:"configPath"`
	ActivateDelay string `yaml:"activateDelay"`
}

type Worker struct {
	PoolSize  int `yaml:"poolSize"`
	QueueSize int `yaml:"queueSize"`
}
