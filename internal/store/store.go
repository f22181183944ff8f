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

// Package store persists jobs, source bindings and back-end connection
// configs. Two implementations exist: an in-memory store used by tests and
// path-less deployments, and an embedded SQLite store.
package store

import (
	"context"
	"errors"

	jobtypes "opengauss.org/monitor-publisher-go/internal/types/job"
	"opengauss.org/monitor-publisher-go/internal/util/logger"
)

// ErrNotFound is returned by the Get methods when no record matches.
var ErrNotFound = errors.New("record not found")

// JobStore persists monitor-job definitions.
type JobStore interface {
	SaveJob(ctx context.Context, j *jobtypes.Job) error
	DeleteJob(ctx context.Context, jobID int64) error
	GetJob(ctx context.Context, jobID int64) (*jobtypes.Job, error)
	ListJobs(ctx context.Context) ([]*jobtypes.Job, error)
	ListJobsByIDs(ctx context.Context, jobIDs []int64) ([]*jobtypes.Job, error)
}

// BindingStore persists the data-source-to-jobs bindings. SaveBinding
// replaces the whole job set of the data source, it never merges.
type BindingStore interface {
	SaveBinding(ctx context.Context, b *jobtypes.SourceTarget) error
	GetBinding(ctx context.Context, dataSourceID int64) (*jobtypes.SourceTarget, error)
	DeleteBinding(ctx context.Context, dataSourceID int64) error
	ListBindings(ctx context.Context) ([]*jobtypes.SourceTarget, error)
}

// ConfigStore persists back-end connection descriptors.
type ConfigStore interface {
	SaveConfig(ctx context.Context, c *jobtypes.Config) error
	GetConfig(ctx context.Context, dataSourceID int64) (*jobtypes.Config, error)
	GetConfigByPlatform(ctx context.Context, platform string) (*jobtypes.Config, error)
	ListConfigs(ctx context.Context) ([]*jobtypes.Config, error)
	DeleteConfig(ctx context.Context, dataSourceID int64) error
}

// Store is the combined persistence surface of the publisher.
type Store interface {
	JobStore
	BindingStore
	ConfigStore
	Close() error
}

// Open selects the store implementation from the configured path. An empty
// path selects the in-memory store.
func Open(path string, log logger.Logger) (Store, error) {
	if path == "" {
		log.Info("storage path empty, using in-memory store")
		return NewMemory(), nil
	}
	return openSQLite(path, log)
}
