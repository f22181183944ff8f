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

package store

import (
	"context"
	"sort"
	"sync"

	jobtypes "opengauss.org/monitor-publisher-go/internal/types/job"
)

type memoryStore struct {
	mu       sync.RWMutex
	jobs     map[int64]*jobtypes.Job
	bindings map[int64]*jobtypes.SourceTarget
	configs  map[int64]*jobtypes.Config
}

// NewMemory returns an empty in-memory Store.
func NewMemory() Store {
	return &memoryStore{
		jobs:     make(map[int64]*jobtypes.Job),
		bindings: make(map[int64]*jobtypes.SourceTarget),
		configs:  make(map[int64]*jobtypes.Config),
	}
}

func (s *memoryStore) Close() error {
	return nil
}

func copyJob(j *jobtypes.Job) *jobtypes.Job {
	c := *j
	if j.Columns != nil {
		c.Columns = append([]string(nil), j.Columns...)
	}
	if j.DataSourceID != nil {
		id := *j.DataSourceID
		c.DataSourceID = &id
	}
	return &c
}

func copyBinding(b *jobtypes.SourceTarget) *jobtypes.SourceTarget {
	c := *b
	if b.JobIDs != nil {
		c.JobIDs = append([]int64(nil), b.JobIDs...)
	}
	return &c
}

func (s *memoryStore) SaveJob(_ context.Context, j *jobtypes.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[j.JobID] = copyJob(j)
	return nil
}

func (s *memoryStore) DeleteJob(_ context.Context, jobID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, jobID)
	return nil
}

func (s *memoryStore) GetJob(_ context.Context, jobID int64) (*jobtypes.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyJob(j), nil
}

func (s *memoryStore) ListJobs(_ context.Context) ([]*jobtypes.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*jobtypes.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, copyJob(j))
	}
	sort.Slice(out, func(i, k int) bool { return out[i].JobID < out[k].JobID })
	return out, nil
}

func (s *memoryStore) ListJobsByIDs(_ context.Context, jobIDs []int64) ([]*jobtypes.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*jobtypes.Job, 0, len(jobIDs))
	for _, id := range jobIDs {
		if j, ok := s.jobs[id]; ok {
			out = append(out, copyJob(j))
		}
	}
	return out, nil
}

func (s *memoryStore) SaveBinding(_ context.Context, b *jobtypes.SourceTarget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindings[b.DataSourceID] = copyBinding(b)
	return nil
}

func (s *memoryStore) GetBinding(_ context.Context, dataSourceID int64) (*jobtypes.SourceTarget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bindings[dataSourceID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyBinding(b), nil
}

func (s *memoryStore) DeleteBinding(_ context.Context, dataSourceID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bindings, dataSourceID)
	return nil
}

func (s *memoryStore) ListBindings(_ context.Context) ([]*jobtypes.SourceTarget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*jobtypes.SourceTarget, 0, len(s.bindings))
	for _, b := range s.bindings {
		out = append(out, copyBinding(b))
	}
	sort.Slice(out, func(i, k int) bool { return out[i].DataSourceID < out[k].DataSourceID })
	return out, nil
}

func (s *memoryStore) SaveConfig(_ context.Context, c *jobtypes.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cc := *c
	s.configs[c.DataSourceID] = &cc
	return nil
}

func (s *memoryStore) GetConfig(_ context.Context, dataSourceID int64) (*jobtypes.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.configs[dataSourceID]
	if !ok {
		return nil, ErrNotFound
	}
	cc := *c
	return &cc, nil
}

func (s *memoryStore) GetConfigByPlatform(_ context.Context, platform string) (*jobtypes.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *jobtypes.Config
	for _, c := range s.configs {
		if c.Platform != platform {
			continue
		}
		if found == nil || c.DataSourceID < found.DataSourceID {
			found = c
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	cc := *found
	return &cc, nil
}

func (s *memoryStore) ListConfigs(_ context.Context) ([]*jobtypes.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*jobtypes.Config, 0, len(s.configs))
	for _, c := range s.configs {
		cc := *c
		out = append(out, &cc)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].DataSourceID < out[k].DataSourceID })
	return out, nil
}

func (s *memoryStore) DeleteConfig(_ context.Context, dataSourceID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.configs, dataSourceID)
	return nil
}
