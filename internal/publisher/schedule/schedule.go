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

// Package schedule wraps the in-process cron trigger engine behind the
// adapter surface the orchestrator consumes. Schedules are keyed by
// (jobID, jobGroup); timing changes go through delete-then-create only.
package schedule

import (
	"fmt"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"opengauss.org/monitor-publisher-go/internal/util/logger"
)

// Key identifies one schedule in the trigger engine.
type Key struct {
	JobID    int64
	JobGroup string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%d", k.JobGroup, k.JobID)
}

// Scheduler is the trigger-engine surface consumed by the orchestrator.
type Scheduler interface {
	Create(key Key, cronExpr string, run func()) error
	Pause(key Key) error
	Resume(key Key) error
	Delete(key Key) error
	TriggerNow(key Key) error
	Exists(key Key) bool
	Clear()
	Close()
}

type entry struct {
	spec   string
	run    func()
	id     cron.EntryID
	paused bool
}

// CronScheduler backs the adapter with a robfig cron engine using a
// seconds-aware parser. A paused schedule keeps its expression and run
// function but has no live cron entry.
type CronScheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	parser  cron.Parser
	entries map[Key]*entry
	logger  logger.Logger
}

func NewCronScheduler(log logger.Logger) *CronScheduler {
	parser := cron.NewParser(
		cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser))
	c.Start()
	return &CronScheduler{
		cron:    c,
		parser:  parser,
		entries: make(map[Key]*entry),
		logger:  log.WithName("scheduler"),
	}
}

// normalizeSpec maps Quartz-style tokens the expression table emits onto
// forms the engine accepts: "?" means "any".
func normalizeSpec(spec string) string {
	return strings.ReplaceAll(spec, "?", "*")
}

// Create installs a schedule for the key, replacing any existing one.
func (s *CronScheduler) Create(key Key, cronExpr string, run func()) error {
	spec := normalizeSpec(cronExpr)
	sched, err := s.parser.Parse(spec)
	if err != nil {
		return fmt.Errorf("parse cron %q: %w", cronExpr, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[key]; ok {
		if !old.paused {
			s.cron.Remove(old.id)
		}
		delete(s.entries, key)
	}

	id := s.cron.Schedule(sched, cron.FuncJob(run))
	s.entries[key] = &entry{spec: spec, run: run, id: id}
	s.logger.V(1).Info("schedule created", "key", key.String(), "cron", cronExpr)
	return nil
}

// Pause removes the live cron entry but keeps the schedule known.
func (s *CronScheduler) Pause(key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return fmt.Errorf("no schedule for %s", key)
	}
	if e.paused {
		return nil
	}
	s.cron.Remove(e.id)
	e.paused = true
	s.logger.V(1).Info("schedule paused", "key", key.String())
	return nil
}

// Resume re-installs a paused schedule's cron entry.
func (s *CronScheduler) Resume(key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return fmt.Errorf("no schedule for %s", key)
	}
	if !e.paused {
		return nil
	}
	sched, err := s.parser.Parse(e.spec)
	if err != nil {
		return fmt.Errorf("parse cron %q: %w", e.spec, err)
	}
	e.id = s.cron.Schedule(sched, cron.FuncJob(e.run))
	e.paused = false
	s.logger.V(1).Info("schedule resumed", "key", key.String())
	return nil
}

// Delete forgets the schedule entirely.
func (s *CronScheduler) Delete(key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil
	}
	if !e.paused {
		s.cron.Remove(e.id)
	}
	delete(s.entries, key)
	s.logger.V(1).Info("schedule deleted", "key", key.String())
	return nil
}

// TriggerNow runs the schedule's function once, off the cron timetable.
func (s *CronScheduler) TriggerNow(key Key) error {
	s.mu.Lock()
	e, ok := s.entries[key]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("no schedule for %s", key)
	}
	go e.run()
	return nil
}

// Exists reports whether the key has a schedule, live or paused.
func (s *CronScheduler) Exists(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	return ok
}

// Clear removes every schedule. Used by the startup reload before the
// persisted jobs are re-created.
func (s *CronScheduler) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, e := range s.entries {
		if !e.paused {
			s.cron.Remove(e.id)
		}
		delete(s.entries, key)
	}
	s.logger.V(1).Info("all schedules cleared")
}

// Close stops the engine; running jobs finish on their own.
func (s *CronScheduler) Close() {
	s.cron.Stop()
}
