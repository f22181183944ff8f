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

// Package dedup enforces per-platform uniqueness of normalized monitor
// query text. It is the only defense against two independently-authored
// jobs colliding on the same back-end series name, so it must run before
// a job definition is written or probed.
package dedup

import (
	"strings"

	errtypes "opengauss.org/monitor-publisher-go/internal/types/err"
	jobtypes "opengauss.org/monitor-publisher-go/internal/types/job"
)

var normalizer = strings.NewReplacer(" ", "", "\n", "", ";", "")

// Normalize strips spaces, line feeds and semicolons from query text.
// Comparison stays case-sensitive.
func Normalize(target string) string {
	return normalizer.Replace(target)
}

// Check compares the candidate against the full current job collection and
// returns a validation error when the candidate's normalized query text
// collides with another job on the same platform. Editing a job to its own
// unchanged text is never a conflict.
func Check(candidate *jobtypes.Job, existing []*jobtypes.Job) error {
	cand := Normalize(candidate.Target)

	var stored string
	for _, j := range existing {
		if j.JobID == candidate.JobID {
			stored = j.Target
		}
	}

	for _, j := range existing {
		if j.Platform != candidate.Platform || j.JobID == candidate.JobID {
			continue
		}
		if Normalize(j.Target) != cand {
			continue
		}
		if candidate.IsCreate {
			return errtypes.Validationf("%s metric already exists", candidate.Platform)
		}
		// edit: a rewrite that leaves the job's own normalized text
		// unchanged is allowed, a changed text landing on another job's
		// is a true duplicate
		if Normalize(stored) != cand {
			return errtypes.Validationf("%s metric already exists", candidate.Platform)
		}
	}

	return nil
}
