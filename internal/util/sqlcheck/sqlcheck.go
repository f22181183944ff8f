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

// Package sqlcheck validates that a monitor target query is read-only
// before it is probed or scheduled against a data source.
package sqlcheck

import (
	"strings"

	errtypes "opengauss.org/monitor-publisher-go/internal/types/err"
)

// statement keywords a monitor query may start with
var readOnlyKeywords = map[string]struct{}{
	"select":  {},
	"with":    {},
	"show":    {},
	"explain": {},
}

// Validate rejects empty queries, statements that are not read-only and
// stacked statements separated by semicolons.
func Validate(query string) error {
	stripped := stripComments(query)

	trimmed := strings.TrimSpace(stripped)
	if trimmed == "" {
		return errtypes.Validationf("monitor query is empty")
	}

	// A single trailing semicolon is tolerated; anything after it is not.
	if idx := strings.Index(trimmed, ";"); idx >= 0 {
		if rest := strings.TrimSpace(trimmed[idx+1:]); rest != "" {
			return errtypes.Validationf("monitor query must be a single statement")
		}
		trimmed = strings.TrimSpace(trimmed[:idx])
		if trimmed == "" {
			return errtypes.Validationf("monitor query is empty")
		}
	}

	first := strings.ToLower(firstWord(trimmed))
	if _, ok := readOnlyKeywords[first]; !ok {
		return errtypes.Validationf("monitor query must be read-only, got statement %q", first)
	}

	return nil
}

func firstWord(s string) string {
	for i, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '(' {
			return s[:i]
		}
	}
	return s
}

// stripComments removes -- line comments and /* */ block comments.
func stripComments(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		if i+1 < len(s) && s[i] == '-' && s[i+1] == '-' {
			for i < len(s) && s[i] != '\n' {
				i++
			}
			continue
		}
		if i+1 < len(s) && s[i] == '/' && s[i+1] == '*' {
			i += 2
			for i+1 < len(s) && !(s[i] == '*' && s[i+1] == '/') {
				i++
			}
			i += 2
			b.WriteByte(' ')
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}
