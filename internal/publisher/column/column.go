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

// Package column derives stable metric-column identities and flattened
// publish maps from one probe-query result set.
//
// Two artifacts come out of the same scan and must stay separate:
// identities are persisted on the job and later used to compute registry
// keys to remove on unpublish; the publish map is recomputed at every
// publish for the status-page back-end and never persisted.
package column

import (
	"regexp"
	"strconv"
	"strings"
)

// Cell is one (columnName, value) pair of a probe-result row. Null marks a
// SQL NULL; Value is ignored when Null is set.
type Cell struct {
	Name  string
	Value string
	Null  bool
}

// Row is an ordered probe-result row.
type Row []Cell

var (
	numericPattern    = regexp.MustCompile(`^[-+]?\d+(\.\d+)?$`)
	scientificPattern = regexp.MustCompile(`^[+-]?\d+\.?\d*[Ee][+-]?\d+$`)
)

// IsNumeric reports whether v is a signed integer/decimal literal or a
// scientific-notation literal.
func IsNumeric(v string) bool {
	return numericPattern.MatchString(v) || scientificPattern.MatchString(v)
}

// NormalizeValue applies the value defaulting rules: NULL becomes
// "default", except for a column named toastsize (case-insensitive) where
// it becomes "0"; a value starting with "." gains a leading zero.
func NormalizeValue(c Cell) string {
	if c.Null {
		if strings.EqualFold(c.Name, "toastsize") {
			return "0"
		}
		return "default"
	}
	if strings.HasPrefix(c.Value, ".") {
		return "0" + c.Value
	}
	return c.Value
}

// fill synthesizes an instance column for a row that arrived entirely
// empty. The synthetic value is never numeric, so the row still yields no
// identities; the synthesis only keeps the row shape regular.
func fill(row Row, i int) Row {
	if len(row) == 0 {
		return Row{{Name: "instance", Value: "node" + strconv.Itoa(i)}}
	}
	return row
}

// Identities returns the ordered column-identity list for a probe result:
// one "<columnName>_<jobName>_" entry per numeric cell, scanning rows and
// cells in order. Non-numeric cells are skipped.
func Identities(rows []Row, jobName string) []string {
	var out []string
	for i, row := range rows {
		for _, c := range fill(row, i) {
			if IsNumeric(NormalizeValue(c)) {
				out = append(out, c.Name+"_"+jobName+"_")
			}
		}
	}
	return out
}

// PublishMap returns the flattened key/value map for the status-page
// back-end: "<columnName>_<jobName>_<connectName>_<rowIndex>" mapped to
// the normalized value, numeric cells only.
func PublishMap(rows []Row, jobName, connectName string) map[string]string {
	out := make(map[string]string)
	for i, row := range rows {
		for _, c := range fill(row, i) {
			v := NormalizeValue(c)
			if IsNumeric(v) {
				out[c.Name+"_"+jobName+"_"+connectName+"_"+strconv.Itoa(i)] = v
			}
		}
	}
	return out
}

// RegistryKeys appends the connection name to each persisted column
// identity, producing the series keys the pull-metric registry uses.
func RegistryKeys(identities []string, connectName string) []string {
	keys := make([]string, 0, len(identities))
	for _, id := range identities {
		keys = append(keys, id+connectName)
	}
	return keys
}
