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

// Package id mints time-ordered unique identifiers for jobs.
package id

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	once sync.Once
	node *snowflake.Node
)

// Next returns a new time-ordered 64-bit identifier.
func Next() int64 {
	once.Do(func() {
		var err error
		node, err = snowflake.NewNode(1)
		if err != nil {
			// NewNode only fails for an out-of-range node id; 1 is valid.
			panic(err)
		}
	})
	return node.Generate().Int64()
}
