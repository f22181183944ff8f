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

// Package job defines the monitor-job domain model shared by the publish
// orchestrator, the stores, the scheduler adapter and the sinks.
package job

import "time"

// Platform names the external monitoring back-end a job targets.
const (
	PlatformPrometheus = "prometheus"
	PlatformZabbix     = "zabbix"
	PlatformNagios     = "nagios"
)

// Job status values. A job is created PAUSED and flips to NORMAL when its
// schedule is activated by a publish.
const (
	StatusNormal = "NORMAL"
	StatusPaused = "PAUSED"
)

// DefaultJobGroup is the trigger-engine group used when none is set.
const DefaultJobGroup = "DEFAULT"

// SystemTargetGroup is the reserved group of built-in jobs. User-defined
// jobs must not be created in it.
const SystemTargetGroup = "systemtarget"

// Job is a scheduled query-to-metric definition.
type Job struct {
	JobID          int64     `json:"jobId" yaml:"jobId"`
	JobName        string    `json:"jobName" yaml:"jobName"`
	JobGroup       string    `json:"jobGroup" yaml:"jobGroup"`
	Platform       string    `json:"platform" yaml:"platform"`
	Target         string    `json:"target" yaml:"target"`
	TargetGroup    string    `json:"targetGroup" yaml:"targetGroup"`
	Num            int       `json:"num" yaml:"num"`
	TimeUnit       string    `json:"timeUnit" yaml:"timeUnit"`
	CronExpression string    `json:"cronExpression" yaml:"cronExpression"`
	Status         string    `json:"status" yaml:"status"`
	DataSourceID   *int64    `json:"dataSourceId,omitempty" yaml:"dataSourceId,omitempty"`
	Columns        []string  `json:"columns" yaml:"columns"`
	IsCreate       bool      `json:"isCreate" yaml:"isCreate"`
	AllowEmpty     bool      `json:"allowEmpty" yaml:"allowEmpty"`
	CreateTime     time.Time `json:"createTime" yaml:"createTime"`
}

// Group returns the trigger-engine group of the job.
func (j *Job) Group() string {
	if j.JobGroup == "" {
		return DefaultJobGroup
	}
	return j.JobGroup
}

// SourceTarget is the binding between one data source and the set of jobs
// currently published to it. Saving a binding replaces the previous job set
// for that source wholesale.
type SourceTarget struct {
	DataSourceID int64   `json:"dataSourceId" yaml:"dataSourceId"`
	JobIDs       []int64 `json:"jobIds" yaml:"jobIds"`
}

// TargetSource is a batch publish/pause request: the same job set applied to
// several data sources. Batch operations are not transactional across
// sources.
type TargetSource struct {
	DataSourceIDs []int64 `json:"dataSourceIds" yaml:"dataSourceIds"`
	JobIDs        []int64 `json:"jobIds" yaml:"jobIds"`
}

// Config is the connection descriptor of an external back-end or data
// source. ContainerIP/ContainerPort carry the back-end container address for
// the alerting platform; their presence gates whether alerting integration
// is usable at all.
type Config struct {
	DataSourceID  int64  `json:"dataSourceId" yaml:"dataSourceId"`
	Platform      string `json:"platform" yaml:"platform"`
	ConnectName   string `json:"connectName" yaml:"connectName"`
	Driver        string `json:"driver" yaml:"driver"`
	URL           string `json:"url" yaml:"url"`
	Username      string `json:"username" yaml:"username"`
	Password      string `json:"password" yaml:"password"` // base64 at rest
	ContainerIP   string `json:"containerIp,omitempty" yaml:"containerIp,omitempty"`
	ContainerPort string `json:"containerPort,omitempty" yaml:"containerPort,omitempty"`
}

// HasContainerAddress reports whether the back-end container address is
// configured.
func (c *Config) HasContainerAddress() bool {
	return c != nil && c.ContainerIP != "" && c.ContainerPort != ""
}
