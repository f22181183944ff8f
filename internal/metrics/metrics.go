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

// Package metrics holds the publisher's own operational metrics, separate
// from the published-series registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type PublisherMetrics struct {
	Operations      *prometheus.CounterVec
	OperationErrors *prometheus.CounterVec
	ProbeDuration   prometheus.Histogram
	ActiveSchedules prometheus.Gauge
}

// New registers the publisher metrics on reg and returns them.
func New(reg prometheus.Registerer) *PublisherMetrics {
	m := &PublisherMetrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "publisher",
			Name:      "operations_total",
			Help:      "Orchestrator operations by kind.",
		}, []string{"op"}),
		OperationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "publisher",
			Name:      "operation_errors_total",
			Help:      "Failed orchestrator operations by kind.",
		}, []string{"op"}),
		ProbeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "publisher",
			Name:      "probe_duration_seconds",
			Help:      "Duration of probe query executions.",
			Buckets:   prometheus.DefBuckets,
		}),
		ActiveSchedules: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "publisher",
			Name:      "active_schedules",
			Help:      "Schedules currently known to the trigger engine.",
		}),
	}
	reg.MustRegister(m.Operations, m.OperationErrors, m.ProbeDuration, m.ActiveSchedules)
	return m
}

// Observe counts one operation outcome.
func (m *PublisherMetrics) Observe(op string, err error) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(op).Inc()
	if err != nil {
		m.OperationErrors.WithLabelValues(op).Inc()
	}
}
