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

// Package registry is the pull-based series sink: one dynamic gauge per
// published series key on a dedicated scrape registry, separate from the
// process self-metrics.
package registry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"opengauss.org/monitor-publisher-go/internal/util/logger"
)

// Sink owns the published-series registry. Series come and go at publish /
// unpublish time; values are refreshed by scheduled collection runs.
type Sink struct {
	mu       sync.Mutex
	registry *prometheus.Registry
	gauges   map[string]prometheus.Gauge
	logger   logger.Logger
}

func New(log logger.Logger) *Sink {
	return &Sink{
		registry: prometheus.NewRegistry(),
		gauges:   make(map[string]prometheus.Gauge),
		logger:   log.WithName("registry-sink"),
	}
}

// sanitize maps a series key onto a legal metric name.
func sanitize(key string) string {
	out := []rune(key)
	for i, r := range out {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == ':':
		case r >= '0' && r <= '9' && i > 0:
		default:
			out[i] = '_'
		}
	}
	return string(out)
}

// Set registers the series key on first use and updates its value.
func (s *Sink) Set(key string, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.gauges[key]
	if !ok {
		g = prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        sanitize(key),
			Help:        "published monitor series",
			ConstLabels: prometheus.Labels{"series": key},
		})
		if err := s.registry.Register(g); err != nil {
			s.logger.Error(err, "failed to register series", "key", key)
			return
		}
		s.gauges[key] = g
		s.logger.V(1).Info("series registered", "key", key)
	}
	g.Set(value)
}

// Remove drops the named series from the scrape output. Unknown keys are
// ignored.
func (s *Sink) Remove(keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		g, ok := s.gauges[key]
		if !ok {
			continue
		}
		s.registry.Unregister(g)
		delete(s.gauges, key)
		s.logger.V(1).Info("series removed", "key", key)
	}
}

// Has reports whether the series key is currently registered.
func (s *Sink) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.gauges[key]
	return ok
}

// Handler serves the published-series registry in scrape format.
func (s *Sink) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
