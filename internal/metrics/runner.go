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

package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	servertypes "opengauss.org/monitor-publisher-go/internal/types/server"
	"opengauss.org/monitor-publisher-go/internal/util/logger"
)

// Runner serves the service's own metrics on /metrics and the published
// job series on /series.
type Runner struct {
	srv    *http.Server
	logger logger.Logger
}

func NewRunner(port int, selfRegistry *prometheus.Registry, seriesHandler http.Handler, log logger.Logger) *Runner {

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(selfRegistry, promhttp.HandlerOpts{}))
	mux.Handle("/series", seriesHandler)

	return &Runner{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: log.WithName("metrics"),
	}
}

func (r *Runner) Start(ctx context.Context) error {

	errCh := make(chan error, 1)
	go func() {
		errCh <- r.srv.ListenAndServe()
	}()
	r.logger.Info("metrics endpoint listening", "addr", r.srv.Addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return r.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (r *Runner) Info() servertypes.Info {
	return servertypes.Info{Name: "metrics"}
}

func (r *Runner) Close() error {
	return r.srv.Close()
}
