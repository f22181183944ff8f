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

// Package server holds the shared service context the runners hang off.
package server

import (
	"io"

	cfgtypes "opengauss.org/monitor-publisher-go/internal/types/config"
	loggertypes "opengauss.org/monitor-publisher-go/internal/types/logger"
	"opengauss.org/monitor-publisher-go/internal/util/logger"
)

const MonitorPublisherGoName = "monitor-publisher-go"

type Server struct {
	Name   string
	Config *cfgtypes.PublisherConfig
	Logger logger.Logger
}

func New(cfg *cfgtypes.PublisherConfig, logOut io.Writer) *Server {

	logging := cfg.Publisher.Logging
	if logging == nil {
		logging = loggertypes.DefaultPublisherLogging()
	}

	return &Server{
		Config: cfg,
		Name:   MonitorPublisherGoName,
		Logger: logger.NewLogger(logOut, logging),
	}
}
