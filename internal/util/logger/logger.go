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

package logger

import (
	"io"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	loggertypes "opengauss.org/monitor-publisher-go/internal/types/logger"
)

type Logger struct {
	logr.Logger
	out           io.Writer
	logging       *loggertypes.PublisherLogging
	sugaredLogger *zap.SugaredLogger
}

func NewLogger(w io.Writer, logging *loggertypes.PublisherLogging) Logger {

	logger := initZapLogger(w, logging, logging.Level[loggertypes.LogComponentPublisherDefault])

	return Logger{
		Logger:        zapr.NewLogger(logger),
		out:           w,
		logging:       logging,
		sugaredLogger: logger.Sugar(),
	}
}

func DefaultLogger(out io.Writer, level loggertypes.LogLevel) Logger {

	logging := loggertypes.DefaultPublisherLogging()
	logger := initZapLogger(out, logging, level)

	return Logger{
		Logger:        zapr.NewLogger(logger),
		out:           out,
		logging:       logging,
		sugaredLogger: logger.Sugar(),
	}
}

// WithName returns a new Logger instance with the specified name element added
// to the Logger's name. Successive calls with WithName append additional
// suffixes to the Logger's name.
func (l Logger) WithName(name string) Logger {

	logLevel := l.logging.Level[loggertypes.PublisherLogComponent(name)]
	logger := initZapLogger(l.out, l.logging, logLevel)

	return Logger{
		Logger:        zapr.NewLogger(logger).WithName(name),
		logging:       l.logging,
		out:           l.out,
		sugaredLogger: logger.Sugar().Named(name),
	}
}

// WithValues returns a new Logger instance with additional key/value pairs.
func (l Logger) WithValues(keysAndValues ...interface{}) Logger {

	l.Logger = l.Logger.WithValues(keysAndValues...)
	return l
}

// Sugar returns the zap SugaredLogger backing this Logger for callers that
// prefer the printf-style API.
func (l Logger) Sugar() *zap.SugaredLogger {

	return l.sugaredLogger
}

func initZapLogger(w io.Writer, logging *loggertypes.PublisherLogging, level loggertypes.LogLevel) *zap.Logger {

	parseLevel, _ := zapcore.ParseLevel(string(logging.DefaultPublisherLoggingLevel(level)))
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()), zapcore.AddSync(w), zap.NewAtomicLevelAt(parseLevel))

	return zap.New(core, zap.AddCaller())
}
