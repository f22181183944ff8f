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

// Package err defines the publisher error taxonomy. Validation and probe
// errors surface synchronously to the caller before any state is mutated;
// scheduler and async-task errors are logged and absorbed by their owners.
package err

import (
	"errors"
	"fmt"
)

// Publisher Server Error Types
var (
	PublisherConfigIsNil = errors.New("publisher config is nil")
	PublisherServerStop  = errors.New("publisher server stop")
)

// Banner Error Types
var (
	BannerPrintReaderError  = errors.New("banner read error")
	BannerPrintExecuteError = errors.New("banner render error")
)

// ValidationError reports a rejected request: missing source, duplicate
// metric, reserved group misuse, out-of-range interval. No mutation has
// been performed when one is returned.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// Validationf builds a ValidationError.
func Validationf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ProbeError reports a failed or unusable probe-query execution. It occurs
// after validation and before any persistence, so no partial state results.
type ProbeError struct {
	Msg   string
	Cause error
}

func (e *ProbeError) Error() string {
	if e.Cause != nil {
		return e.Msg + ": " + e.Cause.Error()
	}
	return e.Msg
}

func (e *ProbeError) Unwrap() error {
	return e.Cause
}

// Probef builds a ProbeError wrapping cause (cause may be nil).
func Probef(cause error, format string, args ...interface{}) error {
	return &ProbeError{Msg: fmt.Sprintf(format, args...), Cause: cause}
}

// IsProbe reports whether err is (or wraps) a ProbeError.
func IsProbe(err error) bool {
	var pe *ProbeError
	return errors.As(err, &pe)
}
