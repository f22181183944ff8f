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

// Package cron maps a (num, timeUnit) schedule period onto a fixed table
// of six-field trigger expressions. Second, minute and hour use num as the
// repeat interval; day, week, month and year ignore num and always produce
// the same fixed expression. This is a fixed table, not a general cron
// generator, and the coarse-unit behavior is kept as-is.
package cron

import (
	"fmt"
	"strings"

	errtypes "opengauss.org/monitor-publisher-go/internal/types/err"
)

// Time units accepted for a schedule period.
const (
	UnitSecond = "second"
	UnitMinute = "minute"
	UnitHour   = "hour"
	UnitDay    = "day"
	UnitWeek   = "week"
	UnitMonth  = "month"
	UnitYear   = "year"
)

// interval bounds per unit; units absent here take num unchecked
var intervalBounds = map[string][2]int{
	UnitSecond: {1, 59},
	UnitMinute: {1, 59},
	UnitHour:   {1, 23},
	UnitDay:    {1, 30},
	UnitWeek:   {1, 4},
	UnitMonth:  {1, 12},
}

// ValidateInterval rejects a num outside the allowed range for the unit.
func ValidateInterval(num int, timeUnit string) error {
	unit := strings.ToLower(timeUnit)
	bounds, ok := intervalBounds[unit]
	if !ok {
		if unit == UnitYear {
			return nil
		}
		return errtypes.Validationf("unknown time unit %q", timeUnit)
	}
	if num < bounds[0] || num > bounds[1] {
		return errtypes.Validationf("interval %d out of range [%d, %d] for unit %s", num, bounds[0], bounds[1], unit)
	}
	return nil
}

// Expression returns the trigger expression for the schedule period.
func Expression(num int, timeUnit string) (string, error) {
	switch strings.ToLower(timeUnit) {
	case UnitSecond:
		return fmt.Sprintf("0/%d * * * * ?", num), nil
	case UnitMinute:
		return fmt.Sprintf("0 */%d * * * ?", num), nil
	case UnitHour:
		return fmt.Sprintf("* * 0/%d * * ?", num), nil
	case UnitDay:
		return "0 0 23 * * ?", nil
	case UnitWeek:
		return "0 0 12 ? * WED", nil
	case UnitMonth:
		return "0 15 10 15 * ?", nil
	case UnitYear:
		return "0 10,44 14 ? 3 WED", nil
	default:
		return "", errtypes.Validationf("unknown time unit %q", timeUnit)
	}
}
