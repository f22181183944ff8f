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

// Package alerting registers monitor jobs against the alerting back-end by
// writing host and item rows directly into its database. Registration is a
// read-modify-write of shared external state; callers serialize through the
// orchestrator's alerting lock.
package alerting

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"opengauss.org/monitor-publisher-go/internal/publisher/column"
	"opengauss.org/monitor-publisher-go/internal/query"
	errtypes "opengauss.org/monitor-publisher-go/internal/types/err"
	jobtypes "opengauss.org/monitor-publisher-go/internal/types/job"
	"opengauss.org/monitor-publisher-go/internal/util/logger"
)

type Sink struct {
	logger logger.Logger
}

func New(log logger.Logger) *Sink {
	return &Sink{logger: log.WithName("alerting-sink")}
}

// Validate reports whether the alerting back-end is usable at all: a config
// must exist and carry the back-end container address.
func (s *Sink) Validate(alertCfg *jobtypes.Config) error {
	if alertCfg == nil || !alertCfg.HasContainerAddress() {
		return errtypes.Validationf("configure the alerting source with a container address first")
	}
	return nil
}

// rebind rewrites ? markers into the positional style of the resolved
// driver. lib/pq wants $N, go-mssqldb wants @pN, mysql keeps ?.
func rebind(driver, q string) string {
	if driver == "mysql" {
		return q
	}
	marker := "$%d"
	if driver == "sqlserver" {
		marker = "@p%d"
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r != '?' {
			b.WriteRune(r)
			continue
		}
		n++
		fmt.Fprintf(&b, marker, n)
	}
	return b.String()
}

// Register writes one host row for the data source and one item row per
// persisted column identity of each job. Rows for the same host/item key
// are replaced, not duplicated. Statements are written with ? markers and
// rebound to the resolved driver's placeholder style.
func (s *Sink) Register(ctx context.Context, jobs []*jobtypes.Job, sourceCfg, alertCfg *jobtypes.Config) error {
	if err := s.Validate(alertCfg); err != nil {
		return err
	}

	driver, dsn, err := query.DSN(alertCfg)
	if err != nil {
		return err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	host := sourceCfg.ConnectName
	if _, err := tx.ExecContext(ctx,
		rebind(driver, `DELETE FROM monitor_hosts WHERE host = ?`), host); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		rebind(driver, `INSERT INTO monitor_hosts(host, address, port) VALUES(?,?,?)`),
		host, alertCfg.ContainerIP, alertCfg.ContainerPort); err != nil {
		return err
	}

	for _, j := range jobs {
		for _, key := range column.RegistryKeys(j.Columns, host) {
			if _, err := tx.ExecContext(ctx,
				rebind(driver, `DELETE FROM monitor_items WHERE host = ? AND item_key = ?`), host, key); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				rebind(driver, `INSERT INTO monitor_items(host, item_key, job_name, cron) VALUES(?,?,?,?)`),
				host, key, j.JobName, j.CronExpression); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	s.logger.Info("alerting registration written", "host", host, "jobs", len(jobs))
	return nil
}
