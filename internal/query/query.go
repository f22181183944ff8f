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

// Package query runs a monitor job's probe query against its data source
// and returns the result as ordered rows of ordered (column, value) pairs.
package query

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"

	"opengauss.org/monitor-publisher-go/internal/publisher/column"
	errtypes "opengauss.org/monitor-publisher-go/internal/types/err"
	jobtypes "opengauss.org/monitor-publisher-go/internal/types/job"
	"opengauss.org/monitor-publisher-go/internal/util/logger"
)

// Executor runs one read-only query against a data source.
type Executor interface {
	Run(ctx context.Context, cfg *jobtypes.Config, queryText string) ([]column.Row, error)
}

// SQLExecutor executes probe queries over database/sql. A connection is
// opened per probe and closed when the probe finishes; probes are rare
// (publish-time only) so no pool is kept.
type SQLExecutor struct {
	logger  logger.Logger
	timeout time.Duration
}

func NewSQLExecutor(log logger.Logger) *SQLExecutor {
	return &SQLExecutor{
		logger:  log.WithName("query-executor"),
		timeout: 30 * time.Second,
	}
}

// DecodePassword reverses the at-rest base64 encoding of a stored
// credential. Input that does not decode is passed through unchanged.
func DecodePassword(stored string) string {
	if stored == "" {
		return ""
	}
	raw, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return stored
	}
	return string(raw)
}

// DSN resolves the driver name and connection string for a data source.
func DSN(cfg *jobtypes.Config) (driver, dsn string, err error) {
	password := DecodePassword(cfg.Password)
	d := strings.ToLower(cfg.Driver)

	switch {
	case strings.Contains(d, "mysql"):
		// URL holds the address/database part, e.g. tcp(host:3306)/db
		return "mysql", fmt.Sprintf("%s:%s@%s", cfg.Username, password, cfg.URL), nil

	case strings.Contains(d, "postgres"), strings.Contains(d, "opengauss"):
		if u, perr := url.Parse(cfg.URL); perr == nil && strings.HasPrefix(u.Scheme, "postgres") {
			u.User = url.UserPassword(cfg.Username, password)
			return "postgres", u.String(), nil
		}
		// keyword/value form
		var b strings.Builder
		b.WriteString(cfg.URL)
		if cfg.Username != "" {
			fmt.Fprintf(&b, " user=%s", cfg.Username)
		}
		if password != "" {
			fmt.Fprintf(&b, " password=%s", password)
		}
		return "postgres", b.String(), nil

	case strings.Contains(d, "sqlserver"), strings.Contains(d, "mssql"):
		u, perr := url.Parse(cfg.URL)
		if perr != nil {
			return "", "", errtypes.Validationf("invalid sqlserver url %q", cfg.URL)
		}
		u.User = url.UserPassword(cfg.Username, password)
		return "sqlserver", u.String(), nil

	default:
		return "", "", errtypes.Validationf("unsupported driver %q", cfg.Driver)
	}
}

// Run executes queryText against the data source described by cfg. Rows
// preserve result-set column order; SQL NULLs are marked on the cell.
func (e *SQLExecutor) Run(ctx context.Context, cfg *jobtypes.Config, queryText string) ([]column.Row, error) {
	driver, dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errtypes.Probef(err, "open %s connection for source %d", driver, cfg.DataSourceID)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	rows, err := db.QueryContext(ctx, queryText)
	if err != nil {
		return nil, errtypes.Probef(err, "probe query failed on source %d", cfg.DataSourceID)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, errtypes.Probef(err, "read probe columns on source %d", cfg.DataSourceID)
	}

	var out []column.Row
	for rows.Next() {
		values := make([]sql.NullString, len(names))
		dest := make([]any, len(names))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, errtypes.Probef(err, "scan probe row on source %d", cfg.DataSourceID)
		}

		row := make(column.Row, 0, len(names))
		for i, name := range names {
			row = append(row, column.Cell{
				Name:  name,
				Value: values[i].String,
				Null:  !values[i].Valid,
			})
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errtypes.Probef(err, "iterate probe rows on source %d", cfg.DataSourceID)
	}

	e.logger.V(1).Info("probe query executed", "source", cfg.DataSourceID, "rows", len(out))
	return out, nil
}
