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

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	jobtypes "opengauss.org/monitor-publisher-go/internal/types/job"
	"opengauss.org/monitor-publisher-go/internal/util/logger"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS jobs (
	job_id          INTEGER PRIMARY KEY,
	job_name        TEXT NOT NULL,
	job_group       TEXT NOT NULL DEFAULT '',
	platform        TEXT NOT NULL,
	target          TEXT NOT NULL,
	target_group    TEXT NOT NULL DEFAULT '',
	num             INTEGER NOT NULL DEFAULT 0,
	time_unit       TEXT NOT NULL DEFAULT '',
	cron_expression TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL DEFAULT '',
	data_source_id  INTEGER,
	columns         TEXT NOT NULL DEFAULT '[]',
	allow_empty     INTEGER NOT NULL DEFAULT 0,
	create_time     TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS bindings (
	data_source_id INTEGER PRIMARY KEY,
	job_ids        TEXT NOT NULL DEFAULT '[]'
);
CREATE TABLE IF NOT EXISTS configs (
	data_source_id INTEGER PRIMARY KEY,
	platform       TEXT NOT NULL,
	connect_name   TEXT NOT NULL DEFAULT '',
	driver         TEXT NOT NULL DEFAULT '',
	url            TEXT NOT NULL DEFAULT '',
	username       TEXT NOT NULL DEFAULT '',
	password       TEXT NOT NULL DEFAULT '',
	container_ip   TEXT NOT NULL DEFAULT '',
	container_port TEXT NOT NULL DEFAULT ''
);
`

type sqliteStore struct {
	db  *sql.DB
	log logger.Logger
}

func openSQLite(path string, log logger.Logger) (Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Info("sqlite store opened", "path", path)
	return &sqliteStore{db: db, log: log}, nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) SaveJob(ctx context.Context, j *jobtypes.Job) error {
	cols, err := json.Marshal(j.Columns)
	if err != nil {
		return err
	}
	var dsID sql.NullInt64
	if j.DataSourceID != nil {
		dsID = sql.NullInt64{Int64: *j.DataSourceID, Valid: true}
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO jobs(job_id, job_name, job_group, platform, target, target_group,
		                  num, time_unit, cron_expression, status, data_source_id,
		                  columns, allow_empty, create_time)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		 ON CONFLICT(job_id) DO UPDATE SET
		   job_name=excluded.job_name, job_group=excluded.job_group,
		   platform=excluded.platform, target=excluded.target,
		   target_group=excluded.target_group, num=excluded.num,
		   time_unit=excluded.time_unit, cron_expression=excluded.cron_expression,
		   status=excluded.status, data_source_id=excluded.data_source_id,
		   columns=excluded.columns, allow_empty=excluded.allow_empty,
		   create_time=excluded.create_time`,
		j.JobID, j.JobName, j.JobGroup, j.Platform, j.Target, j.TargetGroup,
		j.Num, j.TimeUnit, j.CronExpression, j.Status, dsID,
		string(cols), j.AllowEmpty, j.CreateTime.Format(time.RFC3339Nano),
	)
	return err
}

func (s *sqliteStore) DeleteJob(ctx context.Context, jobID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE job_id = ?`, jobID)
	return err
}

const jobColumns = `job_id, job_name, job_group, platform, target, target_group,
	num, time_unit, cron_expression, status, data_source_id, columns, allow_empty, create_time`

func scanJob(row interface{ Scan(...any) error }) (*jobtypes.Job, error) {
	var (
		j          jobtypes.Job
		dsID       sql.NullInt64
		cols       string
		createTime string
	)
	if err := row.Scan(&j.JobID, &j.JobName, &j.JobGroup, &j.Platform, &j.Target,
		&j.TargetGroup, &j.Num, &j.TimeUnit, &j.CronExpression, &j.Status,
		&dsID, &cols, &j.AllowEmpty, &createTime); err != nil {
		return nil, err
	}
	if dsID.Valid {
		j.DataSourceID = &dsID.Int64
	}
	if err := json.Unmarshal([]byte(cols), &j.Columns); err != nil {
		return nil, err
	}
	if createTime != "" {
		if t, err := time.Parse(time.RFC3339Nano, createTime); err == nil {
			j.CreateTime = t
		}
	}
	return &j, nil
}

func (s *sqliteStore) GetJob(ctx context.Context, jobID int64) (*jobtypes.Job, error) {
	j, err := scanJob(s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE job_id = ?`, jobID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return j, err
}

func (s *sqliteStore) ListJobs(ctx context.Context) ([]*jobtypes.Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs ORDER BY job_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*jobtypes.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (s *sqliteStore) ListJobsByIDs(ctx context.Context, jobIDs []int64) ([]*jobtypes.Job, error) {
	out := make([]*jobtypes.Job, 0, len(jobIDs))
	for _, id := range jobIDs {
		j, err := s.GetJob(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, nil
}

func (s *sqliteStore) SaveBinding(ctx context.Context, b *jobtypes.SourceTarget) error {
	ids, err := json.Marshal(b.JobIDs)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO bindings(data_source_id, job_ids) VALUES(?,?)
		 ON CONFLICT(data_source_id) DO UPDATE SET job_ids=excluded.job_ids`,
		b.DataSourceID, string(ids),
	)
	return err
}

func (s *sqliteStore) GetBinding(ctx context.Context, dataSourceID int64) (*jobtypes.SourceTarget, error) {
	var ids string
	err := s.db.QueryRowContext(ctx,
		`SELECT job_ids FROM bindings WHERE data_source_id = ?`, dataSourceID).Scan(&ids)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	b := &jobtypes.SourceTarget{DataSourceID: dataSourceID}
	if err := json.Unmarshal([]byte(ids), &b.JobIDs); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *sqliteStore) DeleteBinding(ctx context.Context, dataSourceID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM bindings WHERE data_source_id = ?`, dataSourceID)
	return err
}

func (s *sqliteStore) ListBindings(ctx context.Context) ([]*jobtypes.SourceTarget, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data_source_id, job_ids FROM bindings ORDER BY data_source_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*jobtypes.SourceTarget
	for rows.Next() {
		var (
			b   jobtypes.SourceTarget
			ids string
		)
		if err := rows.Scan(&b.DataSourceID, &ids); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(ids), &b.JobIDs); err != nil {
			return nil, err
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

func (s *sqliteStore) SaveConfig(ctx context.Context, c *jobtypes.Config) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO configs(data_source_id, platform, connect_name, driver, url,
		                     username, password, container_ip, container_port)
		 VALUES(?,?,?,?,?,?,?,?,?)
		 ON CONFLICT(data_source_id) DO UPDATE SET
		   platform=excluded.platform, connect_name=excluded.connect_name,
		   driver=excluded.driver, url=excluded.url, username=excluded.username,
		   password=excluded.password, container_ip=excluded.container_ip,
		   container_port=excluded.container_port`,
		c.DataSourceID, c.Platform, c.ConnectName, c.Driver, c.URL,
		c.Username, c.Password, c.ContainerIP, c.ContainerPort,
	)
	return err
}

const configColumns = `data_source_id, platform, connect_name, driver, url,
	username, password, container_ip, container_port`

func scanConfig(row interface{ Scan(...any) error }) (*jobtypes.Config, error) {
	var c jobtypes.Config
	if err := row.Scan(&c.DataSourceID, &c.Platform, &c.ConnectName, &c.Driver,
		&c.URL, &c.Username, &c.Password, &c.ContainerIP, &c.ContainerPort); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *sqliteStore) GetConfig(ctx context.Context, dataSourceID int64) (*jobtypes.Config, error) {
	c, err := scanConfig(s.db.QueryRowContext(ctx,
		`SELECT `+configColumns+` FROM configs WHERE data_source_id = ?`, dataSourceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

func (s *sqliteStore) GetConfigByPlatform(ctx context.Context, platform string) (*jobtypes.Config, error) {
	c, err := scanConfig(s.db.QueryRowContext(ctx,
		`SELECT `+configColumns+` FROM configs WHERE platform = ? ORDER BY data_source_id LIMIT 1`,
		platform))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

func (s *sqliteStore) ListConfigs(ctx context.Context) ([]*jobtypes.Config, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+configColumns+` FROM configs ORDER BY data_source_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*jobtypes.Config
	for rows.Next() {
		c, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *sqliteStore) DeleteConfig(ctx context.Context, dataSourceID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM configs WHERE data_source_id = ?`, dataSourceID)
	return err
}
