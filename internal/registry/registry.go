// Package registry owns the append-only run registry event log. Events are
// written once and never updated; the "current" state of a run is always the
// max-timestamp-per-run projection, exposed as a view so concurrent readers
// only ever see whole events.
package registry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lakecat/internal/gateway"
	"lakecat/internal/lake"
	"lakecat/internal/runid"
	"lakecat/pkg/errors"
)

// Closed set of registry event statuses.
const (
	StatusOK               = "ok"
	StatusSkippedActive    = "skipped_active"
	StatusMissingData      = "missing_data"
	StatusFailedIncomplete = "failed_incomplete"
)

const (
	// SentinelTable is the table whose presence classifies a run as fully
	// registered.
	SentinelTable = "releases_ref_v6"

	eventsTable = "hive." + runid.HistorySchema + ".run_registry_events"
	latestView  = "hive." + runid.HistorySchema + ".run_registry_latest"

	eventsSubdir = "registry/run_registry_events"
)

// TimestampLayout renders event timestamps as engine TIMESTAMP literals.
const TimestampLayout = "2006-01-02 15:04:05"

// Event is one immutable registry record.
type Event struct {
	EventTS       time.Time
	RunID         string
	SchemaName    string
	IsActive      bool
	Action        string
	Status        string
	Details       string
	DumpMonth     string
	DumpDate      string
	RunMode       string
	GitSHA        string
	SchemaVersion int64
}

// Log appends to and reads from the registry event log.
type Log struct {
	gw    gateway.Gateway
	paths lake.Paths
}

// NewLog creates the registry log accessor.
func NewLog(gw gateway.Gateway, paths lake.Paths) *Log {
	return &Log{gw: gw, paths: paths}
}

// Ensure idempotently creates the history schema, the events table, its
// backing directory, and the latest-per-run projection view.
func (l *Log) Ensure(ctx context.Context) error {
	eventsDir := l.paths.MetaDirEngine(eventsSubdir)
	if err := l.gw.EnsureDir(ctx, eventsDir); err != nil {
		return err
	}

	createSchema := fmt.Sprintf(
		"CREATE SCHEMA IF NOT EXISTS hive.%s WITH (location='%s');",
		runid.HistorySchema, l.paths.MetaLocation(""))
	if err := l.gw.ExecuteDDL(ctx, createSchema); err != nil {
		return errors.Wrap(err, errors.ErrCodeDDLFailed, "failed to create history schema")
	}

	createTable := fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
          event_ts_utc   TIMESTAMP,
          run_id         VARCHAR,
          schema_name    VARCHAR,
          is_active      BOOLEAN,
          action         VARCHAR,
          status         VARCHAR,
          details        VARCHAR,
          dump_month     VARCHAR,
          dump_date      VARCHAR,
          run_mode       VARCHAR,
          git_sha        VARCHAR,
          schema_version BIGINT
        )
        WITH (
          external_location = '%s',
          format = 'PARQUET'
        );`, eventsTable, l.paths.MetaLocation(eventsSubdir))
	if err := l.gw.ExecuteDDL(ctx, createTable); err != nil {
		return errors.Wrap(err, errors.ErrCodeDDLFailed, "failed to create registry events table")
	}

	createView := fmt.Sprintf(`
        CREATE OR REPLACE VIEW %s AS
        SELECT event_ts_utc, run_id, schema_name, is_active, action, status, details,
               dump_month, dump_date, run_mode, git_sha, schema_version
        FROM (
          SELECT e.*, row_number() OVER (PARTITION BY run_id ORDER BY event_ts_utc DESC) AS rn
          FROM %s e
        )
        WHERE rn = 1;`, latestView, eventsTable)
	if err := l.gw.ExecuteDDL(ctx, createView); err != nil {
		return errors.Wrap(err, errors.ErrCodeDDLFailed, "failed to create registry latest view")
	}

	return nil
}

// Append writes one event. The CLI transport cannot bind placeholders, so
// the insert is built from escaped literals.
func (l *Log) Append(ctx context.Context, e Event) error {
	isActive := "false"
	if e.IsActive {
		isActive = "true"
	}

	sql := fmt.Sprintf(`
    INSERT INTO %s (
      event_ts_utc, run_id, schema_name, is_active, action, status, details,
      dump_month, dump_date, run_mode, git_sha, schema_version
    )
    VALUES (
      TIMESTAMP '%s',
      '%s', '%s', %s, '%s', '%s', '%s', '%s', '%s', '%s', '%s', %d
    );`,
		eventsTable,
		gateway.Escape(e.EventTS.UTC().Format(TimestampLayout)),
		gateway.Escape(e.RunID),
		gateway.Escape(e.SchemaName),
		isActive,
		gateway.Escape(e.Action),
		gateway.Escape(e.Status),
		gateway.Escape(e.Details),
		gateway.Escape(e.DumpMonth),
		gateway.Escape(e.DumpDate),
		gateway.Escape(e.RunMode),
		gateway.Escape(e.GitSHA),
		e.SchemaVersion,
	)

	if err := l.gw.ExecuteDDL(ctx, sql); err != nil {
		return errors.Wrap(err, errors.ErrCodeAppendFailed,
			fmt.Sprintf("failed to append registry event for %s", e.RunID)).
			WithContext("run_id", e.RunID).
			WithContext("status", e.Status)
	}
	return nil
}

// SentinelExists reports whether the sentinel table is declared in the given
// schema. Always a fresh query, never a cached flag.
func (l *Log) SentinelExists(ctx context.Context, schema string) (bool, error) {
	sql := fmt.Sprintf(`
    SELECT 1
    FROM hive.information_schema.tables
    WHERE table_schema = '%s'
      AND table_name = '%s'
    LIMIT 1`, gateway.Escape(schema), gateway.Escape(SentinelTable))

	rows, err := l.gw.ExecuteQuery(ctx, sql)
	if err != nil {
		return false, err
	}
	return gateway.FirstValue(rows) == "1", nil
}

// RunState is one row of the latest-per-run projection.
type RunState struct {
	RunID      string
	SchemaName string
	IsActive   bool
}

// Selector filters the latest-per-run projection.
type Selector struct {
	IncludeActive bool
	OnlyRunID     string
}

// LatestOK returns the runs whose latest registry status is ok, in ascending
// run-id order.
func (l *Log) LatestOK(ctx context.Context, sel Selector) ([]RunState, error) {
	where := []string{"status = '" + StatusOK + "'"}
	if !sel.IncludeActive {
		where = append(where, "is_active = false")
	}
	if sel.OnlyRunID != "" {
		where = append(where, fmt.Sprintf("run_id = '%s'", gateway.Escape(sel.OnlyRunID)))
	}

	sql := fmt.Sprintf(`
    SELECT run_id, schema_name, is_active
    FROM %s
    WHERE %s
    ORDER BY run_id`, latestView, strings.Join(where, " AND "))

	rows, err := l.gw.ExecuteQuery(ctx, sql)
	if err != nil {
		return nil, err
	}

	var out []RunState
	for _, row := range rows {
		if len(row) != 3 {
			continue
		}
		out = append(out, RunState{
			RunID:      row[0],
			SchemaName: row[1],
			IsActive:   strings.EqualFold(row[2], "true"),
		})
	}
	return out, nil
}
