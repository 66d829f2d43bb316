// Package kpi computes per-run quality and volume metrics into an
// append-only event log: base KPIs straight from aggregate queries, then
// derived basis-point ratios from the base results of the same pass.
package kpi

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"lakecat/internal/gateway"
	"lakecat/internal/lake"
	"lakecat/internal/registry"
	"lakecat/internal/runid"
	"lakecat/internal/ui"
	"lakecat/pkg/errors"
)

// Closed set of KPI event statuses.
const (
	StatusOK          = "ok"
	StatusFailedQuery = "failed_query"
)

const (
	eventsTable = "hive." + runid.HistorySchema + ".kpi_snapshot_events"
	latestView  = "hive." + runid.HistorySchema + ".kpi_snapshot_latest"

	eventsSubdir = "kpi/kpi_snapshot_events"

	// failure details are truncated so one broken query cannot bloat the log
	maxDetailLen = 500
)

// Event is one immutable KPI record.
type Event struct {
	EventTS       time.Time
	RunID         string
	SchemaName    string
	KPIName       string
	KPIValue      int64
	Status        string
	Details       string
	SchemaVersion int64
}

// Options configures one KPI sweep.
type Options struct {
	IncludeActive bool
	OnlyRunID     string
	OnlyKPI       string // restrict to one base KPI; suppresses derived KPIs
	Strict        bool   // abort the whole sweep on the first failed query
	SchemaVersion int64
}

// Engine runs KPI sweeps.
type Engine struct {
	gw    gateway.Gateway
	paths lake.Paths
	reg   *registry.Log
	out   *ui.Sweep
}

// NewEngine creates a KPI engine over the given gateway; run selection goes
// through the registry's latest-state projection.
func NewEngine(gw gateway.Gateway, paths lake.Paths, reg *registry.Log, out *ui.Sweep) *Engine {
	if out == nil {
		out = ui.NewSweep()
	}
	return &Engine{gw: gw, paths: paths, reg: reg, out: out}
}

// Ensure idempotently creates the KPI events table, its backing directory,
// and the latest-per-(run, kpi) projection view.
func (e *Engine) Ensure(ctx context.Context) error {
	if err := e.gw.EnsureDir(ctx, e.paths.MetaDirEngine(eventsSubdir)); err != nil {
		return err
	}

	createTable := fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
          event_ts_utc   TIMESTAMP,
          run_id         VARCHAR,
          schema_name    VARCHAR,
          kpi_name       VARCHAR,
          kpi_value      BIGINT,
          status         VARCHAR,
          details        VARCHAR,
          schema_version BIGINT
        )
        WITH (
          external_location = '%s',
          format = 'PARQUET'
        );`, eventsTable, e.paths.MetaLocation(eventsSubdir))
	if err := e.gw.ExecuteDDL(ctx, createTable); err != nil {
		return errors.Wrap(err, errors.ErrCodeDDLFailed, "failed to create kpi events table")
	}

	createView := fmt.Sprintf(`
        CREATE OR REPLACE VIEW %s AS
        SELECT event_ts_utc, run_id, schema_name, kpi_name, kpi_value, status, details, schema_version
        FROM (
          SELECT k.*, row_number() OVER (PARTITION BY run_id, kpi_name ORDER BY event_ts_utc DESC) AS rn
          FROM %s k
        )
        WHERE rn = 1;`, latestView, eventsTable)
	if err := e.gw.ExecuteDDL(ctx, createView); err != nil {
		return errors.Wrap(err, errors.ErrCodeDDLFailed, "failed to create kpi latest view")
	}

	return nil
}

// Append writes one KPI event.
func (e *Engine) Append(ctx context.Context, ev Event) error {
	sql := fmt.Sprintf(`
    INSERT INTO %s (
      event_ts_utc, run_id, schema_name, kpi_name, kpi_value, status, details, schema_version
    )
    VALUES (
      TIMESTAMP '%s',
      '%s', '%s', '%s', %d, '%s', '%s', %d
    );`,
		eventsTable,
		gateway.Escape(ev.EventTS.UTC().Format(registry.TimestampLayout)),
		gateway.Escape(ev.RunID),
		gateway.Escape(ev.SchemaName),
		gateway.Escape(ev.KPIName),
		ev.KPIValue,
		gateway.Escape(ev.Status),
		gateway.Escape(ev.Details),
		ev.SchemaVersion,
	)

	if err := e.gw.ExecuteDDL(ctx, sql); err != nil {
		return errors.Wrap(err, errors.ErrCodeAppendFailed,
			fmt.Sprintf("failed to append kpi event %s for %s", ev.KPIName, ev.RunID))
	}
	return nil
}

// ComputeForRuns runs the KPI sweep over every run whose latest registry
// status is ok, filtered by the options. Non-strict mode is fail-soft per
// KPI; strict mode aborts on the first failed query.
func (e *Engine) ComputeForRuns(ctx context.Context, opts Options) error {
	if opts.OnlyRunID != "" {
		if err := runid.Validate(opts.OnlyRunID); err != nil {
			return err
		}
	}

	kpiDefs := Defs
	if opts.OnlyKPI != "" {
		d, ok := LookupDef(opts.OnlyKPI)
		if !ok {
			return errors.New(errors.ErrCodeInvalidInput,
				fmt.Sprintf("unknown KPI name: %s", opts.OnlyKPI))
		}
		kpiDefs = []Def{d}
	}

	if err := e.gw.Probe(ctx); err != nil {
		return err
	}
	if err := e.Ensure(ctx); err != nil {
		return err
	}

	runs, err := e.reg.LatestOK(ctx, registry.Selector{
		IncludeActive: opts.IncludeActive,
		OnlyRunID:     opts.OnlyRunID,
	})
	if err != nil {
		return err
	}

	activeRun := runid.ResolveActive(e.paths.HostRoot)

	fields := [][2]string{
		{"ts", time.Now().UTC().Format(registry.TimestampLayout)},
		{"lake", e.paths.HostRoot},
		{"active", orUnknown(activeRun)},
		{"schema_version", fmt.Sprintf("%d", opts.SchemaVersion)},
		{"runs", fmt.Sprintf("%d", len(runs))},
	}
	if opts.OnlyKPI != "" {
		fields = append(fields, [2]string{"kpi", opts.OnlyKPI})
	}
	e.out.Banner("COMPUTE KPIs (append-only)", fields)

	if len(runs) == 0 {
		e.out.Printf("No runs to process (registry latest returned empty set).")
		return nil
	}

	for _, run := range runs {
		if err := e.computeRun(ctx, run, kpiDefs, opts); err != nil {
			return err
		}
	}

	e.out.Done("DONE (kpi events appended)")
	return nil
}

// computeRun evaluates the base dictionary for one run, collecting results
// for the derived pass.
func (e *Engine) computeRun(ctx context.Context, run registry.RunState, kpiDefs []Def, opts Options) error {
	if !run.IsActive {
		if expected := runid.SchemaForRun(run.RunID); run.SchemaName != expected {
			e.out.Item("WARN", "registry schema mismatch for %s: registry=%s expected=%s",
				run.RunID, run.SchemaName, expected)
		}
	}

	e.out.Printf("== run %s (schema hive.%s) ==", run.RunID, run.SchemaName)

	vals := make(map[string]int64, len(kpiDefs))

	for _, def := range kpiDefs {
		sql := renderSQL(def.SQL, run.SchemaName)
		ts := time.Now().UTC()

		val, qerr := e.queryValue(ctx, sql)
		if qerr == nil {
			vals[def.Name] = val
			if err := e.Append(ctx, Event{
				EventTS: ts, RunID: run.RunID, SchemaName: run.SchemaName,
				KPIName: def.Name, KPIValue: val, Status: StatusOK,
				SchemaVersion: opts.SchemaVersion,
			}); err != nil {
				return err
			}
			e.out.Item("OK", "%s=%d", def.Name, val)
			continue
		}

		detail := qerr.Error()
		if len(detail) > maxDetailLen {
			detail = detail[:maxDetailLen]
		}
		if err := e.Append(ctx, Event{
			EventTS: ts, RunID: run.RunID, SchemaName: run.SchemaName,
			KPIName: def.Name, KPIValue: 0, Status: StatusFailedQuery,
			Details: detail, SchemaVersion: opts.SchemaVersion,
		}); err != nil {
			return err
		}
		e.out.Item("FAIL", "%s: %v", def.Name, qerr)

		if opts.Strict {
			return errors.Wrap(qerr, errors.ErrCodeFailedQuery,
				fmt.Sprintf("strict mode, aborting on KPI failure: %s for run %s", def.Name, run.RunID))
		}
	}

	// Derived KPIs are intentionally suppressed when the caller restricted
	// the pass to one named KPI: ratios need the whole base pass.
	if opts.OnlyKPI != "" {
		return nil
	}
	return e.computeDerived(ctx, run, vals, opts)
}

// computeDerived records the basis-point ratios whose inputs both succeeded
// in this pass. Zero or unknown denominators skip the KPI entirely: a bogus
// zero would be indistinguishable from a genuine zero-ratio result.
func (e *Engine) computeDerived(ctx context.Context, run registry.RunState, vals map[string]int64, opts Options) error {
	ts := time.Now().UTC()

	for _, d := range DerivedDefs {
		numer, haveNumer := vals[d.Numerator]
		denom, haveDenom := vals[d.Denominator]
		if !haveNumer || !haveDenom || denom <= 0 {
			continue
		}

		v := SafeBP(numer, denom)
		if err := e.Append(ctx, Event{
			EventTS: ts, RunID: run.RunID, SchemaName: run.SchemaName,
			KPIName: d.Name, KPIValue: v, Status: StatusOK,
			SchemaVersion: opts.SchemaVersion,
		}); err != nil {
			return err
		}
		e.out.Item("OK", "%s=%d", d.Name, v)
	}
	return nil
}

// queryValue runs one aggregate query and parses its single BIGINT result.
func (e *Engine) queryValue(ctx context.Context, sql string) (int64, error) {
	rows, err := e.gw.ExecuteQuery(ctx, sql)
	if err != nil {
		return 0, err
	}

	first := gateway.FirstValue(rows)
	if first == "" {
		return 0, errors.New(errors.ErrCodeResultParsing, "empty_result")
	}

	val, err := strconv.ParseInt(first, 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeResultParsing,
			fmt.Sprintf("non-integer KPI result: %q", first))
	}
	return val, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "<unknown>"
	}
	return s
}
