// Package registrar idempotently declares a run's catalog schema, tables and
// views. The sweep is fail-fast: a partially-registered catalog is worse
// than an aborted batch, because downstream KPI and export logic assumes
// registrability implies completeness.
package registrar

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"lakecat/internal/gateway"
	"lakecat/internal/lake"
	"lakecat/internal/runid"
	"lakecat/internal/ui"
	"lakecat/pkg/errors"
)

// Options selects which runs a reconcile sweep covers.
type Options struct {
	IncludeActive bool
	OnlyRunID     string
}

// Registrar drives the reconcile sweep.
type Registrar struct {
	gw    gateway.Gateway
	paths lake.Paths
	out   *ui.Sweep
}

// New creates a registrar over the given gateway and path mapping.
func New(gw gateway.Gateway, paths lake.Paths, out *ui.Sweep) *Registrar {
	if out == nil {
		out = ui.NewSweep()
	}
	return &Registrar{gw: gw, paths: paths, out: out}
}

// Reconcile ensures every historical run's schema is fully registered. The
// first error aborts the whole sweep.
func (r *Registrar) Reconcile(ctx context.Context, opts Options) error {
	runsDir := r.paths.RunsDirHost()
	if fi, err := os.Stat(runsDir); err != nil || !fi.IsDir() {
		return errors.New(errors.ErrCodeFileNotFound,
			fmt.Sprintf("runs dir not found: %s", runsDir))
	}

	activeRun := runid.ResolveActive(r.paths.HostRoot)

	r.out.Banner("RECONCILE (ensure tables/views exist)", [][2]string{
		{"ts", time.Now().UTC().Format("2006-01-02 15:04:05")},
		{"lake", r.paths.HostRoot},
		{"active", orUnknown(activeRun)},
		{"mode", "FAIL-FAST"},
	})

	if err := r.gw.Probe(ctx); err != nil {
		return err
	}

	runs, err := runid.ListRuns(runsDir)
	if err != nil {
		return err
	}
	if opts.OnlyRunID != "" {
		if err := runid.Validate(opts.OnlyRunID); err != nil {
			return err
		}
		runs = []string{opts.OnlyRunID}
	}

	if len(runs) == 0 {
		r.out.Printf("No runs found.")
		return nil
	}

	var summary [][]string
	for _, rid := range runs {
		if err := runid.Validate(rid); err != nil {
			return err
		}

		isActive := activeRun != "" && rid == activeRun
		if isActive && !opts.IncludeActive {
			r.out.Item("SKIP", "active run excluded: %s", rid)
			summary = append(summary, []string{rid, "skipped_active"})
			continue
		}

		if err := r.reconcileRun(ctx, rid); err != nil {
			return err
		}
		summary = append(summary, []string{rid, "ok"})
	}

	r.out.Summary("Reconcile summary", []string{"run_id", "outcome"}, summary)
	r.out.Done("DONE")
	return nil
}

// reconcileRun registers one run, in the fixed gate order: completeness on
// host, completeness from the engine's vantage, schema, core DDL, optional
// warehouse DDL.
func (r *Registrar) reconcileRun(ctx context.Context, rid string) error {
	runDirHost := r.paths.RunDirHost(rid)
	if fi, err := os.Stat(runDirHost); err != nil || !fi.IsDir() {
		return errors.New(errors.ErrCodeMissingData,
			fmt.Sprintf("run dir not found on host: %s", runDirHost)).
			WithContext("run_id", rid)
	}

	if missing := lake.MissingRequired(runDirHost); len(missing) > 0 {
		return errors.New(errors.ErrCodeMissingData,
			fmt.Sprintf("missing required datasets on host for %s: %s", rid, strings.Join(missing, " "))).
			WithContext("run_id", rid)
	}

	visible, err := r.gw.PathVisible(ctx, r.paths.RunDirEngine(rid))
	if err != nil {
		return err
	}
	if !visible {
		return errors.New(errors.ErrCodeMissingData,
			fmt.Sprintf("run dir not visible from query engine: %s", r.paths.RunDirEngine(rid))).
			WithContext("run_id", rid)
	}

	missingEngine, err := lake.MissingRequiredEngine(ctx, r.gw, r.paths, rid)
	if err != nil {
		return err
	}
	if len(missingEngine) > 0 {
		return errors.New(errors.ErrCodeMissingData,
			fmt.Sprintf("datasets not visible from query engine for %s: %s", rid, strings.Join(missingEngine, " "))).
			WithContext("run_id", rid)
	}

	schema := runid.SchemaForRun(rid)
	runBase := r.paths.RunBaseLocation(rid)
	metaLoc := r.paths.MetaLocation(schema)

	r.out.Rule()
	r.out.Item("RUN", "%s", rid)
	r.out.Printf(" schema: hive.%s", schema)
	r.out.Printf(" base  : %s", runBase)
	r.out.Printf(" meta  : %s", metaLoc)

	createSchema := fmt.Sprintf(
		"CREATE SCHEMA IF NOT EXISTS hive.%s WITH (location='%s');", schema, metaLoc)
	if err := r.gw.ExecuteDDL(ctx, createSchema); err != nil {
		return errors.Wrap(err, errors.ErrCodeDDLFailed,
			fmt.Sprintf("failed to create schema hive.%s", schema))
	}

	if err := r.gw.ExecuteDDL(ctx, renderDDL(coreDDL, schema, runBase)); err != nil {
		return errors.Wrap(err, errors.ErrCodeDDLFailed,
			fmt.Sprintf("failed to declare core tables/views for hive.%s", schema))
	}

	// Optional warehouse datasets: presence is checked independently per
	// dataset and failures never abort the sweep.
	for _, w := range warehouseDDL {
		enginePath := r.paths.RunDirEngine(rid) + "/" + w.Dataset
		present, err := r.gw.PathVisible(ctx, enginePath)
		if err != nil {
			return err
		}
		if !present {
			r.out.Item("WARN", "warehouse missing: %s", w.Dataset)
			continue
		}

		if err := r.gw.ExecuteDDL(ctx, renderDDL(w.DDL, schema, runBase)); err != nil {
			r.out.Item("WARN", "warehouse registration failed: %s: %v", w.Dataset, err)
			continue
		}
		r.out.Item("OK", "warehouse registered: %s", w.Dataset)
	}

	r.out.Item("OK", "ensured tables/views for hive.%s", schema)
	return nil
}

func orUnknown(s string) string {
	if s == "" {
		return "<unknown>"
	}
	return s
}
