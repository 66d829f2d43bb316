// Package export renders the latest KPI state of registered runs into
// long- and wide-form CSV reports under the lake's metadata area.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"lakecat/internal/common"
	"lakecat/internal/gateway"
	"lakecat/internal/lake"
	"lakecat/internal/registry"
	"lakecat/internal/runid"
	"lakecat/internal/ui"
	"lakecat/pkg/errors"
)

const latestKPIView = "hive." + runid.HistorySchema + ".kpi_snapshot_latest"

var longHeader = []string{
	"event_ts_utc", "run_id", "schema_name", "kpi_name", "kpi_value", "status", "details",
}

// Row is one latest KPI record as exported.
type Row struct {
	EventTS    string
	RunID      string
	SchemaName string
	KPIName    string
	KPIValue   string
	Status     string
	Details    string
}

// Options configures one export.
type Options struct {
	IncludeActive bool
	OnlyRunID     string
	OutDir        string // empty means the lake's reports directory
	WithTimestamp bool   // suffix filenames with the export time
}

// Exporter writes KPI history reports.
type Exporter struct {
	gw    gateway.Gateway
	paths lake.Paths
	reg   *registry.Log
	out   *ui.Sweep
	now   func() time.Time
}

// New creates an exporter over the given gateway and registry.
func New(gw gateway.Gateway, paths lake.Paths, reg *registry.Log, out *ui.Sweep) *Exporter {
	if out == nil {
		out = ui.NewSweep()
	}
	return &Exporter{gw: gw, paths: paths, reg: reg, out: out, now: time.Now}
}

// Run selects the runs whose latest registry status is ok, pulls their
// latest KPI rows, and writes both CSV forms. An empty selection still
// produces header-only files and succeeds.
func (e *Exporter) Run(ctx context.Context, opts Options) error {
	if opts.OnlyRunID != "" {
		if err := runid.Validate(opts.OnlyRunID); err != nil {
			return err
		}
	}

	if err := e.gw.Probe(ctx); err != nil {
		return err
	}

	runs, err := e.reg.LatestOK(ctx, registry.Selector{
		IncludeActive: opts.IncludeActive,
		OnlyRunID:     opts.OnlyRunID,
	})
	if err != nil {
		return err
	}

	outDir := opts.OutDir
	if outDir == "" {
		outDir = e.paths.ReportsDirHost()
	}
	if err := os.MkdirAll(outDir, common.DirPermissionNormal); err != nil {
		return errors.Wrap(err, errors.ErrCodeFileOperation, "failed to create report directory")
	}

	e.out.Banner("EXPORT KPI HISTORY", [][2]string{
		{"ts", e.now().UTC().Format(registry.TimestampLayout)},
		{"lake", e.paths.HostRoot},
		{"out_dir", outDir},
		{"runs", fmt.Sprintf("%d", len(runs))},
	})

	var rows []Row
	if len(runs) > 0 {
		rows, err = e.fetchLatest(ctx, runs)
		if err != nil {
			return err
		}
	} else {
		e.out.Printf("No registered runs matched; writing header-only reports.")
	}

	suffix := ""
	if opts.WithTimestamp {
		suffix = "_" + e.now().UTC().Format("20060102_150405")
	}
	longPath := filepath.Join(outDir, "history_kpis_long_latest"+suffix+".csv")
	widePath := filepath.Join(outDir, "history_kpis_wide_latest"+suffix+".csv")

	if err := writeLong(longPath, rows); err != nil {
		return err
	}
	e.out.Item("OK", "wrote %s (%d rows)", longPath, len(rows))

	if err := writeWide(widePath, rows); err != nil {
		return err
	}
	e.out.Item("OK", "wrote %s", widePath)

	e.out.Done("DONE (reports written)")
	return nil
}

// fetchLatest joins the latest KPI projection against the selected run ids.
func (e *Exporter) fetchLatest(ctx context.Context, runs []registry.RunState) ([]Row, error) {
	values := make([]string, 0, len(runs))
	for _, r := range runs {
		values = append(values, "('"+gateway.Escape(r.RunID)+"')")
	}

	sql := fmt.Sprintf(`
    WITH sel(run_id) AS (VALUES %s)
    SELECT k.event_ts_utc, k.run_id, k.schema_name, k.kpi_name,
           CAST(k.kpi_value AS VARCHAR), k.status, k.details
    FROM %s k
    JOIN sel s ON k.run_id = s.run_id
    ORDER BY k.run_id, k.kpi_name`, strings.Join(values, ", "), latestKPIView)

	raw, err := e.gw.ExecuteQuery(ctx, sql)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeFailedQuery, "failed to read kpi history")
	}

	rows := make([]Row, 0, len(raw))
	for _, r := range raw {
		if len(r) < 7 {
			return nil, errors.New(errors.ErrCodeResultParsing,
				fmt.Sprintf("kpi history row has %d columns, want 7", len(r)))
		}
		rows = append(rows, Row{
			EventTS: r[0], RunID: r[1], SchemaName: r[2], KPIName: r[3],
			KPIValue: r[4], Status: r[5], Details: r[6],
		})
	}
	return rows, nil
}

// writeLong writes one CSV line per (run, kpi) record.
func writeLong(path string, rows []Row) error {
	return writeCSV(path, func(w *csv.Writer) error {
		if err := w.Write(longHeader); err != nil {
			return err
		}
		for _, r := range rows {
			rec := []string{r.EventTS, r.RunID, r.SchemaName, r.KPIName, r.KPIValue, r.Status, r.Details}
			if err := w.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeWide pivots to one line per run with a column per KPI name. Cells of
// failed KPIs stay empty so a reader cannot mistake them for zeros.
func writeWide(path string, rows []Row) error {
	kpiNames := map[string]bool{}
	type runAgg struct {
		schema string
		lastTS string
		vals   map[string]string
	}
	byRun := map[string]*runAgg{}
	var runOrder []string

	for _, r := range rows {
		kpiNames[r.KPIName] = true
		agg, ok := byRun[r.RunID]
		if !ok {
			agg = &runAgg{schema: r.SchemaName, vals: map[string]string{}}
			byRun[r.RunID] = agg
			runOrder = append(runOrder, r.RunID)
		}
		if r.EventTS > agg.lastTS {
			agg.lastTS = r.EventTS
		}
		if r.Status == "ok" {
			agg.vals[r.KPIName] = r.KPIValue
		}
	}

	names := make([]string, 0, len(kpiNames))
	for n := range kpiNames {
		names = append(names, n)
	}
	sort.Strings(names)
	sort.Strings(runOrder)

	return writeCSV(path, func(w *csv.Writer) error {
		header := append([]string{"run_id", "schema_name", "event_ts_utc"}, names...)
		if err := w.Write(header); err != nil {
			return err
		}
		for _, run := range runOrder {
			agg := byRun[run]
			rec := []string{run, agg.schema, agg.lastTS}
			for _, n := range names {
				rec = append(rec, agg.vals[n])
			}
			if err := w.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeCSV(path string, fill func(*csv.Writer) error) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, common.FilePermissionNormal)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeFileOperation, "failed to create report file")
	}

	w := csv.NewWriter(f)
	if err := fill(w); err != nil {
		f.Close()
		return errors.Wrap(err, errors.ErrCodeFileOperation, "failed to write report file")
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return errors.Wrap(err, errors.ErrCodeFileOperation, "failed to flush report file")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodeFileOperation, "failed to close report file")
	}
	return nil
}
