package registry

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"lakecat/internal/lake"
	"lakecat/internal/runid"
	"lakecat/internal/ui"
	"lakecat/pkg/errors"
)

// UpdateOptions configures one registry update sweep.
type UpdateOptions struct {
	IncludeActive bool
	OnlyRunID     string
	Action        string
	SchemaVersion int64

	// Provenance carried verbatim into every event of the sweep.
	DumpMonth string
	DumpDate  string
	RunMode   string
	GitSHA    string
}

// UpdateSweep appends one status event per run: skipped_active for the
// active run (when opted in), missing_data when a required dataset is
// absent, otherwise ok or failed_incomplete depending on the catalog
// sentinel. Unlike the registrar this pass is fail-soft per run, but every
// run it touches produces exactly one append.
func (l *Log) UpdateSweep(ctx context.Context, opts UpdateOptions, out *ui.Sweep) error {
	if out == nil {
		out = ui.NewSweep()
	}
	if opts.Action == "" {
		opts.Action = "update_registry"
	}

	runsDir := l.paths.RunsDirHost()
	if fi, err := os.Stat(runsDir); err != nil || !fi.IsDir() {
		return errors.New(errors.ErrCodeFileNotFound,
			fmt.Sprintf("runs dir not found: %s", runsDir))
	}

	if err := l.gw.Probe(ctx); err != nil {
		return err
	}
	if err := l.Ensure(ctx); err != nil {
		return err
	}

	activeRun := runid.ResolveActive(l.paths.HostRoot)

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

	out.Banner("UPDATE RUN REGISTRY (append-only)", [][2]string{
		{"ts", time.Now().UTC().Format(TimestampLayout)},
		{"lake", l.paths.HostRoot},
		{"active", orUnknown(activeRun)},
		{"action", opts.Action},
		{"schema_version", fmt.Sprintf("%d", opts.SchemaVersion)},
	})

	if len(runs) == 0 {
		out.Printf("No runs found.")
		return nil
	}

	var summary [][]string
	for _, rid := range runs {
		if !runid.IsValid(rid) {
			continue
		}

		isActive := activeRun != "" && rid == activeRun

		if isActive {
			if !opts.IncludeActive {
				out.Item("SKIP", "active run not logged (use --include-active): %s", rid)
				continue
			}
			e := l.newEvent(rid, "discogs", true, opts)
			e.Status = StatusSkippedActive
			e.Details = "excluded_by_active_symlink"
			if err := l.Append(ctx, e); err != nil {
				return err
			}
			out.Item("ACTIVE", "logged skipped_active: %s", rid)
			summary = append(summary, []string{rid, StatusSkippedActive})
			continue
		}

		schema := runid.SchemaForRun(rid)
		runDir := l.paths.RunDirHost(rid)

		if missing := lake.MissingRequired(runDir); len(missing) > 0 {
			e := l.newEvent(rid, schema, false, opts)
			e.Status = StatusMissingData
			e.Details = "missing_datasets=" + strings.Join(missing, " ")
			if err := l.Append(ctx, e); err != nil {
				return err
			}
			out.Item("MISS", "%s -> missing_data (%s)", rid, strings.Join(missing, " "))
			summary = append(summary, []string{rid, StatusMissingData})
			continue
		}

		ok, err := l.SentinelExists(ctx, schema)
		if err != nil {
			return err
		}

		e := l.newEvent(rid, schema, false, opts)
		if ok {
			e.Status = StatusOK
			e.Details = "sentinel_ok"
		} else {
			e.Status = StatusFailedIncomplete
			e.Details = "sentinel_missing=" + SentinelTable
		}
		if err := l.Append(ctx, e); err != nil {
			return err
		}
		out.Item("LOG", "%s -> %s (schema hive.%s)", rid, e.Status, schema)
		summary = append(summary, []string{rid, e.Status})
	}

	out.Summary("Registry summary", []string{"run_id", "status"}, summary)
	out.Done("DONE (events appended)")
	return nil
}

func (l *Log) newEvent(rid, schema string, isActive bool, opts UpdateOptions) Event {
	return Event{
		EventTS:       time.Now().UTC(),
		RunID:         rid,
		SchemaName:    schema,
		IsActive:      isActive,
		Action:        opts.Action,
		DumpMonth:     opts.DumpMonth,
		DumpDate:      opts.DumpDate,
		RunMode:       opts.RunMode,
		GitSHA:        opts.GitSHA,
		SchemaVersion: opts.SchemaVersion,
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "<unknown>"
	}
	return s
}
