package export

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lakecat/internal/lake"
	"lakecat/internal/registry"
	"lakecat/internal/testutil"
	"lakecat/internal/ui"
)

const (
	runA    = "2025-06__20250601_080000"
	runB    = "2025-07__20250701_120000"
	schemaA = "discogs_r_2025_06__20250601_080000"
	schemaB = "discogs_r_2025_07__20250701_120000"
)

func newTestExporter(t *testing.T, gw *testutil.FakeGateway) (*Exporter, string) {
	t.Helper()
	root := t.TempDir()
	paths := lake.Paths{HostRoot: root, EngineRoot: "/data/hive-data"}
	reg := registry.NewLog(gw, paths)
	e := New(gw, paths, reg, ui.NewSweepWriter(&strings.Builder{}))
	e.now = func() time.Time {
		return time.Date(2025, 7, 2, 10, 30, 0, 0, time.UTC)
	}
	return e, root
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	recs, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return recs
}

func TestExportLongAndWide(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.Respond("run_registry_latest", [][]string{
		{runA, schemaA, "false"},
		{runB, schemaB, "false"},
	})
	gw.Respond("kpi_snapshot_latest", [][]string{
		{"2025-06-01 09:00:00", runA, schemaA, "n_artists_distinct", "10", "ok", ""},
		{"2025-06-01 09:00:05", runA, schemaA, "n_releases_distinct", "100", "ok", ""},
		{"2025-07-01 13:00:00", runB, schemaB, "n_artists_distinct", "0", "failed_query", "boom"},
		{"2025-07-01 13:00:05", runB, schemaB, "n_releases_distinct", "120", "ok", ""},
	})

	e, _ := newTestExporter(t, gw)
	outDir := t.TempDir()
	require.NoError(t, e.Run(context.Background(), Options{OutDir: outDir}))

	long := readCSV(t, filepath.Join(outDir, "history_kpis_long_latest.csv"))
	require.Len(t, long, 5)
	assert.Equal(t, longHeader, long[0])
	assert.Equal(t,
		[]string{"2025-06-01 09:00:00", runA, schemaA, "n_artists_distinct", "10", "ok", ""},
		long[1])

	wide := readCSV(t, filepath.Join(outDir, "history_kpis_wide_latest.csv"))
	require.Len(t, wide, 3)
	assert.Equal(t,
		[]string{"run_id", "schema_name", "event_ts_utc", "n_artists_distinct", "n_releases_distinct"},
		wide[0])
	assert.Equal(t, []string{runA, schemaA, "2025-06-01 09:00:05", "10", "100"}, wide[1])
	// failed KPIs stay blank in the wide form
	assert.Equal(t, []string{runB, schemaB, "2025-07-01 13:00:05", "", "120"}, wide[2])
}

func TestExportSelectionQueryShape(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.Respond("run_registry_latest", [][]string{
		{runA, schemaA, "false"},
	})

	e, _ := newTestExporter(t, gw)
	require.NoError(t, e.Run(context.Background(), Options{OutDir: t.TempDir()}))

	var kpiQuery string
	for _, q := range gw.Queries {
		if strings.Contains(q, "kpi_snapshot_latest") {
			kpiQuery = q
		}
	}
	require.NotEmpty(t, kpiQuery)
	assert.Contains(t, kpiQuery, "WITH sel(run_id) AS (VALUES ('"+runA+"'))")
	assert.Contains(t, kpiQuery, "ORDER BY k.run_id, k.kpi_name")
}

func TestExportEmptySelectionWritesHeaders(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.Respond("run_registry_latest", nil)

	e, _ := newTestExporter(t, gw)
	outDir := t.TempDir()
	require.NoError(t, e.Run(context.Background(), Options{OutDir: outDir}))

	long := readCSV(t, filepath.Join(outDir, "history_kpis_long_latest.csv"))
	require.Len(t, long, 1)
	assert.Equal(t, longHeader, long[0])

	wide := readCSV(t, filepath.Join(outDir, "history_kpis_wide_latest.csv"))
	require.Len(t, wide, 1)
	assert.Equal(t, []string{"run_id", "schema_name", "event_ts_utc"}, wide[0])

	// no KPI query is issued for an empty selection
	for _, q := range gw.Queries {
		assert.NotContains(t, q, "kpi_snapshot_latest")
	}
}

func TestExportTimestampSuffix(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.Respond("run_registry_latest", nil)

	e, _ := newTestExporter(t, gw)
	outDir := t.TempDir()
	require.NoError(t, e.Run(context.Background(), Options{OutDir: outDir, WithTimestamp: true}))

	_, err := os.Stat(filepath.Join(outDir, "history_kpis_long_latest_20250702_103000.csv"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(outDir, "history_kpis_wide_latest_20250702_103000.csv"))
	assert.NoError(t, err)
}

func TestExportDefaultsToReportsDir(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.Respond("run_registry_latest", nil)

	e, root := newTestExporter(t, gw)
	require.NoError(t, e.Run(context.Background(), Options{}))

	_, err := os.Stat(filepath.Join(root, "_meta", "discogs_history", "reports",
		"history_kpis_long_latest.csv"))
	assert.NoError(t, err)
}

func TestExportRejectsMalformedOnlyRun(t *testing.T) {
	gw := testutil.NewFakeGateway()
	e, _ := newTestExporter(t, gw)

	err := e.Run(context.Background(), Options{OnlyRunID: "not-a-run"})
	require.Error(t, err)
	assert.Empty(t, gw.Queries)
}
