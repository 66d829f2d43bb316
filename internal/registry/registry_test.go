package registry_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lakecat/internal/lake"
	"lakecat/internal/registry"
	"lakecat/internal/testutil"
	"lakecat/internal/ui"
	"lakecat/pkg/errors"
)

const (
	runA    = "2025-06__20250601_120000"
	runB    = "2025-07__20250701_120000"
	schemaA = "discogs_r_2025_06__20250601_120000"
	schemaB = "discogs_r_2025_07__20250701_120000"
)

func newLog(root string) (*registry.Log, *testutil.FakeGateway) {
	gw := testutil.NewFakeGateway()
	return registry.NewLog(gw, lake.NewPaths(root, "")), gw
}

func TestEnsureDeclaresSchemaTableAndView(t *testing.T) {
	l, gw := newLog("/srv/lake")
	require.NoError(t, l.Ensure(context.Background()))

	assert.Equal(t,
		[]string{"/data/hive-data/_meta/discogs_history/registry/run_registry_events"},
		gw.Dirs)

	ddl := gw.AllDDL()
	assert.Contains(t, ddl, "CREATE SCHEMA IF NOT EXISTS hive.discogs_history")
	assert.Contains(t, ddl, "WITH (location='file:/data/hive-data/_meta/discogs_history')")
	assert.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS hive.discogs_history.run_registry_events")
	assert.Contains(t, ddl,
		"external_location = 'file:/data/hive-data/_meta/discogs_history/registry/run_registry_events'")
	assert.Contains(t, ddl, "CREATE OR REPLACE VIEW hive.discogs_history.run_registry_latest")
	assert.Contains(t, ddl, "row_number() OVER (PARTITION BY run_id ORDER BY event_ts_utc DESC)")
	assert.Contains(t, ddl, "WHERE rn = 1")
}

func TestAppendBuildsLiteralInsert(t *testing.T) {
	l, gw := newLog("/srv/lake")

	e := registry.Event{
		EventTS:       time.Date(2025, 7, 2, 9, 30, 0, 0, time.UTC),
		RunID:         runA,
		SchemaName:    schemaA,
		IsActive:      false,
		Action:        "update_registry",
		Status:        registry.StatusOK,
		Details:       "it's fine",
		DumpMonth:     "2025-06",
		DumpDate:      "20250601",
		RunMode:       "full",
		GitSHA:        "abc1234",
		SchemaVersion: 2,
	}
	require.NoError(t, l.Append(context.Background(), e))

	require.Len(t, gw.DDL, 1)
	sql := gw.DDL[0]
	assert.Contains(t, sql, "INSERT INTO hive.discogs_history.run_registry_events")
	assert.Contains(t, sql, "TIMESTAMP '2025-07-02 09:30:00'")
	assert.Contains(t, sql, "'"+runA+"', '"+schemaA+"', false, 'update_registry', 'ok'")
	// single quotes in details are doubled, not stripped
	assert.Contains(t, sql, "'it''s fine'")
	assert.Contains(t, sql, "'2025-06', '20250601', 'full', 'abc1234', 2")
}

func TestSentinelExists(t *testing.T) {
	l, gw := newLog("/srv/lake")
	gw.Respond("information_schema.tables", [][]string{{"1"}})

	ok, err := l.SentinelExists(context.Background(), schemaA)
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, gw.Queries, 1)
	assert.Contains(t, gw.Queries[0], "table_schema = '"+schemaA+"'")
	assert.Contains(t, gw.Queries[0], "table_name = 'releases_ref_v6'")

	// empty result set means not registered
	l2, _ := newLog("/srv/lake")
	ok, err = l2.SentinelExists(context.Background(), schemaA)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLatestOKSelection(t *testing.T) {
	l, gw := newLog("/srv/lake")
	gw.Respond("run_registry_latest", [][]string{
		{runA, schemaA, "false"},
		{runB, schemaB, "true"},
	})

	runs, err := l.LatestOK(context.Background(), registry.Selector{IncludeActive: true})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, registry.RunState{RunID: runA, SchemaName: schemaA}, runs[0])
	assert.True(t, runs[1].IsActive)

	q := gw.Queries[len(gw.Queries)-1]
	assert.Contains(t, q, "status = 'ok'")
	assert.NotContains(t, q, "is_active = false")
	assert.Contains(t, q, "ORDER BY run_id")
}

func TestLatestOKFilters(t *testing.T) {
	l, gw := newLog("/srv/lake")
	gw.Respond("run_registry_latest", nil)

	_, err := l.LatestOK(context.Background(), registry.Selector{OnlyRunID: runA})
	require.NoError(t, err)

	q := gw.Queries[len(gw.Queries)-1]
	assert.Contains(t, q, "is_active = false")
	assert.Contains(t, q, "run_id = '"+runA+"'")
}

func updateOpts() registry.UpdateOptions {
	return registry.UpdateOptions{
		Action:        "update_registry",
		SchemaVersion: 1,
		DumpMonth:     "2025-06",
		RunMode:       "full",
	}
}

// inserted returns the INSERT statements recorded by the fake gateway,
// skipping the Ensure DDL.
func inserted(gw *testutil.FakeGateway) []string {
	var out []string
	for _, sql := range gw.DDL {
		if strings.Contains(sql, "INSERT INTO") {
			out = append(out, sql)
		}
	}
	return out
}

func TestUpdateSweepClassifiesRuns(t *testing.T) {
	root := t.TempDir()
	testutil.BuildCompleteRun(t, root, runA)
	testutil.BuildRun(t, root, runB, "artists_v1_typed")

	l, gw := newLog(root)
	// sentinel present for the complete run
	gw.Respond("table_schema = '"+schemaA+"'", [][]string{{"1"}})

	out := ui.NewSweepWriter(&strings.Builder{})
	require.NoError(t, l.UpdateSweep(context.Background(), updateOpts(), out))

	events := inserted(gw)
	require.Len(t, events, 2)
	assert.Contains(t, events[0], "'ok'")
	assert.Contains(t, events[0], "'sentinel_ok'")
	assert.Contains(t, events[1], "'missing_data'")
	assert.Contains(t, events[1], "missing_datasets=")
	assert.Contains(t, events[1], "labels_v10")
}

func TestUpdateSweepSentinelMissing(t *testing.T) {
	root := t.TempDir()
	testutil.BuildCompleteRun(t, root, runA)

	l, gw := newLog(root)
	// no scripted response: sentinel query returns nothing

	out := ui.NewSweepWriter(&strings.Builder{})
	require.NoError(t, l.UpdateSweep(context.Background(), updateOpts(), out))

	events := inserted(gw)
	require.Len(t, events, 1)
	assert.Contains(t, events[0], "'failed_incomplete'")
	assert.Contains(t, events[0], "sentinel_missing=releases_ref_v6")
}

func TestUpdateSweepActiveRun(t *testing.T) {
	root := t.TempDir()
	testutil.BuildCompleteRun(t, root, runA)
	testutil.SetActive(t, root, runA)

	l, gw := newLog(root)
	out := ui.NewSweepWriter(&strings.Builder{})

	// excluded by default: no event at all
	require.NoError(t, l.UpdateSweep(context.Background(), updateOpts(), out))
	assert.Empty(t, inserted(gw))

	// opted in: one skipped_active event, no sentinel check
	opts := updateOpts()
	opts.IncludeActive = true
	require.NoError(t, l.UpdateSweep(context.Background(), opts, out))

	events := inserted(gw)
	require.Len(t, events, 1)
	assert.Contains(t, events[0], "'skipped_active'")
	assert.Contains(t, events[0], "excluded_by_active_symlink")
	assert.Contains(t, events[0], "true")
	assert.Empty(t, gw.Queries)
}

func TestUpdateSweepOnlyRun(t *testing.T) {
	root := t.TempDir()
	testutil.BuildCompleteRun(t, root, runA)
	testutil.BuildCompleteRun(t, root, runB)

	l, gw := newLog(root)
	gw.Respond("table_schema = '"+schemaA+"'", [][]string{{"1"}})

	opts := updateOpts()
	opts.OnlyRunID = runA
	out := ui.NewSweepWriter(&strings.Builder{})
	require.NoError(t, l.UpdateSweep(context.Background(), opts, out))

	events := inserted(gw)
	require.Len(t, events, 1)
	assert.Contains(t, events[0], "'"+runA+"'")
}

func TestUpdateSweepMissingRunsDir(t *testing.T) {
	l, _ := newLog(t.TempDir())
	err := l.UpdateSweep(context.Background(), updateOpts(), ui.NewSweepWriter(&strings.Builder{}))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeFileNotFound, errors.GetErrorCode(err))
}
