package sanity

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lakecat/internal/lake"
	"lakecat/internal/testutil"
	"lakecat/internal/ui"
	apperrors "lakecat/pkg/errors"
)

const sanityRunID = "2025-07__20250701_120000"

// buildFullRun lays out a run with every base and warehouse dataset.
func buildFullRun(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	datasets := append([]string{}, lake.RequiredDatasets...)
	datasets = append(datasets, lake.OptionalWarehouse...)
	return testutil.BuildRun(t, root, sanityRunID, datasets...)
}

// describeMatch pins a script entry to one dataset's DESCRIBE query; count
// queries over the same glob must not hit it.
func describeMatch(runDir, dataset string) string {
	g := filepath.Join(runDir, filepath.FromSlash(dataset), "*.parquet")
	return "DESCRIBE SELECT * FROM read_parquet('" + g + "')"
}

func describeRows(cols []string) [][]string {
	rows := make([][]string, 0, len(cols))
	for _, c := range cols {
		rows = append(rows, []string{c, "VARCHAR"})
	}
	return rows
}

func scriptDescribes(gw *testutil.FakeGateway, runDir string) {
	for ds, cols := range expectedCols {
		gw.Respond(describeMatch(runDir, ds), describeRows(cols))
	}
	for ds, cols := range warehouseCols {
		gw.Respond(describeMatch(runDir, lake.WarehouseDirName+"/"+ds), describeRows(cols))
	}
}

// scriptHealthy answers every query a full pass issues with healthy values.
// Entry order matters: specific matchers go before the generic ones because
// the fake's first matching entry wins.
func scriptHealthy(gw *testutil.FakeGateway, runDir string) {
	scriptDescribes(gw, runDir)
	gw.Respond("WHERE m.master_id IS NULL", [][]string{{"0"}})
	gw.Respond("WHERE p.k IS NULL", [][]string{{"0"}})
	gw.Respond("IS NULL", [][]string{{"0"}})
	gw.Respond("HAVING count(*) > 1", [][]string{{"0"}})
	gw.Respond("n_total_releases <> r.n", [][]string{{"0"}})
	gw.Respond("SELECT count(*) FROM read_parquet", [][]string{{"5000"}})
}

func newTestValidator(gw *testutil.FakeGateway) *Validator {
	return New(gw, ui.NewSweepWriter(&strings.Builder{}))
}

func TestFullPassSucceeds(t *testing.T) {
	runDir := buildFullRun(t)
	gw := testutil.NewFakeGateway()
	scriptHealthy(gw, runDir)

	v := newTestValidator(gw)
	require.NoError(t, v.Run(context.Background(), Options{Root: runDir}))

	// the heavy joins ran
	joined := strings.Join(gw.Queries, "\n")
	assert.Contains(t, joined, "LEFT JOIN")
	assert.Contains(t, joined, "n_total_releases <> r.n")
}

func TestFastSkipsJoins(t *testing.T) {
	runDir := buildFullRun(t)
	gw := testutil.NewFakeGateway()
	scriptHealthy(gw, runDir)

	v := newTestValidator(gw)
	require.NoError(t, v.Run(context.Background(), Options{Root: runDir, Fast: true}))

	joined := strings.Join(gw.Queries, "\n")
	assert.NotContains(t, joined, "LEFT JOIN")
	assert.NotContains(t, joined, "n_total_releases <> r.n")
}

func TestMissingDatasetDirFailsBeforeQuerying(t *testing.T) {
	root := t.TempDir()
	// labels_v10 left out
	runDir := testutil.BuildRun(t, root, sanityRunID,
		"artists_v1_typed", "artist_aliases_v1_typed", "artist_memberships_v1_typed",
		"masters_v1_typed", "releases_v6")

	gw := testutil.NewFakeGateway()
	v := newTestValidator(gw)

	err := v.Run(context.Background(), Options{Root: runDir})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeSanityViolation, apperrors.GetErrorCode(err))
	assert.Contains(t, err.Error(), "labels_v10")
	assert.Empty(t, gw.Queries)
}

func TestMissingColumnFails(t *testing.T) {
	runDir := buildFullRun(t)
	gw := testutil.NewFakeGateway()
	// artists describe comes back without artist_id; the broken entry comes
	// first and shadows the healthy one
	gw.Respond(describeMatch(runDir, "artists_v1_typed"), describeRows([]string{"name", "realname"}))
	scriptHealthy(gw, runDir)

	v := newTestValidator(gw)
	err := v.Run(context.Background(), Options{Root: runDir})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing columns")
	assert.Contains(t, err.Error(), "artist_id")
}

func TestRowFloorViolationFails(t *testing.T) {
	runDir := buildFullRun(t)
	gw := testutil.NewFakeGateway()
	scriptDescribes(gw, runDir)
	gw.Respond("SELECT count(*) FROM read_parquet", [][]string{{"12"}})

	v := newTestValidator(gw)
	err := v.Run(context.Background(), Options{Root: runDir})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeSanityViolation, apperrors.GetErrorCode(err))
	assert.Contains(t, err.Error(), "too few rows")
}

func TestLabelIDUniquenessOnlyWhenStrict(t *testing.T) {
	runDir := buildFullRun(t)

	run := func(strict bool) error {
		gw := testutil.NewFakeGateway()
		// duplicate label ids, everything else healthy
		gw.Respond("label_id FROM read_parquet", [][]string{{"7"}})
		scriptHealthy(gw, runDir)
		v := newTestValidator(gw)
		return v.Run(context.Background(), Options{Root: runDir, Fast: true, StrictLabelIDs: strict})
	}

	assert.NoError(t, run(false))

	err := run(true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicated values")
}

func TestBrokenAliasFKFails(t *testing.T) {
	runDir := buildFullRun(t)
	gw := testutil.NewFakeGateway()
	scriptDescribes(gw, runDir)
	gw.Respond("WHERE m.master_id IS NULL", [][]string{{"3"}}) // informational only
	gw.Respond("WHERE p.k IS NULL", [][]string{{"9"}})
	gw.Respond("IS NULL", [][]string{{"0"}})
	gw.Respond("HAVING count(*) > 1", [][]string{{"0"}})
	gw.Respond("SELECT count(*) FROM read_parquet", [][]string{{"5000"}})

	v := newTestValidator(gw)
	err := v.Run(context.Background(), Options{Root: runDir})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FK broken")
}
