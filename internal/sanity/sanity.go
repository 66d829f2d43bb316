// Package sanity validates the parquet files of one run directly, without
// the catalog: directory layout, column presence, row floors, key integrity,
// and cross-dataset referential checks. Checks run in a fixed order and the
// first violation stops the pass.
package sanity

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"lakecat/internal/gateway"
	"lakecat/internal/lake"
	"lakecat/internal/ui"
	"lakecat/pkg/errors"
)

// expectedCols is the stable column subset each base dataset must carry.
// Extra columns are fine; missing ones are a violation.
var expectedCols = map[string][]string{
	"artists_v1_typed": {
		"artist_id", "name", "realname", "profile", "data_quality",
		"urls", "namevariations", "aliases",
	},
	"artist_aliases_v1_typed":     {"artist_id", "alias_id", "alias_name"},
	"artist_memberships_v1_typed": {"group_id", "group_name", "member_id", "member_name"},
	"masters_v1_typed": {
		"master_id", "main_release_id", "title", "year",
		"master_artists", "master_artist_ids", "genres", "styles", "data_quality",
	},
	"releases_v6": {
		"release_id", "master_id", "title", "artists", "labels",
		"genres", "styles", "status", "released", "data_quality",
	},
	"labels_v10": {
		"label_id", "name", "profile", "contact_info", "data_quality",
		"parent_label_id", "parent_label_name",
	},
}

var warehouseCols = map[string][]string{
	"artist_name_map_v1":      {"norm_name", "artist_id"},
	"release_artists_v1":      {"release_id", "artist_norm"},
	"release_label_xref_v1":   {"release_id", "label_name", "label_norm"},
	"label_release_counts_v1": {"label_norm", "label_name_sample", "n_total_releases"},
	"release_style_xref_v1":   {"release_id", "style", "style_norm"},
	"release_genre_xref_v1":   {"release_id", "genre", "genre_norm"},
}

// minRows is the row floor per dataset; datasets not listed require one row.
var minRows = map[string]int64{
	"artists_v1_typed": 1000,
	"masters_v1_typed": 1000,
	"releases_v6":      1000,
	"labels_v10":       1000,
}

// xrefDatasets are the warehouse link tables whose release_id must resolve.
var xrefDatasets = []string{
	"release_artists_v1",
	"release_label_xref_v1",
	"release_style_xref_v1",
	"release_genre_xref_v1",
}

// Options configures one validation pass.
type Options struct {
	Root           string // run directory (active target or _runs/<run_id>)
	Fast           bool   // skip the cross-dataset joins, keep the essentials
	StrictLabelIDs bool   // enforce label_id uniqueness, which raw dumps can violate
}

// Validator runs the check sequence against one run directory.
type Validator struct {
	gw  gateway.Gateway
	out *ui.Sweep
}

// New creates a validator; the gateway is expected to read parquet locally,
// which the duckdb gateway does.
func New(gw gateway.Gateway, out *ui.Sweep) *Validator {
	if out == nil {
		out = ui.NewSweep()
	}
	return &Validator{gw: gw, out: out}
}

// Run executes the full check sequence. The returned error carries the name
// of the first failing check.
func (v *Validator) Run(ctx context.Context, opts Options) error {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "bad root path")
	}

	v.out.Banner("PARQUET SANITY", [][2]string{
		{"root", root},
		{"fast", fmt.Sprintf("%v", opts.Fast)},
	})

	if err := v.gw.Probe(ctx); err != nil {
		return err
	}

	for _, name := range lake.RequiredDatasets {
		if err := v.dirHasParquet(filepath.Join(root, name), name); err != nil {
			return err
		}
	}
	warehouseRoot := filepath.Join(root, lake.WarehouseDirName)
	if fi, err := os.Stat(warehouseRoot); err != nil || !fi.IsDir() {
		return v.fail("warehouse_discogs", "missing dir: %s", warehouseRoot)
	}
	v.ok("warehouse_discogs: dir exists")

	for _, name := range lake.RequiredDatasets {
		if err := v.checkColumns(ctx, root, name, expectedCols[name], name); err != nil {
			return err
		}
	}

	for _, name := range []string{"artists_v1_typed", "masters_v1_typed", "releases_v6", "labels_v10"} {
		if err := v.checkMinRows(ctx, root, name); err != nil {
			return err
		}
	}

	keyed := []struct{ dataset, col string }{
		{"artists_v1_typed", "artist_id"},
		{"masters_v1_typed", "master_id"},
		{"releases_v6", "release_id"},
	}
	for _, k := range keyed {
		if err := v.checkNoNulls(ctx, root, k.dataset, k.col); err != nil {
			return err
		}
		if err := v.checkUnique(ctx, root, k.dataset, k.col); err != nil {
			return err
		}
	}
	if err := v.checkNoNulls(ctx, root, "labels_v10", "label_id"); err != nil {
		return err
	}
	// raw dump labels can repeat ids; only enforced when asked
	if opts.StrictLabelIDs {
		if err := v.checkUnique(ctx, root, "labels_v10", "label_id"); err != nil {
			return err
		}
	}

	if !opts.Fast {
		orphans, err := v.count(ctx, fmt.Sprintf(`
            WITH r AS (
              SELECT master_id FROM read_parquet('%s') WHERE master_id IS NOT NULL
            ),
            m AS (
              SELECT master_id FROM read_parquet('%s')
            )
            SELECT count(*) FROM r
            LEFT JOIN m ON r.master_id = m.master_id
            WHERE m.master_id IS NULL`,
			glob(root, "releases_v6"), glob(root, "masters_v1_typed")))
		if err != nil {
			return err
		}
		// master references can legitimately dangle in the dumps
		v.ok("releases_v6.master_id orphans vs masters_v1_typed: %d (informational)", orphans)

		if err := v.checkFK(ctx, "artist_aliases_v1_typed.artist_id",
			glob(root, "artist_aliases_v1_typed"), "artist_id",
			glob(root, "artists_v1_typed"), "artist_id"); err != nil {
			return err
		}
	}

	for _, wname := range lake.OptionalWarehouse {
		short := strings.TrimPrefix(wname, lake.WarehouseDirName+"/")
		label := lake.WarehouseDirName + "/" + short
		dir := filepath.Join(warehouseRoot, short)
		if err := v.dirHasParquet(dir, label); err != nil {
			return err
		}
		if err := v.checkColumns(ctx, root, wname, warehouseCols[short], label); err != nil {
			return err
		}
	}

	if !opts.Fast {
		if err := v.checkFK(ctx, "warehouse artist_name_map_v1.artist_id",
			glob(root, "warehouse_discogs/artist_name_map_v1"), "artist_id",
			glob(root, "artists_v1_typed"), "artist_id"); err != nil {
			return err
		}
		for _, x := range xrefDatasets {
			if err := v.checkFK(ctx, "warehouse "+x+".release_id",
				glob(root, "warehouse_discogs/"+x), "release_id",
				glob(root, "releases_v6"), "release_id"); err != nil {
				return err
			}
		}
		if err := v.checkLabelCounts(ctx, root); err != nil {
			return err
		}
	}

	v.out.Done("PARQUET SANITY PASSED")
	return nil
}

func (v *Validator) dirHasParquet(dir, name string) error {
	fi, err := os.Stat(dir)
	if err != nil || !fi.IsDir() {
		return v.fail(name, "missing dir: %s (%s)", name, dir)
	}
	parts, _ := filepath.Glob(filepath.Join(dir, "*.parquet"))
	if len(parts) == 0 {
		return v.fail(name, "no parquet files in: %s (%s)", name, dir)
	}
	v.ok("%s: parquet parts=%d", name, len(parts))
	return nil
}

func (v *Validator) checkColumns(ctx context.Context, root, dataset string, expected []string, label string) error {
	sql := fmt.Sprintf("DESCRIBE SELECT * FROM read_parquet('%s')", glob(root, dataset))
	rows, err := v.gw.ExecuteQuery(ctx, sql)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeFailedQuery, "failed to describe "+label)
	}

	have := make(map[string]bool, len(rows))
	for _, r := range rows {
		if len(r) > 0 {
			have[r[0]] = true
		}
	}
	var missing []string
	for _, c := range expected {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return v.fail(label, "%s: missing columns: %v", label, missing)
	}
	v.ok("%s: schema contains expected columns (%d)", label, len(expected))
	return nil
}

func (v *Validator) checkMinRows(ctx context.Context, root, dataset string) error {
	n, err := v.count(ctx,
		fmt.Sprintf("SELECT count(*) FROM read_parquet('%s')", glob(root, dataset)))
	if err != nil {
		return err
	}
	floor := minRows[dataset]
	if floor == 0 {
		floor = 1
	}
	if n < floor {
		return v.fail(dataset, "%s: too few rows %d (< %d)", dataset, n, floor)
	}
	v.ok("%s: rows=%d", dataset, n)
	return nil
}

func (v *Validator) checkNoNulls(ctx context.Context, root, dataset, col string) error {
	n, err := v.count(ctx, fmt.Sprintf(
		"SELECT count(*) FROM read_parquet('%s') WHERE %s IS NULL", glob(root, dataset), col))
	if err != nil {
		return err
	}
	if n != 0 {
		return v.fail(dataset, "%s: %s has %d NULLs", dataset, col, n)
	}
	v.ok("%s: %s nulls=0", dataset, col)
	return nil
}

func (v *Validator) checkUnique(ctx context.Context, root, dataset, col string) error {
	n, err := v.count(ctx, fmt.Sprintf(`
        SELECT count(*) FROM (
          SELECT %s FROM read_parquet('%s')
          GROUP BY 1 HAVING count(*) > 1
        )`, col, glob(root, dataset)))
	if err != nil {
		return err
	}
	if n != 0 {
		return v.fail(dataset, "%s: %s has %d duplicated values", dataset, col, n)
	}
	v.ok("%s: %s unique", dataset, col)
	return nil
}

// checkFK counts child keys with no match in the parent and fails on any.
func (v *Validator) checkFK(ctx context.Context, label, childGlob, childCol, parentGlob, parentCol string) error {
	n, err := v.count(ctx, fmt.Sprintf(`
        WITH c AS (
          SELECT DISTINCT %s AS k FROM read_parquet('%s') WHERE %s IS NOT NULL
        ),
        p AS (
          SELECT %s AS k FROM read_parquet('%s')
        )
        SELECT count(*) FROM c
        LEFT JOIN p ON c.k = p.k
        WHERE p.k IS NULL`, childCol, childGlob, childCol, parentCol, parentGlob))
	if err != nil {
		return err
	}
	if n != 0 {
		return v.fail(label, "%s FK broken rows=%d", label, n)
	}
	v.ok("%s FK OK", label)
	return nil
}

// checkLabelCounts recomputes distinct release counts per normalized label
// from the xref and compares a sample against the counts table.
func (v *Validator) checkLabelCounts(ctx context.Context, root string) error {
	n, err := v.count(ctx, fmt.Sprintf(`
        WITH recomputed AS (
          SELECT label_norm, count(DISTINCT release_id) AS n
          FROM read_parquet('%s')
          GROUP BY 1
        ),
        c AS (
          SELECT label_norm, n_total_releases
          FROM read_parquet('%s')
        )
        SELECT count(*) FROM (
          SELECT c.label_norm
          FROM c JOIN recomputed r ON c.label_norm = r.label_norm
          WHERE c.n_total_releases <> r.n
          LIMIT 1000
        )`,
		glob(root, "warehouse_discogs/release_label_xref_v1"),
		glob(root, "warehouse_discogs/label_release_counts_v1")))
	if err != nil {
		return err
	}
	if n != 0 {
		return v.fail("label_release_counts_v1", "label_release_counts_v1 mismatches found (sampled)=%d", n)
	}
	v.ok("label_release_counts_v1 matches recomputed counts (sample)")
	return nil
}

func (v *Validator) count(ctx context.Context, sql string) (int64, error) {
	rows, err := v.gw.ExecuteQuery(ctx, sql)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeFailedQuery, "count query failed")
	}
	first := gateway.FirstValue(rows)
	n, err := strconv.ParseInt(first, 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeResultParsing,
			fmt.Sprintf("non-integer count result: %q", first))
	}
	return n, nil
}

func (v *Validator) ok(format string, args ...interface{}) {
	v.out.Item("OK", format, args...)
}

func (v *Validator) fail(check, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	v.out.Item("FAIL", "%s", msg)
	return errors.SanityError(check, msg)
}

func glob(root, dataset string) string {
	return filepath.Join(root, filepath.FromSlash(dataset), "*.parquet")
}
