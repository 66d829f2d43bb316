package kpi

import "strings"

// Def is one base KPI: a named aggregate query parameterized only by the
// schema name.
type Def struct {
	Name string
	SQL  string
}

// Defs is the closed dictionary of base KPIs, in evaluation order. Adding a
// KPI is a data change here, not a control-flow change anywhere else.
var Defs = []Def{
	// Core per-run volumes.
	{"n_releases_distinct",
		"SELECT CAST(count(DISTINCT release_id) AS BIGINT) FROM hive.{schema}.releases_ref_v6"},
	{"rows_releases_ref_v6",
		"SELECT CAST(count(*) AS BIGINT) FROM hive.{schema}.releases_ref_v6"},
	{"n_artists_distinct",
		"SELECT CAST(count(DISTINCT artist_id) AS BIGINT) FROM hive.{schema}.artists_v1_typed"},
	{"rows_artists_v1_typed",
		"SELECT CAST(count(*) AS BIGINT) FROM hive.{schema}.artists_v1_typed"},
	{"n_labels_distinct",
		"SELECT CAST(count(DISTINCT label_id) AS BIGINT) FROM hive.{schema}.labels_ref_v10"},
	{"rows_labels_ref_v10",
		"SELECT CAST(count(*) AS BIGINT) FROM hive.{schema}.labels_ref_v10"},
	{"n_masters_distinct",
		"SELECT CAST(count(DISTINCT master_id) AS BIGINT) FROM hive.{schema}.masters_v1_typed"},
	{"rows_masters_v1_typed",
		"SELECT CAST(count(*) AS BIGINT) FROM hive.{schema}.masters_v1_typed"},

	// Optional warehouse volumes.
	{"rows_release_artists_v1",
		"SELECT CAST(count(*) AS BIGINT) FROM hive.{schema}.release_artists_v1"},
	{"rows_release_label_xref_v1",
		"SELECT CAST(count(*) AS BIGINT) FROM hive.{schema}.release_label_xref_v1"},

	// Artist link coverage.
	{"n_release_artist_links",
		"SELECT CAST(count(*) AS BIGINT) FROM hive.{schema}.release_artists_v1"},
	{"n_releases_with_artist_link",
		"SELECT CAST(count(DISTINCT release_id) AS BIGINT) FROM hive.{schema}.release_artists_v1"},

	// Label link coverage.
	{"n_release_label_links",
		"SELECT CAST(count(*) AS BIGINT) FROM hive.{schema}.release_label_xref_v1"},
	{"n_releases_with_label_link",
		"SELECT CAST(count(DISTINCT release_id) AS BIGINT) FROM hive.{schema}.release_label_xref_v1"},
	{"n_label_norm_distinct",
		"SELECT CAST(count(DISTINCT label_norm) AS BIGINT) FROM hive.{schema}.release_label_xref_v1"},

	// Style link coverage.
	{"n_release_style_links",
		"SELECT CAST(count(*) AS BIGINT) FROM hive.{schema}.release_style_xref_v1"},
	{"n_releases_with_style",
		"SELECT CAST(count(DISTINCT release_id) AS BIGINT) FROM hive.{schema}.release_style_xref_v1"},
	{"n_style_norm_distinct",
		"SELECT CAST(count(DISTINCT style_norm) AS BIGINT) FROM hive.{schema}.release_style_xref_v1"},

	// Genre link coverage.
	{"n_release_genre_links",
		"SELECT CAST(count(*) AS BIGINT) FROM hive.{schema}.release_genre_xref_v1"},
	{"n_releases_with_genre",
		"SELECT CAST(count(DISTINCT release_id) AS BIGINT) FROM hive.{schema}.release_genre_xref_v1"},
	{"n_genre_norm_distinct",
		"SELECT CAST(count(DISTINCT genre_norm) AS BIGINT) FROM hive.{schema}.release_genre_xref_v1"},

	// Label concentration inputs.
	{"n_labels_in_counts_table",
		"SELECT CAST(count(*) AS BIGINT) FROM hive.{schema}.label_release_counts_v1"},
	{"label_counts_total_releases",
		"SELECT CAST(coalesce(sum(n_total_releases), 0) AS BIGINT) FROM hive.{schema}.label_release_counts_v1"},
	{"top_label_releases",
		"SELECT CAST(coalesce(max(n_total_releases), 0) AS BIGINT) FROM hive.{schema}.label_release_counts_v1"},
	{"top10_labels_releases", `SELECT CAST(coalesce(sum(n_total_releases), 0) AS BIGINT)
        FROM (
          SELECT n_total_releases
          FROM hive.{schema}.label_release_counts_v1
          ORDER BY n_total_releases DESC
          LIMIT 10
        )`},
}

// DerivedDef is one derived ratio KPI in basis points: Numerator and
// Denominator name base KPIs that must have succeeded in the same pass.
type DerivedDef struct {
	Name        string
	Numerator   string
	Denominator string
}

// DerivedDefs is the closed dictionary of derived KPIs, in evaluation order.
var DerivedDefs = []DerivedDef{
	{"avg_artists_per_release_bp", "n_release_artist_links", "n_releases_distinct"},
	{"pct_releases_with_artist_link_bp", "n_releases_with_artist_link", "n_releases_distinct"},
	{"avg_labels_per_release_bp", "n_release_label_links", "n_releases_distinct"},
	{"pct_releases_with_label_link_bp", "n_releases_with_label_link", "n_releases_distinct"},
	{"avg_styles_per_release_bp", "n_release_style_links", "n_releases_distinct"},
	{"pct_releases_with_style_bp", "n_releases_with_style", "n_releases_distinct"},
	{"avg_genres_per_release_bp", "n_release_genre_links", "n_releases_distinct"},
	{"pct_releases_with_genre_bp", "n_releases_with_genre", "n_releases_distinct"},
	{"top_label_share_bp", "top_label_releases", "label_counts_total_releases"},
	{"top10_labels_share_bp", "top10_labels_releases", "label_counts_total_releases"},
}

// LookupDef finds a base KPI by name.
func LookupDef(name string) (Def, bool) {
	for _, d := range Defs {
		if d.Name == name {
			return d, true
		}
	}
	return Def{}, false
}

// renderSQL fills the schema placeholder of a KPI query.
func renderSQL(tmpl, schema string) string {
	return strings.ReplaceAll(tmpl, "{schema}", schema)
}

// SafeBP converts a ratio to integer basis points, truncating toward zero:
// 10000bp = 100%. A non-positive denominator yields 0; callers must not
// invoke it at all when the denominator is unknown.
func SafeBP(numer, denom int64) int64 {
	if denom <= 0 {
		return 0
	}
	return numer * 10000 / denom
}
