package registrar

import "strings"

// The DDL below is the versioned catalog contract for one run: six typed
// tables bound by location to the run's datasets, compatibility views under
// the legacy untyped names, and a de-duplicating view over the memberships
// dataset, which is known to contain duplicate rows. Templates carry two
// placeholders: {schema} and {run_base}.

const coreDDL = `
  CREATE TABLE IF NOT EXISTS hive.{schema}.artists_v1_typed (
    artist_id      BIGINT,
    name           VARCHAR,
    realname       VARCHAR,
    profile        VARCHAR,
    data_quality   VARCHAR,
    urls           VARCHAR,
    namevariations VARCHAR,
    aliases        VARCHAR
  )
  WITH (external_location='{run_base}/artists_v1_typed', format='PARQUET');

  CREATE TABLE IF NOT EXISTS hive.{schema}.artist_aliases_v1_typed (
    artist_id  BIGINT,
    alias_id   BIGINT,
    alias_name VARCHAR
  )
  WITH (external_location='{run_base}/artist_aliases_v1_typed', format='PARQUET');

  CREATE TABLE IF NOT EXISTS hive.{schema}.artist_memberships_v1_typed (
    group_id    BIGINT,
    group_name  VARCHAR,
    member_id   BIGINT,
    member_name VARCHAR
  )
  WITH (external_location='{run_base}/artist_memberships_v1_typed', format='PARQUET');

  CREATE TABLE IF NOT EXISTS hive.{schema}.masters_v1_typed (
    master_id         BIGINT,
    main_release_id   BIGINT,
    title             VARCHAR,
    year              BIGINT,
    master_artists    VARCHAR,
    master_artist_ids VARCHAR,
    genres            VARCHAR,
    styles            VARCHAR,
    data_quality      VARCHAR
  )
  WITH (external_location='{run_base}/masters_v1_typed', format='PARQUET');

  CREATE TABLE IF NOT EXISTS hive.{schema}.releases_ref_v6 (
    release_id           BIGINT,
    master_id            BIGINT,
    title                VARCHAR,
    artists              VARCHAR,
    labels               VARCHAR,
    label_catnos         VARCHAR,
    country              VARCHAR,
    formats              VARCHAR,
    genres               VARCHAR,
    styles               VARCHAR,
    credits_flat         VARCHAR,
    status               VARCHAR,
    released             VARCHAR,
    data_quality         VARCHAR,
    format_qtys          VARCHAR,
    format_texts         VARCHAR,
    format_descriptions  VARCHAR,
    identifiers_flat     VARCHAR
  )
  WITH (external_location='{run_base}/releases_v6', format='PARQUET');

  CREATE TABLE IF NOT EXISTS hive.{schema}.labels_ref_v10 (
    label_id           BIGINT,
    name               VARCHAR,
    profile            VARCHAR,
    contact_info       VARCHAR,
    data_quality       VARCHAR,
    parent_label_id    BIGINT,
    parent_label_name  VARCHAR,
    urls_csv           VARCHAR,
    sublabel_ids_csv   VARCHAR,
    sublabel_names_csv VARCHAR
  )
  WITH (external_location='{run_base}/labels_v10', format='PARQUET');

  CREATE OR REPLACE VIEW hive.{schema}.artists_v1 AS
  SELECT * FROM hive.{schema}.artists_v1_typed;

  CREATE OR REPLACE VIEW hive.{schema}.artist_aliases_v1 AS
  SELECT * FROM hive.{schema}.artist_aliases_v1_typed;

  CREATE OR REPLACE VIEW hive.{schema}.artist_memberships_v1 AS
  SELECT * FROM hive.{schema}.artist_memberships_v1_typed;

  CREATE OR REPLACE VIEW hive.{schema}.masters_v1 AS
  SELECT * FROM hive.{schema}.masters_v1_typed;

  CREATE OR REPLACE VIEW hive.{schema}.releases_v6 AS
  SELECT * FROM hive.{schema}.releases_ref_v6;

  CREATE OR REPLACE VIEW hive.{schema}.labels_v10 AS
  SELECT * FROM hive.{schema}.labels_ref_v10;

  CREATE OR REPLACE VIEW hive.{schema}.artist_memberships_v1_typed_dedup AS
  SELECT DISTINCT group_id, group_name, member_id, member_name
  FROM hive.{schema}.artist_memberships_v1_typed;
`

// warehouseDDL maps each optional dataset (relative to the run root) to its
// declaration. Tables are idempotent creates; views always use replace
// semantics since they carry no state.
var warehouseDDL = []struct {
	Dataset string
	DDL     string
}{
	{"warehouse_discogs/artist_name_map_v1", `
      CREATE TABLE IF NOT EXISTS hive.{schema}.artist_name_map_v1 (
        norm_name VARCHAR,
        artist_id BIGINT
      )
      WITH (external_location='{run_base}/warehouse_discogs/artist_name_map_v1', format='PARQUET');
    `},

	{"warehouse_discogs/release_artists_v1", `
      CREATE TABLE IF NOT EXISTS hive.{schema}.release_artists_v1 (
        release_id  BIGINT,
        artist_norm VARCHAR
      )
      WITH (external_location='{run_base}/warehouse_discogs/release_artists_v1', format='PARQUET');
    `},

	{"warehouse_discogs/release_label_xref_v1", `
      CREATE TABLE IF NOT EXISTS hive.{schema}.release_label_xref_v1 (
        release_id BIGINT,
        label_name VARCHAR,
        label_norm VARCHAR
      )
      WITH (external_location='{run_base}/warehouse_discogs/release_label_xref_v1', format='PARQUET');

      CREATE OR REPLACE VIEW hive.{schema}.release_label_xref_v1_canon AS
      SELECT release_id, label_name, label_norm
      FROM hive.{schema}.release_label_xref_v1;

      CREATE OR REPLACE VIEW hive.{schema}.release_label_xref_v1_dedup AS
      SELECT DISTINCT release_id, label_name, label_norm
      FROM hive.{schema}.release_label_xref_v1;
    `},

	{"warehouse_discogs/label_release_counts_v1", `
      CREATE TABLE IF NOT EXISTS hive.{schema}.label_release_counts_v1 (
        label_norm        VARCHAR,
        label_name_sample VARCHAR,
        n_total_releases  BIGINT
      )
      WITH (external_location='{run_base}/warehouse_discogs/label_release_counts_v1', format='PARQUET');
    `},

	{"warehouse_discogs/release_style_xref_v1", `
      CREATE TABLE IF NOT EXISTS hive.{schema}.release_style_xref_v1 (
        release_id BIGINT,
        style      VARCHAR,
        style_norm VARCHAR
      )
      WITH (external_location='{run_base}/warehouse_discogs/release_style_xref_v1', format='PARQUET');
    `},

	{"warehouse_discogs/release_genre_xref_v1", `
      CREATE TABLE IF NOT EXISTS hive.{schema}.release_genre_xref_v1 (
        release_id BIGINT,
        genre      VARCHAR,
        genre_norm VARCHAR
      )
      WITH (external_location='{run_base}/warehouse_discogs/release_genre_xref_v1', format='PARQUET');
    `},
}

// renderDDL fills a DDL template's placeholders.
func renderDDL(tmpl, schema, runBase string) string {
	return strings.NewReplacer(
		"{schema}", schema,
		"{run_base}", runBase,
	).Replace(tmpl)
}
