package models

// Config is the persisted lakecat configuration. Every field has a working
// zero-ish default applied at load time; a missing config file is fine.
type Config struct {
	Lake       Lake       `yaml:"lake"`
	Gateway    Gateway    `yaml:"gateway"`
	Provenance Provenance `yaml:"provenance"`
	Export     Export     `yaml:"export"`
}

// Lake locates the data lake from both vantage points.
type Lake struct {
	Root       string `yaml:"root"`        // host path; overrides DISCOGS_DATA_LAKE when set
	EngineRoot string `yaml:"engine_root"` // same tree as the query engine sees it
}

// Gateway selects and configures the SQL transport.
type Gateway struct {
	Mode      string `yaml:"mode"`      // "exec", "sql", or "duckdb"
	Container string `yaml:"container"` // docker container running the engine CLI, exec mode
	Catalog   string `yaml:"catalog"`
	DSN       string `yaml:"dsn"` // driver DSN, sql mode
	User      string `yaml:"user"`
	Password  string `yaml:"password"` // empty means keyring lookup by user
	Timeout   string `yaml:"timeout"`  // per-statement, e.g. "5m"
	DuckDBBin string `yaml:"duckdb_bin"`
}

// Provenance carries the defaults stamped onto registry and KPI events when
// the command line does not override them.
type Provenance struct {
	SchemaVersion int64  `yaml:"schema_version"`
	RunMode       string `yaml:"run_mode"`
}

// Export configures the CSV report writer.
type Export struct {
	OutDir        string `yaml:"out_dir"` // empty means the lake's reports directory
	WithTimestamp bool   `yaml:"with_timestamp"`
}
