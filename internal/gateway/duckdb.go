package gateway

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"lakecat/pkg/errors"
)

// DuckDBGateway runs queries through a local duckdb CLI against an in-memory
// database. The sanity validator uses it to read columnar parts in place
// (read_parquet over host globs) without going through the catalog engine.
type DuckDBGateway struct {
	bin    string
	runner Runner
}

// NewDuckDBGateway creates a gateway around the given duckdb binary
// ("duckdb" when empty).
func NewDuckDBGateway(bin string) *DuckDBGateway {
	if bin == "" {
		bin = "duckdb"
	}
	return &DuckDBGateway{bin: bin, runner: defaultRunner}
}

// WithRunner replaces the command runner. Test hook.
func (g *DuckDBGateway) WithRunner(r Runner) *DuckDBGateway {
	g.runner = r
	return g
}

// Probe checks the binary is on PATH and answers.
func (g *DuckDBGateway) Probe(ctx context.Context) error {
	if _, err := g.runner(ctx, g.bin, "--version"); err != nil {
		return errors.Wrap(err, errors.ErrCodeGatewayUnreachable,
			fmt.Sprintf("duckdb binary not usable: %s", g.bin)).
			WithSuggestions("Install duckdb or pass --duckdb-bin")
	}
	return nil
}

// ExecuteDDL runs a statement block for its side effects.
func (g *DuckDBGateway) ExecuteDDL(ctx context.Context, sql string) error {
	if _, err := g.runner(ctx, g.bin, "-csv", "-c", sql); err != nil {
		return errors.GatewayError("DDL execution failed", sql, err)
	}
	return nil
}

// ExecuteQuery runs a query with CSV output and parses rows, dropping the
// header line the CLI emits.
func (g *DuckDBGateway) ExecuteQuery(ctx context.Context, sql string) ([][]string, error) {
	out, err := g.runner(ctx, g.bin, "-csv", "-c", sql)
	if err != nil {
		return nil, errors.GatewayError("query execution failed", sql, err)
	}

	r := csv.NewReader(strings.NewReader(string(out)))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeResultParsing, "failed to parse duckdb csv output")
	}

	if len(records) <= 1 {
		return nil, nil
	}
	return records[1:], nil
}

// PathVisible checks the host filesystem: duckdb runs where the lake lives.
func (g *DuckDBGateway) PathVisible(ctx context.Context, path string) (bool, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrap(err, errors.ErrCodeFileOperation,
			fmt.Sprintf("failed to check path: %s", path))
	}
	return fi.IsDir(), nil
}

// EnsureDir creates the directory on the host.
func (g *DuckDBGateway) EnsureDir(ctx context.Context, path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return errors.Wrap(err, errors.ErrCodeFileOperation,
			fmt.Sprintf("failed to create directory: %s", path))
	}
	return nil
}
