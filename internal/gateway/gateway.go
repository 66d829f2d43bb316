// Package gateway abstracts access to the analytical query engine behind a
// narrow interface so no other package depends on a specific transport. The
// production transport shells into the engine's container; a database/sql
// implementation and an in-memory test double satisfy the same contract.
package gateway

import (
	"context"
	"strings"
)

// Gateway is the single seam between the catalog core and the query engine.
type Gateway interface {
	// Probe verifies the engine is reachable at all. Every sweep calls it
	// once before doing any work.
	Probe(ctx context.Context) error

	// ExecuteDDL runs one or more statements for their side effects.
	ExecuteDDL(ctx context.Context, sql string) error

	// ExecuteQuery runs a query and returns all rows with every column
	// rendered as a string, in result order.
	ExecuteQuery(ctx context.Context, sql string) ([][]string, error)

	// PathVisible reports whether the path exists as a directory from the
	// engine's own vantage point. The engine may run in an isolated
	// environment with a different root mapping than the host.
	PathVisible(ctx context.Context, path string) (bool, error)

	// EnsureDir creates the directory (and parents) in the engine's
	// filesystem so it can back an external table location.
	EnsureDir(ctx context.Context, path string) error
}

// Escape doubles single quotes for embedding a value in a SQL string
// literal. The CLI transport cannot bind placeholders, so every writer in
// this repo builds literal statements through this helper.
func Escape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// FirstValue returns the first non-empty cell of the first row, or "".
func FirstValue(rows [][]string) string {
	for _, row := range rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				return strings.TrimSpace(cell)
			}
		}
	}
	return ""
}

// splitStatements splits a multi-statement block on semicolons that are not
// inside string literals. Used by transports that can only submit one
// statement per call.
func splitStatements(sql string) []string {
	var statements []string
	var current strings.Builder
	inString := false
	stringChar := rune(0)

	for i, char := range sql {
		if !inString {
			if char == '\'' || char == '"' {
				inString = true
				stringChar = char
			} else if char == ';' {
				if i == 0 || sql[i-1] != '\\' {
					statements = append(statements, current.String())
					current.Reset()
					continue
				}
			}
		} else {
			if char == stringChar && (i == 0 || sql[i-1] != '\\') {
				inString = false
			}
		}
		current.WriteRune(char)
	}

	if current.Len() > 0 {
		statements = append(statements, current.String())
	}

	return statements
}
