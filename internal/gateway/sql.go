package gateway

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/trinodb/trino-go-client/trino"

	"lakecat/pkg/errors"
)

// SQLConfig holds connection settings for the database/sql transport.
type SQLConfig struct {
	Driver  string        // database/sql driver name, default "trino"
	DSN     string        // e.g. http://user@localhost:8080?catalog=hive
	Timeout time.Duration // per-call timeout
}

// SQLGateway talks to the query engine through database/sql. Used when the
// engine's HTTP endpoint is reachable directly and the host shares the lake
// mount with the engine, so path checks happen against the local filesystem.
type SQLGateway struct {
	db             *sql.DB
	config         SQLConfig
	connected      bool
	circuitBreaker *errors.CircuitBreaker
}

// NewSQLGateway creates an unconnected SQL gateway.
func NewSQLGateway(config SQLConfig) *SQLGateway {
	if config.Driver == "" {
		config.Driver = "trino"
	}
	return &SQLGateway{
		config:         config,
		circuitBreaker: errors.NewCircuitBreaker("gateway", 5, 30*time.Second),
	}
}

// NewSQLGatewayFromDB wraps an existing handle. Test hook (sqlmock).
func NewSQLGatewayFromDB(db *sql.DB, config SQLConfig) *SQLGateway {
	g := NewSQLGateway(config)
	g.db = db
	g.connected = true
	return g
}

// Connect opens the connection pool and verifies it with a ping.
func (g *SQLGateway) Connect() error {
	if g.connected {
		return nil
	}

	return g.circuitBreaker.Execute(context.Background(), func() error {
		return errors.RetryWithBackoff(context.Background(), func(ctx context.Context) error {
			db, err := sql.Open(g.config.Driver, g.config.DSN)
			if err != nil {
				return errors.ConnectionError("Failed to open gateway connection", err).
					WithContext("driver", g.config.Driver)
			}

			db.SetMaxOpenConns(4)
			db.SetMaxIdleConns(2)
			db.SetConnMaxLifetime(10 * time.Minute)

			pingCtx, cancel := g.callContext()
			defer cancel()

			if err := db.PingContext(pingCtx); err != nil {
				db.Close()
				return errors.ConnectionError("Failed to connect to query engine", err).
					AsRecoverable()
			}

			g.db = db
			g.connected = true
			return nil
		})
	})
}

// Close closes the connection pool.
func (g *SQLGateway) Close() error {
	if !g.connected {
		return nil
	}
	g.connected = false
	if err := g.db.Close(); err != nil {
		return fmt.Errorf("failed to close gateway connection: %w", err)
	}
	return nil
}

// Probe pings the engine, connecting first if necessary.
func (g *SQLGateway) Probe(ctx context.Context) error {
	if !g.connected {
		if err := g.Connect(); err != nil {
			return err
		}
	}

	pingCtx, cancel := g.callContext()
	defer cancel()

	if err := g.db.PingContext(pingCtx); err != nil {
		return errors.Wrap(err, errors.ErrCodeGatewayUnreachable, "query engine ping failed")
	}
	return nil
}

// ExecuteDDL runs each statement of the block in order, fail-fast.
func (g *SQLGateway) ExecuteDDL(ctx context.Context, ddl string) error {
	if !g.connected {
		return errors.New(errors.ErrCodeConnectionFailed, "Not connected to query engine").
			WithSuggestions("Call Connect() before executing SQL")
	}

	for i, stmt := range splitStatements(ddl) {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}

		execCtx, cancel := g.callContext()
		_, err := g.db.ExecContext(execCtx, stmt)
		cancel()
		if err != nil {
			return errors.GatewayError(
				fmt.Sprintf("Failed to execute statement %d", i+1), stmt, err).
				WithContext("statement_index", i+1)
		}
	}
	return nil
}

// ExecuteQuery runs a query and renders every column as a string.
func (g *SQLGateway) ExecuteQuery(ctx context.Context, query string) ([][]string, error) {
	if !g.connected {
		return nil, errors.New(errors.ErrCodeConnectionFailed, "Not connected to query engine")
	}

	queryCtx, cancel := g.callContext()
	defer cancel()

	rows, err := g.db.QueryContext(queryCtx, query)
	if err != nil {
		return nil, errors.GatewayError("query execution failed", query, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeResultParsing, "failed to read result columns")
	}

	var out [][]string
	for rows.Next() {
		values := make([]sql.NullString, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}

		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeResultParsing, "failed to scan result row")
		}

		row := make([]string, len(cols))
		for i, v := range values {
			if v.Valid {
				row[i] = v.String
			}
		}
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeResultParsing, "result iteration failed")
	}
	return out, nil
}

// PathVisible checks the host filesystem: this transport assumes the engine
// shares the lake mount with the host.
func (g *SQLGateway) PathVisible(ctx context.Context, path string) (bool, error) {
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

// EnsureDir creates the directory on the shared mount.
func (g *SQLGateway) EnsureDir(ctx context.Context, path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return errors.Wrap(err, errors.ErrCodeFileOperation,
			fmt.Sprintf("failed to create directory: %s", path))
	}
	return nil
}

func (g *SQLGateway) callContext() (context.Context, context.CancelFunc) {
	timeout := g.config.Timeout
	if timeout == 0 {
		timeout = 5 * time.Minute
	}
	return context.WithTimeout(context.Background(), timeout)
}
