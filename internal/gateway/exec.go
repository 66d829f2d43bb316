package gateway

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"lakecat/pkg/errors"
)

// Runner executes an external command and returns its stdout. Split out so
// tests can script the container without docker.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func defaultRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return stdout.Bytes(), fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return stdout.Bytes(), err
	}
	return stdout.Bytes(), nil
}

// ExecGateway reaches the query engine by running its CLI inside a container
// via docker exec. This is the transport the lake runs in production.
type ExecGateway struct {
	container string
	catalog   string
	runner    Runner
}

// NewExecGateway creates a gateway against the engine CLI in the named
// container, scoped to one catalog.
func NewExecGateway(container, catalog string) *ExecGateway {
	return &ExecGateway{
		container: container,
		catalog:   catalog,
		runner:    defaultRunner,
	}
}

// WithRunner replaces the command runner. Test hook.
func (g *ExecGateway) WithRunner(r Runner) *ExecGateway {
	g.runner = r
	return g
}

func (g *ExecGateway) dockerExec(ctx context.Context, args ...string) ([]byte, error) {
	full := append([]string{"exec", "-i", g.container}, args...)
	return g.runner(ctx, "docker", full...)
}

// Probe checks the container answers a trivial shell command.
func (g *ExecGateway) Probe(ctx context.Context) error {
	if _, err := g.dockerExec(ctx, "sh", "-lc", "true"); err != nil {
		return errors.Wrap(err, errors.ErrCodeGatewayUnreachable,
			fmt.Sprintf("query engine container not reachable: %s", g.container)).
			WithSuggestions(
				"Check that the container is running (docker ps)",
				"Verify the --container flag or gateway.container config value",
			)
	}
	return nil
}

// ExecuteDDL submits a statement block to the engine CLI. The CLI splits on
// semicolons itself, so multi-statement blocks go through in one call.
func (g *ExecGateway) ExecuteDDL(ctx context.Context, sql string) error {
	if _, err := g.dockerExec(ctx, "trino", "--catalog", g.catalog, "--execute", sql); err != nil {
		return errors.GatewayError("DDL execution failed", sql, err).
			WithSeverity(errors.SeverityError)
	}
	return nil
}

// ExecuteQuery submits a query requesting TSV output and parses the rows.
func (g *ExecGateway) ExecuteQuery(ctx context.Context, sql string) ([][]string, error) {
	out, err := g.dockerExec(ctx, "trino", "--output-format", "TSV", "--catalog", g.catalog, "--execute", sql)
	if err != nil {
		return nil, errors.GatewayError("query execution failed", sql, err)
	}
	return parseTSV(string(out)), nil
}

// PathVisible runs test -d inside the container. A non-zero exit status is
// "not visible", not an error.
func (g *ExecGateway) PathVisible(ctx context.Context, path string) (bool, error) {
	_, err := g.dockerExec(ctx, "sh", "-lc", fmt.Sprintf("test -d '%s'", path))
	if err == nil {
		return true, nil
	}
	if _, ok := exitError(err); ok {
		return false, nil
	}
	return false, errors.Wrap(err, errors.ErrCodeGatewayUnreachable,
		fmt.Sprintf("failed to check path inside container: %s", path))
}

// EnsureDir creates the directory inside the container so it can back an
// external table location.
func (g *ExecGateway) EnsureDir(ctx context.Context, path string) error {
	if _, err := g.dockerExec(ctx, "sh", "-lc", fmt.Sprintf("mkdir -p '%s'", path)); err != nil {
		return errors.Wrap(err, errors.ErrCodeFileOperation,
			fmt.Sprintf("failed to create directory inside container: %s", path))
	}
	return nil
}

// parseTSV splits CLI output into rows and tab-separated cells. Trailing
// tabs are preserved on purpose: they encode empty trailing fields.
func parseTSV(out string) [][]string {
	out = strings.TrimRight(out, "\n")
	if out == "" {
		return nil
	}

	var rows [][]string
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		rows = append(rows, strings.Split(line, "\t"))
	}
	return rows
}

// exitError unwraps an *exec.ExitError anywhere in the chain.
func exitError(err error) (*exec.ExitError, bool) {
	for err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			return ee, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}
