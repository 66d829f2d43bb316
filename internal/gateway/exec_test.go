package gateway

import (
	"context"
	"fmt"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "lakecat/pkg/errors"
)

// call records one runner invocation.
type call struct {
	name string
	args []string
}

func scriptedRunner(calls *[]call, out []byte, err error) Runner {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		*calls = append(*calls, call{name: name, args: args})
		return out, err
	}
}

func TestExecGatewayDDLCommandShape(t *testing.T) {
	var calls []call
	g := NewExecGateway("trino", "hive").WithRunner(scriptedRunner(&calls, nil, nil))

	require.NoError(t, g.ExecuteDDL(context.Background(), "CREATE SCHEMA x"))

	require.Len(t, calls, 1)
	assert.Equal(t, "docker", calls[0].name)
	assert.Equal(t,
		[]string{"exec", "-i", "trino", "trino", "--catalog", "hive", "--execute", "CREATE SCHEMA x"},
		calls[0].args)
}

func TestExecGatewayQueryParsesTSV(t *testing.T) {
	var calls []call
	out := []byte("2025-06__20250601_080000\tdiscogs_r_2025_06__20250601_080000\tfalse\nrow2\t\t\n")
	g := NewExecGateway("trino", "hive").WithRunner(scriptedRunner(&calls, out, nil))

	rows, err := g.ExecuteQuery(context.Background(), "SELECT 1")
	require.NoError(t, err)

	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].args, "--output-format")
	assert.Contains(t, calls[0].args, "TSV")

	require.Len(t, rows, 2)
	assert.Equal(t, []string{"2025-06__20250601_080000", "discogs_r_2025_06__20250601_080000", "false"}, rows[0])
	// trailing tabs encode empty trailing fields
	assert.Equal(t, []string{"row2", "", ""}, rows[1])
}

func TestExecGatewayQueryFailure(t *testing.T) {
	var calls []call
	g := NewExecGateway("trino", "hive").
		WithRunner(scriptedRunner(&calls, nil, fmt.Errorf("exit status 1: TABLE_NOT_FOUND")))

	_, err := g.ExecuteQuery(context.Background(), "SELECT 1")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeFailedQuery, apperrors.GetErrorCode(err))
}

func TestExecGatewayProbe(t *testing.T) {
	var calls []call
	g := NewExecGateway("trino", "hive").WithRunner(scriptedRunner(&calls, nil, nil))
	require.NoError(t, g.Probe(context.Background()))
	assert.Equal(t, []string{"exec", "-i", "trino", "sh", "-lc", "true"}, calls[0].args)

	down := NewExecGateway("trino", "hive").
		WithRunner(scriptedRunner(&calls, nil, fmt.Errorf("no such container")))
	err := down.Probe(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeGatewayUnreachable, apperrors.GetErrorCode(err))
}

func TestExecGatewayPathVisible(t *testing.T) {
	var calls []call
	g := NewExecGateway("trino", "hive").WithRunner(scriptedRunner(&calls, nil, nil))
	ok, err := g.PathVisible(context.Background(), "/data/hive-data/_runs/x")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "test -d '/data/hive-data/_runs/x'", calls[0].args[len(calls[0].args)-1])

	// non-zero exit means not visible, not an error
	exitErr := &exec.ExitError{}
	missing := NewExecGateway("trino", "hive").
		WithRunner(scriptedRunner(&calls, nil, fmt.Errorf("wrapped: %w", exitErr)))
	ok, err = missing.PathVisible(context.Background(), "/nope")
	require.NoError(t, err)
	assert.False(t, ok)

	// transport failures do surface
	broken := NewExecGateway("trino", "hive").
		WithRunner(scriptedRunner(&calls, nil, fmt.Errorf("docker daemon down")))
	_, err = broken.PathVisible(context.Background(), "/x")
	assert.Error(t, err)
}

func TestExecGatewayEnsureDir(t *testing.T) {
	var calls []call
	g := NewExecGateway("trino", "hive").WithRunner(scriptedRunner(&calls, nil, nil))
	require.NoError(t, g.EnsureDir(context.Background(), "/data/hive-data/_meta/x"))
	assert.Equal(t, "mkdir -p '/data/hive-data/_meta/x'", calls[0].args[len(calls[0].args)-1])
}

func TestParseTSV(t *testing.T) {
	assert.Nil(t, parseTSV(""))
	assert.Nil(t, parseTSV("\n"))
	assert.Equal(t, [][]string{{"a", "b"}}, parseTSV("a\tb\n"))
	assert.Equal(t, [][]string{{"1"}, {"2"}}, parseTSV("1\n\n2\n"))
}
