package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "lakecat/pkg/errors"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAndWriteEnv(t *testing.T) {
	path := writeManifest(t, `{
		"dump_month": " 2025-07 ",
		"dump_date": "20250715",
		"run_mode": "full",
		"git": {"sha": "abc123def456"},
		"extra_field": true
	}`)

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "2025-07", m.DumpMonth)

	var sb strings.Builder
	require.NoError(t, m.WriteEnv(&sb))
	assert.Equal(t,
		"DUMP_MONTH=2025-07\nDUMP_DATE=20250715\nRUN_MODE=full\nGIT_SHA=abc123def456\n",
		sb.String())
}

func TestWriteEnvQuotesUnsafeValues(t *testing.T) {
	m := &Manifest{DumpMonth: "2025-07", RunMode: "dry run; rm"}
	m.Git.SHA = ""

	var sb strings.Builder
	require.NoError(t, m.WriteEnv(&sb))
	out := sb.String()
	assert.Contains(t, out, "RUN_MODE='dry run; rm'\n")
	assert.Contains(t, out, "DUMP_DATE=''\n")
	assert.Contains(t, out, "GIT_SHA=''\n")
}

func TestShellQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "''"},
		{"plain", "plain"},
		{"2025-07", "2025-07"},
		{"a b", "'a b'"},
		{"$(boom)", "'$(boom)'"},
		{"it's", `'it'"'"'s'`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ShellQuote(tt.in), "input %q", tt.in)
	}
}

func TestLoadFallsBackToEnv(t *testing.T) {
	path := writeManifest(t, `{"dump_month": "2025-07"}`)
	t.Setenv(EnvManifestPath, path)

	m, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "2025-07", m.DumpMonth)
}

func TestLoadErrors(t *testing.T) {
	t.Setenv(EnvManifestPath, "")
	_, err := Load("")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.GetErrorCode(err))

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeFileNotFound, apperrors.GetErrorCode(err))

	bad := writeManifest(t, `{not json`)
	_, err = Load(bad)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidFormat, apperrors.GetErrorCode(err))
}
