// Package manifest turns a run manifest JSON into shell-safe variable
// assignments, so orchestration scripts can source provenance fields
// without parsing JSON.
package manifest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"lakecat/pkg/errors"
)

// EnvManifestPath names the manifest file to read when no path is given.
const EnvManifestPath = "MANIFEST_HOST"

// Manifest is the provenance subset the catalog cares about. Unknown fields
// in the file are ignored.
type Manifest struct {
	DumpMonth string `json:"dump_month"`
	DumpDate  string `json:"dump_date"`
	RunMode   string `json:"run_mode"`
	Git       struct {
		SHA string `json:"sha"`
	} `json:"git"`
}

// Load reads and decodes a manifest file. An empty path falls back to the
// MANIFEST_HOST environment variable.
func Load(path string) (*Manifest, error) {
	if path == "" {
		path = os.Getenv(EnvManifestPath)
	}
	if path == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput,
			"no manifest path given and "+EnvManifestPath+" is not set")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeFileNotFound,
			fmt.Sprintf("failed to read manifest %s", path))
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidFormat,
			fmt.Sprintf("failed to decode manifest %s", path))
	}

	m.DumpMonth = strings.TrimSpace(m.DumpMonth)
	m.DumpDate = strings.TrimSpace(m.DumpDate)
	m.RunMode = strings.TrimSpace(m.RunMode)
	m.Git.SHA = strings.TrimSpace(m.Git.SHA)
	return &m, nil
}

// WriteEnv emits the manifest as sourceable VAR=value lines, values quoted
// for POSIX shells.
func (m *Manifest) WriteEnv(w io.Writer) error {
	lines := []struct{ name, value string }{
		{"DUMP_MONTH", m.DumpMonth},
		{"DUMP_DATE", m.DumpDate},
		{"RUN_MODE", m.RunMode},
		{"GIT_SHA", m.Git.SHA},
	}
	for _, l := range lines {
		if _, err := fmt.Fprintf(w, "%s=%s\n", l.name, ShellQuote(l.value)); err != nil {
			return errors.Wrap(err, errors.ErrCodeFileOperation, "failed to write env lines")
		}
	}
	return nil
}

// ShellQuote renders s as a single POSIX shell word. Safe strings pass
// through untouched; everything else gets single-quoted with embedded
// quotes spliced.
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if isShellSafe(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

func isShellSafe(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("_@%+=:,./-", r):
		default:
			return false
		}
	}
	return true
}
