// Package runid handles run identifiers, the schema namespace derived from
// them, and the lake's active-run indirection pointer.
package runid

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"lakecat/pkg/errors"
)

// SchemaPrefix is prepended to every per-run catalog schema name.
const SchemaPrefix = "discogs_r_"

// HistorySchema is the catalog schema owning the append-only event logs.
const HistorySchema = "discogs_history"

var (
	runIDRe  = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}__[0-9]{8}_[0-9]{6}$`)
	activeRe = regexp.MustCompile(`^_runs/([0-9]{4}-[0-9]{2}__[0-9]{8}_[0-9]{6})$`)
)

// IsValid reports whether s matches the YYYY-MM__YYYYMMDD_HHMMSS pattern.
func IsValid(s string) bool {
	return runIDRe.MatchString(s)
}

// Validate rejects any string that does not match the run-id pattern. It is
// the first gate in every entry point: no side effect may be attempted on a
// run before its id passes here.
func Validate(runID string) error {
	if runID == "" || !runIDRe.MatchString(runID) {
		return errors.InvalidRunID(runID)
	}
	return nil
}

// SchemaForRun derives the catalog schema name for a run. The substitution is
// pure and injective over valid run ids ('-' never appears elsewhere in the
// pattern), so two distinct runs can never collide on a schema name.
func SchemaForRun(runID string) string {
	return SchemaPrefix + strings.ReplaceAll(runID, "-", "_")
}

// ResolveActive reads the lake's "active" indirection symlink and returns the
// run id it points at, or "" when there is no usable pointer. It never fails:
// an absent, non-symlink, or malformed pointer all mean "no active run known".
func ResolveActive(lakeRoot string) string {
	active := filepath.Join(lakeRoot, "active")

	fi, err := os.Lstat(active)
	if err != nil || fi.Mode()&os.ModeSymlink == 0 {
		return ""
	}

	target, err := os.Readlink(active)
	if err != nil {
		return ""
	}

	m := activeRe.FindStringSubmatch(target)
	if m == nil {
		return ""
	}
	return m[1]
}

// ListRuns returns the run ids present under runsDir in ascending
// lexicographic order, which for this id format is chronological order.
// Entries that are not directories or do not match the pattern are ignored.
func ListRuns(runsDir string) ([]string, error) {
	entries, err := os.ReadDir(runsDir)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeFileNotFound,
			"failed to list runs directory").WithContext("runs_dir", runsDir)
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() && runIDRe.MatchString(e.Name()) {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}
