// Package lake describes the on-disk layout of the data lake and checks run
// directories for structural completeness before anything touches the
// catalog.
package lake

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"lakecat/internal/gateway"
	"lakecat/pkg/errors"
)

const (
	// RunsDirName holds one immutable directory tree per run.
	RunsDirName = "_runs"

	// WarehouseDirName holds the optional derived datasets inside a run.
	WarehouseDirName = "warehouse_discogs"

	// MetaSubdir is the metadata area backing the event logs and exports.
	MetaSubdir = "_meta/discogs_history"

	// EnvLakeRoot names the one required environment variable.
	EnvLakeRoot = "DISCOGS_DATA_LAKE"

	// DefaultEngineRoot is where the engine container mounts the lake.
	DefaultEngineRoot = "/data/hive-data"
)

// RequiredDatasets must all be present for a run to be registrable.
var RequiredDatasets = []string{
	"artists_v1_typed",
	"artist_aliases_v1_typed",
	"artist_memberships_v1_typed",
	"masters_v1_typed",
	"releases_v6",
	"labels_v10",
}

// OptionalWarehouse lists the derived datasets whose absence is tolerated,
// as paths relative to the run root.
var OptionalWarehouse = []string{
	WarehouseDirName + "/artist_name_map_v1",
	WarehouseDirName + "/release_artists_v1",
	WarehouseDirName + "/release_label_xref_v1",
	WarehouseDirName + "/label_release_counts_v1",
	WarehouseDirName + "/release_style_xref_v1",
	WarehouseDirName + "/release_genre_xref_v1",
}

// RootFromEnv reads and validates the lake root from the environment.
func RootFromEnv() (string, error) {
	root := os.Getenv(EnvLakeRoot)
	if root == "" {
		return "", errors.New(errors.ErrCodeRequiredField,
			fmt.Sprintf("%s not set", EnvLakeRoot))
	}
	if err := ValidateRoot(root); err != nil {
		return "", err
	}
	return root, nil
}

// ValidateRoot guards against the common mis-invocation of pointing the
// tool inside a run directory instead of at the lake root.
func ValidateRoot(root string) error {
	if strings.Contains(root, "/"+RunsDirName+"/") {
		return errors.New(errors.ErrCodeLakeRoot,
			fmt.Sprintf("%s must be the base lake, not inside %s: %s", EnvLakeRoot, RunsDirName, root))
	}
	return nil
}

// Paths maps the lake layout onto the two filesystems involved: the host's
// and the query engine's.
type Paths struct {
	HostRoot   string
	EngineRoot string
}

// NewPaths builds the path mapper; engineRoot falls back to the default
// container mount.
func NewPaths(hostRoot, engineRoot string) Paths {
	if engineRoot == "" {
		engineRoot = DefaultEngineRoot
	}
	return Paths{HostRoot: hostRoot, EngineRoot: engineRoot}
}

// RunsDirHost is the host-side _runs directory.
func (p Paths) RunsDirHost() string {
	return filepath.Join(p.HostRoot, RunsDirName)
}

// RunDirHost is the host-side root of one run.
func (p Paths) RunDirHost(runID string) string {
	return filepath.Join(p.HostRoot, RunsDirName, runID)
}

// RunDirEngine is the engine-side root of one run.
func (p Paths) RunDirEngine(runID string) string {
	return p.EngineRoot + "/" + RunsDirName + "/" + runID
}

// RunBaseLocation is the external-location URI prefix for a run's tables.
func (p Paths) RunBaseLocation(runID string) string {
	return "file:" + p.RunDirEngine(runID)
}

// MetaDirEngine is the engine-side metadata area, optionally extended by a
// relative subpath.
func (p Paths) MetaDirEngine(rel string) string {
	base := p.EngineRoot + "/" + MetaSubdir
	if rel == "" {
		return base
	}
	return base + "/" + rel
}

// MetaLocation is the external-location URI for a metadata subpath.
func (p Paths) MetaLocation(rel string) string {
	return "file:" + p.MetaDirEngine(rel)
}

// ReportsDirHost is the host-side default directory for flat exports.
func (p Paths) ReportsDirHost() string {
	return filepath.Join(p.HostRoot, filepath.FromSlash(MetaSubdir), "reports")
}

// HasColumnarPart reports whether dir exists and contains at least one
// parquet part.
func HasColumnarPart(dir string) bool {
	matches, err := filepath.Glob(filepath.Join(dir, "*.parquet"))
	if err != nil {
		return false
	}
	return len(matches) > 0
}

// MissingRequired returns the required dataset names absent from the run
// directory on the host side. A dataset counts as present only when its
// directory holds at least one columnar part.
func MissingRequired(runDir string) []string {
	var missing []string
	for _, ds := range RequiredDatasets {
		if !HasColumnarPart(filepath.Join(runDir, ds)) {
			missing = append(missing, ds)
		}
	}
	return missing
}

// MissingRequiredEngine returns the required dataset names the engine cannot
// see for the run. A host-visible-but-engine-invisible dataset must be
// treated as missing: registering it would produce a table with zero
// accessible data.
func MissingRequiredEngine(ctx context.Context, gw gateway.Gateway, p Paths, runID string) ([]string, error) {
	var missing []string
	for _, ds := range RequiredDatasets {
		visible, err := gw.PathVisible(ctx, p.RunDirEngine(runID)+"/"+ds)
		if err != nil {
			return nil, err
		}
		if !visible {
			missing = append(missing, ds)
		}
	}
	return missing, nil
}
