package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"lakecat/internal/lake"
)

// BuildRun creates a run directory under lakeRoot/_runs with one parquet
// part in each of the given datasets and returns the run directory path.
func BuildRun(t *testing.T, lakeRoot, runID string, datasets ...string) string {
	t.Helper()

	runDir := filepath.Join(lakeRoot, lake.RunsDirName, runID)
	for _, ds := range datasets {
		dir := filepath.Join(runDir, filepath.FromSlash(ds))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("failed to create dataset dir %s: %v", dir, err)
		}
		part := filepath.Join(dir, "part-00000.parquet")
		if err := os.WriteFile(part, []byte("PAR1"), 0o644); err != nil {
			t.Fatalf("failed to write parquet part %s: %v", part, err)
		}
	}
	return runDir
}

// BuildCompleteRun creates a run with all six required datasets populated.
func BuildCompleteRun(t *testing.T, lakeRoot, runID string) string {
	t.Helper()
	return BuildRun(t, lakeRoot, runID, lake.RequiredDatasets...)
}

// SetActive points the lake's active symlink at the given run.
func SetActive(t *testing.T, lakeRoot, runID string) {
	t.Helper()

	link := filepath.Join(lakeRoot, "active")
	_ = os.Remove(link)
	if err := os.Symlink(lake.RunsDirName+"/"+runID, link); err != nil {
		t.Fatalf("failed to set active symlink: %v", err)
	}
}
