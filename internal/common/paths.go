// Package common holds the few filesystem helpers shared by the config and
// export layers.
package common

import (
	"fmt"
	"path/filepath"
	"strings"
)

// CleanPath normalizes a path, rejects directory traversal, and resolves it
// to an absolute path. Config file locations go through this before any read
// or write.
func CleanPath(path string) (string, error) {
	cleaned := filepath.Clean(path)
	if strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("invalid path %q: contains directory traversal", path)
	}
	if filepath.IsAbs(cleaned) {
		return cleaned, nil
	}
	abs, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %q: %w", path, err)
	}
	return abs, nil
}
