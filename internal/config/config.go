package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"lakecat/internal/common"
	"lakecat/internal/lake"
	"lakecat/pkg/errors"
	"lakecat/pkg/models"
)

// EnvConfigFile overrides the config file location.
const EnvConfigFile = "LAKECAT_CONFIG"

func GetConfigPath() string {
	if configPath := os.Getenv(EnvConfigFile); configPath != "" {
		return filepath.Dir(configPath)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".lakecat")
}

func GetConfigFile() string {
	if configFile := os.Getenv(EnvConfigFile); configFile != "" {
		// Validate the path to prevent directory traversal
		cleaned, err := common.CleanPath(configFile)
		if err != nil {
			return filepath.Join(GetConfigPath(), "config.yaml")
		}
		return cleaned
	}
	return filepath.Join(GetConfigPath(), "config.yaml")
}

// Load reads the config file, applying defaults. A missing file yields the
// default configuration rather than an error.
func Load() (*models.Config, error) {
	configFile := GetConfigFile()

	cleanedPath, err := common.CleanPath(configFile)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "invalid config file path")
	}

	var config models.Config
	if _, err := os.Stat(cleanedPath); os.IsNotExist(err) {
		ApplyDefaults(&config)
		return &config, nil
	}

	data, err := os.ReadFile(cleanedPath) // #nosec G304 - path is validated
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigPermission, "failed to read config file").
			WithContext("path", cleanedPath)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to unmarshal config").
			WithContext("path", cleanedPath)
	}
	ApplyDefaults(&config)
	return &config, nil
}

// ApplyDefaults fills the fields a working setup needs.
func ApplyDefaults(c *models.Config) {
	if c.Gateway.Mode == "" {
		c.Gateway.Mode = "exec"
	}
	if c.Gateway.Container == "" {
		c.Gateway.Container = "trino"
	}
	if c.Gateway.Catalog == "" {
		c.Gateway.Catalog = "hive"
	}
	if c.Gateway.DuckDBBin == "" {
		c.Gateway.DuckDBBin = "duckdb"
	}
	if c.Lake.EngineRoot == "" {
		c.Lake.EngineRoot = lake.DefaultEngineRoot
	}
	if c.Provenance.SchemaVersion == 0 {
		c.Provenance.SchemaVersion = 1
	}
}

func Save(config *models.Config) error {
	configPath := GetConfigPath()
	if err := os.MkdirAll(configPath, common.DirPermissionSecure); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigPermission, "failed to create config directory")
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to marshal config")
	}

	if err := os.WriteFile(GetConfigFile(), data, common.FilePermissionSecure); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigPermission, "failed to write config file")
	}

	return nil
}

func Exists() bool {
	_, err := os.Stat(GetConfigFile())
	return err == nil
}
