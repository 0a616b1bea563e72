package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_ValidJSON(t *testing.T) {
	// Create temp config file
	content := `{
		"database_url": "postgres://localhost/content",
		"api_key": "test-key",
		"max_retries": 5,
		"stage_timeout_seconds": 120,
		"verbose": true
	}`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "postgres://localhost/content", cfg.DatabaseURL)
	assert.Equal(t, "test-key", cfg.APIKey)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 120, cfg.StageTimeoutSeconds)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	content := `{ invalid json }`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config path is empty")
}

func TestValidate_NegativeValues(t *testing.T) {
	cfg := &Config{
		MaxRetries: -1,
	}

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "max_retries")

	cfg = &Config{StageTimeoutSeconds: -1}
	err = cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "stage_timeout_seconds")
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := &Config{
		DatabaseURL:         "postgres://localhost/content",
		MaxRetries:          3,
		StageTimeoutSeconds: 300,
		WorkerConcurrency:   4,
	}

	err := cfg.Validate()
	assert.NoError(t, err)
}

func TestMergeWithDefaults(t *testing.T) {
	defaults := Config{
		DatabaseURL:         "postgres://localhost/default",
		APIKey:              "default-key",
		MaxRetries:          3,
		StageTimeoutSeconds: 300,
	}

	partial := Config{
		APIKey: "custom-key",
	}

	merged := partial.MergeWithDefaults(defaults)

	// Custom values should be preserved
	assert.Equal(t, "custom-key", merged.APIKey)

	// Default values should fill in empty fields
	assert.Equal(t, "postgres://localhost/default", merged.DatabaseURL)
	assert.Equal(t, 3, merged.MaxRetries)
	assert.Equal(t, 300, merged.StageTimeoutSeconds)
}

func TestMergeWithDefaults_EmptyDefaults(t *testing.T) {
	cfg := Config{
		DatabaseURL: "postgres://localhost/content",
	}

	merged := cfg.MergeWithDefaults(Config{})

	assert.Equal(t, "postgres://localhost/content", merged.DatabaseURL)
	// Worker concurrency falls back to its built-in default.
	assert.Equal(t, 2, merged.WorkerConcurrency)
}
