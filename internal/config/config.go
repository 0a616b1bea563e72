// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Connections
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL
	APIKey      string `json:"api_key,omitempty"`      // Gemini API key

	// Pipeline behavior
	MaxRetries          int  `json:"max_retries,omitempty"`           // Retry budget for new topics
	StageTimeoutSeconds int  `json:"stage_timeout_seconds,omitempty"` // Per-stage timeout, 0 disables
	WorkerConcurrency   int  `json:"worker_concurrency,omitempty"`    // Parallel topics in worker mode
	Verbose             bool `json:"verbose,omitempty"`               // Print detailed debug information
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("config error: 'max_retries' must be non-negative")
	}
	if c.StageTimeoutSeconds < 0 {
		return fmt.Errorf("config error: 'stage_timeout_seconds' must be non-negative")
	}
	if c.WorkerConcurrency < 0 {
		return fmt.Errorf("config error: 'worker_concurrency' must be non-negative")
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}

	// Int fields: use default if zero
	if result.MaxRetries == 0 {
		result.MaxRetries = defaults.MaxRetries
	}
	if result.StageTimeoutSeconds == 0 {
		result.StageTimeoutSeconds = defaults.StageTimeoutSeconds
	}
	if result.WorkerConcurrency == 0 {
		if defaults.WorkerConcurrency > 0 {
			result.WorkerConcurrency = defaults.WorkerConcurrency
		} else {
			result.WorkerConcurrency = 2 // Default to two topics in flight
		}
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}
