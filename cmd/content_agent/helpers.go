package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dinver-app/content-pipeline/internal/config"
	"github.com/dinver-app/content-pipeline/internal/db"
	"github.com/dinver-app/content-pipeline/internal/llm"
	"github.com/dinver-app/content-pipeline/internal/pipeline"
)

// commonFlags are the flags shared by every pipeline-driving command.
type commonFlags struct {
	configPath   string
	databaseURL  string
	apiKey       string
	stageTimeout int
	verbose      bool
}

func (f *commonFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.configPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	cmd.Flags().StringVar(&f.databaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	cmd.Flags().StringVar(&f.apiKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")
	cmd.Flags().IntVar(&f.stageTimeout, "stage-timeout", 0, "Per-stage timeout in seconds (0 disables)")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Print detailed debug information")
}

// resolveConfig merges config file, explicit flags, env vars and defaults,
// in that priority order (flags win). needsAPIKey is set by commands that
// build a generation client; read-only commands work without a key.
func (f *commonFlags) resolveConfig(cmd *cobra.Command, needsAPIKey bool) (config.Config, error) {
	var cfg config.Config
	if f.configPath != "" {
		loadedCfg, err := config.LoadConfig(f.configPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		if err := loadedCfg.Validate(); err != nil {
			return cfg, err
		}
		cfg = *loadedCfg
		if f.verbose {
			fmt.Fprintf(os.Stdout, "Loaded config from: %s\n", f.configPath)
		}
	}

	// Only override if the flag was explicitly set
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = f.databaseURL
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = f.apiKey
	}
	if cmd.Flags().Changed("stage-timeout") {
		cfg.StageTimeoutSeconds = f.stageTimeout
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = f.verbose
	}

	cfg = cfg.MergeWithDefaults(config.Config{
		MaxRetries:          db.DefaultMaxRetries,
		StageTimeoutSeconds: 300,
	})

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL environment variable or --db-url flag is required")
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if needsAPIKey && cfg.APIKey == "" {
		return cfg, fmt.Errorf("GEMINI_API_KEY environment variable or --api-key flag is required")
	}

	return cfg, nil
}

// buildManager connects the database and generation clients and assembles a
// pipeline manager. The returned cleanup releases all of them.
func buildManager(ctx context.Context, cfg config.Config) (*pipeline.Manager, func(), error) {
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	client, err := llm.NewClient(ctx, llm.DefaultConfig(), cfg.APIKey)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to create generation client: %w", err)
	}

	imageClient, err := llm.NewGeminiImageClient(ctx, llm.DefaultConfig(), cfg.APIKey)
	if err != nil {
		_ = client.Close()
		database.Close()
		return nil, nil, fmt.Errorf("failed to create image client: %w", err)
	}

	manager := pipeline.NewManager(pipeline.Deps{
		Store:      database,
		Logs:       database,
		LLM:        client,
		Images:     imageClient,
		ImageStore: database,
		Publisher:  database,
	}, pipeline.Options{
		StageTimeout: time.Duration(cfg.StageTimeoutSeconds) * time.Second,
		Verbose:      cfg.Verbose,
	})

	cleanup := func() {
		_ = imageClient.Close()
		_ = client.Close()
		database.Close()
	}
	return manager, cleanup, nil
}
