package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dinver-app/content-pipeline/internal/db"
	"github.com/dinver-app/content-pipeline/internal/pipeline"
)

var submitCommand = &cobra.Command{
	Use:   "submit",
	Short: "Submit a new topic to the queue",
	Long:  "Creates a queued topic. Use the worker or process command to run it through the pipeline.",
	RunE:  runSubmitCmd,
}

var (
	submitFlags         commonFlags
	submitTitle         string
	submitDescription   string
	submitKeywords      []string
	submitReferenceURLs []string
	submitBothLanguages bool
	submitMaxRetries    int
	submitProcessNow    bool
)

func init() {
	submitFlags.register(submitCommand)
	submitCommand.Flags().StringVarP(&submitTitle, "title", "t", "", "Topic title (required)")
	submitCommand.Flags().StringVar(&submitDescription, "description", "", "Topic description")
	submitCommand.Flags().StringSliceVar(&submitKeywords, "keyword", nil, "Target keyword (repeatable)")
	submitCommand.Flags().StringSliceVar(&submitReferenceURLs, "reference-url", nil, "Reference URL for research grounding (repeatable)")
	submitCommand.Flags().BoolVar(&submitBothLanguages, "both-languages", false, "Generate English content alongside Croatian")
	submitCommand.Flags().IntVar(&submitMaxRetries, "max-retries", 0, "Retry budget (0 uses the configured default)")
	submitCommand.Flags().BoolVar(&submitProcessNow, "process", false, "Process the topic immediately after submitting")
	_ = submitCommand.MarkFlagRequired("title")

	rootCmd.AddCommand(submitCommand)
}

func runSubmitCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := submitFlags.resolveConfig(cmd, submitProcessNow)
	if err != nil {
		return err
	}

	maxRetries := submitMaxRetries
	if maxRetries == 0 {
		maxRetries = cfg.MaxRetries
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	topic, err := database.CreateTopic(ctx, &db.TopicInput{
		Title:                 submitTitle,
		Description:           submitDescription,
		Keywords:              submitKeywords,
		ReferenceURLs:         submitReferenceURLs,
		GenerateBothLanguages: submitBothLanguages,
		MaxRetries:            maxRetries,
	})
	if err != nil {
		return fmt.Errorf("failed to create topic: %w", err)
	}

	fmt.Printf("Created topic %s (%s)\n", topic.ID, topic.Title)

	if submitProcessNow {
		manager, cleanup, err := buildManager(ctx, cfg)
		if err != nil {
			return err
		}
		defer cleanup()
		return manager.ProcessTopic(ctx, topic.ID, pipeline.DefaultProcessOptions())
	}
	return nil
}
