package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dinver-app/content-pipeline/internal/db"
	"github.com/dinver-app/content-pipeline/internal/observability"
)

var statusCommand = &cobra.Command{
	Use:   "status <topic-id>",
	Short: "Show a topic's pipeline state, stage logs and published posts",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatusCmd,
}

var (
	statusFlags    commonFlags
	statusShowLogs bool
)

func init() {
	statusFlags.register(statusCommand)
	statusCommand.Flags().BoolVar(&statusShowLogs, "logs", false, "Include the full stage execution history")

	rootCmd.AddCommand(statusCommand)
}

func runStatusCmd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	topicID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid topic id %q: %w", args[0], err)
	}

	cfg, err := statusFlags.resolveConfig(cmd, false)
	if err != nil {
		return err
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	topic, err := database.GetTopic(ctx, topicID)
	if err != nil {
		return err
	}

	printer := observability.NewPrinter(os.Stdout)
	printer.PrintTopic(topic)

	if statusShowLogs {
		logs, err := database.ListStageLogs(ctx, topicID, nil)
		if err != nil {
			return fmt.Errorf("failed to list stage logs: %w", err)
		}
		printer.PrintStageLogs(logs)
	}

	posts, err := database.ListPostsForTopic(ctx, topicID)
	if err != nil {
		return fmt.Errorf("failed to list posts: %w", err)
	}
	printer.PrintPosts(posts)

	return nil
}
