package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var retryCommand = &cobra.Command{
	Use:   "retry <topic-id>",
	Short: "Retry a failed topic from its last checkpoint",
	Long:  "Requeues a failed topic and reruns the pipeline, resuming from the checkpointed stages. Rejected when the topic is not failed or its retry budget is exhausted.",
	Args:  cobra.ExactArgs(1),
	RunE:  runRetryCmd,
}

var retryFlags commonFlags

func init() {
	retryFlags.register(retryCommand)
	rootCmd.AddCommand(retryCommand)
}

func runRetryCmd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	topicID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid topic id %q: %w", args[0], err)
	}

	cfg, err := retryFlags.resolveConfig(cmd, true)
	if err != nil {
		return err
	}

	manager, cleanup, err := buildManager(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	return manager.RetryTopic(ctx, topicID)
}
