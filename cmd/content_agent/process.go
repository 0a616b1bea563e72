package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dinver-app/content-pipeline/internal/pipeline"
)

var processCommand = &cobra.Command{
	Use:   "process <topic-id>",
	Short: "Run one topic through the full generation pipeline",
	Long: `Drives a topic through every stage: research -> outline -> drafting -> editing -> seo -> image -> linkedin, then publishes the finished posts.

Completed stages are skipped by default; use --no-resume to regenerate every stage or --full-reset to discard the checkpoint first.`,
	Args: cobra.ExactArgs(1),
	RunE: runProcessCmd,
}

var (
	processFlags     commonFlags
	processNoResume  bool
	processFullReset bool
)

func init() {
	processFlags.register(processCommand)
	processCommand.Flags().BoolVar(&processNoResume, "no-resume", false, "Ignore checkpointed stage outputs and regenerate every stage")
	processCommand.Flags().BoolVar(&processFullReset, "full-reset", false, "Discard all checkpoint data before processing")

	rootCmd.AddCommand(processCommand)
}

func runProcessCmd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	topicID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid topic id %q: %w", args[0], err)
	}

	cfg, err := processFlags.resolveConfig(cmd, true)
	if err != nil {
		return err
	}

	manager, cleanup, err := buildManager(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	return manager.ProcessTopic(ctx, topicID, pipeline.ProcessOptions{
		Resume:    !processNoResume,
		FullReset: processFullReset,
	})
}
