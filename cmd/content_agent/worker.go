package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var workerCommand = &cobra.Command{
	Use:   "worker",
	Short: "Drain queued topics through the pipeline",
	Long:  "Processes queued topics with bounded concurrency. With --poll the worker keeps polling for new topics until interrupted.",
	RunE:  runWorkerCmd,
}

var (
	workerFlags       commonFlags
	workerLimit       int
	workerConcurrency int
	workerPoll        time.Duration
)

func init() {
	workerFlags.register(workerCommand)
	workerCommand.Flags().IntVar(&workerLimit, "limit", 10, "Maximum topics to pick up per pass")
	workerCommand.Flags().IntVar(&workerConcurrency, "concurrency", 0, "Topics processed in parallel (0 uses the configured default)")
	workerCommand.Flags().DurationVar(&workerPoll, "poll", 0, "Polling interval, e.g. 30s (0 runs a single pass)")

	rootCmd.AddCommand(workerCommand)
}

func runWorkerCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := workerFlags.resolveConfig(cmd, true)
	if err != nil {
		return err
	}

	concurrency := workerConcurrency
	if concurrency == 0 {
		concurrency = cfg.WorkerConcurrency
	}

	manager, cleanup, err := buildManager(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	for {
		n, err := manager.ProcessQueued(ctx, workerLimit, concurrency)
		if err != nil {
			return err
		}
		if workerPoll <= 0 {
			if n == 0 {
				fmt.Println("No queued topics.")
			}
			return nil
		}
		if n == 0 && cfg.Verbose {
			fmt.Printf("[VERBOSE] Queue empty, sleeping %s\n", workerPoll)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(workerPoll):
		}
	}
}
