// Package main provides the entry point for the content pipeline CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "content_agent",
	Short: "Dinver content pipeline",
	Long:  "Content agent drives blog topics through a checkpointed generation pipeline: research, outline, drafting, editing, SEO metadata, featured image and LinkedIn posts.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
