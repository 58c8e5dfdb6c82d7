package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "boxedbot",
	Short: "boxedbot is an automated pull request review service for GitHub.",
	Long:  `BoxedBot receives GitHub webhook deliveries, analyzes pull request diffs with an AI model, and posts review comments back to the pull request.`,
}

func main() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(printConfigCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("application failed to run", "error", err)
		os.Exit(1)
	}
}
