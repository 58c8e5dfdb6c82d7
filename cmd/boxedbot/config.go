package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sevigo/boxedbot/internal/config"
)

var printConfigCmd = &cobra.Command{
	Use:   "print-config",
	Short: "Prints the effective configuration without starting the server",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintf(w, "SERVER_PORT\t%s\n", cfg.ServerPort)
		fmt.Fprintf(w, "LOG_LEVEL\t%s\n", cfg.LogLevel)
		fmt.Fprintf(w, "LOG_FORMAT\t%s\n", cfg.LogFormat)
		fmt.Fprintf(w, "GITHUB_APP_ID\t%d\n", cfg.GitHubAppID)
		fmt.Fprintf(w, "GITHUB_PRIVATE_KEY_PATH\t%s\n", cfg.GitHubPrivateKeyPath)
		fmt.Fprintf(w, "GITHUB_API_TIMEOUT\t%s\n", cfg.GitHubAPITimeout)
		fmt.Fprintf(w, "OPENAI_BASE_URL\t%s\n", cfg.OpenAIBaseURL)
		fmt.Fprintf(w, "OPENAI_API_TIMEOUT\t%s\n", cfg.OpenAITimeout)
		fmt.Fprintf(w, "OPENAI_MAX_TOKENS\t%d\n", cfg.OpenAIMaxTokens)
		fmt.Fprintf(w, "MODEL_SMALL\t%s\n", cfg.ModelSmall)
		fmt.Fprintf(w, "MODEL_LARGE\t%s\n", cfg.ModelLarge)
		fmt.Fprintf(w, "SMALL_PR_THRESHOLD\t%d\n", cfg.SmallPRThreshold)
		fmt.Fprintf(w, "LARGE_PR_THRESHOLD\t%d\n", cfg.LargePRThreshold)
		fmt.Fprintf(w, "MAX_FILE_CHANGES\t%d\n", cfg.MaxFileChanges)
		fmt.Fprintf(w, "MAX_WORKERS\t%d\n", cfg.MaxWorkers)
		fmt.Fprintf(w, "ANALYSIS_CONCURRENCY\t%d\n", cfg.AnalysisConcurrency)
		fmt.Fprintf(w, "JOB_TIMEOUT\t%s\n", cfg.JobTimeout)
		return w.Flush()
	},
}
