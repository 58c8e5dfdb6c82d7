package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application's configuration values.
type Config struct {
	ServerPort string
	LogLevel   slog.Level
	LogFormat  string

	GitHubAppID          int64
	GitHubWebhookSecret  string
	GitHubPrivateKeyPath string
	GitHubAPITimeout     time.Duration

	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAITimeout    time.Duration
	OpenAIMaxTokens  int
	ModelSmall       string
	ModelLarge       string
	SmallPRThreshold int
	LargePRThreshold int

	// MaxFileChanges is the size guard: files with more changed lines are
	// excluded from AI analysis but still counted in the summary.
	MaxFileChanges int

	// MaxWorkers bounds concurrent jobs; AnalysisConcurrency bounds
	// concurrent AI calls within one job.
	MaxWorkers          int
	AnalysisConcurrency int
	JobTimeout          time.Duration
}

// LoadConfig reads configuration from environment variables and a .env file,
// sets sensible defaults, and validates required fields. It uses the Viper
// library to handle configuration loading and precedence.
func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "text")
	viper.SetDefault("GITHUB_PRIVATE_KEY_PATH", "keys/boxedbot-app.private-key.pem")
	viper.SetDefault("GITHUB_API_TIMEOUT", "30s")
	viper.SetDefault("OPENAI_BASE_URL", "https://api.openai.com")
	viper.SetDefault("OPENAI_API_TIMEOUT", "120s")
	viper.SetDefault("OPENAI_MAX_TOKENS", 2000)
	viper.SetDefault("MODEL_SMALL", "gpt-4o-mini")
	viper.SetDefault("MODEL_LARGE", "gpt-4o")
	viper.SetDefault("SMALL_PR_THRESHOLD", 100)
	viper.SetDefault("LARGE_PR_THRESHOLD", 500)
	viper.SetDefault("MAX_FILE_CHANGES", 5000)
	viper.SetDefault("MAX_WORKERS", 5)
	viper.SetDefault("ANALYSIS_CONCURRENCY", 3)
	viper.SetDefault("JOB_TIMEOUT", "5m")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", "error", err)
		}
	}

	if viper.GetInt64("GITHUB_APP_ID") == 0 {
		return nil, fmt.Errorf("GITHUB_APP_ID must be set")
	}
	if viper.GetString("GITHUB_WEBHOOK_SECRET") == "" {
		return nil, fmt.Errorf("GITHUB_WEBHOOK_SECRET must be set")
	}
	if viper.GetString("OPENAI_API_KEY") == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY must be set")
	}

	// Parse the log level string into a slog.Level type.
	var logLevel slog.Level
	logLevelStr := strings.ToLower(viper.GetString("LOG_LEVEL"))
	switch logLevelStr {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	case "info":
		logLevel = slog.LevelInfo
	default:
		slog.Warn("unrecognized log level, defaulting to info", "provided", logLevelStr)
		logLevel = slog.LevelInfo
	}

	return &Config{
		ServerPort:           viper.GetString("SERVER_PORT"),
		LogLevel:             logLevel,
		LogFormat:            viper.GetString("LOG_FORMAT"),
		GitHubAppID:          viper.GetInt64("GITHUB_APP_ID"),
		GitHubWebhookSecret:  viper.GetString("GITHUB_WEBHOOK_SECRET"),
		GitHubPrivateKeyPath: viper.GetString("GITHUB_PRIVATE_KEY_PATH"),
		GitHubAPITimeout:     viper.GetDuration("GITHUB_API_TIMEOUT"),
		OpenAIAPIKey:         viper.GetString("OPENAI_API_KEY"),
		OpenAIBaseURL:        viper.GetString("OPENAI_BASE_URL"),
		OpenAITimeout:        viper.GetDuration("OPENAI_API_TIMEOUT"),
		OpenAIMaxTokens:      viper.GetInt("OPENAI_MAX_TOKENS"),
		ModelSmall:           viper.GetString("MODEL_SMALL"),
		ModelLarge:           viper.GetString("MODEL_LARGE"),
		SmallPRThreshold:     viper.GetInt("SMALL_PR_THRESHOLD"),
		LargePRThreshold:     viper.GetInt("LARGE_PR_THRESHOLD"),
		MaxFileChanges:       viper.GetInt("MAX_FILE_CHANGES"),
		MaxWorkers:           viper.GetInt("MAX_WORKERS"),
		AnalysisConcurrency:  viper.GetInt("ANALYSIS_CONCURRENCY"),
		JobTimeout:           viper.GetDuration("JOB_TIMEOUT"),
	}, nil
}
