// Code generated manually. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package wire

import (
	"fmt"

	"github.com/sevigo/boxedbot/internal/analyzer"
	"github.com/sevigo/boxedbot/internal/app"
	"github.com/sevigo/boxedbot/internal/config"
	"github.com/sevigo/boxedbot/internal/github"
	"github.com/sevigo/boxedbot/internal/jobs"
	"github.com/sevigo/boxedbot/internal/llm"
	"github.com/sevigo/boxedbot/internal/policy"
	"github.com/sevigo/boxedbot/internal/review"
	"github.com/sevigo/boxedbot/internal/server"
)

// InitializeApp creates and wires all application dependencies.
func InitializeApp() (*app.App, func(), error) {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	loggerConfig := provideLoggerConfig(cfg)
	logWriter := provideLogWriter()
	slogLogger := provideSlogLogger(loggerConfig, logWriter)

	// Token broker (reads the GitHub App private key)
	broker, err := github.NewTokenBroker(cfg, slogLogger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create token broker: %w", err)
	}

	// Policy resolver
	resolver := policy.NewResolver(slogLogger)

	// AI provider and prompts
	provider := llm.NewOpenAIClient(cfg, slogLogger)
	prompts, err := llm.NewPromptBuilder()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prompt builder: %w", err)
	}

	// Analysis pipeline
	anlz := analyzer.New(cfg, provider, prompts, slogLogger)
	composer := review.NewComposer(slogLogger)
	submitter := review.NewSubmitter(slogLogger)

	// Job and dispatcher
	analysisJob := jobs.NewAnalysisJob(cfg, broker, resolver, anlz, composer, submitter, slogLogger)
	dispatcher := jobs.NewDispatcher(analysisJob, cfg, slogLogger)

	// Server
	srv := server.NewServer(cfg, dispatcher, slogLogger)

	// App
	application := app.NewApp(cfg, srv, dispatcher, slogLogger)

	cleanup := func() {}

	return application, cleanup, nil
}
