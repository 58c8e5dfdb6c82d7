//go:build wireinject
// +build wireinject

package wire

import (
	"github.com/google/wire"

	"github.com/sevigo/boxedbot/internal/analyzer"
	"github.com/sevigo/boxedbot/internal/app"
	"github.com/sevigo/boxedbot/internal/config"
	"github.com/sevigo/boxedbot/internal/core"
	"github.com/sevigo/boxedbot/internal/github"
	"github.com/sevigo/boxedbot/internal/jobs"
	"github.com/sevigo/boxedbot/internal/llm"
	"github.com/sevigo/boxedbot/internal/policy"
	"github.com/sevigo/boxedbot/internal/review"
	"github.com/sevigo/boxedbot/internal/server"
)

func InitializeApp() (*app.App, func(), error) {
	wire.Build(
		app.NewApp,
		server.NewServer,
		config.LoadConfig,
		github.NewTokenBroker,
		policy.NewResolver,
		llm.NewOpenAIClient,
		llm.NewPromptBuilder,
		analyzer.New,
		review.NewComposer,
		review.NewSubmitter,
		jobs.NewAnalysisJob,
		jobs.NewDispatcher,
		provideLoggerConfig,
		provideLogWriter,
		provideSlogLogger,
		wire.Bind(new(llm.Provider), new(*llm.OpenAIClient)),
		wire.Bind(new(core.Job), new(*jobs.AnalysisJob)),
	)
	return &app.App{}, nil, nil
}
