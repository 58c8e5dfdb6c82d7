// Package app initializes and orchestrates the main components of the
// BoxedBot application. It wires together the configuration, server, and
// the analysis pipeline.
package app

import (
	"log/slog"

	"github.com/sevigo/boxedbot/internal/config"
	"github.com/sevigo/boxedbot/internal/core"
	"github.com/sevigo/boxedbot/internal/server"
)

// App holds the main application components.
type App struct {
	cfg        *config.Config
	server     *server.Server
	dispatcher core.JobDispatcher
	logger     *slog.Logger
}

// NewApp sets up the application with all its dependencies.
func NewApp(cfg *config.Config, srv *server.Server, dispatcher core.JobDispatcher, logger *slog.Logger) *App {
	return &App{
		cfg:        cfg,
		server:     srv,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Start runs the HTTP server.
func (a *App) Start() error {
	a.logger.Info("starting BoxedBot",
		"server_port", a.cfg.ServerPort,
		"max_workers", a.cfg.MaxWorkers,
		"model_small", a.cfg.ModelSmall,
		"model_large", a.cfg.ModelLarge)

	if err := a.server.Start(); err != nil {
		a.logger.Error("failed to start HTTP server", "error", err)
		return err
	}
	return nil
}

// Stop shuts down the application cleanly.
func (a *App) Stop() error {
	a.logger.Info("shutting down BoxedBot services")

	// Stop the HTTP server first to prevent new incoming requests.
	serverErr := a.server.Stop()
	if serverErr != nil {
		a.logger.Error("error during HTTP server shutdown", "error", serverErr)
		// Continue to stop other components even if the server failed.
	}

	// Stop the job dispatcher, allowing in-flight jobs to finish.
	a.dispatcher.Stop()

	if serverErr != nil {
		a.logger.Error("BoxedBot stopped with errors", "error", serverErr)
		return serverErr
	}

	a.logger.Info("BoxedBot stopped successfully")
	return nil
}
