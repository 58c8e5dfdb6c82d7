package wire

import (
	"io"
	"log/slog"
	"os"

	"github.com/sevigo/boxedbot/internal/config"
	"github.com/sevigo/boxedbot/internal/logger"
)

func provideLoggerConfig(cfg *config.Config) logger.Config {
	return logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}
}

func provideLogWriter() io.Writer {
	return os.Stdout
}

func provideSlogLogger(loggerConfig logger.Config, writer io.Writer) *slog.Logger {
	return logger.NewLogger(loggerConfig, writer)
}
