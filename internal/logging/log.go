// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

// Package logging installs the process-wide structured logger, one
// tint.Handler keyed off the configured log level, matching
// cmd/root.go's setupLogger in the teacher repo.
package logging

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"

	"github.com/wivrn-project/wivrnd/internal/config"
)

// Setup builds a *slog.Logger for level and installs it as the
// process default, returning it for callers that want to hold their
// own reference instead of going through slog.Default().
func Setup(level config.LogLevel) *slog.Logger {
	var logger *slog.Logger
	switch level {
	case config.LogLevelDebug:
		logger = slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelDebug}))
	case config.LogLevelInfo:
		logger = slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelInfo}))
	case config.LogLevelWarn:
		logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelWarn}))
	case config.LogLevelError:
		logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelError}))
	default:
		// Fall back to info level for unrecognized log levels rather
		// than leaving the default logger nil.
		logger = slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelInfo}))
	}
	slog.SetDefault(logger)
	return logger
}

// WithSession returns a logger with session_id and remote_addr
// attached, the way otelgin attaches trace IDs to request-scoped
// loggers in the teacher's HTTP layer.
func WithSession(logger *slog.Logger, sessionID, remoteAddr string) *slog.Logger {
	return logger.With("session_id", sessionID, "remote_addr", remoteAddr)
}
