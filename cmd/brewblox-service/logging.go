package main

import (
	"log/slog"
	"os"
	"strings"
)

// logLevels maps CLI level names to slog levels
var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// setupLogger builds the root logger from the CLI log level and format.
// Source locations are only attached at debug level; they are noise in
// production logs and cost an extra runtime.Caller per record.
func setupLogger(level, format string) *slog.Logger {
	logLevel, ok := logLevels[strings.ToLower(level)]
	if !ok {
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: logLevel == slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler).With(
		"version", Version,
		"pid", os.Getpid(),
	)
}
