package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup builds the process logger and installs it as the slog default.
// The level string is parsed case-insensitively ("debug", "info", "warn",
// "error"); anything unrecognized, including empty, falls back to info.
// Set LOG_FORMAT=json for structured output, for example under systemd
// with a log shipper attached.
func Setup(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
