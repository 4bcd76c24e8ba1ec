package logger

import (
	"log/slog"
	"os"
	"strings"
)

// SetupLogger builds the suite's structured logger: a text handler on
// stderr at the requested level. Verbose mode forces DEBUG regardless
// of the configured level.
func SetupLogger(verboseMode bool, logLevel string) *slog.Logger {
	level := parseLevel(logLevel)
	if verboseMode {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

// parseLevel maps a level name to slog.Level, defaulting to INFO for
// anything it does not recognize.
func parseLevel(levelStr string) slog.Level {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// The Log helpers tolerate a nil logger so callers can log without
// checking whether logger wiring succeeded.

func LogDebug(logger *slog.Logger, msg string, args ...any) {
	if logger != nil {
		logger.Debug(msg, args...)
	}
}

func LogInfo(logger *slog.Logger, msg string, args ...any) {
	if logger != nil {
		logger.Info(msg, args...)
	}
}

func LogWarn(logger *slog.Logger, msg string, args ...any) {
	if logger != nil {
		logger.Warn(msg, args...)
	}
}

func LogError(logger *slog.Logger, msg string, args ...any) {
	if logger != nil {
		logger.Error(msg, args...)
	}
}
