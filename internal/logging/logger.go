package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"salesdash/internal/config"
)

// New builds the JSON slog logger described by cfg and installs it as the
// default. The returned closer releases the log file, if one was opened.
func New(cfg config.LoggingConfig) (*slog.Logger, func() error, error) {
	var (
		output io.Writer = os.Stdout
		file   *os.File
	)

	switch strings.ToLower(cfg.Output) {
	case "file", "both":
		f, err := openLogFile(cfg.FilePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		file = f
		if strings.EqualFold(cfg.Output, "both") {
			output = io.MultiWriter(os.Stdout, f)
		} else {
			output = f
		}
	}

	logger := slog.New(slog.NewJSONHandler(output, &slog.HandlerOptions{
		Level: ParseLevel(cfg.Level),
	}))
	slog.SetDefault(logger)

	closer := func() error {
		if file == nil {
			return nil
		}
		return file.Close()
	}
	return logger, closer, nil
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
