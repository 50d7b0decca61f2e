package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	applogging "github.com/andrescamacho/fishtrack-go/internal/application/logging"
	"github.com/andrescamacho/fishtrack-go/internal/infrastructure/config"
)

// SlogLogger adapts log/slog to the application Logger interface
type SlogLogger struct {
	logger *slog.Logger
	closer io.Closer
}

// NewSlogLogger builds a logger from configuration. The returned logger must be
// closed when it writes to a file.
func NewSlogLogger(cfg *config.LoggingConfig) (*SlogLogger, error) {
	var out io.Writer
	var closer io.Closer
	switch cfg.Output {
	case "stderr":
		out = os.Stderr
	case "file":
		f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out, closer = f, f
	default:
		out = os.Stdout
	}
	return NewSlogLoggerWriter(out, cfg.Format, cfg.Level, cfg.IncludeCaller, closer), nil
}

// NewSlogLoggerWriter builds a logger writing to w
func NewSlogLoggerWriter(w io.Writer, format, level string, includeCaller bool, closer io.Closer) *SlogLogger {
	opts := &slog.HandlerOptions{Level: parseLevel(level), AddSource: includeCaller}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return &SlogLogger{logger: slog.New(handler), closer: closer}
}

// Log writes one entry. Metadata keys are emitted in sorted order.
func (l *SlogLogger) Log(level, message string, metadata map[string]interface{}) {
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]slog.Attr, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, metadata[k]))
	}
	l.logger.LogAttrs(context.Background(), toSlogLevel(level), message, attrs...)
}

func (l *SlogLogger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func toSlogLevel(level string) slog.Level {
	switch level {
	case applogging.LevelDebug:
		return slog.LevelDebug
	case applogging.LevelWarning:
		return slog.LevelWarn
	case applogging.LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
