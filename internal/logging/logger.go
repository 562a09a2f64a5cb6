package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type loggerKey struct{}

// FromContext returns the logger stored in ctx, or fallback when there is none.
func FromContext(ctx context.Context, fallback zerolog.Logger) zerolog.Logger {
	if ctx == nil {
		return fallback
	}
	if logger, ok := ctx.Value(loggerKey{}).(zerolog.Logger); ok {
		return logger
	}
	return fallback
}

// IntoContext injects a logger into context for downstream use.
func IntoContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// New builds the service logger. Production writes JSON at info level;
// everything else gets a console writer at debug level.
func New(appName, env string) zerolog.Logger {
	return newWithWriter(os.Stdout, appName, env)
}

func newWithWriter(out io.Writer, appName, env string) zerolog.Logger {
	level := zerolog.DebugLevel
	if env == "production" {
		level = zerolog.InfoLevel
	} else {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339Nano,
			NoColor:    true,
		}
	}
	return zerolog.New(out).Level(level).With().
		Timestamp().
		Str("app", appName).
		Str("env", env).
		Logger()
}
