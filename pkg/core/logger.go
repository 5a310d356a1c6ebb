package core

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

func newStdoutHandler(cfg Config, out io.Writer) slog.Handler {
	if cfg.IsProd() {
		return slog.NewJSONHandler(out, &slog.HandlerOptions{})
	}
	return slog.NewTextHandler(out, &slog.HandlerOptions{})
}

func NewLogger(cfg Config) *slog.Logger {
	return NewLoggerWithWriter(cfg, os.Stdout)
}

// NewLoggerWithWriter is NewLogger with the destination chosen by the caller.
// CLIs that print results on stdout log to stderr.
func NewLoggerWithWriter(cfg Config, out io.Writer) *slog.Logger {
	stdoutHandler := newStdoutHandler(cfg, out)
	return slog.New(stdoutHandler)
}

func NewLoggerWithOtel(cfg Config, otel OtelService) *slog.Logger {
	return NewLoggerWithOtelWriter(cfg, otel, os.Stdout)
}

func NewLoggerWithOtelWriter(cfg Config, otel OtelService, out io.Writer) *slog.Logger {
	stdoutHandler := newStdoutHandler(cfg, out)
	otelHandler := otelslog.NewHandler(
		serviceName,
		otelslog.WithLoggerProvider(otel.LoggerProvider()),
	)

	return slog.New(
		slogmulti.Fanout(
			stdoutHandler,
			otelHandler,
		),
	)
}
