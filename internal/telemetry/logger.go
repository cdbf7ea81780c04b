package telemetry

import (
	"io"
	"log/slog"

	slogmulti "github.com/samber/slog-multi"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

// NewLogger builds the JSON logger used across the process. With otel
// enabled every record is also handed to the global log provider.
func NewLogger(w io.Writer, verbose, otelEnabled bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	var handler slog.Handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	if otelEnabled {
		handler = slogmulti.Fanout(handler, otelslog.NewHandler(ServiceName))
	}
	return slog.New(handler)
}
