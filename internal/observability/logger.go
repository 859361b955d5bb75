package observability

import (
	"context"
	"io"
	"log/slog"

	"github.com/duckmesh/querychat/internal/config"
)

type ctxKey string

const (
	traceIDKey ctxKey = "trace_id"
	subjectKey ctxKey = "subject"
)

func NewLogger(cfg config.Config, writer io.Writer) *slog.Logger {
	if writer == nil {
		writer = io.Discard
	}
	opts := &slog.HandlerOptions{Level: cfg.Observability.LogLevel}
	var handler slog.Handler = slog.NewTextHandler(writer, opts)
	if cfg.Observability.LogJSON {
		handler = slog.NewJSONHandler(writer, opts)
	}
	return slog.New(handler).With(
		slog.String("service", cfg.Service.Name),
		slog.String("profile", string(cfg.Profile)),
		slog.String("source_driver", string(cfg.Source.Driver)),
	)
}

// RequestLogger returns base annotated with the trace id and authenticated
// subject carried by ctx, when present.
func RequestLogger(ctx context.Context, base *slog.Logger) *slog.Logger {
	if base == nil {
		base = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger := base
	if traceID := TraceIDFromContext(ctx); traceID != "" {
		logger = logger.With(slog.String("trace_id", traceID))
	}
	if subject := SubjectFromContext(ctx); subject != "" {
		logger = logger.With(slog.String("subject", subject))
	}
	return logger
}

func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

func TraceIDFromContext(ctx context.Context) string {
	value, _ := ctx.Value(traceIDKey).(string)
	return value
}

// ContextWithSubject records who issued the request for RequestLogger.
func ContextWithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey, subject)
}

func SubjectFromContext(ctx context.Context) string {
	value, _ := ctx.Value(subjectKey).(string)
	return value
}
