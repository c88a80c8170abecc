package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger.
// In production (ENVIRONMENT=production) it uses JSON output for log aggregation.
// Otherwise it uses the human-readable text handler.
func Init() {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}

	slog.SetDefault(slog.New(handler))
}

// WithRequest returns a logger carrying the correlation id of one API call.
// Use this for everything logged while serving that call.
func WithRequest(correlationID, userID string) *slog.Logger {
	return slog.With(
		"correlation_id", correlationID,
		"user_id", userID,
	)
}

// WithSession scopes a logger to a session strand.
func WithSession(logger *slog.Logger, sessionID string) *slog.Logger {
	return logger.With("session_id", sessionID)
}

// WithConnection scopes a logger to one observer connection.
func WithConnection(logger *slog.Logger, connectionID string) *slog.Logger {
	return logger.With("connection_id", connectionID)
}

type loggerKey struct{}

// NewContext returns a copy of ctx carrying logger, so code below the
// handlers logs with the same request attributes.
func NewContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger stored by NewContext, or the default logger.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
