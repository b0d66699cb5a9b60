// Package logging builds the slog loggers shared by the API and the batch
// jobs, and the attributes they all use for requests, reports and runs.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/you/transit-analytics/models"
)

// NewJSON returns a logger writing JSON lines to w.
func NewJSON(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// New builds the process logger writing to stderr. format is "json" or
// "text"; anything else falls back to JSON.
func New(format, level string) *slog.Logger {
	lvl := ParseLevel(level)
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	}
	return NewJSON(os.Stderr, lvl)
}

// ParseLevel maps debug/info/warn/error to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// RequestID tags a line with the chi request id.
func RequestID(id string) slog.Attr {
	return slog.String("request_id", id)
}

// RunID tags every line of one batch job run.
func RunID(id string) slog.Attr {
	return slog.String("run_id", id)
}

// Report groups the report name and the service scope it was asked for,
// e.g. report.name=q2 report.service_id=4.
func Report(name string, scope models.ServiceScope) slog.Attr {
	return slog.Group("report",
		slog.String("name", name),
		slog.String("service_id", scope.Label()))
}

// Err renders err as a string attribute; nil yields an empty attribute
// that handlers drop.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}

// LogError logs msg at error level with the error and attrs.
func LogError(logger *slog.Logger, msg string, err error, attrs ...slog.Attr) {
	if logger == nil {
		return
	}
	logger.LogAttrs(context.Background(), slog.LevelError, msg, append([]slog.Attr{Err(err)}, attrs...)...)
}

// LogStep logs the outcome of a job step at info level. A zero "duration"
// attribute is left out so partial summaries stay readable.
func LogStep(logger *slog.Logger, step string, attrs ...slog.Attr) {
	if logger == nil {
		return
	}
	kept := attrs[:0:0]
	for _, a := range attrs {
		if a.Key == "duration" && a.Value.Kind() == slog.KindDuration && a.Value.Duration() == 0 {
			continue
		}
		kept = append(kept, a)
	}
	logger.LogAttrs(context.Background(), slog.LevelInfo, step, kept...)
}

// CompletedRequest describes a served HTTP request.
type CompletedRequest struct {
	Method  string
	Path    string
	Status  int
	Bytes   int
	Elapsed time.Duration
}

// LogRequest writes the access line of a request. The request id comes
// from the logger stored by WithRequest.
func LogRequest(ctx context.Context, req CompletedRequest) {
	FromContext(ctx).LogAttrs(ctx, slog.LevelInfo, "http_request",
		slog.String("method", req.Method),
		slog.String("path", req.Path),
		slog.Int("status", req.Status),
		slog.Int("bytes", req.Bytes),
		slog.Float64("duration_ms", float64(req.Elapsed.Microseconds())/1000))
}

// CloseQuietly closes c and logs a failure instead of returning it. what
// names the resource, e.g. "relational_source".
func CloseQuietly(c io.Closer, logger *slog.Logger, what string) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		LogError(logger, "failed to close resource", err, slog.String("resource", what))
	}
}

type loggerKey struct{}

// WithRequest stores a logger carrying the request id in ctx.
func WithRequest(ctx context.Context, logger *slog.Logger, requestID string) context.Context {
	if logger == nil {
		logger = slog.Default()
	}
	return context.WithValue(ctx, loggerKey{}, logger.With(RequestID(requestID)))
}

// FromContext returns the request logger, or the default logger outside
// a request.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
