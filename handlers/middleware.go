package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/you/transit-analytics/internal/logging"
)

// RequestLogger logs every request once it completes and makes a
// request-scoped logger available through logging.FromContext.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := logging.WithRequest(r.Context(), logger, middleware.GetReqID(r.Context()))

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logging.LogRequest(ctx, logging.CompletedRequest{
				Method:  r.Method,
				Path:    r.URL.Path,
				Status:  status,
				Bytes:   ww.BytesWritten(),
				Elapsed: time.Since(start),
			})
		})
	}
}
