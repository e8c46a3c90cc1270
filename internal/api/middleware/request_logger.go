package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"podpal/internal/common"
	"podpal/internal/platform/logging"
	"podpal/internal/platform/metrics"
)

// RequestLogger attaches a request-scoped logger, recovers panics as 500s and
// records one log line and one latency observation per request. It expects
// chi's RequestID middleware to have run first.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqLogger := base.With(
				slog.String("request_id", chiMiddleware.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr),
			)
			ctx := logging.WithLogger(r.Context(), reqLogger)
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					reqLogger.Error("panic recovered", "panic", rec)
					if ww.Status() == 0 {
						common.RespondWithError(ww, http.StatusInternalServerError, "Internal server error")
					}
				}

				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				elapsed := time.Since(start)
				metrics.RecordRequest(r.Method, routePattern(r), strconv.Itoa(status), elapsed)
				reqLogger.Info("request completed",
					slog.Int("status", status),
					slog.Int("bytes", ww.BytesWritten()),
					slog.Duration("duration", elapsed),
				)
			}()

			next.ServeHTTP(ww, r.WithContext(ctx))
		})
	}
}

// routePattern keeps the metric label cardinality bounded by route, not path.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
