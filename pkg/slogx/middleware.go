package slogx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/oauthd/pkg/idx"
)

const RequestIDHeader = "X-Request-ID"

// HTTPMiddleware gives every request a logger carrying req_id and writes one
// access log line when it completes. The request id comes from X-Request-ID
// when the caller sent one and is echoed in the response. Requests to the
// quiet paths (probes, scrapes) log at debug.
func HTTPMiddleware(base *slog.Logger, quiet ...string) func(http.Handler) http.Handler {
	quietPaths := make(map[string]struct{}, len(quiet))
	for _, p := range quiet {
		quietPaths[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqID := r.Header.Get(RequestIDHeader)
			if reqID == "" {
				reqID = idx.New().String()
			}
			w.Header().Set(RequestIDHeader, reqID)

			logger := base.With(
				"req_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
			)

			fields := &requestFields{}
			ctx := context.WithValue(r.Context(), fieldsKey{}, fields)
			ctx = WithContext(ctx, logger)

			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r.WithContext(ctx))

			level := slog.LevelInfo
			switch {
			case rw.status >= 500:
				level = slog.LevelError
			case rw.status >= 400:
				level = slog.LevelWarn
			}
			if _, ok := quietPaths[r.URL.Path]; ok && level == slog.LevelInfo {
				level = slog.LevelDebug
			}

			args := append([]any{
				"status", rw.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			}, fields.snapshot()...)
			logger.Log(ctx, level, "http_request", args...)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter

	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
