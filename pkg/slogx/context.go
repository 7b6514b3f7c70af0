package slogx

import (
	"context"
	"log/slog"
	"sync"
)

type (
	loggerKey struct{}
	fieldsKey struct{}
)

func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the request logger, or slog.Default outside a request.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// requestFields collects what handlers learn about a request (the
// authenticated client, the session user) for its access log line.
type requestFields struct {
	mu    sync.Mutex
	attrs []any
}

func (f *requestFields) add(args []any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attrs = append(f.attrs, args...)
}

func (f *requestFields) snapshot() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]any(nil), f.attrs...)
}

// AddRequestAttrs adds key/value pairs to the context logger. Inside
// HTTPMiddleware they also appear on the request's access log line.
func AddRequestAttrs(ctx context.Context, args ...any) context.Context {
	if f, ok := ctx.Value(fieldsKey{}).(*requestFields); ok {
		f.add(args)
	}
	return WithContext(ctx, FromContext(ctx).With(args...))
}
