package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

type statusCapturingResponseWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
}

// tenantNote is placed in the request context by WithAccessLog and filled once the auth layer
// resolves the tenant. Inner handlers may run on another goroutine (http.TimeoutHandler).
type tenantNote struct {
	mu sync.Mutex
	id string
}

func (n *tenantNote) set(id string) {
	n.mu.Lock()
	n.id = id
	n.mu.Unlock()
}

func (n *tenantNote) get() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.id
}

type ctxKeyTenantNote struct{}

func (w *statusCapturingResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusCapturingResponseWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(p)
	w.bytes += int64(n)
	return n, err
}

// NoteTenant records the tenant on the access log entry of the request that owns ctx.
func NoteTenant(ctx context.Context, tenantID string) {
	if n, ok := ctx.Value(ctxKeyTenantNote{}).(*tenantNote); ok {
		n.set(tenantID)
	}
}

func WithAccessLog(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusCapturingResponseWriter{ResponseWriter: w}
			note := &tenantNote{}
			r = r.WithContext(context.WithValue(r.Context(), ctxKeyTenantNote{}, note))

			next.ServeHTTP(sw, r)

			level := slog.LevelInfo
			if sw.status >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, "http request",
				"request_id", RequestIDFromContext(r.Context()),
				"tenant_id", note.get(),
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"bytes", sw.bytes,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
