package httpmiddleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"shortlink.local/internal/platform/httpx"
)

func AccessLog() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			slog.Info("access",
				"request_id", r.Header.Get(httpx.RequestIDHeader),
				"method", r.Method,
				"route", routePattern(r),
				"path", r.URL.Path,
				"status", status(ww),
				"bytes", ww.BytesWritten(),
				"latency_ms", time.Since(start).Milliseconds())
		})
	}
}
