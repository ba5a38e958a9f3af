package httpmiddleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"

	"shortlink.local/internal/platform/httpx"
)

// Recovery turns a handler panic into a logged 500. http.ErrAbortHandler is re-panicked
// so net/http can drop the connection as intended.
func Recovery() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				slog.Error("panic recovered",
					"request_id", r.Header.Get(httpx.RequestIDHeader),
					"method", r.Method,
					"path", r.URL.Path,
					"panic", rec,
					"stack", string(debug.Stack()),
				)
				if ww.Status() != 0 {
					return
				}
				httpx.Error(ww, r, http.StatusInternalServerError, "Internal Server Error")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
