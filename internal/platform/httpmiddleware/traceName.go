package httpmiddleware

import (
	"net/http"

	"go.opentelemetry.io/otel/trace"
)

// TraceName renames the otelhttp server span to "METHOD /route/{pattern}" once routing is done.
func TraceName() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			span := trace.SpanFromContext(r.Context())
			span.SetName(r.Method + " " + routePattern(r))
		})
	}
}
