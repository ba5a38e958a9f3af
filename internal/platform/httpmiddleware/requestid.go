package httpmiddleware

import (
	"net/http"

	"github.com/google/uuid"

	"shortlink.local/internal/platform/httpx"
)

// ReqID keeps an incoming X-Request-ID or mints a uuid, and echoes it on the response.
// The id is written back into the request header so later handlers read it from there.
func ReqID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(httpx.RequestIDHeader)
			if id == "" || len(id) > 128 {
				id = uuid.NewString()
				r.Header.Set(httpx.RequestIDHeader, id)
			}
			w.Header().Set(httpx.RequestIDHeader, id)
			next.ServeHTTP(w, r)
		})
	}
}
