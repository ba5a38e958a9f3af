package httpmiddleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"shortlink.local/internal/platform/auth"
	"shortlink.local/internal/platform/httpx"
)

// parseBearer 解析 Authorization header 中的 Bearer token，格式不正确返回空字符串
func parseBearer(header string) string {
	fields := strings.Fields(header)
	if len(fields) != 2 || !strings.EqualFold(fields[0], "Bearer") {
		return ""
	}
	return fields[1]
}

// RequireRole 要求请求携带有效且具有 role 的 token；身份写入 context。
// 401 for a missing or invalid token, 403 for a valid token without the role.
func RequireRole(ts auth.TokenService, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				httpx.Error(w, r, http.StatusUnauthorized, "missing authorization header")
				return
			}
			token := parseBearer(header)
			if token == "" {
				httpx.Error(w, r, http.StatusUnauthorized, "invalid authorization format")
				return
			}
			id, err := auth.Authorize(ts, token, role)
			switch {
			case errors.Is(err, auth.ErrForbidden):
				slog.WarnContext(r.Context(), "role check failed", "subject", id.Subject, "role", id.Role, "want", role)
				httpx.Error(w, r, http.StatusForbidden, "forbidden")
				return
			case err != nil:
				httpx.Error(w, r, http.StatusUnauthorized, "invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}
