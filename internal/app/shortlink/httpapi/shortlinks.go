package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"shortlink.local/internal/app/shortlink"
	"shortlink.local/internal/platform/httpx"
)

// Shortener is what the handlers need from shortlink.Service.
type Shortener interface {
	Shorten(ctx context.Context, destinationURL string) (string, error)
	Resolve(ctx context.Context, code string) (string, error)
	ListAll(ctx context.Context) (shortlink.Snapshot, error)
}

type ShortLinksRequest struct {
	URL string `json:"url"`
}

type ShortLinksResponse struct {
	Code     string `json:"code"`
	ShortURL string `json:"short_url"`
	URL      string `json:"url"`
}

func NewCreateHandler(svc Shortener, baseURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ShortLinksRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Error(w, r, http.StatusBadRequest, "invalid json body")
			return
		}
		code, err := svc.Shorten(r.Context(), req.URL)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusCreated, ShortLinksResponse{
			Code:     code,
			ShortURL: shortURL(r, baseURL, code),
			URL:      req.URL,
		})
	}
}

func NewRedirectHandler(svc Shortener) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		url, err := svc.Resolve(r.Context(), chi.URLParam(r, "code"))
		if shortlink.IsNotFound(err) {
			// 跳转入口沿用最初的错误格式
			httpx.JSON(w, http.StatusNotFound, legacyError{Erro: msgLegacyNotFound})
			return
		}
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		// 原样写入 Location，不走 http.Redirect 的路径清理
		w.Header().Set("Location", url)
		w.WriteHeader(http.StatusFound)
	}
}

func NewListHandler(svc Shortener) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := svc.ListAll(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusOK, snap)
	}
}

// writeServiceError 把领域错误映射为 HTTP 状态码
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "shortlink request failed", "err", err, "path", r.URL.Path)
	}
	httpx.Error(w, r, status, msg)
}

func statusFor(err error) (int, string) {
	switch {
	case shortlink.IsInvalidInput(err):
		return http.StatusBadRequest, err.Error()
	case shortlink.IsNotFound(err):
		return http.StatusNotFound, "url not found"
	case shortlink.IsUnavailable(err):
		return http.StatusServiceUnavailable, "service unavailable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func shortURL(r *http.Request, baseURL, code string) string {
	if baseURL != "" {
		return strings.TrimRight(baseURL, "/") + "/" + code
	}
	path := "/" + code
	if r.Host == "" {
		return path
	}
	scheme := r.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		scheme = "http"
		if r.TLS != nil {
			scheme = "https"
		}
	}
	return scheme + "://" + r.Host + path
}
