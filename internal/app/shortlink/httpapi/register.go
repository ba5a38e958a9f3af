package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"shortlink.local/internal/platform/auth"
	"shortlink.local/internal/platform/httpmiddleware"
)

// RouteConfig 是挂载路由时需要的传输层配置。
type RouteConfig struct {
	// BaseURL 不为空时用于拼接 short_url，否则从请求推导
	BaseURL string

	// Limiter 为 nil 或对应 limit <= 0 时不限流
	Limiter       httpmiddleware.Allower
	CreateLimit   int // 每 IP 每分钟
	RedirectLimit int

	// Tokens 不为 nil 时，列表接口需要 admin 角色的 JWT
	Tokens auth.TokenService
}

func (c RouteConfig) createLimit() func(http.Handler) http.Handler {
	return httpmiddleware.RateLimit(c.Limiter, "create", c.CreateLimit, time.Minute)
}

func (c RouteConfig) redirectLimit() func(http.Handler) http.Handler {
	return httpmiddleware.RateLimit(c.Limiter, "redirect", c.RedirectLimit, time.Minute)
}

func (c RouteConfig) listGuard(r chi.Router) chi.Router {
	if c.Tokens == nil {
		return r
	}
	return r.With(httpmiddleware.RequireRole(c.Tokens, auth.RoleAdmin))
}

// RegisterAPIRoutes 在 api 路由（通常是 /api/v1）下挂载 JSON 接口。
//
// 本包只做传输层：解码、调用 Shortener、错误映射。领域逻辑在 internal/app/shortlink。
func RegisterAPIRoutes(api chi.Router, svc Shortener, cfg RouteConfig) {
	api.With(cfg.createLimit()).Post("/shortlinks", NewCreateHandler(svc, cfg.BaseURL))
	cfg.listGuard(api).Get("/shortlinks", NewListHandler(svc))
}

// RegisterPublicRoutes 在根路由上挂载跳转入口 GET /{code}，方便直接在浏览器访问。
func RegisterPublicRoutes(r chi.Router, svc Shortener, cfg RouteConfig) {
	r.With(cfg.redirectLimit()).Get("/{code}", NewRedirectHandler(svc))
}

// RegisterLegacyRoutes keeps the first-generation paths (/encurtar, /api/links) working
// for existing clients.
func RegisterLegacyRoutes(r chi.Router, svc Shortener, cfg RouteConfig) {
	r.With(cfg.createLimit()).Post("/encurtar", NewLegacyCreateHandler(svc, cfg.BaseURL))
	cfg.listGuard(r).Get("/api/links", NewListHandler(svc))
}
