package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"shortlink.local/internal/app/shortlink"
	"shortlink.local/internal/app/shortlink/events"
	shortlinkhttpapi "shortlink.local/internal/app/shortlink/httpapi"
	"shortlink.local/internal/platform/auth"
	"shortlink.local/internal/platform/config"
	"shortlink.local/internal/platform/httpmiddleware"
	"shortlink.local/internal/platform/httpserver"
	"shortlink.local/internal/platform/metrics"
	"shortlink.local/internal/platform/ratelimit"
	"shortlink.local/internal/platform/trace"
)

var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	slog.SetDefault(slog.New(newLogHandler(cfg)))

	metrics.Init()

	ctx := context.Background()
	be, err := openBackend(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer be.Close()

	//计数器
	counters, err := metrics.NewLinkCounters(prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatal(err)
	}

	//事件发布（根据配置选择 Kafka 或日志）
	var publisher events.Publisher
	if cfg.KafkaEnabled {
		slog.Info("publishing link events to kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	} else {
		publisher = events.LogPublisher{}
	}
	eventRecorder := events.NewRecorder(publisher, 10000)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := eventRecorder.Close(ctx); err != nil {
			slog.Error("close event publisher failed", "err", err)
		}
	}()

	opts := shortlink.Options{
		CodeLength:    cfg.CodeLength,
		MaxCodeLength: cfg.CodeMaxLength,
		EscalateAfter: cfg.CodeEscalateAfter,
		MaxAttempts:   cfg.CodeMaxAttempts,
		Recorder:      shortlink.MultiRecorder{counters, eventRecorder},
		OnCollision:   metrics.ObserveCollision,
	}
	if cfg.StrictURLs {
		opts.Validator = shortlink.ValidateURL
	}
	svc := shortlink.NewService(be.store, nil, opts)

	if cfg.TracingEnabled {
		shutdown, err := trace.InitTrace(cfg.OtlpGrpcEndpoint, cfg.OtlpServiceName)
		if err != nil {
			slog.Error("trace init failed", "err", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					slog.Error("trace shutdown failed", "err", err)
				}
			}()
		}
	} else {
		slog.Warn("tracing disabled by config", "TRACING_ENABLED", false)
	}

	//限流器；保持接口为 nil，避免 typed-nil
	var limiter httpmiddleware.Allower
	if cfg.RateLimitEnabled {
		limiter = ratelimit.NewLimiter(be.redis)
	} else {
		slog.Warn("rate limit disabled by config", "RATELIMIT_ENABLED", false)
	}

	routes := shortlinkhttpapi.RouteConfig{
		BaseURL:       cfg.BaseURL,
		Limiter:       limiter,
		CreateLimit:   cfg.CreateRateLimit,
		RedirectLimit: cfg.RedirectRateLimit,
	}
	if cfg.AdminAuthEnabled {
		ts, err := auth.NewHS256Service(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
		if err != nil {
			log.Fatal(err)
		}
		routes.Tokens = ts
	}

	// 对外业务
	r := chi.NewRouter()
	r.Use(httpmiddleware.Recovery(), httpmiddleware.ReqID(), httpmiddleware.AccessLog(), httpmiddleware.Metrics(), httpmiddleware.TraceName())

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Route("/api/v1", func(api chi.Router) {
		shortlinkhttpapi.RegisterAPIRoutes(api, svc, routes)
	})
	shortlinkhttpapi.RegisterLegacyRoutes(r, svc, routes)
	shortlinkhttpapi.RegisterPublicRoutes(r, svc, routes)

	publicHandler := http.Handler(r)
	if cfg.TracingEnabled {
		publicHandler = otelhttp.NewHandler(r, "http")
	}
	publicSrv := httpserver.New(cfg, publicHandler)
	adminSrv := httpserver.NewAdmin(cfg, adminMux(cfg, be))

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errch := make(chan error, 2)
	go func() {
		errch <- httpserver.RunWithGracefulShutdownContext(publicSrv, cfg.ShutdownTimeout, stopCtx)
	}()
	go func() {
		errch <- httpserver.RunWithGracefulShutdownContext(adminSrv, cfg.ShutdownTimeout, stopCtx)
	}()

	err = <-errch
	stop()
	select {
	case <-errch:
	case <-time.After(cfg.ShutdownTimeout + time.Second):
	}
	if err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func newLogHandler(cfg config.Config) slog.Handler {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "text" {
		return slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.NewJSONHandler(os.Stdout, opts).WithAttrs([]slog.Attr{slog.String("service", cfg.ServiceName)})
}

// 仅本机/内网
func adminMux(cfg config.Config, be *backend) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	// 存储连接状态检测
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := be.ping.Ping(ctx); err != nil {
			slog.Warn("readiness check failed", "err", err, "backend", cfg.StoreBackend)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("store ping failed"))
			return
		}
		if be.redis != nil {
			if err := be.redis.Ping(ctx).Err(); err != nil {
				slog.Warn("readiness check failed", "err", err, "component", "redis")
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("redis ping failed"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"service_name": cfg.ServiceName,
			"version":      version,
			"commit":       commit,
			"build_time":   buildTime,
			"go_version":   runtime.Version(),
			"store":        cfg.StoreBackend,
		})
	})

	if cfg.PprofEnabled {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return mux
}
