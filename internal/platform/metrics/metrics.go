package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// once 用来保证指标只注册一次。
	// Prometheus 的 registry 不允许重复注册同名指标，否则会直接 panic。
	once sync.Once

	// HTTPRequestsTotal：累计请求数（Counter）。
	//
	// labels：
	// - method：HTTP 方法，例如 GET/POST
	// - route：路由模板（例如 /{code}；不要用真实 path，否则会产生无限 label）
	// - status：HTTP 状态码字符串，例如 "302"/"404"
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDurationSeconds：请求耗时分布（Histogram），用于 P95/P99。
	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency distributions.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// HTTPInflightRequests：当前正在处理中的请求数（Gauge）。
	HTTPInflightRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	// CacheOperations counts shortlink cache lookups by level (l1/l2/bloom) and result.
	CacheOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortlink_cache_operations_total",
			Help: "Shortlink cache lookups by level and result.",
		},
		[]string{"level", "result"},
	)

	// CodeCollisions counts generated candidates that were already taken, by code length.
	CodeCollisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortlink_code_collisions_total",
			Help: "Generated short codes that were already bound.",
		},
		[]string{"length"},
	)

	// EventsDropped counts link events the publisher could not deliver.
	EventsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortlink_events_dropped_total",
			Help: "Link events that could not be published.",
		},
		[]string{"type"},
	)
)

// Init 注册指标：只允许注册一次（否则 panic: duplicate metrics collector registration）
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDurationSeconds,
			HTTPInflightRequests,
			CacheOperations,
			CodeCollisions,
			EventsDropped,
		)
	})
}

// ObserveCollision matches the shortlink.Options.OnCollision hook.
func ObserveCollision(length int) {
	CodeCollisions.WithLabelValues(strconv.Itoa(length)).Inc()
}
