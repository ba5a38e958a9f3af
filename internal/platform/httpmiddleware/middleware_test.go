package httpmiddleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"shortlink.local/internal/platform/auth"
	"shortlink.local/internal/platform/metrics"
)

func TestRequestID_PreservesIncoming(t *testing.T) {
	r := chi.NewRouter()
	r.Use(ReqID())
	r.Get("/id", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.Header.Get("X-Request-ID")))
	})

	req := httptest.NewRequest(http.MethodGet, "/id", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "abc" {
		t.Fatalf("response X-Request-ID: got %q, want %q", got, "abc")
	}
	if got := rec.Body.String(); got != "abc" {
		t.Fatalf("body: got %q, want %q", got, "abc")
	}
}

func TestRequestID_GeneratesUUIDWhenMissing(t *testing.T) {
	r := chi.NewRouter()
	r.Use(ReqID())
	r.Get("/id", func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/id", nil))

	got := rec.Header().Get("X-Request-ID")
	if _, err := uuid.Parse(got); err != nil {
		t.Fatalf("response X-Request-ID %q is not a uuid: %v", got, err)
	}
}

func TestAccessLog_EmitsJSONFields(t *testing.T) {
	var buf bytes.Buffer
	old := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(old) })

	r := chi.NewRouter()
	r.Use(Recovery(), ReqID(), AccessLog())
	r.Get("/{code}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/abc123", nil)
	req.Header.Set("X-Request-ID", "abc")
	r.ServeHTTP(httptest.NewRecorder(), req)

	var found bool
	dec := json.NewDecoder(&buf)
	for {
		var m map[string]any
		if err := dec.Decode(&m); err != nil {
			break
		}
		if m["msg"] != "access" {
			continue
		}
		found = true
		if m["request_id"] != "abc" {
			t.Fatalf("request_id: got %v, want %q", m["request_id"], "abc")
		}
		if m["route"] != "/{code}" {
			t.Fatalf("route: got %v, want %q", m["route"], "/{code}")
		}
		if m["path"] != "/abc123" {
			t.Fatalf("path: got %v", m["path"])
		}
		if m["status"] != float64(http.StatusFound) {
			t.Fatalf("status: got %v, want %d", m["status"], http.StatusFound)
		}
	}
	if !found {
		t.Fatalf("no access record in %q", buf.String())
	}
}

func TestRecovery_Returns500JSON(t *testing.T) {
	old := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	t.Cleanup(func() { slog.SetDefault(old) })

	r := chi.NewRouter()
	r.Use(Recovery(), ReqID())
	r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set("X-Request-ID", "rid")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v (%q)", err, rec.Body.String())
	}
	if body["request_id"] != "rid" || body["code"] != float64(500) {
		t.Fatalf("body: got %v", body)
	}
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics())
	r.Get("/{code}", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	})

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/{code}", "404")
	before := testutil.ToFloat64(counter)
	for _, p := range []string{"/a1", "/b2", "/c3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}
	if got := testutil.ToFloat64(counter) - before; got != 3 {
		t.Fatalf("http_request_total{route=/{code},status=404}: got +%v, want +3", got)
	}
}

func TestTraceName_RenamesServerSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	old := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(old)
		_ = tp.Shutdown(context.Background())
	})

	r := chi.NewRouter()
	r.Use(TraceName())
	r.Get("/{code}", func(w http.ResponseWriter, r *http.Request) {})

	h := otelhttp.NewHandler(r, "http")
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/xyz789", nil))

	ended := sr.Ended()
	if len(ended) == 0 {
		t.Fatal("no spans recorded")
	}
	if got := ended[len(ended)-1].Name(); got != "GET /{code}" {
		t.Fatalf("span name: got %q, want %q", got, "GET /{code}")
	}
}

type stubLimiter struct {
	allowed    bool
	retryAfter time.Duration
	err        error
	keys       []string
}

func (s *stubLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration, _ string) (bool, time.Duration, error) {
	s.keys = append(s.keys, key)
	return s.allowed, s.retryAfter, s.err
}

func TestRateLimit(t *testing.T) {
	newRouter := func(l Allower) http.Handler {
		r := chi.NewRouter()
		r.With(RateLimit(l, "create", 10, time.Minute)).Get("/t", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("ok"))
		})
		return r
	}
	do := func(h http.Handler) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/t", nil)
		req.RemoteAddr = "127.0.0.1:1234"
		req.Header.Set("CF-Connecting-IP", "203.0.113.10")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	t.Run("allowed", func(t *testing.T) {
		l := &stubLimiter{allowed: true}
		if got := do(newRouter(l)).Code; got != http.StatusOK {
			t.Fatalf("status: got %d, want %d", got, http.StatusOK)
		}
		if len(l.keys) != 1 || l.keys[0] != "rl:create:203.0.113.10" {
			t.Fatalf("keys: got %v", l.keys)
		}
	})

	t.Run("denied", func(t *testing.T) {
		rec := do(newRouter(&stubLimiter{allowed: false, retryAfter: 1500 * time.Millisecond}))
		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("status: got %d, want %d", rec.Code, http.StatusTooManyRequests)
		}
		if got := rec.Header().Get("Retry-After"); got != "2" {
			t.Fatalf("Retry-After: got %q, want %q", got, "2")
		}
	})

	t.Run("redis down fails open", func(t *testing.T) {
		old := slog.Default()
		slog.SetDefault(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
		t.Cleanup(func() { slog.SetDefault(old) })

		rec := do(newRouter(&stubLimiter{err: errors.New("dial tcp: refused")}))
		if rec.Code != http.StatusOK {
			t.Fatalf("status: got %d, want %d", rec.Code, http.StatusOK)
		}
	})

	t.Run("nil limiter", func(t *testing.T) {
		if got := do(newRouter(nil)).Code; got != http.StatusOK {
			t.Fatalf("status: got %d, want %d", got, http.StatusOK)
		}
	})
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{"direct", "198.51.100.7:5555", nil, "198.51.100.7"},
		{"untrusted proxy headers ignored", "198.51.100.7:5555", map[string]string{"X-Forwarded-For": "1.2.3.4"}, "198.51.100.7"},
		{"loopback proxy xff", "127.0.0.1:1", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "203.0.113.5"},
		{"private proxy cf", "10.1.2.3:1", map[string]string{"CF-Connecting-IP": "203.0.113.9"}, "203.0.113.9"},
		{"docker bridge real ip", "172.17.0.1:1", map[string]string{"X-Real-IP": "203.0.113.1"}, "203.0.113.1"},
		{"bad header value", "192.168.1.1:1", map[string]string{"X-Forwarded-For": "nonsense"}, "192.168.1.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := ClientIP(req); got != tt.want {
				t.Fatalf("ClientIP: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	ts, err := auth.NewHS256Service("test-secret-key", "test-issuer", time.Hour)
	if err != nil {
		t.Fatalf("NewHS256Service: %v", err)
	}
	admin, err := auth.IssueAdmin(ts, "ops")
	if err != nil {
		t.Fatalf("IssueAdmin: %v", err)
	}
	viewer, err := ts.Issue("someone", "viewer")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	r := chi.NewRouter()
	r.With(RequireRole(ts, auth.RoleAdmin)).Get("/admin", func(w http.ResponseWriter, r *http.Request) {
		id, _ := auth.GetIdentity(r.Context())
		_, _ = w.Write([]byte(id.Subject))
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"bad format", "Token abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"wrong role", "Bearer " + viewer.Token, http.StatusForbidden},
		{"admin", "bearer " + admin.Token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status: got %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
			if tt.want == http.StatusOK && strings.TrimSpace(rec.Body.String()) != "ops" {
				t.Fatalf("body: got %q", rec.Body.String())
			}
		})
	}
}
