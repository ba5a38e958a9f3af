package metrics_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shortlink.local/internal/app/shortlink"
	"shortlink.local/internal/app/shortlink/repo"
	"shortlink.local/internal/platform/metrics"
)

func TestLinkCounters_CountServiceCalls(t *testing.T) {
	reg := prometheus.NewRegistry()
	counters, err := metrics.NewLinkCounters(reg)
	require.NoError(t, err)

	svc := shortlink.NewService(repo.NewMemoryStore(), nil, shortlink.Options{Recorder: counters})
	ctx := context.Background()

	const k, m = 25, 40
	codes := make([]string, k)
	var wg sync.WaitGroup
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			code, err := svc.Shorten(ctx, fmt.Sprintf("https://example.com/%d", i))
			if err != nil {
				t.Errorf("Shorten: %v", err)
			}
			codes[i] = code
		}(i)
	}
	wg.Wait()

	for i := 0; i < m; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := svc.Resolve(ctx, codes[i%k]); err != nil {
				t.Errorf("Resolve: %v", err)
			}
		}(i)
	}
	wg.Wait()

	_, _ = svc.Resolve(ctx, "missing1")
	_, _ = svc.Shorten(ctx, " ")

	created, redirected := counters.Collectors()
	assert.Equal(t, float64(k), testutil.ToFloat64(created))
	assert.Equal(t, float64(m), testutil.ToFloat64(redirected))

	err = testutil.GatherAndCompare(reg, strings.NewReader(fmt.Sprintf(`
# HELP links_created_total Short links created since start.
# TYPE links_created_total counter
links_created_total %d
# HELP redirects_total Successful short link resolutions since start.
# TYPE redirects_total counter
redirects_total %d
`, k, m)))
	assert.NoError(t, err)
}

func TestNewLinkCounters_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := metrics.NewLinkCounters(reg)
	require.NoError(t, err)
	_, err = metrics.NewLinkCounters(reg)
	assert.Error(t, err)
}

func TestObserveCollision(t *testing.T) {
	before := testutil.ToFloat64(metrics.CodeCollisions.WithLabelValues("9"))
	metrics.ObserveCollision(9)
	metrics.ObserveCollision(9)
	assert.Equal(t, before+2, testutil.ToFloat64(metrics.CodeCollisions.WithLabelValues("9")))
}
