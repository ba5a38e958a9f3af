package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"shortlink.local/internal/app/shortlink"
)

// LinkCounters is the shortlink.Recorder behind the two service counters. They only go up
// and start from zero on every process start.
type LinkCounters struct {
	created    prometheus.Counter
	redirected prometheus.Counter
}

// NewLinkCounters registers links_created_total and redirects_total on reg.
func NewLinkCounters(reg prometheus.Registerer) (*LinkCounters, error) {
	c := &LinkCounters{
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "links_created_total",
			Help: "Short links created since start.",
		}),
		redirected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "redirects_total",
			Help: "Successful short link resolutions since start.",
		}),
	}
	if err := reg.Register(c.created); err != nil {
		return nil, err
	}
	if err := reg.Register(c.redirected); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *LinkCounters) LinkCreated(shortlink.Link) { c.created.Inc() }

func (c *LinkCounters) Redirected(shortlink.Link) { c.redirected.Inc() }

// Collectors exposes the underlying counters, mostly for tests.
func (c *LinkCounters) Collectors() (created, redirected prometheus.Counter) {
	return c.created, c.redirected
}
