package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"shortlink.local/internal/app/shortlink"
	"shortlink.local/internal/platform/metrics"
)

const publishTimeout = 5 * time.Second

// Recorder adapts a Publisher to shortlink.Recorder. Events go through a bounded buffer
// drained by one goroutine; when the buffer is full the event is dropped and counted.
type Recorder struct {
	pub Publisher
	now func() time.Time

	mu     sync.RWMutex
	closed bool
	ch     chan Event
	done   chan struct{}
}

func NewRecorder(pub Publisher, bufferSize int) *Recorder {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	r := &Recorder{
		pub:  pub,
		now:  time.Now,
		ch:   make(chan Event, bufferSize),
		done: make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *Recorder) LinkCreated(l shortlink.Link) {
	r.emit(Event{Type: TypeLinkCreated, Code: l.Code, URL: l.URL, At: r.now().UTC()})
}

func (r *Recorder) Redirected(l shortlink.Link) {
	r.emit(Event{Type: TypeLinkRedirected, Code: l.Code, URL: l.URL, At: r.now().UTC()})
}

func (r *Recorder) emit(e Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		metrics.EventsDropped.WithLabelValues(e.Type).Inc()
		return
	}
	select {
	case r.ch <- e:
	default:
		// 缓冲区满了，丢弃
		metrics.EventsDropped.WithLabelValues(e.Type).Inc()
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for e := range r.ch {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := r.pub.Publish(ctx, e); err != nil {
			slog.Warn("publish link event failed", "err", err, "type", e.Type, "code", e.Code)
		}
		cancel()
	}
}

// Close stops accepting events, drains the buffer and closes the publisher.
// It waits at most until ctx is done for the drain.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.ch)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
	case <-ctx.Done():
		slog.Warn("link event drain interrupted", "pending", len(r.ch))
	}
	return r.pub.Close()
}
