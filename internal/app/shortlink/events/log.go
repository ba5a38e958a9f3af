package events

import (
	"context"
	"log/slog"
)

// LogPublisher writes events to the default logger at debug level. Used when Kafka is off.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, e Event) error {
	slog.DebugContext(ctx, "link event", "type", e.Type, "code", e.Code, "url", e.URL, "at", e.At)
	return nil
}

func (LogPublisher) Close() error { return nil }
