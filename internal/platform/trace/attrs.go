package trace

import "go.opentelemetry.io/otel/attribute"

// Span attribute keys for shortlink operations.
const (
	AttrCode     = attribute.Key("shortlink.code")
	AttrAttempts = attribute.Key("shortlink.attempts")
	AttrCount    = attribute.Key("shortlink.count")
)
