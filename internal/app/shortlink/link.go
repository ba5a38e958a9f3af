package shortlink

import (
	"bytes"
	"context"
	"encoding/json"
)

// Link is the binding between a short code and its destination. It is created once and
// never mutated or removed.
type Link struct {
	Code string
	URL  string
}

// Snapshot is a point-in-time copy of every binding, in insertion order.
type Snapshot []Link

// Map returns the snapshot as a plain code -> url map.
func (s Snapshot) Map() map[string]string {
	m := make(map[string]string, len(s))
	for _, l := range s {
		m[l.Code] = l.URL
	}
	return m
}

// MarshalJSON renders {"code":"url",...} keeping insertion order, which a Go map would lose.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, l := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(l.Code)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(l.URL)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Store is the authoritative code -> url mapping and the owner of the uniqueness invariant.
type Store interface {
	// InsertIfAbsent binds code to url unless code is already bound (to any url).
	// It returns false on a collision; that is not an error. Concurrent calls with the
	// same code never both return true.
	InsertIfAbsent(ctx context.Context, code, url string) (bool, error)
	// Lookup returns the url bound to code, or found == false.
	Lookup(ctx context.Context, code string) (url string, found bool, err error)
	// Snapshot returns a consistent copy of all bindings; partially written entries are
	// never visible.
	Snapshot(ctx context.Context) (Snapshot, error)
}
