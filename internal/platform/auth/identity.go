package auth

import (
	"context"
	"time"
)

// RoleAdmin guards the link listing routes when admin auth is enabled.
const RoleAdmin = "admin"

// Identity is the verified caller attached to a request context.
type Identity struct {
	Subject   string
	Role      string
	ExpiresAt time.Time
}

func (id Identity) Has(role string) bool {
	return role != "" && id.Role == role
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func GetIdentity(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
