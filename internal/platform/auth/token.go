package auth

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidToken: missing, malformed, expired or foreign token (401).
	ErrInvalidToken = errors.New("invalid token")
	// ErrForbidden: the token is valid but lacks the required role (403).
	ErrForbidden = errors.New("forbidden")
)

// Grant is a freshly minted token and what it carries.
type Grant struct {
	Token    string
	Identity Identity
	IssuedAt time.Time
	TokenID  string
}

// TokenService mints and checks bearer tokens for the admin-only routes.
type TokenService interface {
	Issue(subject, role string) (Grant, error)
	// Authenticate returns the identity carried by token. Failures wrap ErrInvalidToken.
	Authenticate(token string) (Identity, error)
}

// IssueAdmin mints a token carrying RoleAdmin, as used by cmd/tools/admintoken.
func IssueAdmin(ts TokenService, subject string) (Grant, error) {
	return ts.Issue(subject, RoleAdmin)
}

// Authorize authenticates token and requires role on it.
func Authorize(ts TokenService, token, role string) (Identity, error) {
	id, err := ts.Authenticate(token)
	if err != nil {
		return Identity{}, err
	}
	if !id.Has(role) {
		return id, fmt.Errorf("%w: %q lacks role %q", ErrForbidden, id.Subject, role)
	}
	return id, nil
}
