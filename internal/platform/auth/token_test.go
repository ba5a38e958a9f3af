package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, ttl time.Duration) *HS256Service {
	t.Helper()
	ts, err := NewHS256Service("secret", "shortlink", ttl)
	require.NoError(t, err)
	return ts
}

func TestIssueAdmin_RoundTrip(t *testing.T) {
	ts := newTestService(t, time.Hour)
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ts.now = func() time.Time { return clock }

	g, err := IssueAdmin(ts, " ops ")
	require.NoError(t, err)
	assert.NotEmpty(t, g.TokenID)
	assert.Equal(t, Identity{Subject: "ops", Role: RoleAdmin, ExpiresAt: clock.Add(time.Hour)}, g.Identity)

	id, err := Authorize(ts, g.Token, RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "ops", id.Subject)
	assert.True(t, id.ExpiresAt.Equal(clock.Add(time.Hour)))

	other, err := IssueAdmin(ts, "ops")
	require.NoError(t, err)
	assert.NotEqual(t, g.TokenID, other.TokenID)
}

func TestAuthorize_WrongRoleIsForbidden(t *testing.T) {
	ts := newTestService(t, time.Hour)
	g, err := ts.Issue("bob", "viewer")
	require.NoError(t, err)

	id, err := Authorize(ts, g.Token, RoleAdmin)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.NotErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, "bob", id.Subject)
}

func TestAuthenticate_RejectsForeignTokens(t *testing.T) {
	ts := newTestService(t, time.Hour)

	other, err := NewHS256Service("other-secret", "shortlink", time.Hour)
	require.NoError(t, err)
	wrongKey, err := IssueAdmin(other, "ops")
	require.NoError(t, err)

	otherIssuer, err := NewHS256Service("secret", "someone-else", time.Hour)
	require.NoError(t, err)
	wrongIss, err := IssueAdmin(otherIssuer, "ops")
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"iss": "shortlink", "sub": "ops", "role": RoleAdmin,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": "shortlink", "sub": "ops",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"wrong key":    wrongKey.Token,
		"wrong issuer": wrongIss.Token,
		"alg none":     none,
		"no role":      noRole,
		"garbage":      "not.a.token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ts.Authenticate(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestAuthenticate_RejectsExpired(t *testing.T) {
	ts := newTestService(t, time.Minute)
	start := time.Now()
	ts.now = func() time.Time { return start }
	g, err := IssueAdmin(ts, "ops")
	require.NoError(t, err)

	ts.now = func() time.Time { return start.Add(2 * time.Minute) }
	_, err = ts.Authenticate(g.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestIssue_Validates(t *testing.T) {
	ts := newTestService(t, time.Hour)
	_, err := ts.Issue("  ", RoleAdmin)
	assert.Error(t, err)
	_, err = ts.Issue("ops", "")
	assert.Error(t, err)
}

func TestNewHS256Service_Validates(t *testing.T) {
	_, err := NewHS256Service("", "", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secret")
	assert.Contains(t, err.Error(), "issuer")
	assert.Contains(t, err.Error(), "ttl")
}

func TestIdentityHas(t *testing.T) {
	assert.True(t, Identity{Role: RoleAdmin}.Has(RoleAdmin))
	assert.False(t, Identity{Role: "viewer"}.Has(RoleAdmin))
	assert.False(t, Identity{}.Has(""))
}
