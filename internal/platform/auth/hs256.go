package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// 短链服务只签发 admin 令牌，role 放在自定义字段里
type linkClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// HS256Service signs tokens with a shared secret.
type HS256Service struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

func NewHS256Service(secret, issuer string, ttl time.Duration) (*HS256Service, error) {
	var errs []error
	if secret == "" {
		errs = append(errs, errors.New("jwt secret is empty"))
	}
	if issuer == "" {
		errs = append(errs, errors.New("jwt issuer is empty"))
	}
	if ttl <= 0 {
		errs = append(errs, errors.New("jwt ttl must be > 0"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	h := &HS256Service{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
	h.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return h.now() }),
	)
	return h, nil
}

func (h *HS256Service) Issue(subject, role string) (Grant, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return Grant{}, errors.New("empty subject")
	}
	if role == "" {
		return Grant{}, errors.New("empty role")
	}
	now := h.now().Truncate(time.Second)
	g := Grant{
		Identity: Identity{Subject: subject, Role: role, ExpiresAt: now.Add(h.ttl)},
		IssuedAt: now,
		TokenID:  uuid.NewString(),
	}
	claims := linkClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        g.TokenID,
			Issuer:    h.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(g.Identity.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.secret)
	if err != nil {
		return Grant{}, fmt.Errorf("sign token: %w", err)
	}
	g.Token = token
	return g, nil
}

func (h *HS256Service) Authenticate(token string) (Identity, error) {
	var c linkClaims
	if _, err := h.parser.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return h.secret, nil
	}); err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if c.Subject == "" || c.Role == "" {
		return Identity{}, fmt.Errorf("%w: missing subject or role", ErrInvalidToken)
	}
	return Identity{Subject: c.Subject, Role: c.Role, ExpiresAt: c.ExpiresAt.Time}, nil
}
