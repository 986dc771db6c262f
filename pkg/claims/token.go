package claims

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// XSRFTokenBytes is the entropy of the anti-forgery token carried alongside
// the access claims.
const XSRFTokenBytes = 32

// tokenClaims is the full signed payload: the authorization claims plus the
// transport fields (jti, exp, xsrf) that are outside the authorization
// semantics. Sub is redeclared here because Claims.Sub and
// RegisteredClaims.Subject both encode as "sub"; the promoted pair would
// conflict and the subject would be dropped from the signed payload.
type tokenClaims struct {
	Claims
	Sub       string `json:"sub"`
	XSRFToken string `json:"xsrf_token"`
	jwt.RegisteredClaims
}

// IssuedToken is the result of signing one claims payload.
type IssuedToken struct {
	Encoded   string
	ID        string
	XSRFToken string
	ExpiresAt time.Time
}

// Token is a verified access token.
type Token struct {
	Claims    *Claims
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
	XSRFToken string
}

// Issuer signs and verifies access tokens embedding the claims payload.
// Tokens are immutable for their lifetime; refresh re-derives the claims
// from scratch instead of patching them.
type Issuer struct {
	key []byte
	ttl time.Duration
}

// NewIssuer creates an issuer with an HMAC signing key and token lifetime.
func NewIssuer(key []byte, ttl time.Duration) (*Issuer, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("token signing key is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive")
	}
	return &Issuer{key: key, ttl: ttl}, nil
}

// TTL returns the lifetime of issued tokens.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue signs the claims into a token with a fresh id and xsrf token.
func (i *Issuer) Issue(c *Claims) (*IssuedToken, error) {
	xsrfToken, err := generateXSRFToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	expiresAt := now.Add(i.ttl)
	id := uuid.NewString()
	payload := tokenClaims{
		Claims:    *c,
		Sub:       c.Sub,
		XSRFToken: xsrfToken,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	encoded, err := jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString(i.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	return &IssuedToken{Encoded: encoded, ID: id, XSRFToken: xsrfToken, ExpiresAt: expiresAt}, nil
}

// Verify parses and validates a token.
func (i *Issuer) Verify(token string) (*Token, error) {
	var payload tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &payload, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("invalid access token")
	}

	c := payload.Claims
	c.Sub = payload.Sub
	out := &Token{
		Claims:    &c,
		ID:        payload.ID,
		XSRFToken: payload.XSRFToken,
	}
	if payload.IssuedAt != nil {
		out.IssuedAt = payload.IssuedAt.Time
	}
	if payload.ExpiresAt != nil {
		out.ExpiresAt = payload.ExpiresAt.Time
	}
	return out, nil
}

func generateXSRFToken() (string, error) {
	buf := make([]byte, XSRFTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate xsrf token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
