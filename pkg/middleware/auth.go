// Package middleware wires authentication and authorization into the HTTP
// layer: bearer token verification, revocation checks, xsrf protection for
// cookie transport, and the permission chain gate per webservice.
package middleware

import (
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/gatehouse/pkg/cache"
	"github.com/platinummonkey/gatehouse/pkg/claims"
	"github.com/platinummonkey/gatehouse/pkg/contextkeys"
	"github.com/platinummonkey/gatehouse/pkg/httputil"
	"github.com/platinummonkey/gatehouse/pkg/observability"
	"github.com/platinummonkey/gatehouse/pkg/permission"
)

const (
	// AccessTokenCookie carries the token for browser clients. Cookie
	// transport requires the xsrf header on mutating requests.
	AccessTokenCookie = "access_token"
	// XSRFTokenHeader must echo the xsrf token bound to the cookie token.
	XSRFTokenHeader = "X-XSRF-Token"

	serviceIDHeader    = "X-Service-ID"
	serviceTokenHeader = "X-Service-Token"
)

// AuthMiddleware resolves the caller identity for every request. It never
// rejects anonymous callers; deciding whether anonymous access suffices is
// the permission chain's job.
type AuthMiddleware struct {
	issuer        *claims.Issuer
	tokens        *cache.TokenCache
	serviceTokens map[string]string
	log           *logrus.Logger
	metrics       *observability.Metrics
}

// NewAuthMiddleware creates the middleware. tokens may be nil (no
// revocation checks); serviceTokens maps service id to its shared secret.
func NewAuthMiddleware(issuer *claims.Issuer, tokens *cache.TokenCache, serviceTokens map[string]string, log *logrus.Logger) *AuthMiddleware {
	if log == nil {
		log = logrus.New()
	}
	return &AuthMiddleware{
		issuer:        issuer,
		tokens:        tokens,
		serviceTokens: serviceTokens,
		log:           log,
	}
}

// WithMetrics enables rejection counters. Returns the receiver.
func (m *AuthMiddleware) WithMetrics(metrics *observability.Metrics) *AuthMiddleware {
	m.metrics = metrics
	return m
}

// Handler wraps next with caller identification.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc := &permission.RequestContext{}

		if caller := m.serviceCaller(r); caller != nil {
			rc.ServiceCaller = caller
			ctx := contextkeys.WithRequestContext(r.Context(), rc)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		encoded, fromCookie := m.extractToken(r)
		if encoded == "" {
			ctx := contextkeys.WithRequestContext(r.Context(), rc)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		token, err := m.issuer.Verify(encoded)
		if err != nil {
			m.reject("invalid")
			m.unauthorized(w, "invalid or expired token")
			return
		}
		if rejected, message := m.revoked(r, token); rejected {
			m.reject("revoked")
			m.unauthorized(w, message)
			return
		}
		if fromCookie && mutating(r.Method) && r.Header.Get(XSRFTokenHeader) != token.XSRFToken {
			m.reject("xsrf")
			m.unauthorized(w, "missing or invalid xsrf token")
			return
		}

		rc.ConnectedUser = token.Claims
		ctx := contextkeys.WithRequestContext(r.Context(), rc)
		ctx = contextkeys.WithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) serviceCaller(r *http.Request) *permission.ServiceCaller {
	serviceID := r.Header.Get(serviceIDHeader)
	if serviceID == "" {
		return nil
	}
	secret, ok := m.serviceTokens[serviceID]
	if !ok || secret == "" || r.Header.Get(serviceTokenHeader) != secret {
		return nil
	}
	return &permission.ServiceCaller{ServiceID: serviceID}
}

func (m *AuthMiddleware) extractToken(r *http.Request) (encoded string, fromCookie bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1], false
		}
		return "", false
	}
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}
	return "", false
}

func (m *AuthMiddleware) revoked(r *http.Request, token *claims.Token) (bool, string) {
	if m.tokens == nil {
		return false, ""
	}
	ctx := r.Context()
	if revoked, err := m.tokens.IsTokenRevoked(ctx, token.ID); err != nil {
		// Revocation state unavailable: reject rather than honoring a
		// possibly dead token.
		m.log.WithError(err).Error("failed to check token revocation")
		return true, "authorization unavailable"
	} else if revoked {
		return true, "token revoked"
	}
	if revoked, err := m.tokens.IsUserRevoked(ctx, token.Claims.Sub, token.IssuedAt); err != nil {
		m.log.WithError(err).Error("failed to check user revocation")
		return true, "authorization unavailable"
	} else if revoked {
		return true, "token revoked"
	}
	return false, ""
}

func mutating(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

func (m *AuthMiddleware) unauthorized(w http.ResponseWriter, message string) {
	httputil.WriteUnauthorized(w, message)
}

func (m *AuthMiddleware) reject(reason string) {
	if m.metrics != nil {
		m.metrics.TokensRejectedTotal.WithLabelValues(reason).Inc()
	}
}
