package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/platinummonkey/gatehouse/pkg/claims"
	"github.com/platinummonkey/gatehouse/pkg/contextkeys"
	"github.com/platinummonkey/gatehouse/pkg/httputil"
	"github.com/platinummonkey/gatehouse/pkg/storage/postgres"
)

// tokenResponse is the wire shape of an issued token.
type tokenResponse struct {
	Token     string    `json:"token"`
	TokenID   string    `json:"token_id"`
	XSRFToken string    `json:"xsrf_token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// claimsResponse echoes the verified claims and token metadata.
type claimsResponse struct {
	Claims    *claims.Claims `json:"claims"`
	TokenID   string         `json:"token_id"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// issueToken handles POST /auth/tokens. Restricted to internal service
// callers: the upstream identity provider authenticates the user, then
// asks for a token carrying the user's derived claims.
func (s *Server) issueToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.UserID == "" {
		httputil.WriteBadRequest(w, "user_id is required")
		return
	}

	issued, ok := s.mintToken(w, r, req.UserID)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, issued)
}

// refreshToken handles POST /auth/tokens/refresh. Claims are re-derived
// from the stores, never copied from the presented token, so grant changes
// take effect at the next refresh. The old token is revoked for its
// remaining lifetime.
func (s *Server) refreshToken(w http.ResponseWriter, r *http.Request) {
	token := contextkeys.TokenFrom(r.Context())
	if token == nil {
		httputil.WriteUnauthorized(w, "a token is required to refresh")
		return
	}

	issued, ok := s.mintToken(w, r, token.Claims.Sub)
	if !ok {
		return
	}

	// Revoke the replaced token only once the new one exists.
	if s.tokens != nil {
		if err := s.tokens.RevokeToken(r.Context(), token.ID, time.Until(token.ExpiresAt)); err != nil {
			// The old token stays valid until expiry; still rotate.
			s.log.WithError(err).Warn("failed to revoke token being refreshed")
		}
	}

	httputil.WriteJSON(w, http.StatusCreated, issued)
}

// mintToken loads the user, derives claims and signs a token. On failure
// the error response has already been written and ok is false.
func (s *Server) mintToken(w http.ResponseWriter, r *http.Request, userID string) (*tokenResponse, bool) {
	user, err := s.users.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			httputil.WriteNotFound(w, "user not found")
			return nil, false
		}
		s.log.WithError(err).Error("failed to load user")
		httputil.WriteInternalError(w)
		return nil, false
	}

	derived, err := s.generator.Generate(r.Context(), user)
	if err != nil {
		s.metrics.ClaimsGeneratedTotal.WithLabelValues("error").Inc()
		s.log.WithError(err).WithField("user", userID).Error("failed to generate claims")
		httputil.WriteInternalError(w)
		return nil, false
	}
	s.metrics.ClaimsGeneratedTotal.WithLabelValues("ok").Inc()

	issued, err := s.issuer.Issue(derived)
	if err != nil {
		s.log.WithError(err).Error("failed to issue token")
		httputil.WriteInternalError(w)
		return nil, false
	}
	s.metrics.TokensIssuedTotal.Inc()

	return &tokenResponse{
		Token:     issued.Encoded,
		TokenID:   issued.ID,
		XSRFToken: issued.XSRFToken,
		ExpiresAt: issued.ExpiresAt,
	}, true
}

// revokeToken handles DELETE /auth/tokens/current. The presented token is
// marked revoked for its remaining lifetime.
func (s *Server) revokeToken(w http.ResponseWriter, r *http.Request) {
	token := contextkeys.TokenFrom(r.Context())
	if token == nil {
		httputil.WriteUnauthorized(w, "a token is required")
		return
	}

	if err := s.tokens.RevokeToken(r.Context(), token.ID, time.Until(token.ExpiresAt)); err != nil {
		s.log.WithError(err).Error("failed to revoke token")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteNoContent(w)
}

// revokeUserTokens handles DELETE /auth/users/{id}/tokens. All tokens the
// user holds right now become invalid; tokens issued afterwards are fine.
func (s *Server) revokeUserTokens(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	if err := s.tokens.RevokeUser(r.Context(), userID, s.issuer.TTL()); err != nil {
		s.log.WithError(err).WithField("user", userID).Error("failed to revoke user tokens")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteNoContent(w)
}

// readClaims handles GET /auth/claims. Resource services use it to debug
// what a token grants.
func (s *Server) readClaims(w http.ResponseWriter, r *http.Request) {
	token := contextkeys.TokenFrom(r.Context())
	if token == nil {
		httputil.WriteUnauthorized(w, "a token is required")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, claimsResponse{
		Claims:    token.Claims,
		TokenID:   token.ID,
		ExpiresAt: token.ExpiresAt,
	})
}
