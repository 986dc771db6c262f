// Package api exposes the token lifecycle over HTTP: issuing, refreshing
// and revoking access tokens, plus health and metrics endpoints. Every
// route is gated by the permission chain through the access middleware.
package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/gatehouse/pkg/cache"
	"github.com/platinummonkey/gatehouse/pkg/claims"
	"github.com/platinummonkey/gatehouse/pkg/httputil"
	"github.com/platinummonkey/gatehouse/pkg/middleware"
	"github.com/platinummonkey/gatehouse/pkg/observability"
)

// Webservice IDs the server's own routes are gated behind. The registry
// must carry descriptors for these.
const (
	WebserviceIssueToken   = "issue_token"
	WebserviceRefreshToken = "refresh_token"
	WebserviceRevokeToken  = "revoke_token"
	WebserviceRevokeUser   = "revoke_user_tokens"
	WebserviceReadClaims   = "read_claims"
)

// UserSource resolves user records for claims generation.
type UserSource interface {
	GetUser(ctx context.Context, userID string) (*claims.User, error)
}

// Server holds the handler dependencies.
type Server struct {
	log       *logrus.Logger
	metrics   *observability.Metrics
	issuer    *claims.Issuer
	tokens    *cache.TokenCache
	users     UserSource
	generator *claims.Generator
	auth      *middleware.AuthMiddleware
	access    *middleware.AccessMiddleware
	registry  *prometheus.Registry
}

// NewServer creates the API server.
func NewServer(
	log *logrus.Logger,
	metrics *observability.Metrics,
	promRegistry *prometheus.Registry,
	issuer *claims.Issuer,
	tokens *cache.TokenCache,
	users UserSource,
	generator *claims.Generator,
	auth *middleware.AuthMiddleware,
	access *middleware.AccessMiddleware,
) *Server {
	if log == nil {
		log = logrus.New()
	}
	return &Server{
		log:       log,
		metrics:   metrics,
		issuer:    issuer,
		tokens:    tokens,
		users:     users,
		generator: generator,
		auth:      auth,
		access:    access,
		registry:  promRegistry,
	}
}

// Router builds the full route table with middleware applied.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	// Unauthenticated plumbing endpoints.
	router.HandleFunc("/healthz", s.health).Methods("GET")
	if s.registry != nil {
		router.Handle("/metrics", observability.Handler(s.registry)).Methods("GET")
	}

	authed := router.PathPrefix("/auth").Subrouter()
	authed.Use(middleware.RequestID)
	authed.Use(middleware.Observe(s.log, s.metrics))
	authed.Use(s.auth.Handler)

	s.RegisterRoutes(authed)

	return router
}

// RegisterRoutes registers the token lifecycle routes on the router.
func (s *Server) RegisterRoutes(router *mux.Router) {
	router.Handle("/tokens",
		s.access.Require(WebserviceIssueToken)(http.HandlerFunc(s.issueToken))).Methods("POST")
	router.Handle("/tokens/refresh",
		s.access.Require(WebserviceRefreshToken)(http.HandlerFunc(s.refreshToken))).Methods("POST")
	router.Handle("/tokens/current",
		s.access.Require(WebserviceRevokeToken)(http.HandlerFunc(s.revokeToken))).Methods("DELETE")
	router.Handle("/users/{id}/tokens",
		s.access.Require(WebserviceRevokeUser)(http.HandlerFunc(s.revokeUserTokens))).Methods("DELETE")
	router.Handle("/claims",
		s.access.Require(WebserviceReadClaims)(http.HandlerFunc(s.readClaims))).Methods("GET")
}

// health handles GET /healthz
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
