// Package contextkeys provides centralized context key definitions
//
// All context keys used across the application are defined here. This
// prevents typos, documents dependencies, and makes key usage discoverable.
package contextkeys

import (
	"context"

	"github.com/platinummonkey/gatehouse/pkg/claims"
	"github.com/platinummonkey/gatehouse/pkg/permission"
)

// Key is the type for context keys to prevent collisions
type Key string

const (
	// RequestContextKey contains *permission.RequestContext
	// Set by: middleware.AuthMiddleware
	// Required by: access middleware, constraint-building handlers
	RequestContextKey Key = "request_context"

	// TokenKey contains *claims.Token
	// Set by: middleware.AuthMiddleware when a bearer token verified
	// Used by: logout handler (revocation), xsrf validation
	TokenKey Key = "access_token"

	// RequestIDKey contains the request ID string (UUID)
	// Set by: middleware.RequestID
	// Used by: logging middleware, error responses
	RequestIDKey Key = "request_id"
)

// WithRequestContext attaches the caller identity to the context.
func WithRequestContext(ctx context.Context, rc *permission.RequestContext) context.Context {
	return context.WithValue(ctx, RequestContextKey, rc)
}

// RequestContextFrom returns the caller identity, or nil.
func RequestContextFrom(ctx context.Context) *permission.RequestContext {
	rc, _ := ctx.Value(RequestContextKey).(*permission.RequestContext)
	return rc
}

// WithToken attaches the verified access token to the context.
func WithToken(ctx context.Context, token *claims.Token) context.Context {
	return context.WithValue(ctx, TokenKey, token)
}

// TokenFrom returns the verified access token, or nil.
func TokenFrom(ctx context.Context) *claims.Token {
	token, _ := ctx.Value(TokenKey).(*claims.Token)
	return token
}

// WithRequestID attaches the request id to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// RequestIDFrom returns the request id, or "".
func RequestIDFrom(ctx context.Context) string {
	requestID, _ := ctx.Value(RequestIDKey).(string)
	return requestID
}
