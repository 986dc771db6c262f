package middleware

import (
	"net/http"

	"github.com/platinummonkey/gatehouse/pkg/contextkeys"
	"github.com/platinummonkey/gatehouse/pkg/httputil"
	"github.com/platinummonkey/gatehouse/pkg/permission"
)

// AccessMiddleware runs the permission chain for the webservice a route is
// bound to. Denials are generic on purpose; the specifics live in the
// server logs.
type AccessMiddleware struct {
	chain *permission.Chain
}

// NewAccessMiddleware creates the middleware over a configured chain.
func NewAccessMiddleware(chain *permission.Chain) *AccessMiddleware {
	return &AccessMiddleware{chain: chain}
}

// Require gates a route behind the named webservice. The decision is left
// in the request context for handlers that build statement constraints.
func (m *AccessMiddleware) Require(webserviceID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc := contextkeys.RequestContextFrom(r.Context())
			if rc == nil {
				// Auth middleware did not run; treat as anonymous.
				rc = &permission.RequestContext{}
			}

			_, denied := m.chain.GetAccessType(r.Context(), webserviceID, rc)
			if denied != nil {
				httputil.WriteCodedError(w, deniedStatus(denied, rc), denied.Code, denied.Message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func deniedStatus(denied *permission.Error, rc *permission.RequestContext) int {
	switch denied.Code {
	case permission.CodeUnknownWebservice:
		return http.StatusNotFound
	case permission.CodeAlreadyConnected:
		return http.StatusForbidden
	default:
		if rc.Anonymous() {
			return http.StatusUnauthorized
		}
		return http.StatusForbidden
	}
}
