package permission

import (
	"github.com/platinummonkey/gatehouse/pkg/access"
	"github.com/platinummonkey/gatehouse/pkg/claims"
)

// ServiceCaller identifies a trusted internal service calling on its own
// behalf rather than on behalf of an end user.
type ServiceCaller struct {
	ServiceID string
}

// RequestContext carries the caller identity through a single request. At
// most one of ConnectedUser and ServiceCaller is set; both nil means the
// caller is anonymous. AccessType is written by the chain as a side effect
// of GetAccessType so later stages (statement constraints, object checks,
// handlers) can read the decision without re-running the chain.
type RequestContext struct {
	ConnectedUser *claims.Claims
	ServiceCaller *ServiceCaller

	AccessType access.Decision
}

// Anonymous reports whether no caller identity is attached.
func (rc *RequestContext) Anonymous() bool {
	return rc.ConnectedUser == nil && rc.ServiceCaller == nil
}

// UserID returns the connected user's subject, or "" when there is none.
func (rc *RequestContext) UserID() string {
	if rc.ConnectedUser == nil {
		return ""
	}
	return rc.ConnectedUser.Sub
}
