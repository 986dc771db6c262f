package permission

import (
	"context"

	"github.com/platinummonkey/gatehouse/pkg/access"
	"github.com/platinummonkey/gatehouse/pkg/entity"
	"github.com/platinummonkey/gatehouse/pkg/registry"
)

// AnonymousModule gates public webservices. It decides for callers without a
// user identity and rejects connected callers on disconnected-only
// webservices (login, password reset). Service callers are someone else's
// problem.
type AnonymousModule struct{}

// NewAnonymousModule creates the module.
func NewAnonymousModule() *AnonymousModule { return &AnonymousModule{} }

// Name implements Module.
func (m *AnonymousModule) Name() string { return "anonymous" }

// CheckWebservicePermission implements Module.
func (m *AnonymousModule) CheckWebservicePermission(_ context.Context, ws *registry.Descriptor, rc *RequestContext) (Verdict, error) {
	if rc.ServiceCaller != nil {
		return Abstain(), nil
	}
	if rc.ConnectedUser != nil {
		if ws.IsPublic && ws.PublicType == registry.PublicDisconnectedOnly {
			return Deny(ErrAlreadyConnected), nil
		}
		return Abstain(), nil
	}
	if ws.IsPublic {
		return Grant(access.Full()), nil
	}
	// Anonymous caller on a non-public webservice: decisive, no later
	// module can grant without an identity.
	return Deny(ErrPermissionDenied), nil
}

// AddStatementConstraints implements Module; public access is never scoped.
func (m *AnonymousModule) AddStatementConstraints(_ context.Context, _ *entity.Query, _ *entity.OrConditions, _ *RequestContext, _ *entity.Descriptor) error {
	return nil
}
