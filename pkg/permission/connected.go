package permission

import (
	"context"

	"github.com/platinummonkey/gatehouse/pkg/access"
	"github.com/platinummonkey/gatehouse/pkg/entity"
	"github.com/platinummonkey/gatehouse/pkg/registry"
)

// ConnectedModule answers for authenticated users based purely on the
// webservice's declared access levels: CONNECTED earns full access for any
// authenticated caller, OWNER earns owner-scoped access. Higher levels
// (role, organization role) are left to the modules that can verify them.
type ConnectedModule struct{}

// NewConnectedModule creates the module.
func NewConnectedModule() *ConnectedModule { return &ConnectedModule{} }

// Name implements Module.
func (m *ConnectedModule) Name() string { return "connected" }

// CheckWebservicePermission implements Module.
func (m *ConnectedModule) CheckWebservicePermission(_ context.Context, ws *registry.Descriptor, rc *RequestContext) (Verdict, error) {
	if rc.ConnectedUser == nil {
		return Abstain(), nil
	}
	if rc.ConnectedUser.IsSuperUser {
		return Grant(access.Full()), nil
	}
	if ws.IsPublic && ws.PublicType == registry.PublicOpen {
		return Grant(access.Full()), nil
	}
	if ws.HasAccessLevel(registry.AccessLevelConnected) {
		return Grant(access.Full()), nil
	}
	if ws.HasAccessLevel(registry.AccessLevelOwner) {
		return Grant(access.Scoped(access.OwnerScope())), nil
	}
	return Abstain(), nil
}

// AddStatementConstraints implements Module; owns the owner scope key.
func (m *ConnectedModule) AddStatementConstraints(_ context.Context, q *entity.Query, or *entity.OrConditions, rc *RequestContext, desc *entity.Descriptor) error {
	return addOwnerConstraints(q, or, rc, desc)
}
