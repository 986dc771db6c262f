package permission

import (
	"context"
	"fmt"

	"github.com/platinummonkey/gatehouse/pkg/access"
	"github.com/platinummonkey/gatehouse/pkg/entity"
	"github.com/platinummonkey/gatehouse/pkg/registry"
)

// RoleGrants resolves global role webservice grants for a user.
type RoleGrants interface {
	UserHasRoleWebservice(ctx context.Context, userID, webserviceID string) (bool, error)
}

// RoleModule grants role-scoped access when the connected user holds a
// global role that lists the webservice. Role access carries no row
// filtering; within the webservice the user sees everything.
type RoleModule struct {
	grants RoleGrants
}

// NewRoleModule creates the module over a role grant source.
func NewRoleModule(grants RoleGrants) (*RoleModule, error) {
	if grants == nil {
		return nil, fmt.Errorf("role grant source is required")
	}
	return &RoleModule{grants: grants}, nil
}

// Name implements Module.
func (m *RoleModule) Name() string { return "role" }

// CheckWebservicePermission implements Module.
func (m *RoleModule) CheckWebservicePermission(ctx context.Context, ws *registry.Descriptor, rc *RequestContext) (Verdict, error) {
	if rc.ConnectedUser == nil {
		return Abstain(), nil
	}
	if !ws.HasAccessLevel(registry.AccessLevelRole) {
		return Abstain(), nil
	}
	ok, err := m.grants.UserHasRoleWebservice(ctx, rc.UserID(), ws.ID)
	if err != nil {
		return Abstain(), fmt.Errorf("failed to check role grants: %w", err)
	}
	if !ok {
		return Abstain(), nil
	}
	return Grant(access.Scoped(access.RoleScope())), nil
}

// AddStatementConstraints implements Module; owns the role scope key.
func (m *RoleModule) AddStatementConstraints(_ context.Context, q *entity.Query, or *entity.OrConditions, rc *RequestContext, desc *entity.Descriptor) error {
	return addRoleConstraints(q, or, rc, desc)
}
