package permission

import (
	"context"
	"fmt"

	"github.com/platinummonkey/gatehouse/pkg/access"
	"github.com/platinummonkey/gatehouse/pkg/entity"
	"github.com/platinummonkey/gatehouse/pkg/registry"
)

// OrgRoleGrants resolves which organizations grant a user access to a
// webservice through an organization role.
type OrgRoleGrants interface {
	UserOrgRolesForWebservice(ctx context.Context, userID, webserviceID string) (access.OrgScope, error)
}

// OrgRoleModule grants organization-scoped access from organization role
// grants. When a license module sits in the same chain, this module yields
// licensed webservices to it entirely so an expired subscription can never
// be widened back by an unfiltered grant.
type OrgRoleModule struct {
	grants       OrgRoleGrants
	skipLicensed bool
}

// NewOrgRoleModule creates the module. skipLicensed must be set when the
// chain also contains a license module.
func NewOrgRoleModule(grants OrgRoleGrants, skipLicensed bool) (*OrgRoleModule, error) {
	if grants == nil {
		return nil, fmt.Errorf("organization role grant source is required")
	}
	return &OrgRoleModule{grants: grants, skipLicensed: skipLicensed}, nil
}

// Name implements Module.
func (m *OrgRoleModule) Name() string { return "organization_role" }

// CheckWebservicePermission implements Module.
func (m *OrgRoleModule) CheckWebservicePermission(ctx context.Context, ws *registry.Descriptor, rc *RequestContext) (Verdict, error) {
	if rc.ConnectedUser == nil {
		return Abstain(), nil
	}
	if !ws.HasAccessLevel(registry.AccessLevelOrganizationRole) {
		return Abstain(), nil
	}
	if ws.IsLicensed && m.skipLicensed {
		return Abstain(), nil
	}
	orgs, err := m.grants.UserOrgRolesForWebservice(ctx, rc.UserID(), ws.ID)
	if err != nil {
		return Abstain(), fmt.Errorf("failed to resolve organization roles: %w", err)
	}
	if len(orgs) == 0 {
		return Abstain(), nil
	}
	return Grant(access.Scoped(access.OrgRoleScope(orgs))), nil
}

// AddStatementConstraints implements Module; owns the organization scope key
// even when the license module contributed the organization ids.
func (m *OrgRoleModule) AddStatementConstraints(_ context.Context, q *entity.Query, or *entity.OrConditions, rc *RequestContext, desc *entity.Descriptor) error {
	return addOrgConstraints(q, or, rc, desc)
}
