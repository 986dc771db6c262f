package permission

import (
	"context"
	"fmt"

	"github.com/platinummonkey/gatehouse/pkg/access"
	"github.com/platinummonkey/gatehouse/pkg/entity"
	"github.com/platinummonkey/gatehouse/pkg/registry"
)

// SubscriptionState narrows an organization scope to the organizations
// covered by an active subscription. How a non-client organization resolves
// to a subscription (a department through its owning client) is the
// implementation's concern.
type SubscriptionState interface {
	FilterLicensed(ctx context.Context, scope access.OrgScope) (access.OrgScope, error)
}

// LicenseModule grants organization-scoped access to licensed webservices,
// but only through organizations holding an active subscription. Unlicensed
// webservices are not its business. It produces the organization ids; the
// organization role module still owns the predicates built from them, so
// this module contributes nothing at statement time.
type LicenseModule struct {
	grants OrgRoleGrants
	subs   SubscriptionState
}

// NewLicenseModule creates the module.
func NewLicenseModule(grants OrgRoleGrants, subs SubscriptionState) (*LicenseModule, error) {
	if grants == nil {
		return nil, fmt.Errorf("organization role grant source is required")
	}
	if subs == nil {
		return nil, fmt.Errorf("subscription state source is required")
	}
	return &LicenseModule{grants: grants, subs: subs}, nil
}

// Name implements Module.
func (m *LicenseModule) Name() string { return "license" }

// CheckWebservicePermission implements Module.
func (m *LicenseModule) CheckWebservicePermission(ctx context.Context, ws *registry.Descriptor, rc *RequestContext) (Verdict, error) {
	if rc.ConnectedUser == nil {
		return Abstain(), nil
	}
	if !ws.IsLicensed {
		return Abstain(), nil
	}
	if !ws.HasAccessLevel(registry.AccessLevelOrganizationRole) {
		return Abstain(), nil
	}
	orgs, err := m.grants.UserOrgRolesForWebservice(ctx, rc.UserID(), ws.ID)
	if err != nil {
		return Abstain(), fmt.Errorf("failed to resolve organization roles: %w", err)
	}
	if len(orgs) == 0 {
		return Abstain(), nil
	}
	licensed, err := m.subs.FilterLicensed(ctx, orgs)
	if err != nil {
		return Abstain(), fmt.Errorf("failed to check subscriptions: %w", err)
	}
	if len(licensed) == 0 {
		return Abstain(), nil
	}
	return Grant(access.Scoped(access.OrgRoleScope(licensed))), nil
}

// AddStatementConstraints implements Module.
func (m *LicenseModule) AddStatementConstraints(_ context.Context, _ *entity.Query, _ *entity.OrConditions, _ *RequestContext, _ *entity.Descriptor) error {
	return nil
}
