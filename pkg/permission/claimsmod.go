package permission

import (
	"context"

	"github.com/platinummonkey/gatehouse/pkg/access"
	"github.com/platinummonkey/gatehouse/pkg/claims"
	"github.com/platinummonkey/gatehouse/pkg/entity"
	"github.com/platinummonkey/gatehouse/pkg/registry"
)

// ClaimsModule answers from the caller's token claims alone, without any
// database round trip. Resource services run this module instead of the
// store-backed role and organization modules: licensing was already applied
// when the claims were generated, so the organization lists in the token
// are authoritative.
type ClaimsModule struct{}

// NewClaimsModule creates the module.
func NewClaimsModule() *ClaimsModule { return &ClaimsModule{} }

// Name implements Module.
func (m *ClaimsModule) Name() string { return "claims" }

// CheckWebservicePermission implements Module.
func (m *ClaimsModule) CheckWebservicePermission(_ context.Context, ws *registry.Descriptor, rc *RequestContext) (Verdict, error) {
	user := rc.ConnectedUser
	if user == nil {
		return Abstain(), nil
	}
	if user.IsSuperUser {
		return Grant(access.Full()), nil
	}

	var set access.ScopeSet
	if mode, ok := user.WebserviceMode(ws.ID); ok {
		if mode == claims.ModeFull {
			return Grant(access.Full()), nil
		}
		set.Owner = true
	}
	if granting := user.OrgsGrantingWebservice(ws.ID); len(granting) > 0 {
		orgs := make(access.OrgScope, len(granting))
		for level, ids := range granting {
			orgs[access.OrgKind(level)] = ids
		}
		set.Orgs = orgs
	}
	if set.IsZero() {
		return Abstain(), nil
	}
	return Grant(access.Scoped(set)), nil
}

// AddStatementConstraints implements Module. In a claims chain this module
// owns every scope key.
func (m *ClaimsModule) AddStatementConstraints(_ context.Context, q *entity.Query, or *entity.OrConditions, rc *RequestContext, desc *entity.Descriptor) error {
	if err := addOwnerConstraints(q, or, rc, desc); err != nil {
		return err
	}
	if err := addRoleConstraints(q, or, rc, desc); err != nil {
		return err
	}
	return addOrgConstraints(q, or, rc, desc)
}
