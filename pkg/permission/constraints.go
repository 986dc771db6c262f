package permission

import (
	"github.com/platinummonkey/gatehouse/pkg/entity"
)

// The constraint helpers below build row predicates from the merged decision
// in rc.AccessType, not from any single module's verdict. Each scope key has
// exactly one owning module per chain configuration; ownership is what keeps
// two modules from attaching the same predicate twice.

func addOwnerConstraints(q *entity.Query, or *entity.OrConditions, rc *RequestContext, desc *entity.Descriptor) error {
	scope := rc.AccessType.Scope()
	if !scope.Owner {
		return nil
	}
	if err := entity.CheckOrgFilterOverride(desc); err != nil {
		return err
	}
	if desc.UserFilters == nil {
		// No rows of this entity are owner-reachable.
		return nil
	}
	or.Add(desc.UserFilters(q, rc.UserID())...)
	return nil
}

func addRoleConstraints(q *entity.Query, or *entity.OrConditions, rc *RequestContext, desc *entity.Descriptor) error {
	scope := rc.AccessType.Scope()
	if !scope.Role {
		return nil
	}
	if err := entity.CheckOrgFilterOverride(desc); err != nil {
		return err
	}
	// A global role earns unrestricted rows for this webservice.
	or.Add(entity.Cond("1 = 1"))
	return nil
}

func addOrgConstraints(q *entity.Query, or *entity.OrConditions, rc *RequestContext, desc *entity.Descriptor) error {
	scope := rc.AccessType.Scope()
	if len(scope.Orgs) == 0 {
		return nil
	}
	if err := entity.CheckOrgFilterOverride(desc); err != nil {
		return err
	}
	if desc.OrgFilters == nil {
		// Only reachable when the entity is global reference data.
		return nil
	}
	or.Add(desc.OrgFilters(q, scope.Orgs)...)
	return nil
}
