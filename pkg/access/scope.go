package access

import "sort"

// ScopeKind names one access kind inside a scoped decision. Each permission
// module owns at most one kind and ignores the others when building query
// constraints.
type ScopeKind string

const (
	// ScopeOwner restricts access to rows owned by the connected user.
	ScopeOwner ScopeKind = "owner"
	// ScopeRole grants full row access earned through a global role; the
	// webservice gate already ran, so no row filtering applies.
	ScopeRole ScopeKind = "role"
	// ScopeOrganizationRole restricts access to rows belonging to
	// organizations where the user holds a role.
	ScopeOrganizationRole ScopeKind = "organization_role"
)

// OrgKind is the closed set of organization shapes rows can belong to.
// New kinds are rare and require code changes by design.
type OrgKind string

const (
	OrgKindClient     OrgKind = "client"
	OrgKindDepartment OrgKind = "department"
)

// OrgScope maps an organization kind to the ids the caller may reach.
type OrgScope map[OrgKind][]string

// Union merges other into s, deduplicating ids per kind while preserving
// first-seen order.
func (s OrgScope) Union(other OrgScope) {
	for kind, ids := range other {
		seen := make(map[string]struct{}, len(s[kind]))
		for _, id := range s[kind] {
			seen[id] = struct{}{}
		}
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			s[kind] = append(s[kind], id)
		}
	}
}

func (s OrgScope) clone() OrgScope {
	if s == nil {
		return nil
	}
	out := make(OrgScope, len(s))
	for kind, ids := range s {
		out[kind] = append([]string(nil), ids...)
	}
	return out
}

// ScopeSet is the payload of a scoped decision: one entry per access kind.
type ScopeSet struct {
	// Owner is set when the caller may only reach rows they own.
	Owner bool
	// Role is set when a global role granted full row access.
	Role bool
	// Orgs holds per-organization-kind id lists for organization-role access.
	Orgs OrgScope
}

// OwnerScope builds a scope set carrying only the owner grant.
func OwnerScope() ScopeSet { return ScopeSet{Owner: true} }

// RoleScope builds a scope set carrying only the role grant.
func RoleScope() ScopeSet { return ScopeSet{Role: true} }

// OrgRoleScope builds a scope set carrying organization-role access.
func OrgRoleScope(orgs OrgScope) ScopeSet { return ScopeSet{Orgs: orgs.clone()} }

// IsZero reports whether the set carries no grant at all.
func (s ScopeSet) IsZero() bool {
	return !s.Owner && !s.Role && len(s.Orgs) == 0
}

// Kinds returns the access kinds present in the set, sorted for stable logs.
func (s ScopeSet) Kinds() []ScopeKind {
	var kinds []ScopeKind
	if s.Owner {
		kinds = append(kinds, ScopeOwner)
	}
	if s.Role {
		kinds = append(kinds, ScopeRole)
	}
	if len(s.Orgs) > 0 {
		kinds = append(kinds, ScopeOrganizationRole)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func (s ScopeSet) clone() ScopeSet {
	return ScopeSet{Owner: s.Owner, Role: s.Role, Orgs: s.Orgs.clone()}
}

// union folds other into s: boolean grants are sticky, org id lists union.
func (s *ScopeSet) union(other ScopeSet) {
	s.Owner = s.Owner || other.Owner
	s.Role = s.Role || other.Role
	if len(other.Orgs) > 0 {
		if s.Orgs == nil {
			s.Orgs = make(OrgScope, len(other.Orgs))
		}
		s.Orgs.Union(other.Orgs)
	}
}
