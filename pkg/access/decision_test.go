package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecisionZeroValueIsDenied(t *testing.T) {
	var d Decision
	assert.Equal(t, KindDenied, d.Kind())
	assert.False(t, d.Granted())
	assert.True(t, d.Scope().IsZero())
}

func TestScopeIsZeroForDecisiveKinds(t *testing.T) {
	assert.True(t, Full().Scope().IsZero())
	assert.True(t, Denied().Scope().IsZero())

	scoped := Scoped(OwnerScope())
	assert.False(t, scoped.Scope().IsZero())
}

func TestScopedCopiesInput(t *testing.T) {
	orgs := OrgScope{OrgKindClient: {"c1"}}
	d := Scoped(OrgRoleScope(orgs))

	orgs[OrgKindClient] = append(orgs[OrgKindClient], "c2")

	require.Equal(t, KindScoped, d.Kind())
	assert.Equal(t, []string{"c1"}, d.Scope().Orgs[OrgKindClient])
}

func TestMergeDecisiveReplaces(t *testing.T) {
	acc := Scoped(OwnerScope())

	assert.Equal(t, KindFull, Merge(acc, Full()).Kind())
	assert.Equal(t, KindDenied, Merge(acc, Denied()).Kind())
}

func TestMergeUnionsScopeKeys(t *testing.T) {
	acc := Scoped(OwnerScope())
	next := Scoped(OrgRoleScope(OrgScope{OrgKindClient: {"c1", "c2"}}))

	merged := Merge(acc, next)

	require.Equal(t, KindScoped, merged.Kind())
	scope := merged.Scope()
	assert.True(t, scope.Owner, "owner grant must survive the merge")
	assert.Equal(t, []string{"c1", "c2"}, scope.Orgs[OrgKindClient])
}

func TestMergeUnionsOrgIDsPerKind(t *testing.T) {
	acc := Scoped(OrgRoleScope(OrgScope{OrgKindClient: {"c1"}}))
	next := Scoped(OrgRoleScope(OrgScope{
		OrgKindClient:     {"c1", "c2"},
		OrgKindDepartment: {"d1"},
	}))

	scope := Merge(acc, next).Scope()

	assert.Equal(t, []string{"c1", "c2"}, scope.Orgs[OrgKindClient])
	assert.Equal(t, []string{"d1"}, scope.Orgs[OrgKindDepartment])
}

func TestMergeNeverErases(t *testing.T) {
	acc := Scoped(ScopeSet{
		Owner: true,
		Orgs:  OrgScope{OrgKindClient: {"c1"}},
	})
	next := Scoped(RoleScope())

	scope := Merge(acc, next).Scope()

	assert.True(t, scope.Owner)
	assert.True(t, scope.Role)
	assert.Equal(t, []string{"c1"}, scope.Orgs[OrgKindClient])
}

func TestMergeIsIdempotent(t *testing.T) {
	acc := Scoped(OrgRoleScope(OrgScope{OrgKindClient: {"c1", "c2"}}))
	next := Scoped(OrgRoleScope(OrgScope{OrgKindClient: {"c2"}}))

	once := Merge(acc, next)
	twice := Merge(once, next)

	assert.Equal(t, once.Scope().Orgs, twice.Scope().Orgs)
}

func TestScopeSetKinds(t *testing.T) {
	set := ScopeSet{Owner: true, Orgs: OrgScope{OrgKindClient: {"c1"}}}
	assert.Equal(t, []ScopeKind{ScopeOrganizationRole, ScopeOwner}, set.Kinds())
	assert.True(t, ScopeSet{}.IsZero())
	assert.False(t, set.IsZero())
}
