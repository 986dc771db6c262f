package claims

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/gatehouse/pkg/registry"
)

type mockRoleSource struct {
	webservicesFunc func(userID string) ([]string, error)
}

func (m *mockRoleSource) UserRoleWebservices(_ context.Context, userID string) ([]string, error) {
	if m.webservicesFunc != nil {
		return m.webservicesFunc(userID)
	}
	return nil, nil
}

type mockOrgSource struct {
	ownedFunc func(userID string) ([]string, error)
	rolesFunc func(userID string) (map[string][]string, error)
}

func (m *mockOrgSource) OwnedClientIDs(_ context.Context, userID string) ([]string, error) {
	if m.ownedFunc != nil {
		return m.ownedFunc(userID)
	}
	return nil, nil
}

func (m *mockOrgSource) ClientRoleWebservices(_ context.Context, userID string) (map[string][]string, error) {
	if m.rolesFunc != nil {
		return m.rolesFunc(userID)
	}
	return nil, nil
}

type mockLicenseFilter struct {
	ownerFunc  func(clientID string) (bool, error)
	memberFunc func(userID string) (bool, error)
}

func (m *mockLicenseFilter) OwnerLicensed(_ context.Context, clientID string) (bool, error) {
	if m.ownerFunc != nil {
		return m.ownerFunc(clientID)
	}
	return true, nil
}

func (m *mockLicenseFilter) MemberLicensed(_ context.Context, userID string) (bool, error) {
	if m.memberFunc != nil {
		return m.memberFunc(userID)
	}
	return true, nil
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New()
	for _, d := range []registry.Descriptor{
		{ID: "login", Enabled: true, IsPublic: true, PublicType: registry.PublicDisconnectedOnly},
		{ID: "health", Enabled: true, IsPublic: true, PublicType: registry.PublicOpen},
		{ID: "me", Enabled: true, AccessLevels: []registry.AccessLevel{registry.AccessLevelConnected}},
		{ID: "my_documents", Enabled: true, AccessLevels: []registry.AccessLevel{registry.AccessLevelOwner}},
		{ID: "admin_reports", Enabled: true, AccessLevels: []registry.AccessLevel{registry.AccessLevelRole}},
		{ID: "list_projects", Enabled: true, AccessLevels: []registry.AccessLevel{registry.AccessLevelOrganizationRole}},
		{ID: "manage_billing", Enabled: true, IsLicensed: true, AccessLevels: []registry.AccessLevel{registry.AccessLevelOrganizationRole}},
		{ID: "old_api", Enabled: false, AccessLevels: []registry.AccessLevel{registry.AccessLevelConnected}},
	} {
		require.NoError(t, r.Register(d))
	}
	require.NoError(t, r.Finalize())
	return r
}

func TestBaseLayerWebservices(t *testing.T) {
	gen := NewGenerator(nil, &BaseLayer{Registry: testRegistry(t)})

	c, err := gen.Generate(context.Background(), &User{ID: "u1"})
	require.NoError(t, err)

	assert.Equal(t, map[string]AccessMode{
		"health":       ModeFull,
		"me":           ModeFull,
		"my_documents": ModeOwner,
	}, c.Webservices)
	assert.Nil(t, c.Organizations)
	assert.Nil(t, c.Subscriptions)
}

func TestBaseLayerSkipsDisabledAndDisconnectedOnly(t *testing.T) {
	gen := NewGenerator(nil, &BaseLayer{Registry: testRegistry(t)})

	c, err := gen.Generate(context.Background(), &User{ID: "u1"})
	require.NoError(t, err)

	_, hasLogin := c.Webservices["login"]
	_, hasOld := c.Webservices["old_api"]
	assert.False(t, hasLogin, "disconnected-only public services are not claimable")
	assert.False(t, hasOld, "disabled services never appear in claims")
}

func TestRoleLayerUpgradesToFull(t *testing.T) {
	reg := testRegistry(t)
	roles := &mockRoleSource{webservicesFunc: func(string) ([]string, error) {
		return []string{"my_documents", "admin_reports"}, nil
	}}
	gen := NewGenerator(nil, &BaseLayer{Registry: reg}, &RoleLayer{Roles: roles})

	c, err := gen.Generate(context.Background(), &User{ID: "u1"})
	require.NoError(t, err)

	assert.Equal(t, ModeFull, c.Webservices["my_documents"], "role access upgrades owner to full")
	assert.Equal(t, ModeFull, c.Webservices["admin_reports"])
}

func TestOrganizationLayerOwnership(t *testing.T) {
	reg := testRegistry(t)
	orgs := &mockOrgSource{ownedFunc: func(string) ([]string, error) {
		return []string{"client-a"}, nil
	}}
	gen := NewGenerator(nil, &BaseLayer{Registry: reg}, &OrganizationLayer{Registry: reg, Orgs: orgs})

	c, err := gen.Generate(context.Background(), &User{ID: "u1"})
	require.NoError(t, err)

	require.Contains(t, c.Organizations, "client-a")
	org := c.Organizations["client-a"]
	assert.Equal(t, "client", org.Level)
	assert.ElementsMatch(t, []string{"list_projects", "manage_billing"}, org.Webservices)
}

func TestOrganizationLayerOwnerWinsOverRole(t *testing.T) {
	reg := testRegistry(t)
	orgs := &mockOrgSource{
		ownedFunc: func(string) ([]string, error) { return []string{"client-a"}, nil },
		rolesFunc: func(string) (map[string][]string, error) {
			return map[string][]string{
				"client-a": {"list_projects"},
				"client-b": {"list_projects"},
			}, nil
		},
	}
	gen := NewGenerator(nil, &BaseLayer{Registry: reg}, &OrganizationLayer{Registry: reg, Orgs: orgs})

	c, err := gen.Generate(context.Background(), &User{ID: "u1"})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"list_projects", "manage_billing"},
		c.Organizations["client-a"].Webservices,
		"owner keeps the full set even with a narrower role grant")
	assert.Equal(t, []string{"list_projects"}, c.Organizations["client-b"].Webservices)
}

func TestOrganizationLayerLicenseFilterOwner(t *testing.T) {
	reg := testRegistry(t)
	orgs := &mockOrgSource{ownedFunc: func(string) ([]string, error) {
		return []string{"client-a", "client-b"}, nil
	}}
	lic := &mockLicenseFilter{ownerFunc: func(clientID string) (bool, error) {
		return clientID == "client-a", nil
	}}
	gen := NewGenerator(nil,
		&BaseLayer{Registry: reg},
		&OrganizationLayer{Registry: reg, Orgs: orgs, License: lic})

	c, err := gen.Generate(context.Background(), &User{ID: "u1"})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"list_projects", "manage_billing"},
		c.Organizations["client-a"].Webservices)
	assert.ElementsMatch(t, []string{"list_projects"},
		c.Organizations["client-b"].Webservices,
		"licensed webservice removed for the unsubscribed client")
}

func TestOrganizationLayerLicenseFilterMember(t *testing.T) {
	reg := testRegistry(t)
	orgs := &mockOrgSource{rolesFunc: func(string) (map[string][]string, error) {
		return map[string][]string{"client-a": {"list_projects", "manage_billing"}}, nil
	}}
	lic := &mockLicenseFilter{memberFunc: func(string) (bool, error) { return false, nil }}
	gen := NewGenerator(nil,
		&BaseLayer{Registry: reg},
		&OrganizationLayer{Registry: reg, Orgs: orgs, License: lic})

	c, err := gen.Generate(context.Background(), &User{ID: "u1"})
	require.NoError(t, err)

	assert.Equal(t, []string{"list_projects"}, c.Organizations["client-a"].Webservices)
}

func TestSuperUserShortCircuit(t *testing.T) {
	reg := testRegistry(t)
	orgs := &mockOrgSource{ownedFunc: func(string) ([]string, error) {
		t.Fatal("organization layer must not run for super users")
		return nil, nil
	}}
	gen := NewGenerator(nil,
		&BaseLayer{Registry: reg},
		&OrganizationLayer{Registry: reg, Orgs: orgs})

	c, err := gen.Generate(context.Background(), &User{ID: "root", IsSuperUser: true})
	require.NoError(t, err)

	assert.True(t, c.IsSuperUser)
	assert.Nil(t, c.Organizations)
	assert.Nil(t, c.Subscriptions)
}

func TestGenerateRequiresUser(t *testing.T) {
	gen := NewGenerator(nil, &BaseLayer{Registry: testRegistry(t)})
	_, err := gen.Generate(context.Background(), nil)
	assert.Error(t, err)
	_, err = gen.Generate(context.Background(), &User{})
	assert.Error(t, err)
}

func TestEmptyKeysOmittedFromJSON(t *testing.T) {
	c := &Claims{Sub: "u1"}
	c.normalize()
	data, err := json.Marshal(c)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "organizations")
	assert.NotContains(t, string(data), "subscriptions")
	assert.NotContains(t, string(data), "webservices")
}

func TestRuleValueRoundTrip(t *testing.T) {
	rules := map[string]RuleValue{
		"MAX_USERS":         QuotaRule(5),
		"EXPORT_PDF_ACCESS": FeatureRule(),
	}
	data, err := json.Marshal(rules)
	require.NoError(t, err)
	assert.JSONEq(t, `{"MAX_USERS":5,"EXPORT_PDF_ACCESS":true}`, string(data))

	var decoded map[string]RuleValue
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.NotNil(t, decoded["MAX_USERS"].Quota)
	assert.EqualValues(t, 5, *decoded["MAX_USERS"].Quota)
	assert.True(t, decoded["EXPORT_PDF_ACCESS"].Feature)
}

func TestOrgsGrantingWebservice(t *testing.T) {
	c := &Claims{
		Organizations: map[string]OrgClaim{
			"client-a": {Level: "client", Webservices: []string{"list_projects"}},
			"client-b": {Level: "client", Webservices: []string{"manage_billing"}},
		},
	}
	granting := c.OrgsGrantingWebservice("list_projects")
	assert.Equal(t, map[string][]string{"client": {"client-a"}}, granting)
	assert.Nil(t, c.OrgsGrantingWebservice("unknown"))
}
