package permission

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/gatehouse/pkg/observability"
	"github.com/platinummonkey/gatehouse/pkg/registry"
)

// Dependencies carries everything the configured modules may need. Only the
// sources the named modules use have to be non-nil.
type Dependencies struct {
	Registry *registry.Registry
	Log      *logrus.Logger
	Metrics  *observability.Metrics

	Roles         RoleGrants
	OrgRoles      OrgRoleGrants
	Subscriptions SubscriptionState
}

// NewChainFromConfig builds a chain from an ordered list of module names.
// Known names: public, anonymous, internal_service, connected, claims,
// role, organization_role, license.
//
// Two wiring rules are enforced here rather than left to runtime surprises:
// the claims module replaces the store-backed user modules and cannot be
// combined with them, and a license module requires an organization role
// module in the same chain (which is then told to yield licensed
// webservices).
func NewChainFromConfig(names []string, deps Dependencies) (*Chain, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("at least one permission module must be configured")
	}

	hasClaims := false
	hasLicense := false
	hasOrgRole := false
	hasStoreBacked := false
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("permission module %q configured twice", name)
		}
		seen[name] = struct{}{}
		switch name {
		case "claims":
			hasClaims = true
		case "license":
			hasLicense = true
			hasStoreBacked = true
		case "organization_role":
			hasOrgRole = true
			hasStoreBacked = true
		case "connected", "role":
			hasStoreBacked = true
		case "anonymous", "internal_service", "public":
		default:
			return nil, fmt.Errorf("unknown permission module %q", name)
		}
	}
	if hasClaims && hasStoreBacked {
		return nil, fmt.Errorf("claims module cannot be combined with store-backed user modules")
	}
	if hasLicense && !hasOrgRole {
		return nil, fmt.Errorf("license module requires the organization_role module")
	}

	modules := make([]Module, 0, len(names))
	for _, name := range names {
		var (
			m   Module
			err error
		)
		switch name {
		case "anonymous":
			m = NewAnonymousModule()
		case "internal_service":
			m = NewInternalServiceModule()
		case "public":
			m = NewPublicModule()
		case "connected":
			m = NewConnectedModule()
		case "claims":
			m = NewClaimsModule()
		case "role":
			m, err = NewRoleModule(deps.Roles)
		case "organization_role":
			m, err = NewOrgRoleModule(deps.OrgRoles, hasLicense)
		case "license":
			m, err = NewLicenseModule(deps.OrgRoles, deps.Subscriptions)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to build permission module %q: %w", name, err)
		}
		modules = append(modules, m)
	}

	return NewChain(deps.Registry, deps.Log, deps.Metrics, modules...)
}
