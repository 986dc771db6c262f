package claims

import (
	"context"
	"fmt"

	"github.com/platinummonkey/gatehouse/pkg/registry"
)

// RoleSource supplies the webservices a user reaches through global roles.
type RoleSource interface {
	UserRoleWebservices(ctx context.Context, userID string) ([]string, error)
}

// OrgSource supplies a user's organization relationships.
type OrgSource interface {
	// OwnedClientIDs lists the clients the user owns.
	OwnedClientIDs(ctx context.Context, userID string) ([]string, error)
	// ClientRoleWebservices maps client id to the webservices granted by the
	// user's roles inside that client.
	ClientRoleWebservices(ctx context.Context, userID string) (map[string][]string, error)
}

// LicenseFilter narrows licensed webservices to license holders. When not
// installed, licensed webservices behave like any other organization-role
// webservice.
type LicenseFilter interface {
	// OwnerLicensed reports whether an owned client holds an active
	// subscription covering licensed webservices.
	OwnerLicensed(ctx context.Context, clientID string) (bool, error)
	// MemberLicensed reports whether the user personally holds a license
	// seat inside their client.
	MemberLicensed(ctx context.Context, userID string) (bool, error)
}

// BaseLayer seeds the webservices claim from the registry: open public
// webservices and CONNECTED-level webservices map to full access, OWNER-level
// ones to owner access. CONNECTED wins when both levels are declared.
type BaseLayer struct {
	Registry *registry.Registry
}

func (l *BaseLayer) Name() string { return "base" }

func (l *BaseLayer) Extend(ctx context.Context, user *User, c *Claims) error {
	webservices := make(map[string]AccessMode)

	for _, id := range l.Registry.All() {
		d := l.Registry.Lookup(id)
		if d == nil || !d.Enabled {
			continue
		}
		switch {
		case d.IsPublic && d.PublicType == registry.PublicOpen:
			webservices[id] = ModeFull
		case d.HasAccessLevel(registry.AccessLevelConnected):
			webservices[id] = ModeFull
		case d.HasAccessLevel(registry.AccessLevelOwner):
			webservices[id] = ModeOwner
		}
	}

	if len(webservices) > 0 {
		c.Webservices = webservices
	}
	return nil
}

// RoleLayer merges the webservices reachable through the user's enabled
// global roles. Role access is always full and upgrades an existing owner
// entry; it never downgrades.
type RoleLayer struct {
	Roles RoleSource
}

func (l *RoleLayer) Name() string { return "role" }

func (l *RoleLayer) Extend(ctx context.Context, user *User, c *Claims) error {
	wsIDs, err := l.Roles.UserRoleWebservices(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to load role webservices: %w", err)
	}
	if len(wsIDs) == 0 {
		return nil
	}
	if c.Webservices == nil {
		c.Webservices = make(map[string]AccessMode, len(wsIDs))
	}
	for _, id := range wsIDs {
		c.Webservices[id] = ModeFull
	}
	return nil
}

// OrganizationLayer adds the organizations claim from two membership sources
// unioned per organization: ownership grants every ORGANIZATION_ROLE
// webservice, role assignment grants the role's list. When the user is both,
// the owner's broader set wins. An optional LicenseFilter removes licensed
// webservices from clients or members without an active license.
type OrganizationLayer struct {
	Registry *registry.Registry
	Orgs     OrgSource
	License  LicenseFilter
}

func (l *OrganizationLayer) Name() string { return "organization" }

func (l *OrganizationLayer) Extend(ctx context.Context, user *User, c *Claims) error {
	organizations := make(map[string]OrgClaim)

	if err := l.extendOwned(ctx, user, organizations); err != nil {
		return err
	}
	if err := l.extendRoleMembers(ctx, user, organizations); err != nil {
		return err
	}

	if len(organizations) > 0 {
		c.Organizations = organizations
	}
	return nil
}

func (l *OrganizationLayer) extendOwned(ctx context.Context, user *User, organizations map[string]OrgClaim) error {
	ownedIDs, err := l.Orgs.OwnedClientIDs(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to load owned clients: %w", err)
	}
	if len(ownedIDs) == 0 {
		return nil
	}

	orgWebservices := l.Registry.IDsWithAccessLevel(registry.AccessLevelOrganizationRole)

	for _, clientID := range ownedIDs {
		webservices, err := l.filterOwnerLicensed(ctx, clientID, orgWebservices)
		if err != nil {
			return err
		}
		if len(webservices) == 0 {
			continue
		}
		organizations[clientID] = OrgClaim{Level: "client", Webservices: webservices}
	}
	return nil
}

func (l *OrganizationLayer) filterOwnerLicensed(ctx context.Context, clientID string, wsIDs []string) ([]string, error) {
	if l.License == nil {
		return append([]string(nil), wsIDs...), nil
	}
	licensed, err := l.License.OwnerLicensed(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to check client license: %w", err)
	}
	var out []string
	for _, id := range wsIDs {
		d := l.Registry.Lookup(id)
		if d != nil && d.IsLicensed && !licensed {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

func (l *OrganizationLayer) extendRoleMembers(ctx context.Context, user *User, organizations map[string]OrgClaim) error {
	roleWebservices, err := l.Orgs.ClientRoleWebservices(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to load client role webservices: %w", err)
	}
	if len(roleWebservices) == 0 {
		return nil
	}

	memberLicensed := false
	if l.License != nil {
		memberLicensed, err = l.License.MemberLicensed(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("failed to check member license: %w", err)
		}
	}

	for clientID, wsIDs := range roleWebservices {
		// Ownership already granted the full ORGANIZATION_ROLE set; role
		// data must never narrow it.
		if _, isOwner := organizations[clientID]; isOwner {
			continue
		}
		var webservices []string
		for _, id := range wsIDs {
			d := l.Registry.Lookup(id)
			if d == nil || !d.Enabled {
				continue
			}
			if l.License != nil && d.IsLicensed && !memberLicensed {
				continue
			}
			webservices = append(webservices, id)
		}
		if len(webservices) == 0 {
			continue
		}
		organizations[clientID] = OrgClaim{Level: "client", Webservices: webservices}
	}
	return nil
}
