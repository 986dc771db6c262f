package licensing

import (
	"context"
	"fmt"
	"sort"

	"github.com/platinummonkey/gatehouse/pkg/claims"
)

// SubscriptionLayer embeds each relevant client's subscription state and
// plan rules into generated claims, so resource services can answer feature
// and quota questions without calling back.
type SubscriptionLayer struct {
	Orgs    claims.OrgSource
	Checker *Checker
}

// Name implements claims.Layer.
func (l *SubscriptionLayer) Name() string { return "subscription" }

// Extend implements claims.Layer.
func (l *SubscriptionLayer) Extend(ctx context.Context, user *claims.User, c *claims.Claims) error {
	owned, err := l.Orgs.OwnedClientIDs(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to list owned clients: %w", err)
	}
	byClient, err := l.Orgs.ClientRoleWebservices(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to list role clients: %w", err)
	}

	seen := make(map[string]struct{}, len(owned)+len(byClient))
	clientIDs := make([]string, 0, len(owned)+len(byClient))
	for _, clientID := range owned {
		if _, dup := seen[clientID]; dup {
			continue
		}
		seen[clientID] = struct{}{}
		clientIDs = append(clientIDs, clientID)
	}
	for clientID := range byClient {
		if _, dup := seen[clientID]; dup {
			continue
		}
		seen[clientID] = struct{}{}
		clientIDs = append(clientIDs, clientID)
	}
	sort.Strings(clientIDs)

	for _, clientID := range clientIDs {
		sub, err := l.Checker.SubscriptionClaim(ctx, clientID)
		if err != nil {
			return fmt.Errorf("failed to build subscription claim for client %s: %w", clientID, err)
		}
		if sub == nil {
			continue
		}
		if c.Subscriptions == nil {
			c.Subscriptions = make(map[string]claims.SubscriptionClaim)
		}
		c.Subscriptions[clientID] = *sub
	}

	return nil
}
