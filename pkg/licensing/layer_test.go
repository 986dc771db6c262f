package licensing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/gatehouse/pkg/claims"
	"github.com/platinummonkey/gatehouse/pkg/storage/postgres"
)

type mockOrgSource struct {
	owned       func(ctx context.Context, userID string) ([]string, error)
	clientRoles func(ctx context.Context, userID string) (map[string][]string, error)
}

func (m *mockOrgSource) OwnedClientIDs(ctx context.Context, userID string) ([]string, error) {
	return m.owned(ctx, userID)
}

func (m *mockOrgSource) ClientRoleWebservices(ctx context.Context, userID string) (map[string][]string, error) {
	return m.clientRoles(ctx, userID)
}

func TestSubscriptionLayerExtend(t *testing.T) {
	source := &mockSubscriptionSource{
		getSubscription: func(_ context.Context, clientID string) (*postgres.Subscription, error) {
			switch clientID {
			case "client-a":
				return &postgres.Subscription{ID: "sub-1", ClientID: "client-a", PlanID: "plan-pro", PlanVersionID: "pv-3", Status: "active"}, nil
			case "client-b":
				return &postgres.Subscription{ID: "sub-2", ClientID: "client-b", PlanID: "plan-basic", PlanVersionID: "pv-1", Status: "canceled"}, nil
			}
			return nil, nil
		},
		planRules: func(context.Context, string) (map[string]claims.RuleValue, error) {
			return map[string]claims.RuleValue{"sso": claims.FeatureRule()}, nil
		},
	}
	provider := &mockProvider{status: func(_ context.Context, subID string) (string, error) {
		if subID == "sub-2" {
			return "canceled", nil
		}
		return "active", nil
	}}
	checker, err := NewChecker(source, provider, nil, nil)
	require.NoError(t, err)

	layer := &SubscriptionLayer{
		Orgs: &mockOrgSource{
			owned: func(context.Context, string) ([]string, error) {
				return []string{"client-a"}, nil
			},
			clientRoles: func(context.Context, string) (map[string][]string, error) {
				// client-a appears again through a role; must not duplicate.
				return map[string][]string{
					"client-a": {"list_projects"},
					"client-b": {"list_projects"},
					"client-z": {"list_projects"},
				}, nil
			},
		},
		Checker: checker,
	}

	c := &claims.Claims{Sub: "user-1"}
	require.NoError(t, layer.Extend(context.Background(), &claims.User{ID: "user-1"}, c))

	require.Len(t, c.Subscriptions, 2)
	assert.Equal(t, "plan-pro", c.Subscriptions["client-a"].PlanID)
	assert.Equal(t, "active", c.Subscriptions["client-a"].Status)
	// Inactive subscriptions are embedded with their status.
	assert.Equal(t, "canceled", c.Subscriptions["client-b"].Status)
	// Clients that never subscribed are absent.
	_, ok := c.Subscriptions["client-z"]
	assert.False(t, ok)

	assert.Equal(t, "subscription", layer.Name())
}
