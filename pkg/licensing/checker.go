package licensing

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/gatehouse/pkg/claims"
	"github.com/platinummonkey/gatehouse/pkg/observability"
	"github.com/platinummonkey/gatehouse/pkg/storage/postgres"
)

// SubscriptionSource supplies stored subscription and plan rule state.
type SubscriptionSource interface {
	GetClientSubscription(ctx context.Context, clientID string) (*postgres.Subscription, error)
	PlanVersionRules(ctx context.Context, planVersionID string) (map[string]claims.RuleValue, error)
}

// Checker answers feature and quota questions for a client's plan.
//
// When a provider is configured it is asked for the authoritative
// subscription status. Verification fails open: a provider outage, like a
// missing provider, reports the subscription as active so billing
// downtime never locks paying customers out.
type Checker struct {
	source   SubscriptionSource
	provider Provider
	log      *logrus.Logger
	metrics  *observability.Metrics
}

// NewChecker creates a checker. provider and metrics may be nil.
func NewChecker(source SubscriptionSource, provider Provider, log *logrus.Logger, metrics *observability.Metrics) (*Checker, error) {
	if source == nil {
		return nil, fmt.Errorf("subscription source is required")
	}
	if log == nil {
		log = logrus.New()
	}
	return &Checker{source: source, provider: provider, log: log, metrics: metrics}, nil
}

// ErrNoSubscription is returned when the client has no subscription at all.
var ErrNoSubscription = fmt.Errorf("no subscription")

// ErrQuotaExceeded is returned by EnforceQuota when usage reaches the limit.
var ErrQuotaExceeded = fmt.Errorf("quota exceeded")

// VerifiedStatus returns the subscription status after provider
// verification. Without a configured provider, or when the provider is
// unreachable, the subscription is reported as active.
func (c *Checker) VerifiedStatus(ctx context.Context, sub *postgres.Subscription) string {
	if sub == nil {
		return ""
	}
	if c.provider == nil {
		return postgres.StatusActive
	}
	status, err := c.provider.SubscriptionStatus(ctx, sub.ID)
	if err != nil {
		c.log.WithError(err).WithField("subscription_id", sub.ID).
			Warn("license provider unreachable, assuming active")
		return postgres.StatusActive
	}
	return status
}

// ClientRules loads the verified, active rule set of a client. A client
// without an active subscription gets ErrNoSubscription.
func (c *Checker) ClientRules(ctx context.Context, clientID string) (map[string]claims.RuleValue, error) {
	sub, err := c.source.GetClientSubscription(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrNoSubscription
	}
	verified := *sub
	verified.Status = c.VerifiedStatus(ctx, sub)
	if !verified.Active() {
		return nil, ErrNoSubscription
	}
	return c.source.PlanVersionRules(ctx, sub.PlanVersionID)
}

// SubscriptionClaim builds the claim embedded for one client, or nil when
// the client never subscribed. Inactive subscriptions are embedded with
// their status so token consumers see why access is gone.
func (c *Checker) SubscriptionClaim(ctx context.Context, clientID string) (*claims.SubscriptionClaim, error) {
	sub, err := c.source.GetClientSubscription(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, nil
	}
	rules, err := c.source.PlanVersionRules(ctx, sub.PlanVersionID)
	if err != nil {
		return nil, err
	}
	return &claims.SubscriptionClaim{
		PlanID:        sub.PlanID,
		PlanVersionID: sub.PlanVersionID,
		Status:        c.VerifiedStatus(ctx, sub),
		Rules:         rules,
	}, nil
}

// CheckFeature reports whether the client's plan includes a feature rule.
func (c *Checker) CheckFeature(ctx context.Context, clientID, ruleKey string) (bool, error) {
	rules, err := c.ClientRules(ctx, clientID)
	if err == ErrNoSubscription {
		c.count("feature", "denied")
		return false, nil
	} else if err != nil {
		c.count("feature", "error")
		return false, err
	}
	rule, ok := rules[ruleKey]
	enabled := ok && rule.Feature
	if enabled {
		c.count("feature", "granted")
	} else {
		c.count("feature", "denied")
	}
	return enabled, nil
}

// Quota returns the client's limit for a quota rule. Missing subscription or
// missing rule both mean a zero limit.
func (c *Checker) Quota(ctx context.Context, clientID, ruleKey string) (int64, error) {
	rules, err := c.ClientRules(ctx, clientID)
	if err == ErrNoSubscription {
		return 0, nil
	} else if err != nil {
		c.count("quota", "error")
		return 0, err
	}
	rule, ok := rules[ruleKey]
	if !ok || rule.Quota == nil {
		return 0, nil
	}
	return *rule.Quota, nil
}

// EnforceQuota fails with ErrQuotaExceeded when used has reached the
// client's limit for the rule.
func (c *Checker) EnforceQuota(ctx context.Context, clientID, ruleKey string, used int64) error {
	limit, err := c.Quota(ctx, clientID, ruleKey)
	if err != nil {
		return err
	}
	if used >= limit {
		c.count("quota", "denied")
		return fmt.Errorf("%w: %s at %d of %d", ErrQuotaExceeded, ruleKey, used, limit)
	}
	c.count("quota", "granted")
	return nil
}

// FeatureFromClaims answers a feature check from an already issued token,
// without touching storage.
func FeatureFromClaims(c *claims.Claims, clientID, ruleKey string) bool {
	sub, ok := c.Subscriptions[clientID]
	if !ok || !postgres.ActiveStatus(sub.Status) {
		return false
	}
	rule, ok := sub.Rules[ruleKey]
	return ok && rule.Feature
}

// RulesFromClaims returns the full rule map for a client from an already
// issued token, or nil when the client has no active subscription claim.
func RulesFromClaims(c *claims.Claims, clientID string) map[string]claims.RuleValue {
	sub, ok := c.Subscriptions[clientID]
	if !ok || !postgres.ActiveStatus(sub.Status) {
		return nil
	}
	return sub.Rules
}

// QuotaFromClaims answers a quota lookup from an already issued token.
func QuotaFromClaims(c *claims.Claims, clientID, ruleKey string) int64 {
	sub, ok := c.Subscriptions[clientID]
	if !ok || !postgres.ActiveStatus(sub.Status) {
		return 0
	}
	rule, ok := sub.Rules[ruleKey]
	if !ok || rule.Quota == nil {
		return 0
	}
	return *rule.Quota
}

func (c *Checker) count(check, result string) {
	if c.metrics != nil {
		c.metrics.LicenseChecksTotal.WithLabelValues(check, result).Inc()
	}
}
