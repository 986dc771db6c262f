package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/platinummonkey/gatehouse/pkg/access"
	"github.com/platinummonkey/gatehouse/pkg/claims"
	"github.com/platinummonkey/gatehouse/pkg/observability"
)

// Subscription is one client's subscription record.
type Subscription struct {
	ID               string
	ClientID         string
	PlanID           string
	PlanVersionID    string
	Status           string
	CurrentPeriodEnd time.Time
}

// Subscription statuses that grant licensed access.
const (
	StatusActive   = "active"
	StatusTrialing = "trialing"
)

// ActiveStatus reports whether a subscription status grants licensed
// access.
func ActiveStatus(status string) bool {
	return status == StatusActive || status == StatusTrialing
}

// Active reports whether the subscription currently grants licensed access.
func (s *Subscription) Active() bool {
	return s != nil && ActiveStatus(s.Status)
}

// SubscriptionStore reads subscription and plan rule state.
type SubscriptionStore struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewSubscriptionStore creates a subscription store; metrics may be nil.
func NewSubscriptionStore(db *sql.DB, metrics *observability.Metrics) *SubscriptionStore {
	return &SubscriptionStore{db: db, metrics: metrics}
}

// GetClientSubscription returns the client's newest subscription, or nil
// when the client never subscribed.
func (s *SubscriptionStore) GetClientSubscription(ctx context.Context, clientID string) (*Subscription, error) {
	query := `
		SELECT id, client_id, plan_id, plan_version_id, status, current_period_end
		FROM subscriptions
		WHERE client_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	var sub Subscription
	err := s.db.QueryRowContext(ctx, query, clientID).Scan(
		&sub.ID, &sub.ClientID, &sub.PlanID, &sub.PlanVersionID, &sub.Status, &sub.CurrentPeriodEnd,
	)
	if err == sql.ErrNoRows {
		s.count("ok")
		return nil, nil
	} else if err != nil {
		s.count("error")
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	s.count("ok")
	return &sub, nil
}

// ClientSubscriptions returns the newest subscription per client for the
// given client ids. Clients without one are absent from the result.
func (s *SubscriptionStore) ClientSubscriptions(ctx context.Context, clientIDs []string) (map[string]*Subscription, error) {
	if len(clientIDs) == 0 {
		return nil, nil
	}
	query := `
		SELECT DISTINCT ON (client_id)
		       id, client_id, plan_id, plan_version_id, status, current_period_end
		FROM subscriptions
		WHERE client_id = ANY($1)
		ORDER BY client_id, created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(clientIDs))
	if err != nil {
		s.count("error")
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*Subscription)
	for rows.Next() {
		var sub Subscription
		if err := rows.Scan(&sub.ID, &sub.ClientID, &sub.PlanID, &sub.PlanVersionID, &sub.Status, &sub.CurrentPeriodEnd); err != nil {
			s.count("error")
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		out[sub.ClientID] = &sub
	}
	if err := rows.Err(); err != nil {
		s.count("error")
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	s.count("ok")
	return out, nil
}

// PlanVersionRules loads the rule set of one plan version. A NULL quota
// marks a feature rule.
func (s *SubscriptionStore) PlanVersionRules(ctx context.Context, planVersionID string) (map[string]claims.RuleValue, error) {
	query := `
		SELECT rule_key, quota
		FROM plan_version_rules
		WHERE plan_version_id = $1
		ORDER BY rule_key
	`
	rows, err := s.db.QueryContext(ctx, query, planVersionID)
	if err != nil {
		s.count("error")
		return nil, fmt.Errorf("failed to list plan rules: %w", err)
	}
	defer rows.Close()

	rules := make(map[string]claims.RuleValue)
	for rows.Next() {
		var key string
		var quota sql.NullInt64
		if err := rows.Scan(&key, &quota); err != nil {
			s.count("error")
			return nil, fmt.Errorf("failed to scan plan rule: %w", err)
		}
		if quota.Valid {
			rules[key] = claims.QuotaRule(quota.Int64)
		} else {
			rules[key] = claims.FeatureRule()
		}
	}
	if err := rows.Err(); err != nil {
		s.count("error")
		return nil, fmt.Errorf("failed to list plan rules: %w", err)
	}

	s.count("ok")
	return rules, nil
}

// FilterLicensed keeps only the organizations covered by an active
// subscription. Clients are checked directly; departments resolve through
// their owning client.
func (s *SubscriptionStore) FilterLicensed(ctx context.Context, scope access.OrgScope) (access.OrgScope, error) {
	var out access.OrgScope

	if clientIDs := scope[access.OrgKindClient]; len(clientIDs) > 0 {
		query := `
			SELECT DISTINCT client_id
			FROM subscriptions
			WHERE client_id = ANY($1) AND status IN ('active', 'trialing')
			ORDER BY client_id
		`
		licensed, err := s.queryIDs(ctx, query, pq.Array(clientIDs))
		if err != nil {
			return nil, fmt.Errorf("failed to filter licensed clients: %w", err)
		}
		if len(licensed) > 0 {
			out = access.OrgScope{access.OrgKindClient: licensed}
		}
	}

	if deptIDs := scope[access.OrgKindDepartment]; len(deptIDs) > 0 {
		query := `
			SELECT DISTINCT d.id
			FROM departments d
			JOIN subscriptions sub ON sub.client_id = d.client_id
			WHERE d.id = ANY($1) AND sub.status IN ('active', 'trialing')
			ORDER BY d.id
		`
		licensed, err := s.queryIDs(ctx, query, pq.Array(deptIDs))
		if err != nil {
			return nil, fmt.Errorf("failed to filter licensed departments: %w", err)
		}
		if len(licensed) > 0 {
			if out == nil {
				out = make(access.OrgScope)
			}
			out[access.OrgKindDepartment] = licensed
		}
	}

	s.count("ok")
	return out, nil
}

// OwnerLicensed reports whether the client holds an active subscription.
func (s *SubscriptionStore) OwnerLicensed(ctx context.Context, clientID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM subscriptions
			WHERE client_id = $1 AND status IN ('active', 'trialing')
		)
	`
	var has bool
	if err := s.db.QueryRowContext(ctx, query, clientID).Scan(&has); err != nil {
		s.count("error")
		return false, fmt.Errorf("failed to check client subscription: %w", err)
	}
	s.count("ok")
	return has, nil
}

// MemberLicensed reports whether the user holds a license seat.
func (s *SubscriptionStore) MemberLicensed(ctx context.Context, userID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM license_seats
			WHERE user_id = $1
		)
	`
	var has bool
	if err := s.db.QueryRowContext(ctx, query, userID).Scan(&has); err != nil {
		s.count("error")
		return false, fmt.Errorf("failed to check license seat: %w", err)
	}
	s.count("ok")
	return has, nil
}

func (s *SubscriptionStore) queryIDs(ctx context.Context, query string, arg interface{}) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		s.count("error")
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			s.count("error")
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		s.count("error")
		return nil, err
	}
	return ids, nil
}

func (s *SubscriptionStore) count(status string) {
	if s.metrics != nil {
		s.metrics.DBQueriesTotal.WithLabelValues("subscriptions", status).Inc()
	}
}
