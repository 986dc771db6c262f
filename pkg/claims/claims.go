// Package claims builds and verifies the pre-computed authorization summary
// attached to a caller's session token. Claims are derived once at login or
// refresh by an ordered chain of layers, cached in a signed token, and
// consumed on every subsequent call without database access.
package claims

import (
	"encoding/json"
	"fmt"
)

// AccessMode is the per-webservice grant recorded in the token.
type AccessMode string

const (
	// ModeFull grants unrestricted access to the webservice's data.
	ModeFull AccessMode = "full"
	// ModeOwner grants access restricted to rows the caller owns.
	ModeOwner AccessMode = "owner"
)

// OrgClaim is the per-organization grant: the membership level and the
// webservices reachable inside that organization.
type OrgClaim struct {
	Level       string   `json:"level"`
	Webservices []string `json:"webservices"`
}

// RuleValue is one plan-rule entry: either a quota with a numeric limit or a
// feature toggle whose presence means enabled. On the wire a quota is a JSON
// number and a feature is the literal true, matching what license checks
// expect to read back.
type RuleValue struct {
	Quota   *int64
	Feature bool
}

// QuotaRule builds a quota-valued rule.
func QuotaRule(limit int64) RuleValue {
	return RuleValue{Quota: &limit}
}

// FeatureRule builds an enabled feature toggle.
func FeatureRule() RuleValue {
	return RuleValue{Feature: true}
}

// MarshalJSON encodes quotas as numbers and features as true.
func (v RuleValue) MarshalJSON() ([]byte, error) {
	if v.Quota != nil {
		return json.Marshal(*v.Quota)
	}
	return json.Marshal(v.Feature)
}

// UnmarshalJSON accepts either form.
func (v *RuleValue) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*v = RuleValue{Feature: b}
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*v = RuleValue{Quota: &n}
		return nil
	}
	return fmt.Errorf("rule value must be a number or a boolean, got %s", data)
}

// SubscriptionClaim records one client's subscription state and plan rules.
type SubscriptionClaim struct {
	PlanID        string               `json:"plan_id"`
	PlanVersionID string               `json:"plan_version_id"`
	Status        string               `json:"status"`
	Rules         map[string]RuleValue `json:"rules"`
}

// Claims is the cached authorization payload. Organizations and
// Subscriptions are omitted entirely when empty, never serialized as {}.
type Claims struct {
	Sub           string                       `json:"sub"`
	IsSuperUser   bool                         `json:"is_super_user"`
	Webservices   map[string]AccessMode        `json:"webservices,omitempty"`
	Organizations map[string]OrgClaim          `json:"organizations,omitempty"`
	Subscriptions map[string]SubscriptionClaim `json:"subscriptions,omitempty"`
}

// WebserviceMode returns the recorded grant for a webservice id.
func (c *Claims) WebserviceMode(wsID string) (AccessMode, bool) {
	mode, ok := c.Webservices[wsID]
	return mode, ok
}

// OrgsGrantingWebservice returns the organization ids whose claim lists the
// webservice, keyed by claim level.
func (c *Claims) OrgsGrantingWebservice(wsID string) map[string][]string {
	var out map[string][]string
	for orgID, org := range c.Organizations {
		for _, ws := range org.Webservices {
			if ws != wsID {
				continue
			}
			if out == nil {
				out = make(map[string][]string)
			}
			out[org.Level] = append(out[org.Level], orgID)
			break
		}
	}
	return out
}

// normalize drops empty maps so they are omitted from the serialized form.
func (c *Claims) normalize() {
	if len(c.Webservices) == 0 {
		c.Webservices = nil
	}
	if len(c.Organizations) == 0 {
		c.Organizations = nil
	}
	if len(c.Subscriptions) == 0 {
		c.Subscriptions = nil
	}
}

// User is the authenticated identity claims are generated for.
type User struct {
	ID          string
	IsSuperUser bool
}
