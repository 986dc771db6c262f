// Package licensing verifies subscription state with the external license
// provider and exposes plan rules (features and quotas) to the rest of the
// system.
package licensing

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/platinummonkey/gatehouse/pkg/observability"
)

// Provider asks the external licensing system for the authoritative status
// of one subscription.
type Provider interface {
	SubscriptionStatus(ctx context.Context, subscriptionID string) (string, error)
}

const (
	defaultTimeout = 10 * time.Second
	defaultRetry   = 2
)

// HTTPProvider talks to the license provider's REST API.
type HTTPProvider struct {
	client  *resty.Client
	metrics *observability.Metrics
}

// HTTPProviderConfig holds license provider connection settings.
type HTTPProviderConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// NewHTTPProvider creates a provider client; metrics may be nil.
func NewHTTPProvider(cfg HTTPProviderConfig, metrics *observability.Metrics) (*HTTPProvider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("license provider base URL is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(defaultRetry).
		SetHeader("Accept", "application/json")
	if cfg.Token != "" {
		client.SetAuthToken(cfg.Token)
	}

	return &HTTPProvider{client: client, metrics: metrics}, nil
}

type subscriptionStatusResponse struct {
	Status string `json:"status"`
}

// SubscriptionStatus implements Provider.
func (p *HTTPProvider) SubscriptionStatus(ctx context.Context, subscriptionID string) (string, error) {
	start := time.Now()
	var result subscriptionStatusResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetPathParam("id", subscriptionID).
		SetResult(&result).
		Get("/v1/subscriptions/{id}")
	if p.metrics != nil {
		p.metrics.ProviderRequestDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		p.count("error")
		return "", fmt.Errorf("failed to query license provider: %w", err)
	}
	if resp.IsError() {
		p.count("error")
		return "", fmt.Errorf("license provider returned %s", resp.Status())
	}
	if result.Status == "" {
		p.count("error")
		return "", fmt.Errorf("license provider returned no status")
	}

	p.count("ok")
	return result.Status, nil
}

func (p *HTTPProvider) count(status string) {
	if p.metrics != nil {
		p.metrics.ProviderRequestsTotal.WithLabelValues(status).Inc()
	}
}

// StaticProvider answers every status query with a fixed value. Deployments
// without an external license provider use it with "active".
type StaticProvider struct {
	Status string
}

// SubscriptionStatus implements Provider.
func (p *StaticProvider) SubscriptionStatus(context.Context, string) (string, error) {
	return p.Status, nil
}
