package claims

import (
	"context"
	"time"

	"github.com/platinummonkey/gatehouse/pkg/observability"
)

type timedLayer struct {
	inner   Layer
	metrics *observability.Metrics
}

// WithLayerMetrics wraps a layer so its execution time is observed per
// layer name. A nil metrics handle returns the layer unwrapped.
func WithLayerMetrics(l Layer, m *observability.Metrics) Layer {
	if m == nil {
		return l
	}
	return &timedLayer{inner: l, metrics: m}
}

func (t *timedLayer) Name() string { return t.inner.Name() }

func (t *timedLayer) Extend(ctx context.Context, user *User, c *Claims) error {
	start := time.Now()
	err := t.inner.Extend(ctx, user, c)
	t.metrics.ClaimsLayerDuration.WithLabelValues(t.inner.Name()).Observe(time.Since(start).Seconds())
	return err
}
