package permission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/gatehouse/pkg/access"
	"github.com/platinummonkey/gatehouse/pkg/entity"
	"github.com/platinummonkey/gatehouse/pkg/observability"
	"github.com/platinummonkey/gatehouse/pkg/registry"
)

// Chain runs an ordered list of permission modules against a request.
//
// The check phase walks modules in order. A decisive verdict (Full or
// Denied) stops the walk immediately. Scoped verdicts accumulate by scope
// key union. A module that panics or returns an error is logged and treated
// as an abstention, so one broken module cannot flip a denial into a grant
// or vice versa. If every module abstains the request is denied.
type Chain struct {
	registry *registry.Registry
	modules  []Module
	log      *logrus.Logger
	metrics  *observability.Metrics
}

// NewChain builds a chain over the given registry and modules. Module order
// is evaluation order. metrics may be nil.
func NewChain(reg *registry.Registry, log *logrus.Logger, metrics *observability.Metrics, modules ...Module) (*Chain, error) {
	if reg == nil {
		return nil, fmt.Errorf("webservice registry is required")
	}
	if len(modules) == 0 {
		return nil, fmt.Errorf("at least one permission module is required")
	}
	if log == nil {
		log = logrus.New()
	}
	return &Chain{
		registry: reg,
		modules:  modules,
		log:      log,
		metrics:  metrics,
	}, nil
}

// Modules returns the configured module names in evaluation order.
func (c *Chain) Modules() []string {
	names := make([]string, len(c.modules))
	for i, m := range c.modules {
		names[i] = m.Name()
	}
	return names
}

// GetAccessType computes the access decision for one webservice call and
// writes it into rc.AccessType. The returned *Error is nil when access is
// granted (fully or scoped); on denial it carries the terminal code.
func (c *Chain) GetAccessType(ctx context.Context, webserviceID string, rc *RequestContext) (access.Decision, *Error) {
	start := time.Now()
	decision, terminal := c.evaluate(ctx, webserviceID, rc)
	rc.AccessType = decision

	if c.metrics != nil {
		c.metrics.ChainDuration.WithLabelValues(webserviceID).Observe(time.Since(start).Seconds())
		c.metrics.AccessDecisionsTotal.WithLabelValues(webserviceID, decision.Kind().String()).Inc()
	}
	if decision.Granted() {
		return decision, nil
	}
	return decision, terminal
}

func (c *Chain) evaluate(ctx context.Context, webserviceID string, rc *RequestContext) (access.Decision, *Error) {
	ws := c.registry.Lookup(webserviceID)
	if ws == nil || !ws.Enabled {
		// Unknown and disabled are indistinguishable to the caller.
		c.log.WithField("webservice", webserviceID).Debug("webservice not found or disabled")
		return access.Denied(), ErrUnknownWebservice
	}

	terminal := ErrPermissionDenied
	acc := access.Denied()

	for _, m := range c.modules {
		verdict, err := c.checkModule(ctx, m, ws, rc)
		if err != nil {
			c.log.WithError(err).WithFields(logrus.Fields{
				"module":     m.Name(),
				"webservice": webserviceID,
			}).Error("permission module failed, treating as abstention")
			if c.metrics != nil {
				c.metrics.ModuleFailuresTotal.WithLabelValues(m.Name()).Inc()
			}
			continue
		}
		if !verdict.Decided() {
			continue
		}

		d := verdict.Decision()
		if d.Kind() != access.KindScoped {
			// Decisive: no later module gets a say.
			if verdict.Err() != nil {
				terminal = verdict.Err()
			}
			return d, terminal
		}
		acc = access.Merge(acc, d)
	}

	return acc, terminal
}

// checkModule isolates one module's check so a panic inside it surfaces as
// an error instead of killing the request.
func (c *Chain) checkModule(ctx context.Context, m Module, ws *registry.Descriptor, rc *RequestContext) (verdict Verdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			verdict = Abstain()
			err = fmt.Errorf("module %s panicked: %v", m.Name(), r)
		}
	}()
	return m.CheckWebservicePermission(ctx, ws, rc)
}

// AddAccessConstraints narrows q to the rows the caller may see, based on
// the decision already stored in rc.AccessType. Full access leaves the
// query untouched. Denied access appends an always-false predicate so the
// statement still executes and returns zero rows. Scoped access asks every
// module for its predicates and attaches their disjunction; a scoped
// decision where no module contributes anything also degrades to the
// always-false predicate.
//
// Unlike the check phase, errors here propagate: a tenant-scoped entity
// without organization filters is a configuration fault that must fail the
// request, never silently hide rows.
func (c *Chain) AddAccessConstraints(ctx context.Context, q *entity.Query, rc *RequestContext, desc *entity.Descriptor) error {
	switch rc.AccessType.Kind() {
	case access.KindFull:
		return nil
	case access.KindDenied:
		q.Where(entity.AlwaysFalse())
		return nil
	}

	var or entity.OrConditions
	for _, m := range c.modules {
		if err := m.AddStatementConstraints(ctx, q, &or, rc, desc); err != nil {
			var cfgErr *entity.ConfigError
			if c.metrics != nil && errors.As(err, &cfgErr) {
				c.metrics.ConfigErrorsTotal.WithLabelValues(cfgErr.Entity).Inc()
			}
			return fmt.Errorf("failed to add statement constraints for module %s: %w", m.Name(), err)
		}
	}
	q.Where(or.Condition())
	return nil
}

// CheckObjectPermission re-checks the chain's decision against one already
// loaded object, for writes and single-object reads where row filtering
// never ran.
func (c *Chain) CheckObjectPermission(rc *RequestContext, desc *entity.Descriptor, obj interface{}) bool {
	return entity.CheckPermission(desc, obj, rc.UserID(), rc.AccessType)
}
