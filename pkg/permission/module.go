package permission

import (
	"context"

	"github.com/platinummonkey/gatehouse/pkg/access"
	"github.com/platinummonkey/gatehouse/pkg/entity"
	"github.com/platinummonkey/gatehouse/pkg/registry"
)

// Verdict is a single module's answer during the check phase. A module that
// has nothing to say abstains; the chain moves on to the next module.
type Verdict struct {
	decided  bool
	decision access.Decision
	err      *Error
}

// Abstain yields to the rest of the chain.
func Abstain() Verdict { return Verdict{} }

// Grant carries a decision into the chain: Full and Denied are decisive,
// Scoped accumulates with other scoped verdicts.
func Grant(d access.Decision) Verdict {
	return Verdict{decided: true, decision: d}
}

// Deny is a decisive denial with a specific terminal error.
func Deny(err *Error) Verdict {
	if err == nil {
		err = ErrPermissionDenied
	}
	return Verdict{decided: true, decision: access.Denied(), err: err}
}

// Decided reports whether the module produced a decision at all.
func (v Verdict) Decided() bool { return v.decided }

// Decision returns the carried decision; meaningless unless Decided.
func (v Verdict) Decision() access.Decision { return v.decision }

// Err returns the terminal error attached to a denial, if any.
func (v Verdict) Err() *Error { return v.err }

// Module is one link in the permission chain. Both phases run over the same
// ordered module list.
//
// CheckWebservicePermission answers for operation-level access. Returned
// errors are module-internal failures: the chain logs them and treats the
// module as having abstained, it never converts them into a denial.
//
// AddStatementConstraints contributes row-level predicates for a scoped
// decision. A module only reacts to the scope keys it owns in
// rc.AccessType and ignores everything else, so modules compose without
// knowing about each other. Errors here are not swallowed: a misconfigured
// entity must fail the request loudly.
type Module interface {
	Name() string
	CheckWebservicePermission(ctx context.Context, ws *registry.Descriptor, rc *RequestContext) (Verdict, error)
	AddStatementConstraints(ctx context.Context, q *entity.Query, or *entity.OrConditions, rc *RequestContext, desc *entity.Descriptor) error
}
