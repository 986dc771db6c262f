// Package access defines the tri-state access decision shared by every
// permission module: denied, fully granted, or granted-with-scope.
//
// A Decision is process-local and never serialized externally. Scoped
// decisions carry a ScopeSet whose entries are merged by key union across
// modules: later modules augment, never erase, earlier scoped grants within
// the same request.
package access

// DecisionKind discriminates the Decision tagged union.
type DecisionKind int

const (
	// KindDenied means no access.
	KindDenied DecisionKind = iota
	// KindFull means unconditional access with no row filtering.
	KindFull
	// KindScoped means access conditioned on matching rows.
	KindScoped
)

func (k DecisionKind) String() string {
	switch k {
	case KindDenied:
		return "denied"
	case KindFull:
		return "full"
	case KindScoped:
		return "scoped"
	}
	return "unknown"
}

// Decision is the result of the permission chain for one webservice call.
// The zero value is Denied.
type Decision struct {
	kind  DecisionKind
	scope ScopeSet
}

// Denied returns the denied decision.
func Denied() Decision {
	return Decision{kind: KindDenied}
}

// Full returns the unconditional-access decision.
func Full() Decision {
	return Decision{kind: KindFull}
}

// Scoped returns a decision conditioned on the given scope set.
// The set is copied; callers may keep mutating their own map.
func Scoped(set ScopeSet) Decision {
	return Decision{kind: KindScoped, scope: set.clone()}
}

// Kind returns the union discriminant.
func (d Decision) Kind() DecisionKind { return d.kind }

// Granted reports whether the call passes the webservice gate at all.
// Scoped access is granted; row filtering happens at query time.
func (d Decision) Granted() bool { return d.kind != KindDenied }

// Scope returns the scope set of a KindScoped decision. Other kinds
// yield the zero set.
func (d Decision) Scope() ScopeSet {
	if d.kind != KindScoped {
		return ScopeSet{}
	}
	return d.scope
}

// Merge combines a freshly computed scoped decision into an accumulated one.
// Only scoped decisions merge; decisive results (Full/Denied) replace the
// accumulator at the chain level, not here. Merging unions keys: owner and
// role grants are sticky, organization id lists are unioned per kind.
func Merge(acc, next Decision) Decision {
	if next.kind != KindScoped {
		return next
	}
	if acc.kind != KindScoped {
		return next
	}
	merged := acc.scope.clone()
	merged.union(next.scope)
	return Decision{kind: KindScoped, scope: merged}
}
