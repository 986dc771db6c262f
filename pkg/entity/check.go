package entity

import "github.com/platinummonkey/gatehouse/pkg/access"

// CheckPermission evaluates an access decision against a single loaded
// object, without a query. Role-scoped access passes outright because the
// webservice gate already ran; owner and organization scopes consult the
// entity's accessing-users / accessing-organizations capabilities.
func CheckPermission(d *Descriptor, obj interface{}, userID string, decision access.Decision) bool {
	switch decision.Kind() {
	case access.KindFull:
		return true
	case access.KindDenied:
		return false
	}

	scope := decision.Scope()

	if scope.Role {
		return true
	}

	if scope.Owner && userID != "" && d.AccessingUsers != nil {
		for _, id := range d.AccessingUsers(obj) {
			if id == userID {
				return true
			}
		}
	}

	if len(scope.Orgs) > 0 && d.AccessingOrgs != nil {
		objOrgs := d.AccessingOrgs(obj)
		for kind, grantedIDs := range scope.Orgs {
			objIDs := objOrgs[kind]
			for _, granted := range grantedIDs {
				for _, objID := range objIDs {
					if granted == objID {
						return true
					}
				}
			}
		}
	}

	return false
}
