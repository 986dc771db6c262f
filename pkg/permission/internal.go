package permission

import (
	"context"

	"github.com/platinummonkey/gatehouse/pkg/access"
	"github.com/platinummonkey/gatehouse/pkg/entity"
	"github.com/platinummonkey/gatehouse/pkg/registry"
)

// InternalServiceModule grants trusted service-to-service callers full
// access to webservices that declare the INTERNAL_SERVICE level. Anything
// else abstains; a service caller hitting a user-only webservice falls
// through the chain and is denied.
type InternalServiceModule struct{}

// NewInternalServiceModule creates the module.
func NewInternalServiceModule() *InternalServiceModule { return &InternalServiceModule{} }

// Name implements Module.
func (m *InternalServiceModule) Name() string { return "internal_service" }

// CheckWebservicePermission implements Module.
func (m *InternalServiceModule) CheckWebservicePermission(_ context.Context, ws *registry.Descriptor, rc *RequestContext) (Verdict, error) {
	if rc.ServiceCaller == nil {
		return Abstain(), nil
	}
	if ws.HasAccessLevel(registry.AccessLevelInternalService) {
		return Grant(access.Full()), nil
	}
	return Abstain(), nil
}

// AddStatementConstraints implements Module; internal access is full or nothing.
func (m *InternalServiceModule) AddStatementConstraints(_ context.Context, _ *entity.Query, _ *entity.OrConditions, _ *RequestContext, _ *entity.Descriptor) error {
	return nil
}
