package permission

import (
	"context"

	"github.com/platinummonkey/gatehouse/pkg/access"
	"github.com/platinummonkey/gatehouse/pkg/entity"
	"github.com/platinummonkey/gatehouse/pkg/registry"
)

// PublicModule grants full access to every caller. It exists for services
// whose whole surface is public: a chain of just this module keeps the
// executor in the request path (unknown and disabled webservices are still
// rejected) without any identity requirements.
type PublicModule struct{}

// NewPublicModule creates the module.
func NewPublicModule() *PublicModule { return &PublicModule{} }

// Name implements Module.
func (m *PublicModule) Name() string { return "public" }

// CheckWebservicePermission implements Module.
func (m *PublicModule) CheckWebservicePermission(_ context.Context, _ *registry.Descriptor, _ *RequestContext) (Verdict, error) {
	return Grant(access.Full()), nil
}

// AddStatementConstraints implements Module; full access needs no predicates.
func (m *PublicModule) AddStatementConstraints(_ context.Context, _ *entity.Query, _ *entity.OrConditions, _ *RequestContext, _ *entity.Descriptor) error {
	return nil
}
