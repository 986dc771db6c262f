package claims

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Layer extends the accumulated claims with one extension's grants. Layers
// run in the configured order; each sees the claims produced by the layers
// before it and only ever adds keys, never removes a sibling's.
type Layer interface {
	Name() string
	Extend(ctx context.Context, user *User, c *Claims) error
}

// Generator composes the ordered layer list at process start. The chain is
// sequential: each layer must see its predecessors' output before extending.
type Generator struct {
	layers []Layer
	log    *logrus.Logger
}

// NewGenerator builds a generator over the given layers, base layer first.
func NewGenerator(log *logrus.Logger, layers ...Layer) *Generator {
	if log == nil {
		log = logrus.New()
	}
	return &Generator{layers: layers, log: log}
}

// Generate derives the claims payload for a user. Super users stop after the
// base layer: the permission layer grants them access wholesale, so the
// per-organization and per-subscription detail would be computed and never
// read. A layer error aborts generation; stale or partial claims must never
// be signed.
func (g *Generator) Generate(ctx context.Context, user *User) (*Claims, error) {
	if user == nil || user.ID == "" {
		return nil, fmt.Errorf("claims generation requires a user")
	}

	c := &Claims{
		Sub:         user.ID,
		IsSuperUser: user.IsSuperUser,
	}

	for i, layer := range g.layers {
		if user.IsSuperUser && i > 0 {
			break
		}
		if err := layer.Extend(ctx, user, c); err != nil {
			return nil, fmt.Errorf("claims layer %s failed: %w", layer.Name(), err)
		}
		g.log.WithFields(logrus.Fields{
			"layer": layer.Name(),
			"user":  user.ID,
		}).Debug("claims layer applied")
	}

	c.normalize()
	return c, nil
}
