// Package registry holds the webservice descriptor registry: the read-only
// catalog of independently access-controlled API surface units. The registry
// is built once at process start and frozen with Finalize; every permission
// check starts with a registry lookup.
package registry

import (
	"fmt"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// AccessLevel names a requirement category a webservice can declare.
type AccessLevel string

const (
	// AccessLevelConnected grants full access to any authenticated caller.
	AccessLevelConnected AccessLevel = "CONNECTED"
	// AccessLevelOwner grants access limited to rows the caller owns.
	AccessLevelOwner AccessLevel = "OWNER"
	// AccessLevelRole grants full access through a global role.
	AccessLevelRole AccessLevel = "ROLE"
	// AccessLevelOrganizationRole grants access scoped to organizations
	// where the caller holds a role.
	AccessLevelOrganizationRole AccessLevel = "ORGANIZATION_ROLE"
	// AccessLevelInternalService grants full access to service-to-service
	// callers.
	AccessLevelInternalService AccessLevel = "INTERNAL_SERVICE"
)

// PublicType qualifies a public webservice.
type PublicType string

const (
	// PublicOpen is reachable by anyone, connected or not.
	PublicOpen PublicType = "NO_LIMITATION"
	// PublicDisconnectedOnly is reachable only by callers without a user
	// identity (login, password reset).
	PublicDisconnectedOnly PublicType = "DISCONNECTED"
)

// Descriptor is one registry entry. Descriptors are immutable after the
// registry is finalized.
type Descriptor struct {
	ID           string        `yaml:"id"`
	Enabled      bool          `yaml:"enabled"`
	IsPublic     bool          `yaml:"is_public"`
	PublicType   PublicType    `yaml:"public_type,omitempty"`
	IsLicensed   bool          `yaml:"is_licensed"`
	AccessLevels []AccessLevel `yaml:"access_levels,omitempty"`
}

// HasAccessLevel reports whether the descriptor declares the given level.
func (d *Descriptor) HasAccessLevel(level AccessLevel) bool {
	for _, l := range d.AccessLevels {
		if l == level {
			return true
		}
	}
	return false
}

// Registry is the webservice catalog. Mutations are rejected after Finalize;
// lookups are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	services  map[string]*Descriptor
	finalized bool

	// Lookup of per-level descriptor id sets is on the hot path of claims
	// generation; memoized after finalization.
	levelMemo *lru.Cache[AccessLevel, []string]
}

// New creates an empty registry.
func New() *Registry {
	memo, _ := lru.New[AccessLevel, []string](16)
	return &Registry{
		services:  make(map[string]*Descriptor),
		levelMemo: memo,
	}
}

// Register adds or replaces a descriptor. It fails once the registry is
// finalized.
func (r *Registry) Register(d Descriptor) error {
	if d.ID == "" {
		return fmt.Errorf("webservice descriptor requires an id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized {
		return fmt.Errorf("registry is finalized, cannot register %q", d.ID)
	}
	copied := d
	copied.AccessLevels = append([]AccessLevel(nil), d.AccessLevels...)
	r.services[d.ID] = &copied
	return nil
}

// Finalize validates and freezes the registry. After Finalize, Register
// returns an error and lookups never observe mutation.
func (r *Registry) Finalize() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized {
		return nil
	}
	for id, d := range r.services {
		if d.IsPublic && d.PublicType == "" {
			return fmt.Errorf("webservice %q is public but has no public_type", id)
		}
		if !d.IsPublic && d.PublicType != "" {
			return fmt.Errorf("webservice %q has public_type %q but is not public", id, d.PublicType)
		}
		for _, level := range d.AccessLevels {
			switch level {
			case AccessLevelConnected, AccessLevelOwner, AccessLevelRole,
				AccessLevelOrganizationRole, AccessLevelInternalService:
			default:
				return fmt.Errorf("webservice %q declares unknown access level %q", id, level)
			}
		}
	}
	r.finalized = true
	return nil
}

// Finalized reports whether the registry is frozen.
func (r *Registry) Finalized() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.finalized
}

// Lookup returns the descriptor for id, or nil when unknown.
func (r *Registry) Lookup(id string) *Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.services[id]
}

// IDsWithAccessLevel returns the sorted ids of enabled webservices declaring
// the given access level.
func (r *Registry) IDsWithAccessLevel(level AccessLevel) []string {
	r.mu.RLock()
	if r.finalized {
		if ids, ok := r.levelMemo.Get(level); ok {
			r.mu.RUnlock()
			return ids
		}
	}
	var ids []string
	for id, d := range r.services {
		if d.Enabled && d.HasAccessLevel(level) {
			ids = append(ids, id)
		}
	}
	finalized := r.finalized
	r.mu.RUnlock()

	sort.Strings(ids)
	if finalized {
		r.levelMemo.Add(level, ids)
	}
	return ids
}

// All returns every registered descriptor id, sorted.
func (r *Registry) All() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.services))
	for id := range r.services {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
