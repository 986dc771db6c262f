package entity

import (
	"fmt"
	"sort"
	"sync"

	"github.com/platinummonkey/gatehouse/pkg/access"
)

// tenantColumns are the conventional tenant-scoping column names. An entity
// carrying one of these must either override OrgFilters or be explicitly
// marked as global reference data.
var tenantColumns = map[string]struct{}{
	"client_id":       {},
	"organization_id": {},
	"department_id":   {},
}

// UserFilterFunc returns the predicates selecting rows the given user owns.
// The query is available for adding joins.
type UserFilterFunc func(q *Query, userID string) []Condition

// OrgFilterFunc returns the predicates selecting rows belonging to the
// organizations in scope.
type OrgFilterFunc func(q *Query, scope access.OrgScope) []Condition

// AccessingUsersFunc lists the user ids allowed to reach one loaded object.
type AccessingUsersFunc func(obj interface{}) []string

// AccessingOrgsFunc lists the organizations allowed to reach one loaded
// object, per organization kind.
type AccessingOrgsFunc func(obj interface{}) access.OrgScope

// Descriptor declares one persisted entity to the permission layer.
type Descriptor struct {
	// Name is the registry key, e.g. "project".
	Name string
	// Table is the SQL table name.
	Table string
	// Columns lists the schema's column names; used to recognize tenant
	// scoping columns.
	Columns []string
	// GlobalReference exempts configuration/reference entities from the
	// tenant-filter safety net even if they carry a tenant-shaped column.
	GlobalReference bool

	// UserFilters implements owner-scoped row filtering; nil means no rows
	// are owner-reachable (the default).
	UserFilters UserFilterFunc
	// OrgFilters implements organization-scoped row filtering; nil is the
	// default no-op that the safety net rejects for tenant-scoped entities.
	OrgFilters OrgFilterFunc

	// AccessingUsers and AccessingOrgs drive the in-memory permission check
	// on a single already-loaded object. Both default to "nobody".
	AccessingUsers AccessingUsersFunc
	AccessingOrgs  AccessingOrgsFunc
}

// TenantColumn returns the first recognized tenant-scoping column, or "".
func (d *Descriptor) TenantColumn() string {
	for _, col := range d.Columns {
		if _, ok := tenantColumns[col]; ok {
			return col
		}
	}
	return ""
}

// ConfigError signals a programming or deployment defect in the entity
// registry. It is fatal and must never be downgraded to an access denial.
type ConfigError struct {
	Entity string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("entity configuration error for %q: %s", e.Entity, e.Reason)
}

// CheckOrgFilterOverride is the tenant-filter safety net: an entity with a
// recognized tenant column that kept the default OrgFilters and is not
// exempt fails loudly instead of leaking cross-tenant rows.
func CheckOrgFilterOverride(d *Descriptor) error {
	if d == nil {
		return &ConfigError{Entity: "<nil>", Reason: "entity descriptor required for row filtering"}
	}
	col := d.TenantColumn()
	if col == "" || d.GlobalReference || d.OrgFilters != nil {
		return nil
	}
	return &ConfigError{
		Entity: d.Name,
		Reason: fmt.Sprintf("tenant-scoped column %q present but organization row filtering is not implemented", col),
	}
}

// Registry maps entity names to descriptors. Populated at startup; Validate
// turns forgotten tenant-filter overrides into a startup failure instead of
// a first-query runtime one.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Descriptor
}

// NewRegistry creates an empty entity registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Descriptor)}
}

// Register adds a descriptor.
func (r *Registry) Register(d *Descriptor) error {
	if d == nil || d.Name == "" {
		return fmt.Errorf("entity descriptor requires a name")
	}
	if d.Table == "" {
		return fmt.Errorf("entity descriptor %q requires a table", d.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[d.Name]; exists {
		return fmt.Errorf("entity %q already registered", d.Name)
	}
	r.entries[d.Name] = d
	return nil
}

// Lookup returns the descriptor for name, or nil.
func (r *Registry) Lookup(name string) *Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[name]
}

// Names returns the registered entity names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate runs the tenant-filter safety net over every registered entity.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.entries {
		if err := CheckOrgFilterOverride(d); err != nil {
			return err
		}
	}
	return nil
}
