// Package memory is an in-process storage backend. It enforces the same
// keys, tenant references and cascades as the PostgreSQL schema and is used
// for tests and STORAGE_BACKEND=memory.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/upb/rbac-control-plane/models"
	"github.com/upb/rbac-control-plane/repositories"
	"go.uber.org/zap"
)

type entityKey struct {
	orgID string
	id    string
}

type propertyKey struct {
	owner   models.PropertyOwner
	orgID   string
	ownerID string
	name    string
}

// state is everything a transaction snapshots and restores
type state struct {
	orgs       map[string]models.Organization
	users      map[entityKey]models.User
	roles      map[entityKey]models.Role
	resources  map[entityKey]models.Resource
	properties map[propertyKey]models.Property

	// grant and membership slices keep insertion order
	userGrants  []models.UserPermission
	roleGrants  []models.RolePermission
	memberships []models.UserRole
}

func newState() *state {
	return &state{
		orgs:       map[string]models.Organization{},
		users:      map[entityKey]models.User{},
		roles:      map[entityKey]models.Role{},
		resources:  map[entityKey]models.Resource{},
		properties: map[propertyKey]models.Property{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.orgs {
		c.orgs[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.roles {
		c.roles[k] = v
	}
	for k, v := range s.resources {
		c.resources[k] = v
	}
	for k, v := range s.properties {
		c.properties[k] = v
	}
	c.userGrants = append([]models.UserPermission(nil), s.userGrants...)
	c.roleGrants = append([]models.RolePermission(nil), s.roleGrants...)
	c.memberships = append([]models.UserRole(nil), s.memberships...)
	return c
}

// Store holds all tenants in memory. Operations are serialized; a transaction
// holds the lock from Begin until Commit or Rollback.
type Store struct {
	mu     sync.Mutex
	data   *state
	logger *zap.Logger
}

// NewStore creates an empty store
func NewStore(logger *zap.Logger) *Store {
	return &Store{data: newState(), logger: logger}
}

// acquire locks the store unless ctx carries an open transaction of this store
func (s *Store) acquire(ctx context.Context) func() {
	if tx, ok := ctx.Value(txContextKey{}).(*Transaction); ok && tx.store == s && tx.open() {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// HealthCheck always succeeds
func (s *Store) HealthCheck(ctx context.Context) error {
	return ctx.Err()
}

// NewRepositories returns every repository backed by this store
func (s *Store) NewRepositories() *repositories.Repositories {
	return &repositories.Repositories{
		Organizations: &OrganizationRepository{store: s},
		Users:         &UserRepository{store: s},
		Roles:         &RoleRepository{store: s},
		Resources:     &ResourceRepository{store: s},
		Properties:    &PropertyRepository{store: s},
		Permissions:   &PermissionRepository{store: s},
		Memberships:   &MembershipRepository{store: s},
		TxManager:     &TransactionManager{store: s},
		Health:        s,
	}
}

// page applies limit and offset to an already sorted slice
func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func sortedKeys[K any](keys []K, less func(a, b K) bool) []K {
	sort.Slice(keys, func(i, j int) bool { return less(keys[i], keys[j]) })
	return keys
}
