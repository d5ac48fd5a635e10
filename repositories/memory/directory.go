package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/upb/rbac-control-plane/models"
	"github.com/upb/rbac-control-plane/repositories"
)

// OrganizationRepository implements repositories.OrganizationRepository
type OrganizationRepository struct {
	store *Store
}

func (r *OrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	defer r.store.acquire(ctx)()
	d := r.store.data

	if _, ok := d.orgs[org.ID]; ok {
		return fmt.Errorf("failed to create organization %s: %w", org.ID, repositories.ErrConflict)
	}
	stored := *org
	stored.Properties = nil
	d.orgs[org.ID] = stored
	return nil
}

func (r *OrganizationRepository) GetByID(ctx context.Context, id string) (*models.Organization, error) {
	defer r.store.acquire(ctx)()

	org, ok := r.store.data.orgs[id]
	if !ok {
		return nil, fmt.Errorf("%w: organization %s", repositories.ErrNotFound, id)
	}
	return &org, nil
}

func (r *OrganizationRepository) List(ctx context.Context, limit, offset int) ([]*models.Organization, error) {
	defer r.store.acquire(ctx)()

	ids := make([]string, 0, len(r.store.data.orgs))
	for id := range r.store.data.orgs {
		ids = append(ids, id)
	}
	ids = sortedKeys(ids, func(a, b string) bool { return a < b })

	out := []*models.Organization{}
	for _, id := range page(ids, limit, offset) {
		org := r.store.data.orgs[id]
		out = append(out, &org)
	}
	return out, nil
}

func (r *OrganizationRepository) Update(ctx context.Context, org *models.Organization) error {
	defer r.store.acquire(ctx)()
	d := r.store.data

	existing, ok := d.orgs[org.ID]
	if !ok {
		return fmt.Errorf("%w: organization %s", repositories.ErrNotFound, org.ID)
	}
	existing.Name = org.Name
	existing.Description = org.Description
	existing.UpdatedAt = org.UpdatedAt
	d.orgs[org.ID] = existing
	return nil
}

// Delete removes the organization and, like the ON DELETE CASCADE keys of
// the SQL schema, everything scoped to it
func (r *OrganizationRepository) Delete(ctx context.Context, id string) error {
	defer r.store.acquire(ctx)()
	d := r.store.data

	if _, ok := d.orgs[id]; !ok {
		return fmt.Errorf("%w: organization %s", repositories.ErrNotFound, id)
	}
	d.deleteProperties(func(k propertyKey) bool { return k.orgID == id })
	d.deleteUserGrants(func(g models.UserPermission) bool { return g.OrgID == id })
	d.deleteRoleGrants(func(g models.RolePermission) bool { return g.OrgID == id })
	d.deleteMemberships(func(m models.UserRole) bool { return m.OrgID == id })
	for k := range d.users {
		if k.orgID == id {
			delete(d.users, k)
		}
	}
	for k := range d.roles {
		if k.orgID == id {
			delete(d.roles, k)
		}
	}
	for k := range d.resources {
		if k.orgID == id {
			delete(d.resources, k)
		}
	}
	delete(d.orgs, id)
	return nil
}

// UserRepository implements repositories.UserRepository
type UserRepository struct {
	store *Store
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	defer r.store.acquire(ctx)()
	d := r.store.data

	if _, ok := d.orgs[user.OrgID]; !ok {
		return fmt.Errorf("failed to create user %s: %w", user.ID, repositories.ErrReferential)
	}
	key := entityKey{user.OrgID, user.ID}
	if _, ok := d.users[key]; ok {
		return fmt.Errorf("failed to create user %s: %w", user.ID, repositories.ErrConflict)
	}
	stored := *user
	stored.Properties = nil
	stored.RoleIDs = nil
	d.users[key] = stored
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, orgID, id string) (*models.User, error) {
	defer r.store.acquire(ctx)()

	user, ok := r.store.data.users[entityKey{orgID, id}]
	if !ok {
		return nil, fmt.Errorf("%w: user %s in organization %s", repositories.ErrNotFound, id, orgID)
	}
	return &user, nil
}

func (r *UserRepository) GetByIdentity(ctx context.Context, orgID, identityProvider, identityProviderUserID string) (*models.User, error) {
	defer r.store.acquire(ctx)()

	var match *models.User
	for k, u := range r.store.data.users {
		if k.orgID != orgID || u.IdentityProvider != identityProvider || u.IdentityProviderUserID != identityProviderUserID {
			continue
		}
		if match == nil || u.ID < match.ID {
			found := u
			match = &found
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: identity %s/%s in organization %s",
			repositories.ErrNotFound, identityProvider, identityProviderUserID, orgID)
	}
	return match, nil
}

func (r *UserRepository) List(ctx context.Context, orgID string, limit, offset int) ([]*models.User, error) {
	defer r.store.acquire(ctx)()

	keys := []entityKey{}
	for k := range r.store.data.users {
		if k.orgID == orgID {
			keys = append(keys, k)
		}
	}
	keys = sortedKeys(keys, func(a, b entityKey) bool { return a.id < b.id })

	out := []*models.User{}
	for _, k := range page(keys, limit, offset) {
		user := r.store.data.users[k]
		out = append(out, &user)
	}
	return out, nil
}

func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	defer r.store.acquire(ctx)()
	d := r.store.data

	key := entityKey{user.OrgID, user.ID}
	existing, ok := d.users[key]
	if !ok {
		return fmt.Errorf("%w: user %s in organization %s", repositories.ErrNotFound, user.ID, user.OrgID)
	}
	existing.IdentityProvider = user.IdentityProvider
	existing.IdentityProviderUserID = user.IdentityProviderUserID
	existing.UpdatedAt = user.UpdatedAt
	d.users[key] = existing
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, orgID, id string) error {
	defer r.store.acquire(ctx)()
	d := r.store.data

	key := entityKey{orgID, id}
	if _, ok := d.users[key]; !ok {
		return fmt.Errorf("%w: user %s in organization %s", repositories.ErrNotFound, id, orgID)
	}
	d.deleteUserDependents(orgID, id)
	delete(d.users, key)
	return nil
}

func (r *UserRepository) DeleteByOrg(ctx context.Context, orgID string) (int64, error) {
	defer r.store.acquire(ctx)()
	d := r.store.data

	var n int64
	for k := range d.users {
		if k.orgID == orgID {
			d.deleteUserDependents(k.orgID, k.id)
			delete(d.users, k)
			n++
		}
	}
	return n, nil
}

// RoleRepository implements repositories.RoleRepository
type RoleRepository struct {
	store *Store
}

func (r *RoleRepository) Create(ctx context.Context, role *models.Role) error {
	defer r.store.acquire(ctx)()
	d := r.store.data

	if _, ok := d.orgs[role.OrgID]; !ok {
		return fmt.Errorf("failed to create role %s: %w", role.ID, repositories.ErrReferential)
	}
	key := entityKey{role.OrgID, role.ID}
	if _, ok := d.roles[key]; ok {
		return fmt.Errorf("failed to create role %s: %w", role.ID, repositories.ErrConflict)
	}
	stored := *role
	stored.Properties = nil
	d.roles[key] = stored
	return nil
}

func (r *RoleRepository) GetByID(ctx context.Context, orgID, id string) (*models.Role, error) {
	defer r.store.acquire(ctx)()

	role, ok := r.store.data.roles[entityKey{orgID, id}]
	if !ok {
		return nil, fmt.Errorf("%w: role %s in organization %s", repositories.ErrNotFound, id, orgID)
	}
	return &role, nil
}

func (r *RoleRepository) List(ctx context.Context, orgID string, limit, offset int) ([]*models.Role, error) {
	defer r.store.acquire(ctx)()

	keys := []entityKey{}
	for k := range r.store.data.roles {
		if k.orgID == orgID {
			keys = append(keys, k)
		}
	}
	keys = sortedKeys(keys, func(a, b entityKey) bool { return a.id < b.id })

	out := []*models.Role{}
	for _, k := range page(keys, limit, offset) {
		role := r.store.data.roles[k]
		out = append(out, &role)
	}
	return out, nil
}

func (r *RoleRepository) Update(ctx context.Context, role *models.Role) error {
	defer r.store.acquire(ctx)()
	d := r.store.data

	key := entityKey{role.OrgID, role.ID}
	existing, ok := d.roles[key]
	if !ok {
		return fmt.Errorf("%w: role %s in organization %s", repositories.ErrNotFound, role.ID, role.OrgID)
	}
	existing.Name = role.Name
	existing.Description = role.Description
	existing.UpdatedAt = role.UpdatedAt
	d.roles[key] = existing
	return nil
}

func (r *RoleRepository) Delete(ctx context.Context, orgID, id string) error {
	defer r.store.acquire(ctx)()
	d := r.store.data

	key := entityKey{orgID, id}
	if _, ok := d.roles[key]; !ok {
		return fmt.Errorf("%w: role %s in organization %s", repositories.ErrNotFound, id, orgID)
	}
	d.deleteRoleDependents(orgID, id)
	delete(d.roles, key)
	return nil
}

func (r *RoleRepository) DeleteByOrg(ctx context.Context, orgID string) (int64, error) {
	defer r.store.acquire(ctx)()
	d := r.store.data

	var n int64
	for k := range d.roles {
		if k.orgID == orgID {
			d.deleteRoleDependents(k.orgID, k.id)
			delete(d.roles, k)
			n++
		}
	}
	return n, nil
}

// ResourceRepository implements repositories.ResourceRepository
type ResourceRepository struct {
	store *Store
}

func (r *ResourceRepository) Create(ctx context.Context, resource *models.Resource) error {
	defer r.store.acquire(ctx)()
	d := r.store.data

	if _, ok := d.orgs[resource.OrgID]; !ok {
		return fmt.Errorf("failed to create resource %s: %w", resource.ID, repositories.ErrReferential)
	}
	key := entityKey{resource.OrgID, resource.ID}
	if _, ok := d.resources[key]; ok {
		return fmt.Errorf("failed to create resource %s: %w", resource.ID, repositories.ErrConflict)
	}
	d.resources[key] = *resource
	return nil
}

func (r *ResourceRepository) GetByID(ctx context.Context, orgID, id string) (*models.Resource, error) {
	defer r.store.acquire(ctx)()

	res, ok := r.store.data.resources[entityKey{orgID, id}]
	if !ok {
		return nil, fmt.Errorf("%w: resource %s in organization %s", repositories.ErrNotFound, id, orgID)
	}
	return &res, nil
}

func (r *ResourceRepository) List(ctx context.Context, orgID, prefix string, limit, offset int) ([]*models.Resource, error) {
	defer r.store.acquire(ctx)()

	keys := []entityKey{}
	for k := range r.store.data.resources {
		if k.orgID == orgID && strings.HasPrefix(k.id, prefix) {
			keys = append(keys, k)
		}
	}
	keys = sortedKeys(keys, func(a, b entityKey) bool { return a.id < b.id })

	out := []*models.Resource{}
	for _, k := range page(keys, limit, offset) {
		res := r.store.data.resources[k]
		out = append(out, &res)
	}
	return out, nil
}

func (r *ResourceRepository) Update(ctx context.Context, resource *models.Resource) error {
	defer r.store.acquire(ctx)()
	d := r.store.data

	key := entityKey{resource.OrgID, resource.ID}
	existing, ok := d.resources[key]
	if !ok {
		return fmt.Errorf("%w: resource %s in organization %s", repositories.ErrNotFound, resource.ID, resource.OrgID)
	}
	existing.Name = resource.Name
	existing.Description = resource.Description
	existing.UpdatedAt = resource.UpdatedAt
	d.resources[key] = existing
	return nil
}

// Delete removes the resource row only. Grants are not keyed to resources.
func (r *ResourceRepository) Delete(ctx context.Context, orgID, id string) error {
	defer r.store.acquire(ctx)()

	key := entityKey{orgID, id}
	if _, ok := r.store.data.resources[key]; !ok {
		return fmt.Errorf("%w: resource %s in organization %s", repositories.ErrNotFound, id, orgID)
	}
	delete(r.store.data.resources, key)
	return nil
}

func (r *ResourceRepository) DeleteByOrg(ctx context.Context, orgID string) (int64, error) {
	defer r.store.acquire(ctx)()

	var n int64
	for k := range r.store.data.resources {
		if k.orgID == orgID {
			delete(r.store.data.resources, k)
			n++
		}
	}
	return n, nil
}

// cascade helpers; callers hold the store lock

func (d *state) deleteUserDependents(orgID, userID string) {
	d.deleteProperties(func(k propertyKey) bool {
		return k.owner == models.OwnerUser && k.orgID == orgID && k.ownerID == userID
	})
	d.deleteUserGrants(func(g models.UserPermission) bool { return g.OrgID == orgID && g.UserID == userID })
	d.deleteMemberships(func(m models.UserRole) bool { return m.OrgID == orgID && m.UserID == userID })
}

func (d *state) deleteRoleDependents(orgID, roleID string) {
	d.deleteProperties(func(k propertyKey) bool {
		return k.owner == models.OwnerRole && k.orgID == orgID && k.ownerID == roleID
	})
	d.deleteRoleGrants(func(g models.RolePermission) bool { return g.OrgID == orgID && g.RoleID == roleID })
	d.deleteMemberships(func(m models.UserRole) bool { return m.OrgID == orgID && m.RoleID == roleID })
}

func (d *state) deleteProperties(match func(propertyKey) bool) int64 {
	var n int64
	for k := range d.properties {
		if match(k) {
			delete(d.properties, k)
			n++
		}
	}
	return n
}

func (d *state) deleteUserGrants(match func(models.UserPermission) bool) int64 {
	kept := d.userGrants[:0]
	var n int64
	for _, g := range d.userGrants {
		if match(g) {
			n++
			continue
		}
		kept = append(kept, g)
	}
	d.userGrants = kept
	return n
}

func (d *state) deleteRoleGrants(match func(models.RolePermission) bool) int64 {
	kept := d.roleGrants[:0]
	var n int64
	for _, g := range d.roleGrants {
		if match(g) {
			n++
			continue
		}
		kept = append(kept, g)
	}
	d.roleGrants = kept
	return n
}

func (d *state) deleteMemberships(match func(models.UserRole) bool) int64 {
	kept := d.memberships[:0]
	var n int64
	for _, m := range d.memberships {
		if match(m) {
			n++
			continue
		}
		kept = append(kept, m)
	}
	d.memberships = kept
	return n
}
