package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/upb/rbac-control-plane/models"
	"github.com/upb/rbac-control-plane/repositories"
)

// PermissionRepository implements repositories.PermissionRepository
type PermissionRepository struct {
	store *Store
}

// GrantUserPermission upserts a direct grant, refreshing CreatedAt in place
func (r *PermissionRepository) GrantUserPermission(ctx context.Context, orgID, userID, resourceID, action string) (*models.UserPermission, error) {
	defer r.store.acquire(ctx)()
	d := r.store.data

	if _, ok := d.users[entityKey{orgID, userID}]; !ok {
		return nil, fmt.Errorf("failed to grant %s on %s to user %s: %w", action, resourceID, userID, repositories.ErrReferential)
	}

	now := time.Now().UTC()
	for i, g := range d.userGrants {
		if g.OrgID == orgID && g.UserID == userID && g.ResourceID == resourceID && g.Action == action {
			d.userGrants[i].CreatedAt = now
			grant := d.userGrants[i]
			return &grant, nil
		}
	}

	grant := models.UserPermission{OrgID: orgID, UserID: userID, ResourceID: resourceID, Action: action, CreatedAt: now}
	d.userGrants = append(d.userGrants, grant)
	return &grant, nil
}

func (r *PermissionRepository) RevokeUserPermission(ctx context.Context, orgID, userID, resourceID, action string) (bool, error) {
	defer r.store.acquire(ctx)()

	n := r.store.data.deleteUserGrants(func(g models.UserPermission) bool {
		return g.OrgID == orgID && g.UserID == userID && g.ResourceID == resourceID && g.Action == action
	})
	return n > 0, nil
}

func (r *PermissionRepository) GetUserPermissions(ctx context.Context, orgID, userID string, filter models.GrantFilter) ([]models.UserPermission, error) {
	defer r.store.acquire(ctx)()

	out := []models.UserPermission{}
	for _, g := range r.store.data.userGrants {
		if g.OrgID == orgID && g.UserID == userID && filter.Matches(g.ResourceID, g.Action) {
			out = append(out, g)
		}
	}
	return out, nil
}

// GrantRolePermission upserts a role grant
func (r *PermissionRepository) GrantRolePermission(ctx context.Context, orgID, roleID, resourceID, action string) (*models.RolePermission, error) {
	defer r.store.acquire(ctx)()
	d := r.store.data

	if _, ok := d.roles[entityKey{orgID, roleID}]; !ok {
		return nil, fmt.Errorf("failed to grant %s on %s to role %s: %w", action, resourceID, roleID, repositories.ErrReferential)
	}

	now := time.Now().UTC()
	for i, g := range d.roleGrants {
		if g.OrgID == orgID && g.RoleID == roleID && g.ResourceID == resourceID && g.Action == action {
			d.roleGrants[i].CreatedAt = now
			grant := d.roleGrants[i]
			return &grant, nil
		}
	}

	grant := models.RolePermission{OrgID: orgID, RoleID: roleID, ResourceID: resourceID, Action: action, CreatedAt: now}
	d.roleGrants = append(d.roleGrants, grant)
	return &grant, nil
}

func (r *PermissionRepository) RevokeRolePermission(ctx context.Context, orgID, roleID, resourceID, action string) (bool, error) {
	defer r.store.acquire(ctx)()

	n := r.store.data.deleteRoleGrants(func(g models.RolePermission) bool {
		return g.OrgID == orgID && g.RoleID == roleID && g.ResourceID == resourceID && g.Action == action
	})
	return n > 0, nil
}

func (r *PermissionRepository) GetRolePermissions(ctx context.Context, orgID, roleID string, filter models.GrantFilter) ([]models.RolePermission, error) {
	defer r.store.acquire(ctx)()

	out := []models.RolePermission{}
	for _, g := range r.store.data.roleGrants {
		if g.OrgID == orgID && g.RoleID == roleID && filter.Matches(g.ResourceID, g.Action) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *PermissionRepository) ListRoleGrants(ctx context.Context, orgID string, roleIDs []string) ([]models.RolePermission, error) {
	defer r.store.acquire(ctx)()

	wanted := make(map[string]struct{}, len(roleIDs))
	for _, id := range roleIDs {
		wanted[id] = struct{}{}
	}

	out := []models.RolePermission{}
	for _, g := range r.store.data.roleGrants {
		if _, ok := wanted[g.RoleID]; ok && g.OrgID == orgID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *PermissionRepository) DeleteUserPermissions(ctx context.Context, orgID, userID string) (int64, error) {
	defer r.store.acquire(ctx)()
	return r.store.data.deleteUserGrants(func(g models.UserPermission) bool {
		return g.OrgID == orgID && g.UserID == userID
	}), nil
}

func (r *PermissionRepository) DeleteRolePermissions(ctx context.Context, orgID, roleID string) (int64, error) {
	defer r.store.acquire(ctx)()
	return r.store.data.deleteRoleGrants(func(g models.RolePermission) bool {
		return g.OrgID == orgID && g.RoleID == roleID
	}), nil
}

func (r *PermissionRepository) DeleteByResource(ctx context.Context, orgID, resourceID string) (int64, error) {
	defer r.store.acquire(ctx)()
	d := r.store.data

	users := d.deleteUserGrants(func(g models.UserPermission) bool {
		return g.OrgID == orgID && g.ResourceID == resourceID
	})
	roles := d.deleteRoleGrants(func(g models.RolePermission) bool {
		return g.OrgID == orgID && g.ResourceID == resourceID
	})
	return users + roles, nil
}

func (r *PermissionRepository) DeleteByOrg(ctx context.Context, orgID string) (int64, error) {
	defer r.store.acquire(ctx)()
	d := r.store.data

	users := d.deleteUserGrants(func(g models.UserPermission) bool { return g.OrgID == orgID })
	roles := d.deleteRoleGrants(func(g models.RolePermission) bool { return g.OrgID == orgID })
	return users + roles, nil
}

// MembershipRepository implements repositories.MembershipRepository
type MembershipRepository struct {
	store *Store
}

func (r *MembershipRepository) AssignUserRole(ctx context.Context, orgID, userID, roleID string) (bool, error) {
	defer r.store.acquire(ctx)()
	d := r.store.data

	if _, ok := d.users[entityKey{orgID, userID}]; !ok {
		return false, fmt.Errorf("failed to assign role %s to user %s: %w", roleID, userID, repositories.ErrReferential)
	}
	if _, ok := d.roles[entityKey{orgID, roleID}]; !ok {
		return false, fmt.Errorf("failed to assign role %s to user %s: %w", roleID, userID, repositories.ErrReferential)
	}

	for _, m := range d.memberships {
		if m.OrgID == orgID && m.UserID == userID && m.RoleID == roleID {
			return false, nil
		}
	}
	d.memberships = append(d.memberships, models.UserRole{
		OrgID:     orgID,
		UserID:    userID,
		RoleID:    roleID,
		CreatedAt: time.Now().UTC(),
	})
	return true, nil
}

func (r *MembershipRepository) UnassignUserRole(ctx context.Context, orgID, userID, roleID string) (bool, error) {
	defer r.store.acquire(ctx)()

	n := r.store.data.deleteMemberships(func(m models.UserRole) bool {
		return m.OrgID == orgID && m.UserID == userID && m.RoleID == roleID
	})
	return n > 0, nil
}

func (r *MembershipRepository) GetUserRoleIDs(ctx context.Context, orgID, userID string) ([]string, error) {
	defer r.store.acquire(ctx)()

	out := []string{}
	for _, m := range r.store.data.memberships {
		if m.OrgID == orgID && m.UserID == userID {
			out = append(out, m.RoleID)
		}
	}
	return out, nil
}

func (r *MembershipRepository) GetRoleUserIDs(ctx context.Context, orgID, roleID string) ([]string, error) {
	defer r.store.acquire(ctx)()

	out := []string{}
	for _, m := range r.store.data.memberships {
		if m.OrgID == orgID && m.RoleID == roleID {
			out = append(out, m.UserID)
		}
	}
	return out, nil
}

func (r *MembershipRepository) DeleteByUser(ctx context.Context, orgID, userID string) (int64, error) {
	defer r.store.acquire(ctx)()
	return r.store.data.deleteMemberships(func(m models.UserRole) bool {
		return m.OrgID == orgID && m.UserID == userID
	}), nil
}

func (r *MembershipRepository) DeleteByRole(ctx context.Context, orgID, roleID string) (int64, error) {
	defer r.store.acquire(ctx)()
	return r.store.data.deleteMemberships(func(m models.UserRole) bool {
		return m.OrgID == orgID && m.RoleID == roleID
	}), nil
}

func (r *MembershipRepository) DeleteByOrg(ctx context.Context, orgID string) (int64, error) {
	defer r.store.acquire(ctx)()
	return r.store.data.deleteMemberships(func(m models.UserRole) bool { return m.OrgID == orgID }), nil
}
