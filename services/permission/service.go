package permission

import (
	"context"

	"github.com/upb/rbac-control-plane/models"
	"github.com/upb/rbac-control-plane/repositories"
	"github.com/upb/rbac-control-plane/services"
	"go.uber.org/zap"
)

// Service is the permission engine facade used by the API layer: grant and
// membership management plus resolution and checks, with input validation
// and domain error translation.
type Service struct {
	permissions repositories.PermissionRepository
	memberships repositories.MembershipRepository
	resolver    *Resolver
	cache       *MembershipCache
	logger      *zap.Logger
}

// NewService creates a Service. cache may be nil and must be the cache the
// resolver's source reads from.
func NewService(
	permissions repositories.PermissionRepository,
	memberships repositories.MembershipRepository,
	resolver *Resolver,
	cache *MembershipCache,
	logger *zap.Logger,
) *Service {
	return &Service{
		permissions: permissions,
		memberships: memberships,
		resolver:    resolver,
		cache:       cache,
		logger:      logger,
	}
}

// Resolver returns the underlying resolver.
func (s *Service) Resolver() *Resolver {
	return s.resolver
}

// GrantUserPermission grants action on resourceID directly to a user.
// Re-granting refreshes the grant's creation time.
func (s *Service) GrantUserPermission(ctx context.Context, orgID, userID, resourceID, action string) (*models.UserPermission, error) {
	if err := services.RequireFields("org_id", orgID, "user_id", userID, "resource_id", resourceID, "action", action); err != nil {
		return nil, err
	}

	grant, err := s.permissions.GrantUserPermission(ctx, orgID, userID, resourceID, action)
	if err != nil {
		return nil, services.FromRepository("failed to grant user permission", err)
	}

	s.logger.Info("user permission granted",
		zap.String("org_id", orgID),
		zap.String("user_id", userID),
		zap.String("resource_id", resourceID),
		zap.String("action", action))

	return grant, nil
}

// RevokeUserPermission removes a direct grant. Revoking an absent grant is
// not an error and returns false.
func (s *Service) RevokeUserPermission(ctx context.Context, orgID, userID, resourceID, action string) (bool, error) {
	if err := services.RequireFields("org_id", orgID, "user_id", userID, "resource_id", resourceID, "action", action); err != nil {
		return false, err
	}

	removed, err := s.permissions.RevokeUserPermission(ctx, orgID, userID, resourceID, action)
	if err != nil {
		return false, services.FromRepository("failed to revoke user permission", err)
	}

	s.logger.Info("user permission revoked",
		zap.String("org_id", orgID),
		zap.String("user_id", userID),
		zap.String("resource_id", resourceID),
		zap.String("action", action),
		zap.Bool("removed", removed))

	return removed, nil
}

// GetUserPermissions lists stored direct grants. Filters are exact matches.
func (s *Service) GetUserPermissions(ctx context.Context, orgID, userID string, filter models.GrantFilter) ([]models.UserPermission, error) {
	if err := services.RequireFields("org_id", orgID, "user_id", userID); err != nil {
		return nil, err
	}

	grants, err := s.permissions.GetUserPermissions(ctx, orgID, userID, filter)
	if err != nil {
		return nil, services.FromRepository("failed to list user permissions", err)
	}
	return grants, nil
}

// GrantRolePermission grants action on resourceID to a role.
func (s *Service) GrantRolePermission(ctx context.Context, orgID, roleID, resourceID, action string) (*models.RolePermission, error) {
	if err := services.RequireFields("org_id", orgID, "role_id", roleID, "resource_id", resourceID, "action", action); err != nil {
		return nil, err
	}

	grant, err := s.permissions.GrantRolePermission(ctx, orgID, roleID, resourceID, action)
	if err != nil {
		return nil, services.FromRepository("failed to grant role permission", err)
	}

	s.logger.Info("role permission granted",
		zap.String("org_id", orgID),
		zap.String("role_id", roleID),
		zap.String("resource_id", resourceID),
		zap.String("action", action))

	return grant, nil
}

// RevokeRolePermission removes a role grant and reports whether it existed.
func (s *Service) RevokeRolePermission(ctx context.Context, orgID, roleID, resourceID, action string) (bool, error) {
	if err := services.RequireFields("org_id", orgID, "role_id", roleID, "resource_id", resourceID, "action", action); err != nil {
		return false, err
	}

	removed, err := s.permissions.RevokeRolePermission(ctx, orgID, roleID, resourceID, action)
	if err != nil {
		return false, services.FromRepository("failed to revoke role permission", err)
	}

	s.logger.Info("role permission revoked",
		zap.String("org_id", orgID),
		zap.String("role_id", roleID),
		zap.String("resource_id", resourceID),
		zap.String("action", action),
		zap.Bool("removed", removed))

	return removed, nil
}

func (s *Service) GetRolePermissions(ctx context.Context, orgID, roleID string, filter models.GrantFilter) ([]models.RolePermission, error) {
	if err := services.RequireFields("org_id", orgID, "role_id", roleID); err != nil {
		return nil, err
	}

	grants, err := s.permissions.GetRolePermissions(ctx, orgID, roleID, filter)
	if err != nil {
		return nil, services.FromRepository("failed to list role permissions", err)
	}
	return grants, nil
}

// AssignUserRole adds a user to a role. Assigning an existing membership is a
// no-op that returns false.
func (s *Service) AssignUserRole(ctx context.Context, orgID, userID, roleID string) (bool, error) {
	if err := services.RequireFields("org_id", orgID, "user_id", userID, "role_id", roleID); err != nil {
		return false, err
	}

	created, err := s.memberships.AssignUserRole(ctx, orgID, userID, roleID)
	if err != nil {
		return false, services.FromRepository("failed to assign role", err)
	}
	s.cache.Invalidate(orgID, userID)

	s.logger.Info("role assigned",
		zap.String("org_id", orgID),
		zap.String("user_id", userID),
		zap.String("role_id", roleID),
		zap.Bool("created", created))

	return created, nil
}

// UnassignUserRole removes a user from a role. Removing a membership the user
// never had is a no-op that returns false.
func (s *Service) UnassignUserRole(ctx context.Context, orgID, userID, roleID string) (bool, error) {
	if err := services.RequireFields("org_id", orgID, "user_id", userID, "role_id", roleID); err != nil {
		return false, err
	}

	removed, err := s.memberships.UnassignUserRole(ctx, orgID, userID, roleID)
	if err != nil {
		return false, services.FromRepository("failed to unassign role", err)
	}
	s.cache.Invalidate(orgID, userID)

	s.logger.Info("role unassigned",
		zap.String("org_id", orgID),
		zap.String("user_id", userID),
		zap.String("role_id", roleID),
		zap.Bool("removed", removed))

	return removed, nil
}

func (s *Service) GetUserRoleIDs(ctx context.Context, orgID, userID string) ([]string, error) {
	if err := services.RequireFields("org_id", orgID, "user_id", userID); err != nil {
		return nil, err
	}

	ids, err := s.memberships.GetUserRoleIDs(ctx, orgID, userID)
	if err != nil {
		return nil, services.FromRepository("failed to list user roles", err)
	}
	return ids, nil
}

func (s *Service) GetRoleUserIDs(ctx context.Context, orgID, roleID string) ([]string, error) {
	if err := services.RequireFields("org_id", orgID, "role_id", roleID); err != nil {
		return nil, err
	}

	ids, err := s.memberships.GetRoleUserIDs(ctx, orgID, roleID)
	if err != nil {
		return nil, services.FromRepository("failed to list role members", err)
	}
	return ids, nil
}

// EffectivePermissions resolves the permissions of a user, optionally
// restricted to a concrete resource id and action.
func (s *Service) EffectivePermissions(ctx context.Context, orgID, userID string, q models.PermissionQuery) ([]models.EffectivePermission, error) {
	if err := services.RequireFields("org_id", orgID, "user_id", userID); err != nil {
		return nil, err
	}

	result, err := s.resolver.EffectivePermissions(ctx, orgID, userID, q)
	if err != nil {
		return nil, services.FromRepository("failed to resolve effective permissions", err)
	}
	return result, nil
}

// EffectivePermissionsByPrefix resolves the permissions of a user whose
// stored resource id starts with prefix.
func (s *Service) EffectivePermissionsByPrefix(ctx context.Context, orgID, userID, prefix, action string) ([]models.EffectivePermission, error) {
	if err := services.RequireFields("org_id", orgID, "user_id", userID); err != nil {
		return nil, err
	}

	result, err := s.resolver.EffectivePermissionsByPrefix(ctx, orgID, userID, prefix, action)
	if err != nil {
		return nil, services.FromRepository("failed to resolve effective permissions", err)
	}
	return result, nil
}

// HasPermission checks a concrete (resource, action) pair. The wildcard
// action is not accepted as input.
func (s *Service) HasPermission(ctx context.Context, orgID, userID, resourceID, action string) (bool, error) {
	if err := services.RequireFields("org_id", orgID, "user_id", userID, "resource_id", resourceID, "action", action); err != nil {
		return false, err
	}
	if action == models.WildcardAction {
		return false, services.Validation("action", "action must be concrete")
	}

	allowed, err := s.resolver.HasPermission(ctx, orgID, userID, resourceID, action)
	if err != nil {
		return false, services.FromRepository("failed to check permission", err)
	}
	return allowed, nil
}
