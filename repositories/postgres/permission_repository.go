package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/upb/rbac-control-plane/models"
	"github.com/upb/rbac-control-plane/repositories"
	"go.uber.org/zap"
)

// PermissionRepository implements the repositories.PermissionRepository interface
type PermissionRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewPermissionRepository creates a new permission repository
func NewPermissionRepository(db *DB, logger *zap.Logger) repositories.PermissionRepository {
	return &PermissionRepository{
		db:     db,
		logger: logger,
	}
}

// GrantUserPermission upserts a direct grant. Concurrent identical grants are
// resolved by the ON CONFLICT clause.
func (r *PermissionRepository) GrantUserPermission(ctx context.Context, orgID, userID, resourceID, action string) (*models.UserPermission, error) {
	query := `
		INSERT INTO user_permission (org_id, user_id, resource_id, action, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (org_id, user_id, resource_id, action)
		DO UPDATE SET created_at = EXCLUDED.created_at
		RETURNING created_at
	`

	grant := &models.UserPermission{
		OrgID:      orgID,
		UserID:     userID,
		ResourceID: resourceID,
		Action:     action,
	}

	executor := GetExecutor(ctx, r.db)
	err := executor.QueryRowContext(ctx, query, orgID, userID, resourceID, action, time.Now().UTC()).
		Scan(&grant.CreatedAt)
	if err != nil {
		return nil, translateError(fmt.Sprintf("grant %s on %s to user %s", action, resourceID, userID), err)
	}

	r.logger.Debug("user permission granted",
		zap.String("org_id", orgID),
		zap.String("user_id", userID),
		zap.String("resource_id", resourceID),
		zap.String("action", action),
	)
	return grant, nil
}

// RevokeUserPermission deletes a direct grant
func (r *PermissionRepository) RevokeUserPermission(ctx context.Context, orgID, userID, resourceID, action string) (bool, error) {
	query := `
		DELETE FROM user_permission
		WHERE org_id = $1 AND user_id = $2 AND resource_id = $3 AND action = $4
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, orgID, userID, resourceID, action)
	if err != nil {
		return false, fmt.Errorf("failed to revoke user permission: %w", err)
	}

	n, err := rowsAffected(result)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetUserPermissions returns stored direct grants; filters compare by equality
func (r *PermissionRepository) GetUserPermissions(ctx context.Context, orgID, userID string, filter models.GrantFilter) ([]models.UserPermission, error) {
	query := `
		SELECT org_id, user_id, resource_id, action, created_at
		FROM user_permission
		WHERE org_id = $1 AND user_id = $2
		  AND ($3 = '' OR resource_id = $3)
		  AND ($4 = '' OR action = $4)
		ORDER BY resource_id, action
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, orgID, userID, filter.ResourceID, filter.Action)
	if err != nil {
		return nil, fmt.Errorf("failed to get user permissions: %w", err)
	}
	defer rows.Close()

	grants := []models.UserPermission{}
	for rows.Next() {
		var g models.UserPermission
		if err := rows.Scan(&g.OrgID, &g.UserID, &g.ResourceID, &g.Action, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user permission: %w", err)
		}
		grants = append(grants, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user permission rows: %w", err)
	}

	return grants, nil
}

// GrantRolePermission upserts a role grant
func (r *PermissionRepository) GrantRolePermission(ctx context.Context, orgID, roleID, resourceID, action string) (*models.RolePermission, error) {
	query := `
		INSERT INTO role_permission (org_id, role_id, resource_id, action, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (org_id, role_id, resource_id, action)
		DO UPDATE SET created_at = EXCLUDED.created_at
		RETURNING created_at
	`

	grant := &models.RolePermission{
		OrgID:      orgID,
		RoleID:     roleID,
		ResourceID: resourceID,
		Action:     action,
	}

	executor := GetExecutor(ctx, r.db)
	err := executor.QueryRowContext(ctx, query, orgID, roleID, resourceID, action, time.Now().UTC()).
		Scan(&grant.CreatedAt)
	if err != nil {
		return nil, translateError(fmt.Sprintf("grant %s on %s to role %s", action, resourceID, roleID), err)
	}

	r.logger.Debug("role permission granted",
		zap.String("org_id", orgID),
		zap.String("role_id", roleID),
		zap.String("resource_id", resourceID),
		zap.String("action", action),
	)
	return grant, nil
}

// RevokeRolePermission deletes a role grant
func (r *PermissionRepository) RevokeRolePermission(ctx context.Context, orgID, roleID, resourceID, action string) (bool, error) {
	query := `
		DELETE FROM role_permission
		WHERE org_id = $1 AND role_id = $2 AND resource_id = $3 AND action = $4
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, orgID, roleID, resourceID, action)
	if err != nil {
		return false, fmt.Errorf("failed to revoke role permission: %w", err)
	}

	n, err := rowsAffected(result)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetRolePermissions returns stored role grants; filters compare by equality
func (r *PermissionRepository) GetRolePermissions(ctx context.Context, orgID, roleID string, filter models.GrantFilter) ([]models.RolePermission, error) {
	query := `
		SELECT org_id, role_id, resource_id, action, created_at
		FROM role_permission
		WHERE org_id = $1 AND role_id = $2
		  AND ($3 = '' OR resource_id = $3)
		  AND ($4 = '' OR action = $4)
		ORDER BY resource_id, action
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, orgID, roleID, filter.ResourceID, filter.Action)
	if err != nil {
		return nil, fmt.Errorf("failed to get role permissions: %w", err)
	}
	return scanRoleGrants(rows)
}

// ListRoleGrants fetches the grants of several roles with one query
func (r *PermissionRepository) ListRoleGrants(ctx context.Context, orgID string, roleIDs []string) ([]models.RolePermission, error) {
	if len(roleIDs) == 0 {
		return []models.RolePermission{}, nil
	}

	query := `
		SELECT org_id, role_id, resource_id, action, created_at
		FROM role_permission
		WHERE org_id = $1 AND role_id = ANY($2)
		ORDER BY role_id, resource_id, action
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, orgID, pq.Array(roleIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to list role grants: %w", err)
	}
	return scanRoleGrants(rows)
}

func scanRoleGrants(rows *sql.Rows) ([]models.RolePermission, error) {
	defer rows.Close()

	grants := []models.RolePermission{}
	for rows.Next() {
		var g models.RolePermission
		if err := rows.Scan(&g.OrgID, &g.RoleID, &g.ResourceID, &g.Action, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan role permission: %w", err)
		}
		grants = append(grants, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating role permission rows: %w", err)
	}

	return grants, nil
}

// DeleteUserPermissions removes every direct grant of a user
func (r *PermissionRepository) DeleteUserPermissions(ctx context.Context, orgID, userID string) (int64, error) {
	return r.exec(ctx, "delete user permissions",
		`DELETE FROM user_permission WHERE org_id = $1 AND user_id = $2`, orgID, userID)
}

// DeleteRolePermissions removes every grant of a role
func (r *PermissionRepository) DeleteRolePermissions(ctx context.Context, orgID, roleID string) (int64, error) {
	return r.exec(ctx, "delete role permissions",
		`DELETE FROM role_permission WHERE org_id = $1 AND role_id = $2`, orgID, roleID)
}

// DeleteByResource removes user and role grants whose resource id equals resourceID.
// Patterns that merely match resourceID are kept.
func (r *PermissionRepository) DeleteByResource(ctx context.Context, orgID, resourceID string) (int64, error) {
	users, err := r.exec(ctx, "delete user permissions by resource",
		`DELETE FROM user_permission WHERE org_id = $1 AND resource_id = $2`, orgID, resourceID)
	if err != nil {
		return 0, err
	}
	roles, err := r.exec(ctx, "delete role permissions by resource",
		`DELETE FROM role_permission WHERE org_id = $1 AND resource_id = $2`, orgID, resourceID)
	if err != nil {
		return users, err
	}
	return users + roles, nil
}

// DeleteByOrg removes every grant of an organization
func (r *PermissionRepository) DeleteByOrg(ctx context.Context, orgID string) (int64, error) {
	users, err := r.exec(ctx, "delete user permissions of organization",
		`DELETE FROM user_permission WHERE org_id = $1`, orgID)
	if err != nil {
		return 0, err
	}
	roles, err := r.exec(ctx, "delete role permissions of organization",
		`DELETE FROM role_permission WHERE org_id = $1`, orgID)
	if err != nil {
		return users, err
	}
	return users + roles, nil
}

func (r *PermissionRepository) exec(ctx context.Context, action, query string, args ...interface{}) (int64, error) {
	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to %s: %w", action, err)
	}
	return rowsAffected(result)
}
