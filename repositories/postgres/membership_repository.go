package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/upb/rbac-control-plane/repositories"
	"go.uber.org/zap"
)

// MembershipRepository implements the repositories.MembershipRepository interface
type MembershipRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(db *DB, logger *zap.Logger) repositories.MembershipRepository {
	return &MembershipRepository{
		db:     db,
		logger: logger,
	}
}

// AssignUserRole creates a membership; an existing membership is left untouched
func (r *MembershipRepository) AssignUserRole(ctx context.Context, orgID, userID, roleID string) (bool, error) {
	query := `
		INSERT INTO user_role (org_id, user_id, role_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (org_id, user_id, role_id) DO NOTHING
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, orgID, userID, roleID, time.Now().UTC())
	if err != nil {
		return false, translateError(fmt.Sprintf("assign role %s to user %s", roleID, userID), err)
	}

	n, err := rowsAffected(result)
	if err != nil {
		return false, err
	}

	if n > 0 {
		r.logger.Debug("role assigned",
			zap.String("org_id", orgID),
			zap.String("user_id", userID),
			zap.String("role_id", roleID),
		)
	}
	return n > 0, nil
}

// UnassignUserRole removes a membership
func (r *MembershipRepository) UnassignUserRole(ctx context.Context, orgID, userID, roleID string) (bool, error) {
	query := `DELETE FROM user_role WHERE org_id = $1 AND user_id = $2 AND role_id = $3`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, orgID, userID, roleID)
	if err != nil {
		return false, fmt.Errorf("failed to unassign role: %w", err)
	}

	n, err := rowsAffected(result)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetUserRoleIDs lists the roles assigned to a user
func (r *MembershipRepository) GetUserRoleIDs(ctx context.Context, orgID, userID string) ([]string, error) {
	query := `SELECT role_id FROM user_role WHERE org_id = $1 AND user_id = $2 ORDER BY role_id`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, orgID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}
	return scanStrings(rows)
}

// GetRoleUserIDs lists the users holding a role
func (r *MembershipRepository) GetRoleUserIDs(ctx context.Context, orgID, roleID string) ([]string, error) {
	query := `SELECT user_id FROM user_role WHERE org_id = $1 AND role_id = $2 ORDER BY user_id`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, orgID, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get role members: %w", err)
	}
	return scanStrings(rows)
}

// DeleteByUser removes every membership of a user
func (r *MembershipRepository) DeleteByUser(ctx context.Context, orgID, userID string) (int64, error) {
	return r.exec(ctx, `DELETE FROM user_role WHERE org_id = $1 AND user_id = $2`, orgID, userID)
}

// DeleteByRole removes every membership of a role
func (r *MembershipRepository) DeleteByRole(ctx context.Context, orgID, roleID string) (int64, error) {
	return r.exec(ctx, `DELETE FROM user_role WHERE org_id = $1 AND role_id = $2`, orgID, roleID)
}

// DeleteByOrg removes every membership of an organization
func (r *MembershipRepository) DeleteByOrg(ctx context.Context, orgID string) (int64, error) {
	return r.exec(ctx, `DELETE FROM user_role WHERE org_id = $1`, orgID)
}

func (r *MembershipRepository) exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete memberships: %w", err)
	}
	return rowsAffected(result)
}
