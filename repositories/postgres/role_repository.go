package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/upb/rbac-control-plane/models"
	"github.com/upb/rbac-control-plane/repositories"
	"go.uber.org/zap"
)

// RoleRepository implements the repositories.RoleRepository interface
type RoleRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewRoleRepository creates a new role repository
func NewRoleRepository(db *DB, logger *zap.Logger) repositories.RoleRepository {
	return &RoleRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new role
func (r *RoleRepository) Create(ctx context.Context, role *models.Role) error {
	query := `
		INSERT INTO role (org_id, id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		role.OrgID,
		role.ID,
		role.Name,
		nullIfEmpty(role.Description),
		role.CreatedAt,
		role.UpdatedAt,
	)
	if err != nil {
		return translateError("create role "+role.ID, err)
	}

	r.logger.Debug("role created", zap.String("org_id", role.OrgID), zap.String("role_id", role.ID))
	return nil
}

// GetByID retrieves a role by its composite key
func (r *RoleRepository) GetByID(ctx context.Context, orgID, id string) (*models.Role, error) {
	query := `
		SELECT org_id, id, name, description, created_at, updated_at
		FROM role
		WHERE org_id = $1 AND id = $2
	`

	executor := GetExecutor(ctx, r.db)
	role := &models.Role{}
	var description sql.NullString

	err := executor.QueryRowContext(ctx, query, orgID, id).Scan(
		&role.OrgID,
		&role.ID,
		&role.Name,
		&description,
		&role.CreatedAt,
		&role.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: role %s in organization %s", repositories.ErrNotFound, id, orgID)
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	role.Description = stringPtr(description)

	return role, nil
}

// List retrieves roles of an organization ordered by id
func (r *RoleRepository) List(ctx context.Context, orgID string, limit, offset int) ([]*models.Role, error) {
	query := `
		SELECT org_id, id, name, description, created_at, updated_at
		FROM role
		WHERE org_id = $1
		ORDER BY id
		LIMIT $2 OFFSET $3
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, orgID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	roles := []*models.Role{}
	for rows.Next() {
		role := &models.Role{}
		var description sql.NullString
		if err := rows.Scan(&role.OrgID, &role.ID, &role.Name, &description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		role.Description = stringPtr(description)
		roles = append(roles, role)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating role rows: %w", err)
	}

	return roles, nil
}

// Update updates name and description of a role
func (r *RoleRepository) Update(ctx context.Context, role *models.Role) error {
	query := `
		UPDATE role
		SET name = $3,
		    description = $4,
		    updated_at = $5
		WHERE org_id = $1 AND id = $2
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		role.OrgID,
		role.ID,
		role.Name,
		nullIfEmpty(role.Description),
		role.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}

	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: role %s in organization %s", repositories.ErrNotFound, role.ID, role.OrgID)
	}

	r.logger.Debug("role updated", zap.String("org_id", role.OrgID), zap.String("role_id", role.ID))
	return nil
}

// Delete deletes a role row
func (r *RoleRepository) Delete(ctx context.Context, orgID, id string) error {
	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, `DELETE FROM role WHERE org_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return translateError("delete role "+id, err)
	}

	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: role %s in organization %s", repositories.ErrNotFound, id, orgID)
	}

	r.logger.Debug("role deleted", zap.String("org_id", orgID), zap.String("role_id", id))
	return nil
}

// DeleteByOrg deletes every role of an organization
func (r *RoleRepository) DeleteByOrg(ctx context.Context, orgID string) (int64, error) {
	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, `DELETE FROM role WHERE org_id = $1`, orgID)
	if err != nil {
		return 0, translateError("delete roles of organization "+orgID, err)
	}
	return rowsAffected(result)
}
