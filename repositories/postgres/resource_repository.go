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

// ResourceRepository implements the repositories.ResourceRepository interface
type ResourceRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewResourceRepository creates a new resource repository
func NewResourceRepository(db *DB, logger *zap.Logger) repositories.ResourceRepository {
	return &ResourceRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new resource
func (r *ResourceRepository) Create(ctx context.Context, resource *models.Resource) error {
	query := `
		INSERT INTO resource (org_id, id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		resource.OrgID,
		resource.ID,
		nullIfEmpty(resource.Name),
		nullIfEmpty(resource.Description),
		resource.CreatedAt,
		resource.UpdatedAt,
	)
	if err != nil {
		return translateError("create resource "+resource.ID, err)
	}

	r.logger.Debug("resource created", zap.String("org_id", resource.OrgID), zap.String("resource_id", resource.ID))
	return nil
}

func scanResource(row interface{ Scan(...interface{}) error }) (*models.Resource, error) {
	res := &models.Resource{}
	var name, description sql.NullString
	if err := row.Scan(&res.OrgID, &res.ID, &name, &description, &res.CreatedAt, &res.UpdatedAt); err != nil {
		return nil, err
	}
	res.Name = stringPtr(name)
	res.Description = stringPtr(description)
	return res, nil
}

// GetByID retrieves a resource by its composite key
func (r *ResourceRepository) GetByID(ctx context.Context, orgID, id string) (*models.Resource, error) {
	query := `
		SELECT org_id, id, name, description, created_at, updated_at
		FROM resource
		WHERE org_id = $1 AND id = $2
	`

	executor := GetExecutor(ctx, r.db)
	res, err := scanResource(executor.QueryRowContext(ctx, query, orgID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: resource %s in organization %s", repositories.ErrNotFound, id, orgID)
		}
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}

	return res, nil
}

// List retrieves resources whose id starts with prefix
func (r *ResourceRepository) List(ctx context.Context, orgID, prefix string, limit, offset int) ([]*models.Resource, error) {
	// starts_with rather than LIKE so '%' and '_' in ids stay literal
	query := `
		SELECT org_id, id, name, description, created_at, updated_at
		FROM resource
		WHERE org_id = $1 AND starts_with(id, $2)
		ORDER BY id
		LIMIT $3 OFFSET $4
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, orgID, prefix, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	defer rows.Close()

	resources := []*models.Resource{}
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		resources = append(resources, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating resource rows: %w", err)
	}

	return resources, nil
}

// Update updates name and description of a resource
func (r *ResourceRepository) Update(ctx context.Context, resource *models.Resource) error {
	query := `
		UPDATE resource
		SET name = $3,
		    description = $4,
		    updated_at = $5
		WHERE org_id = $1 AND id = $2
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		resource.OrgID,
		resource.ID,
		nullIfEmpty(resource.Name),
		nullIfEmpty(resource.Description),
		resource.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update resource: %w", err)
	}

	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: resource %s in organization %s", repositories.ErrNotFound, resource.ID, resource.OrgID)
	}
	return nil
}

// Delete deletes a resource row
func (r *ResourceRepository) Delete(ctx context.Context, orgID, id string) error {
	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, `DELETE FROM resource WHERE org_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return translateError("delete resource "+id, err)
	}

	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: resource %s in organization %s", repositories.ErrNotFound, id, orgID)
	}

	r.logger.Debug("resource deleted", zap.String("org_id", orgID), zap.String("resource_id", id))
	return nil
}

// DeleteByOrg deletes every resource of an organization
func (r *ResourceRepository) DeleteByOrg(ctx context.Context, orgID string) (int64, error) {
	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, `DELETE FROM resource WHERE org_id = $1`, orgID)
	if err != nil {
		return 0, translateError("delete resources of organization "+orgID, err)
	}
	return rowsAffected(result)
}
