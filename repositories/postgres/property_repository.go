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

// propertyTable returns the table and owner column for an owner kind.
// Organization properties use org_id as their owner column.
func propertyTable(owner models.PropertyOwner) (table, ownerColumn string, err error) {
	switch owner {
	case models.OwnerOrganization:
		return "organization_property", "org_id", nil
	case models.OwnerUser:
		return "user_property", "user_id", nil
	case models.OwnerRole:
		return "role_property", "role_id", nil
	}
	return "", "", fmt.Errorf("unknown property owner %q", owner)
}

// PropertyRepository implements the repositories.PropertyRepository interface.
// Values are stored as JSONB text and decoded into models.Value on read.
type PropertyRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewPropertyRepository creates a new property repository
func NewPropertyRepository(db *DB, logger *zap.Logger) repositories.PropertyRepository {
	return &PropertyRepository{
		db:     db,
		logger: logger,
	}
}

// Set inserts or replaces a property
func (r *PropertyRepository) Set(ctx context.Context, owner models.PropertyOwner, orgID, ownerID string, prop *models.Property) error {
	table, ownerColumn, err := propertyTable(owner)
	if err != nil {
		return err
	}

	raw, err := prop.Value.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode property %s: %w", prop.Name, err)
	}

	var query string
	args := []interface{}{orgID}
	if owner == models.OwnerOrganization {
		query = `
			INSERT INTO organization_property (org_id, name, value, hidden, created_at, updated_at)
			VALUES ($1, $2, $3::jsonb, $4, $5, $6)
			ON CONFLICT (org_id, name)
			DO UPDATE SET value = EXCLUDED.value, hidden = EXCLUDED.hidden, updated_at = EXCLUDED.updated_at
		`
	} else {
		query = fmt.Sprintf(`
			INSERT INTO %[1]s (org_id, %[2]s, name, value, hidden, created_at, updated_at)
			VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7)
			ON CONFLICT (org_id, %[2]s, name)
			DO UPDATE SET value = EXCLUDED.value, hidden = EXCLUDED.hidden, updated_at = EXCLUDED.updated_at
		`, table, ownerColumn)
		args = append(args, ownerID)
	}
	args = append(args, prop.Name, string(raw), prop.Hidden, prop.CreatedAt, prop.UpdatedAt)

	executor := GetExecutor(ctx, r.db)
	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return translateError(fmt.Sprintf("set %s property %s", owner, prop.Name), err)
	}

	r.logger.Debug("property set",
		zap.String("owner", string(owner)),
		zap.String("org_id", orgID),
		zap.String("owner_id", ownerID),
		zap.String("name", prop.Name),
	)
	return nil
}

func scanProperty(row interface{ Scan(...interface{}) error }) (models.Property, error) {
	var prop models.Property
	var raw []byte
	if err := row.Scan(&prop.Name, &raw, &prop.Hidden, &prop.CreatedAt, &prop.UpdatedAt); err != nil {
		return prop, err
	}
	v, err := models.ParseValue(raw)
	if err != nil {
		return prop, err
	}
	prop.Value = v
	return prop, nil
}

// Get retrieves a single property by name
func (r *PropertyRepository) Get(ctx context.Context, owner models.PropertyOwner, orgID, ownerID, name string) (*models.Property, error) {
	table, ownerColumn, err := propertyTable(owner)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT name, value, hidden, created_at, updated_at
		FROM %s
		WHERE org_id = $1 AND %s = $2 AND name = $3
	`, table, ownerColumn)

	executor := GetExecutor(ctx, r.db)
	prop, err := scanProperty(executor.QueryRowContext(ctx, query, orgID, ownerID, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s property %s of %s", repositories.ErrNotFound, owner, name, ownerID)
		}
		return nil, fmt.Errorf("failed to get property: %w", err)
	}

	return &prop, nil
}

// List retrieves properties of one owner ordered by name
func (r *PropertyRepository) List(ctx context.Context, owner models.PropertyOwner, orgID, ownerID string, includeHidden bool) ([]models.Property, error) {
	table, ownerColumn, err := propertyTable(owner)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT name, value, hidden, created_at, updated_at
		FROM %s
		WHERE org_id = $1 AND %s = $2 AND ($3 OR NOT hidden)
		ORDER BY name
	`, table, ownerColumn)

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, orgID, ownerID, includeHidden)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	defer rows.Close()

	props := []models.Property{}
	for rows.Next() {
		prop, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		props = append(props, prop)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating property rows: %w", err)
	}

	return props, nil
}

// Delete removes a property and reports whether it existed
func (r *PropertyRepository) Delete(ctx context.Context, owner models.PropertyOwner, orgID, ownerID, name string) (bool, error) {
	table, ownerColumn, err := propertyTable(owner)
	if err != nil {
		return false, err
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE org_id = $1 AND %s = $2 AND name = $3`, table, ownerColumn)

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, orgID, ownerID, name)
	if err != nil {
		return false, fmt.Errorf("failed to delete property: %w", err)
	}

	n, err := rowsAffected(result)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteByOwner removes every property of one owner
func (r *PropertyRepository) DeleteByOwner(ctx context.Context, owner models.PropertyOwner, orgID, ownerID string) (int64, error) {
	table, ownerColumn, err := propertyTable(owner)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE org_id = $1 AND %s = $2`, table, ownerColumn)

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, orgID, ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete %s properties: %w", owner, err)
	}
	return rowsAffected(result)
}

// DeleteByOrg removes every property row scoped to an organization
func (r *PropertyRepository) DeleteByOrg(ctx context.Context, orgID string) (int64, error) {
	executor := GetExecutor(ctx, r.db)

	var total int64
	for _, table := range []string{"user_property", "role_property", "organization_property"} {
		result, err := executor.ExecContext(ctx, `DELETE FROM `+table+` WHERE org_id = $1`, orgID)
		if err != nil {
			return total, fmt.Errorf("failed to delete %s rows: %w", table, err)
		}
		n, err := rowsAffected(result)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
