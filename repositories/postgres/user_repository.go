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

const userColumns = `org_id, id, identity_provider, identity_provider_user_id, created_at, updated_at`

// UserRepository implements the repositories.UserRepository interface
type UserRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB, logger *zap.Logger) repositories.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (org_id, id, identity_provider, identity_provider_user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		user.OrgID,
		user.ID,
		user.IdentityProvider,
		user.IdentityProviderUserID,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return translateError("create user "+user.ID, err)
	}

	r.logger.Debug("user created", zap.String("org_id", user.OrgID), zap.String("user_id", user.ID))
	return nil
}

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.OrgID,
		&user.ID,
		&user.IdentityProvider,
		&user.IdentityProviderUserID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

// GetByID retrieves a user by its composite key
func (r *UserRepository) GetByID(ctx context.Context, orgID, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE org_id = $1 AND id = $2`

	executor := GetExecutor(ctx, r.db)
	user, err := scanUser(executor.QueryRowContext(ctx, query, orgID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %s in organization %s", repositories.ErrNotFound, id, orgID)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetByIdentity retrieves a user by identity provider and provider user id
func (r *UserRepository) GetByIdentity(ctx context.Context, orgID, identityProvider, identityProviderUserID string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE org_id = $1 AND identity_provider = $2 AND identity_provider_user_id = $3
		ORDER BY id
		LIMIT 1
	`

	executor := GetExecutor(ctx, r.db)
	user, err := scanUser(executor.QueryRowContext(ctx, query, orgID, identityProvider, identityProviderUserID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: identity %s/%s in organization %s",
				repositories.ErrNotFound, identityProvider, identityProviderUserID, orgID)
		}
		return nil, fmt.Errorf("failed to get user by identity: %w", err)
	}

	return user, nil
}

// List retrieves users of an organization ordered by id
func (r *UserRepository) List(ctx context.Context, orgID string, limit, offset int) ([]*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE org_id = $1
		ORDER BY id
		LIMIT $2 OFFSET $3
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, orgID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	return users, nil
}

// Update updates identity fields of a user
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET identity_provider = $3,
		    identity_provider_user_id = $4,
		    updated_at = $5
		WHERE org_id = $1 AND id = $2
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		user.OrgID,
		user.ID,
		user.IdentityProvider,
		user.IdentityProviderUserID,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: user %s in organization %s", repositories.ErrNotFound, user.ID, user.OrgID)
	}

	r.logger.Debug("user updated", zap.String("org_id", user.OrgID), zap.String("user_id", user.ID))
	return nil
}

// Delete deletes a user row
func (r *UserRepository) Delete(ctx context.Context, orgID, id string) error {
	query := `DELETE FROM users WHERE org_id = $1 AND id = $2`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, orgID, id)
	if err != nil {
		return translateError("delete user "+id, err)
	}

	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: user %s in organization %s", repositories.ErrNotFound, id, orgID)
	}

	r.logger.Debug("user deleted", zap.String("org_id", orgID), zap.String("user_id", id))
	return nil
}

// DeleteByOrg deletes every user of an organization
func (r *UserRepository) DeleteByOrg(ctx context.Context, orgID string) (int64, error) {
	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, `DELETE FROM users WHERE org_id = $1`, orgID)
	if err != nil {
		return 0, translateError("delete users of organization "+orgID, err)
	}
	return rowsAffected(result)
}
