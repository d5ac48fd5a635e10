package directory

import (
	"context"
	"time"

	"github.com/upb/rbac-control-plane/models"
	"github.com/upb/rbac-control-plane/services"
	"go.uber.org/zap"
)

// CreateUser stores a user together with user.Properties and memberships for
// user.RoleIDs. Either everything is written or nothing is.
func (s *Service) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	if err := services.RequireFields(
		"org_id", user.OrgID,
		"id", user.ID,
		"identity_provider", user.IdentityProvider,
		"identity_provider_user_id", user.IdentityProviderUserID,
	); err != nil {
		return nil, err
	}

	created := models.NewUser(user.OrgID, user.ID, user.IdentityProvider, user.IdentityProviderUserID)
	err := s.inTx(ctx, func(ctx context.Context) error {
		if err := s.repos.Users.Create(ctx, created); err != nil {
			return services.FromRepository("failed to create user", err)
		}
		if err := s.setProperties(ctx, models.OwnerUser, created.OrgID, created.ID, user.Properties); err != nil {
			return err
		}
		for _, roleID := range user.RoleIDs {
			if _, err := s.repos.Memberships.AssignUserRole(ctx, created.OrgID, created.ID, roleID); err != nil {
				return services.FromRepository("failed to assign role "+roleID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(created.OrgID, created.ID)

	s.logger.Info("user created",
		zap.String("org_id", created.OrgID),
		zap.String("user_id", created.ID),
		zap.Int("roles", len(user.RoleIDs)))

	return s.GetUser(ctx, created.OrgID, created.ID, true)
}

// GetUser returns a user with properties and role ids.
func (s *Service) GetUser(ctx context.Context, orgID, id string, includeHidden bool) (*models.User, error) {
	if err := services.RequireFields("org_id", orgID, "user_id", id); err != nil {
		return nil, err
	}

	user, err := s.repos.Users.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, services.FromRepository(services.ErrUserNotFound.Message, err)
	}
	return s.loadUser(ctx, user, includeHidden)
}

// GetUserByIdentity looks a user up by identity provider and provider user id.
func (s *Service) GetUserByIdentity(ctx context.Context, orgID, identityProvider, identityProviderUserID string, includeHidden bool) (*models.User, error) {
	if err := services.RequireFields(
		"org_id", orgID,
		"identity_provider", identityProvider,
		"identity_provider_user_id", identityProviderUserID,
	); err != nil {
		return nil, err
	}

	user, err := s.repos.Users.GetByIdentity(ctx, orgID, identityProvider, identityProviderUserID)
	if err != nil {
		return nil, services.FromRepository(services.ErrUserNotFound.Message, err)
	}
	return s.loadUser(ctx, user, includeHidden)
}

func (s *Service) loadUser(ctx context.Context, user *models.User, includeHidden bool) (*models.User, error) {
	props, err := s.repos.Properties.List(ctx, models.OwnerUser, user.OrgID, user.ID, includeHidden)
	if err != nil {
		return nil, services.FromRepository("failed to list user properties", err)
	}
	roleIDs, err := s.repos.Memberships.GetUserRoleIDs(ctx, user.OrgID, user.ID)
	if err != nil {
		return nil, services.FromRepository("failed to list user roles", err)
	}
	user.Properties = props
	user.RoleIDs = roleIDs
	return user, nil
}

func (s *Service) ListUsers(ctx context.Context, orgID string, page Page) ([]*models.User, error) {
	if err := services.RequireFields("org_id", orgID); err != nil {
		return nil, err
	}

	limit, offset := page.normalize()
	users, err := s.repos.Users.List(ctx, orgID, limit, offset)
	if err != nil {
		return nil, services.FromRepository("failed to list users", err)
	}
	return users, nil
}

// UpdateUser changes the identity provider fields of a user.
func (s *Service) UpdateUser(ctx context.Context, orgID, id, identityProvider, identityProviderUserID string) (*models.User, error) {
	if err := services.RequireFields(
		"org_id", orgID,
		"user_id", id,
		"identity_provider", identityProvider,
		"identity_provider_user_id", identityProviderUserID,
	); err != nil {
		return nil, err
	}

	user := &models.User{
		OrgID:                  orgID,
		ID:                     id,
		IdentityProvider:       identityProvider,
		IdentityProviderUserID: identityProviderUserID,
		UpdatedAt:              time.Now().UTC(),
	}
	if err := s.repos.Users.Update(ctx, user); err != nil {
		return nil, services.FromRepository(services.ErrUserNotFound.Message, err)
	}

	s.logger.Info("user updated", zap.String("org_id", orgID), zap.String("user_id", id))
	return s.GetUser(ctx, orgID, id, true)
}

// DeleteUser removes a user with its properties, memberships and direct grants.
func (s *Service) DeleteUser(ctx context.Context, orgID, id string) error {
	if err := services.RequireFields("org_id", orgID, "user_id", id); err != nil {
		return err
	}

	err := s.inTx(ctx, func(ctx context.Context) error {
		if _, err := s.repos.Users.GetByID(ctx, orgID, id); err != nil {
			return services.FromRepository(services.ErrUserNotFound.Message, err)
		}
		if _, err := s.repos.Properties.DeleteByOwner(ctx, models.OwnerUser, orgID, id); err != nil {
			return services.FromRepository("failed to delete user properties", err)
		}
		if _, err := s.repos.Memberships.DeleteByUser(ctx, orgID, id); err != nil {
			return services.FromRepository("failed to delete user memberships", err)
		}
		if _, err := s.repos.Permissions.DeleteUserPermissions(ctx, orgID, id); err != nil {
			return services.FromRepository("failed to delete user grants", err)
		}
		if err := s.repos.Users.Delete(ctx, orgID, id); err != nil {
			return services.FromRepository("failed to delete user", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.cache.Invalidate(orgID, id)

	s.logger.Info("user deleted", zap.String("org_id", orgID), zap.String("user_id", id))
	return nil
}
