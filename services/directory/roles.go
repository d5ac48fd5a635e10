package directory

import (
	"context"
	"time"

	"github.com/upb/rbac-control-plane/models"
	"github.com/upb/rbac-control-plane/services"
	"go.uber.org/zap"
)

// CreateRole stores a role and role.Properties in one transaction.
func (s *Service) CreateRole(ctx context.Context, role *models.Role) (*models.Role, error) {
	if err := services.RequireFields("org_id", role.OrgID, "id", role.ID, "name", role.Name); err != nil {
		return nil, err
	}

	created := models.NewRole(role.OrgID, role.ID, role.Name, role.Description)
	err := s.inTx(ctx, func(ctx context.Context) error {
		if err := s.repos.Roles.Create(ctx, created); err != nil {
			return services.FromRepository("failed to create role", err)
		}
		return s.setProperties(ctx, models.OwnerRole, created.OrgID, created.ID, role.Properties)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("role created", zap.String("org_id", created.OrgID), zap.String("role_id", created.ID))
	return s.GetRole(ctx, created.OrgID, created.ID, true)
}

func (s *Service) GetRole(ctx context.Context, orgID, id string, includeHidden bool) (*models.Role, error) {
	if err := services.RequireFields("org_id", orgID, "role_id", id); err != nil {
		return nil, err
	}

	role, err := s.repos.Roles.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, services.FromRepository(services.ErrRoleNotFound.Message, err)
	}

	props, err := s.repos.Properties.List(ctx, models.OwnerRole, orgID, id, includeHidden)
	if err != nil {
		return nil, services.FromRepository("failed to list role properties", err)
	}
	role.Properties = props
	return role, nil
}

func (s *Service) ListRoles(ctx context.Context, orgID string, page Page) ([]*models.Role, error) {
	if err := services.RequireFields("org_id", orgID); err != nil {
		return nil, err
	}

	limit, offset := page.normalize()
	roles, err := s.repos.Roles.List(ctx, orgID, limit, offset)
	if err != nil {
		return nil, services.FromRepository("failed to list roles", err)
	}
	return roles, nil
}

func (s *Service) UpdateRole(ctx context.Context, orgID, id, name string, description *string) (*models.Role, error) {
	if err := services.RequireFields("org_id", orgID, "role_id", id, "name", name); err != nil {
		return nil, err
	}

	role := &models.Role{OrgID: orgID, ID: id, Name: name, Description: description, UpdatedAt: time.Now().UTC()}
	if err := s.repos.Roles.Update(ctx, role); err != nil {
		return nil, services.FromRepository(services.ErrRoleNotFound.Message, err)
	}

	s.logger.Info("role updated", zap.String("org_id", orgID), zap.String("role_id", id))
	return s.GetRole(ctx, orgID, id, true)
}

// DeleteRole removes a role with its properties, memberships and grants.
func (s *Service) DeleteRole(ctx context.Context, orgID, id string) error {
	if err := services.RequireFields("org_id", orgID, "role_id", id); err != nil {
		return err
	}

	members, err := services.WithTransactionResult(ctx, s.repos.TxManager, func(ctx context.Context) (int64, error) {
		if _, err := s.repos.Roles.GetByID(ctx, orgID, id); err != nil {
			return 0, services.FromRepository(services.ErrRoleNotFound.Message, err)
		}
		if _, err := s.repos.Properties.DeleteByOwner(ctx, models.OwnerRole, orgID, id); err != nil {
			return 0, services.FromRepository("failed to delete role properties", err)
		}
		members, err := s.repos.Memberships.DeleteByRole(ctx, orgID, id)
		if err != nil {
			return 0, services.FromRepository("failed to delete role memberships", err)
		}
		if _, err := s.repos.Permissions.DeleteRolePermissions(ctx, orgID, id); err != nil {
			return 0, services.FromRepository("failed to delete role grants", err)
		}
		if err := s.repos.Roles.Delete(ctx, orgID, id); err != nil {
			return 0, services.FromRepository("failed to delete role", err)
		}
		return members, nil
	})
	if err != nil {
		return err
	}
	s.cache.InvalidateRole(orgID, id)

	s.logger.Info("role deleted",
		zap.String("org_id", orgID),
		zap.String("role_id", id),
		zap.Int64("members", members))
	return nil
}
