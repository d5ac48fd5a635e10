package directory

import (
	"context"
	"time"

	"github.com/upb/rbac-control-plane/models"
	"github.com/upb/rbac-control-plane/services"
	"go.uber.org/zap"
)

// CreateOrganization stores org and its properties in one transaction. An id
// is generated when org.ID is empty; an existing id is a conflict.
func (s *Service) CreateOrganization(ctx context.Context, org *models.Organization) (*models.Organization, error) {
	if err := services.RequireFields("name", org.Name); err != nil {
		return nil, err
	}

	created := models.NewOrganization(org.ID, org.Name, org.Description)
	created.Properties = org.Properties

	err := s.inTx(ctx, func(ctx context.Context) error {
		if err := s.repos.Organizations.Create(ctx, created); err != nil {
			return services.FromRepository("failed to create organization", err)
		}
		return s.setProperties(ctx, models.OwnerOrganization, created.ID, created.ID, created.Properties)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("organization created", zap.String("org_id", created.ID))
	return s.GetOrganization(ctx, created.ID, true)
}

// GetOrganization returns an organization with its properties.
func (s *Service) GetOrganization(ctx context.Context, id string, includeHidden bool) (*models.Organization, error) {
	if err := services.RequireFields("org_id", id); err != nil {
		return nil, err
	}

	org, err := s.repos.Organizations.GetByID(ctx, id)
	if err != nil {
		return nil, services.FromRepository(services.ErrOrganizationNotFound.Message, err)
	}

	props, err := s.repos.Properties.List(ctx, models.OwnerOrganization, id, id, includeHidden)
	if err != nil {
		return nil, services.FromRepository("failed to list organization properties", err)
	}
	org.Properties = props
	return org, nil
}

func (s *Service) ListOrganizations(ctx context.Context, page Page) ([]*models.Organization, error) {
	limit, offset := page.normalize()
	orgs, err := s.repos.Organizations.List(ctx, limit, offset)
	if err != nil {
		return nil, services.FromRepository("failed to list organizations", err)
	}
	return orgs, nil
}

// UpdateOrganization changes name and description.
func (s *Service) UpdateOrganization(ctx context.Context, id, name string, description *string) (*models.Organization, error) {
	if err := services.RequireFields("org_id", id, "name", name); err != nil {
		return nil, err
	}

	org := &models.Organization{ID: id, Name: name, Description: description, UpdatedAt: time.Now().UTC()}
	if err := s.repos.Organizations.Update(ctx, org); err != nil {
		return nil, services.FromRepository(services.ErrOrganizationNotFound.Message, err)
	}

	s.logger.Info("organization updated", zap.String("org_id", id))
	return s.GetOrganization(ctx, id, true)
}

// DeleteOrganization removes the organization and everything scoped to it,
// children first, atomically.
func (s *Service) DeleteOrganization(ctx context.Context, id string) error {
	if err := services.RequireFields("org_id", id); err != nil {
		return err
	}

	var grants, memberships, users, roles, resources int64
	err := s.inTx(ctx, func(ctx context.Context) error {
		if _, err := s.repos.Organizations.GetByID(ctx, id); err != nil {
			return services.FromRepository(services.ErrOrganizationNotFound.Message, err)
		}

		var err error
		if _, err = s.repos.Properties.DeleteByOrg(ctx, id); err != nil {
			return services.FromRepository("failed to delete properties", err)
		}
		if grants, err = s.repos.Permissions.DeleteByOrg(ctx, id); err != nil {
			return services.FromRepository("failed to delete grants", err)
		}
		if memberships, err = s.repos.Memberships.DeleteByOrg(ctx, id); err != nil {
			return services.FromRepository("failed to delete memberships", err)
		}
		if users, err = s.repos.Users.DeleteByOrg(ctx, id); err != nil {
			return services.FromRepository("failed to delete users", err)
		}
		if roles, err = s.repos.Roles.DeleteByOrg(ctx, id); err != nil {
			return services.FromRepository("failed to delete roles", err)
		}
		if resources, err = s.repos.Resources.DeleteByOrg(ctx, id); err != nil {
			return services.FromRepository("failed to delete resources", err)
		}
		if err = s.repos.Organizations.Delete(ctx, id); err != nil {
			return services.FromRepository("failed to delete organization", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.cache.InvalidateOrg(id)

	s.logger.Info("organization deleted",
		zap.String("org_id", id),
		zap.Int64("grants", grants),
		zap.Int64("memberships", memberships),
		zap.Int64("users", users),
		zap.Int64("roles", roles),
		zap.Int64("resources", resources))
	return nil
}
