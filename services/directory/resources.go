package directory

import (
	"context"
	"time"

	"github.com/upb/rbac-control-plane/models"
	"github.com/upb/rbac-control-plane/services"
	"go.uber.org/zap"
)

// CreateResource adds a resource pattern to the catalog. Grants do not
// require a catalog entry.
func (s *Service) CreateResource(ctx context.Context, resource *models.Resource) (*models.Resource, error) {
	if err := services.RequireFields("org_id", resource.OrgID, "id", resource.ID); err != nil {
		return nil, err
	}

	created := models.NewResource(resource.OrgID, resource.ID, resource.Name, resource.Description)
	if err := s.repos.Resources.Create(ctx, created); err != nil {
		return nil, services.FromRepository("failed to create resource", err)
	}

	s.logger.Info("resource created", zap.String("org_id", created.OrgID), zap.String("resource_id", created.ID))
	return created, nil
}

func (s *Service) GetResource(ctx context.Context, orgID, id string) (*models.Resource, error) {
	if err := services.RequireFields("org_id", orgID, "resource_id", id); err != nil {
		return nil, err
	}

	resource, err := s.repos.Resources.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, services.FromRepository(services.ErrResourceNotFound.Message, err)
	}
	return resource, nil
}

// ListResources lists catalog entries whose id starts with prefix.
func (s *Service) ListResources(ctx context.Context, orgID, prefix string, page Page) ([]*models.Resource, error) {
	if err := services.RequireFields("org_id", orgID); err != nil {
		return nil, err
	}

	limit, offset := page.normalize()
	resources, err := s.repos.Resources.List(ctx, orgID, prefix, limit, offset)
	if err != nil {
		return nil, services.FromRepository("failed to list resources", err)
	}
	return resources, nil
}

func (s *Service) UpdateResource(ctx context.Context, orgID, id string, name, description *string) (*models.Resource, error) {
	if err := services.RequireFields("org_id", orgID, "resource_id", id); err != nil {
		return nil, err
	}

	resource := &models.Resource{OrgID: orgID, ID: id, Name: name, Description: description, UpdatedAt: time.Now().UTC()}
	if err := s.repos.Resources.Update(ctx, resource); err != nil {
		return nil, services.FromRepository(services.ErrResourceNotFound.Message, err)
	}
	return s.GetResource(ctx, orgID, id)
}

// DeleteResource removes the catalog entry and every user or role grant whose
// resource id equals it.
func (s *Service) DeleteResource(ctx context.Context, orgID, id string) error {
	if err := services.RequireFields("org_id", orgID, "resource_id", id); err != nil {
		return err
	}

	var grants int64
	err := s.inTx(ctx, func(ctx context.Context) error {
		if _, err := s.repos.Resources.GetByID(ctx, orgID, id); err != nil {
			return services.FromRepository(services.ErrResourceNotFound.Message, err)
		}
		var err error
		if grants, err = s.repos.Permissions.DeleteByResource(ctx, orgID, id); err != nil {
			return services.FromRepository("failed to delete resource grants", err)
		}
		if err = s.repos.Resources.Delete(ctx, orgID, id); err != nil {
			return services.FromRepository("failed to delete resource", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("resource deleted",
		zap.String("org_id", orgID),
		zap.String("resource_id", id),
		zap.Int64("grants", grants))
	return nil
}
