package directory

import (
	"context"
	"time"

	"github.com/upb/rbac-control-plane/models"
	"github.com/upb/rbac-control-plane/services"
	"go.uber.org/zap"
)

func validOwner(owner models.PropertyOwner, orgID, ownerID string) error {
	if !owner.Valid() {
		return services.Validation("owner", "unknown property owner")
	}
	return services.RequireFields("org_id", orgID, "owner_id", ownerID)
}

// SetProperty inserts or replaces a property. For organizations ownerID is
// the organization id.
func (s *Service) SetProperty(ctx context.Context, owner models.PropertyOwner, orgID, ownerID string, prop models.Property) (*models.Property, error) {
	if err := validOwner(owner, orgID, ownerID); err != nil {
		return nil, err
	}
	if err := services.RequireFields("name", prop.Name); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	prop.CreatedAt, prop.UpdatedAt = now, now
	if err := s.repos.Properties.Set(ctx, owner, orgID, ownerID, &prop); err != nil {
		return nil, services.FromRepository("failed to set property", err)
	}

	s.logger.Debug("property set",
		zap.String("owner", string(owner)),
		zap.String("org_id", orgID),
		zap.String("owner_id", ownerID),
		zap.String("name", prop.Name))

	return s.GetProperty(ctx, owner, orgID, ownerID, prop.Name)
}

func (s *Service) GetProperty(ctx context.Context, owner models.PropertyOwner, orgID, ownerID, name string) (*models.Property, error) {
	if err := validOwner(owner, orgID, ownerID); err != nil {
		return nil, err
	}

	prop, err := s.repos.Properties.Get(ctx, owner, orgID, ownerID, name)
	if err != nil {
		return nil, services.FromRepository(services.ErrPropertyNotFound.Message, err)
	}
	return prop, nil
}

func (s *Service) ListProperties(ctx context.Context, owner models.PropertyOwner, orgID, ownerID string, includeHidden bool) ([]models.Property, error) {
	if err := validOwner(owner, orgID, ownerID); err != nil {
		return nil, err
	}

	props, err := s.repos.Properties.List(ctx, owner, orgID, ownerID, includeHidden)
	if err != nil {
		return nil, services.FromRepository("failed to list properties", err)
	}
	return props, nil
}

// DeleteProperty removes a property and reports whether it existed.
func (s *Service) DeleteProperty(ctx context.Context, owner models.PropertyOwner, orgID, ownerID, name string) (bool, error) {
	if err := validOwner(owner, orgID, ownerID); err != nil {
		return false, err
	}

	removed, err := s.repos.Properties.Delete(ctx, owner, orgID, ownerID, name)
	if err != nil {
		return false, services.FromRepository("failed to delete property", err)
	}
	return removed, nil
}
