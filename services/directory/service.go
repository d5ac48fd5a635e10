// Package directory manages the entities permissions are expressed over:
// organizations, users, roles, resources and their properties. Every delete
// fans out to the grants, memberships and properties of the deleted entity
// inside a single transaction.
package directory

import (
	"context"
	"time"

	"github.com/upb/rbac-control-plane/models"
	"github.com/upb/rbac-control-plane/repositories"
	"github.com/upb/rbac-control-plane/services"
	"github.com/upb/rbac-control-plane/services/permission"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// Service handles entity lifecycle
type Service struct {
	repos  *repositories.Repositories
	cache  *permission.MembershipCache
	logger *zap.Logger
}

// NewService creates a new directory Service. cache may be nil; when set it
// must be the membership cache used by the permission resolver.
func NewService(repos *repositories.Repositories, cache *permission.MembershipCache, logger *zap.Logger) *Service {
	return &Service{
		repos:  repos,
		cache:  cache,
		logger: logger,
	}
}

// Page bounds a list call.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) normalize() (limit, offset int) {
	limit, offset = p.Limit, p.Offset
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return services.WithTransaction(ctx, s.repos.TxManager, fn)
}

// setProperties stores props for one owner, stamping timestamps.
func (s *Service) setProperties(ctx context.Context, owner models.PropertyOwner, orgID, ownerID string, props []models.Property) error {
	now := time.Now().UTC()
	for i := range props {
		prop := props[i]
		if err := services.RequireFields("property.name", prop.Name); err != nil {
			return err
		}
		prop.CreatedAt, prop.UpdatedAt = now, now
		if err := s.repos.Properties.Set(ctx, owner, orgID, ownerID, &prop); err != nil {
			return services.FromRepository("failed to set property", err)
		}
	}
	return nil
}
