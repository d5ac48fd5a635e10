package permission

import (
	"context"
	"fmt"
	"time"

	"github.com/upb/rbac-control-plane/internal/observability"
	"github.com/upb/rbac-control-plane/models"
	"github.com/upb/rbac-control-plane/repositories"
	"go.uber.org/zap"
)

// GrantSource is the storage view the resolver needs. Matching happens in
// the resolver, so a source only returns raw rows.
type GrantSource interface {
	// UserRoleIDs returns the roles currently assigned to a user
	UserRoleIDs(ctx context.Context, orgID, userID string) ([]string, error)

	// UserGrants returns every direct grant of a user
	UserGrants(ctx context.Context, orgID, userID string) ([]models.UserPermission, error)

	// RoleGrants returns every grant of the given roles
	RoleGrants(ctx context.Context, orgID string, roleIDs []string) ([]models.RolePermission, error)
}

// RepositorySource adapts the permission and membership repositories to
// GrantSource, serving role ids from the membership cache when enabled.
type RepositorySource struct {
	permissions repositories.PermissionRepository
	memberships repositories.MembershipRepository
	cache       *MembershipCache
}

// NewRepositorySource creates a GrantSource over repositories. cache may be nil.
func NewRepositorySource(permissions repositories.PermissionRepository, memberships repositories.MembershipRepository, cache *MembershipCache) *RepositorySource {
	return &RepositorySource{
		permissions: permissions,
		memberships: memberships,
		cache:       cache,
	}
}

func (s *RepositorySource) UserRoleIDs(ctx context.Context, orgID, userID string) ([]string, error) {
	if ids, ok := s.cache.Get(orgID, userID); ok {
		return ids, nil
	}
	gen := s.cache.Generation()
	ids, err := s.memberships.GetUserRoleIDs(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(orgID, userID, ids, gen)
	return ids, nil
}

func (s *RepositorySource) UserGrants(ctx context.Context, orgID, userID string) ([]models.UserPermission, error) {
	return s.permissions.GetUserPermissions(ctx, orgID, userID, models.GrantFilter{})
}

func (s *RepositorySource) RoleGrants(ctx context.Context, orgID string, roleIDs []string) ([]models.RolePermission, error) {
	return s.permissions.ListRoleGrants(ctx, orgID, roleIDs)
}

// Resolver computes effective permissions: the union of a user's direct
// grants and the grants of every role assigned to the user.
type Resolver struct {
	source  GrantSource
	metrics observability.Metrics
	logger  *zap.Logger
}

// NewResolver creates a Resolver. metrics may be nil.
func NewResolver(source GrantSource, metrics observability.Metrics, logger *zap.Logger) *Resolver {
	if metrics == nil {
		metrics = observability.NopMetrics{}
	}
	return &Resolver{
		source:  source,
		metrics: metrics,
		logger:  logger,
	}
}

// EffectivePermissions returns every grant reachable by the user that covers
// q.ResourceID (pattern aware) and q.Action (wildcard aware). Empty query
// fields do not filter. Entries from different sources are never merged and
// keep store order; the result is empty, never nil, when nothing matches.
func (r *Resolver) EffectivePermissions(ctx context.Context, orgID, userID string, q models.PermissionQuery) ([]models.EffectivePermission, error) {
	start := time.Now()
	result, err := r.resolve(ctx, orgID, userID, resourcePredicate(q))
	if err != nil {
		return nil, err
	}
	r.metrics.ObserveResolution(observability.ResolutionResource, len(result), time.Since(start))

	r.logger.Debug("effective permissions resolved",
		zap.String("org_id", orgID),
		zap.String("user_id", userID),
		zap.String("resource_id", q.ResourceID),
		zap.String("action", q.Action),
		zap.Int("count", len(result)))

	return result, nil
}

// EffectivePermissionsByPrefix is EffectivePermissions for namespace
// listings: a grant is included when its stored resource id starts with
// prefix, regardless of wildcards.
func (r *Resolver) EffectivePermissionsByPrefix(ctx context.Context, orgID, userID, prefix, action string) ([]models.EffectivePermission, error) {
	start := time.Now()
	result, err := r.resolve(ctx, orgID, userID, prefixPredicate(prefix, action))
	if err != nil {
		return nil, err
	}
	r.metrics.ObserveResolution(observability.ResolutionPrefix, len(result), time.Since(start))

	r.logger.Debug("effective permissions resolved by prefix",
		zap.String("org_id", orgID),
		zap.String("user_id", userID),
		zap.String("prefix", prefix),
		zap.String("action", action),
		zap.Int("count", len(result)))

	return result, nil
}

func (r *Resolver) resolve(ctx context.Context, orgID, userID string, match grantPredicate) ([]models.EffectivePermission, error) {
	roleIDs, err := r.source.UserRoleIDs(ctx, orgID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roles of user %s: %w", userID, err)
	}

	userGrants, err := r.source.UserGrants(ctx, orgID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch grants of user %s: %w", userID, err)
	}

	var roleGrants []models.RolePermission
	if len(roleIDs) > 0 {
		roleGrants, err = r.source.RoleGrants(ctx, orgID, roleIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch role grants of user %s: %w", userID, err)
		}
	}

	result := make([]models.EffectivePermission, 0, len(userGrants)+len(roleGrants))
	for _, g := range userGrants {
		if match(g.ResourceID, g.Action) {
			result = append(result, models.FromUserPermission(g))
		}
	}
	for _, g := range roleGrants {
		if match(g.ResourceID, g.Action) {
			result = append(result, models.FromRolePermission(g))
		}
	}
	return result, nil
}
