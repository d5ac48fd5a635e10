package permission

import (
	"context"
	"fmt"
	"time"

	"github.com/upb/rbac-control-plane/models"
	"go.uber.org/zap"
)

// Checker answers single (resource, action) questions on the request path.
type Checker interface {
	HasPermission(ctx context.Context, orgID, userID, resourceID, action string) (bool, error)
}

// HasPermission reports whether EffectivePermissions for the same arguments
// would be non-empty. Direct grants are checked first and role grants are
// only fetched when no direct grant matches.
func (r *Resolver) HasPermission(ctx context.Context, orgID, userID, resourceID, action string) (bool, error) {
	start := time.Now()
	allowed, err := r.check(ctx, orgID, userID, resourcePredicate(models.PermissionQuery{ResourceID: resourceID, Action: action}))
	if err != nil {
		return false, err
	}
	r.metrics.ObserveCheck(allowed, time.Since(start))

	r.logger.Debug("permission checked",
		zap.String("org_id", orgID),
		zap.String("user_id", userID),
		zap.String("resource_id", resourceID),
		zap.String("action", action),
		zap.Bool("allowed", allowed))

	return allowed, nil
}

func (r *Resolver) check(ctx context.Context, orgID, userID string, match grantPredicate) (bool, error) {
	userGrants, err := r.source.UserGrants(ctx, orgID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to fetch grants of user %s: %w", userID, err)
	}
	for _, g := range userGrants {
		if match(g.ResourceID, g.Action) {
			return true, nil
		}
	}

	roleIDs, err := r.source.UserRoleIDs(ctx, orgID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to fetch roles of user %s: %w", userID, err)
	}
	if len(roleIDs) == 0 {
		return false, nil
	}

	roleGrants, err := r.source.RoleGrants(ctx, orgID, roleIDs)
	if err != nil {
		return false, fmt.Errorf("failed to fetch role grants of user %s: %w", userID, err)
	}
	for _, g := range roleGrants {
		if match(g.ResourceID, g.Action) {
			return true, nil
		}
	}
	return false, nil
}
