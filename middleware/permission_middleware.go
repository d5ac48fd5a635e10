package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/upb/rbac-control-plane/internal/observability"
	"github.com/upb/rbac-control-plane/services"
	"github.com/upb/rbac-control-plane/services/permission"
	"github.com/upb/rbac-control-plane/utils"
	"go.uber.org/zap"
)

// OrgIDParam is the URL parameter carrying the organization of a request.
const OrgIDParam = "orgID"

// PermissionMiddleware authorizes API callers against the permission engine
// itself: the caller must hold the required permission in the organization
// named by the URL.
type PermissionMiddleware struct {
	checker permission.Checker
	logger  observability.Logger
}

// NewPermissionMiddleware creates a new PermissionMiddleware
func NewPermissionMiddleware(checker permission.Checker, logger *zap.Logger) *PermissionMiddleware {
	return &PermissionMiddleware{
		checker: checker,
		logger:  observability.NewContextLogger(logger),
	}
}

// RequirePermission allows the request when the token subject has action on
// resource in the URL organization. Tokens for another organization are
// rejected; platform admins pass. Must run after RequireAuth.
func (m *PermissionMiddleware) RequirePermission(resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			claims := GetClaimsFromContext(ctx)
			if claims == nil {
				m.logger.Error(ctx, "claims not found in context")
				_ = utils.WriteUnauthorized(w, "Authentication required")
				return
			}

			if claims.HasRole(PlatformAdminRole) {
				next.ServeHTTP(w, r)
				return
			}

			orgID := chi.URLParam(r, OrgIDParam)
			if orgID == "" || claims.OrgID != orgID {
				m.logger.Warn(ctx, "organization mismatch",
					zap.String("token_org_id", claims.OrgID),
					zap.String("org_id", orgID))
				_ = utils.WriteForbidden(w, services.ErrOrgMismatch.Message)
				return
			}

			allowed, err := m.checker.HasPermission(ctx, orgID, claims.Subject, resource, action)
			if err != nil {
				m.logger.Error(ctx, "permission check failed", zap.Error(err))
				_ = utils.WriteInternalServerError(w, "Failed to check permissions")
				return
			}
			if !allowed {
				m.logger.Info(ctx, "permission denied",
					zap.String("org_id", orgID),
					zap.String("user_id", claims.Subject),
					zap.String("resource_id", resource),
					zap.String("action", action))
				_ = utils.WriteForbidden(w, services.ErrInsufficientPermissions.Message)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
