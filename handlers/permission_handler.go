package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/upb/rbac-control-plane/middleware"
	"github.com/upb/rbac-control-plane/models"
	"github.com/upb/rbac-control-plane/services/permission"
	"github.com/upb/rbac-control-plane/utils"
	"go.uber.org/zap"
)

// PermissionHandler exposes grants, role memberships, resolution and checks.
// Resource ids travel in the body or the query string because they contain
// slashes.
type PermissionHandler struct {
	permissions *permission.Service
	logger      *zap.Logger
}

// NewPermissionHandler creates a new PermissionHandler
func NewPermissionHandler(permissions *permission.Service, logger *zap.Logger) *PermissionHandler {
	return &PermissionHandler{
		permissions: permissions,
		logger:      logger,
	}
}

// HandleEffectivePermissions handles GET /organizations/{orgID}/users/{userID}/effective-permissions.
// resource_id and action narrow the result; a prefix parameter switches to
// prefix matching on the stored resource ids.
func (h *PermissionHandler) HandleEffectivePermissions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID, userID := chi.URLParam(r, "orgID"), chi.URLParam(r, "userID")
	q := r.URL.Query()

	var (
		result []models.EffectivePermission
		err    error
	)
	if q.Has("prefix") {
		result, err = h.permissions.EffectivePermissionsByPrefix(ctx, orgID, userID, q.Get("prefix"), q.Get("action"))
	} else {
		result, err = h.permissions.EffectivePermissions(ctx, orgID, userID, models.PermissionQuery{
			ResourceID: q.Get("resource_id"),
			Action:     q.Get("action"),
		})
	}
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Debug("effective permissions resolved",
		zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
		zap.String("org_id", orgID),
		zap.String("user_id", userID),
		zap.Int("count", len(result)))
	_ = utils.WriteOK(w, nonNil(result))
}

// HandleHasPermission handles GET /organizations/{orgID}/users/{userID}/has-permission?resource_id=&action=
func (h *PermissionHandler) HandleHasPermission(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	allowed, err := h.permissions.HasPermission(r.Context(), chi.URLParam(r, "orgID"), chi.URLParam(r, "userID"),
		q.Get("resource_id"), q.Get("action"))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, CheckResponse{Allowed: allowed})
}

// HandleGrantUser handles POST /organizations/{orgID}/users/{userID}/permissions
func (h *PermissionHandler) HandleGrantUser(w http.ResponseWriter, r *http.Request) {
	var req GrantRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	grant, err := h.permissions.GrantUserPermission(r.Context(), chi.URLParam(r, "orgID"), chi.URLParam(r, "userID"), req.ResourceID, req.Action)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteCreated(w, grant)
}

// HandleRevokeUser handles DELETE /organizations/{orgID}/users/{userID}/permissions?resource_id=&action=
func (h *PermissionHandler) HandleRevokeUser(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	removed, err := h.permissions.RevokeUserPermission(r.Context(), chi.URLParam(r, "orgID"), chi.URLParam(r, "userID"),
		q.Get("resource_id"), q.Get("action"))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, ChangeResponse{Changed: removed})
}

// HandleListUser handles GET /organizations/{orgID}/users/{userID}/permissions
func (h *PermissionHandler) HandleListUser(w http.ResponseWriter, r *http.Request) {
	grants, err := h.permissions.GetUserPermissions(r.Context(), chi.URLParam(r, "orgID"), chi.URLParam(r, "userID"), grantFilter(r))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, nonNil(grants))
}

// HandleGrantRole handles POST /organizations/{orgID}/roles/{roleID}/permissions
func (h *PermissionHandler) HandleGrantRole(w http.ResponseWriter, r *http.Request) {
	var req GrantRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	grant, err := h.permissions.GrantRolePermission(r.Context(), chi.URLParam(r, "orgID"), chi.URLParam(r, "roleID"), req.ResourceID, req.Action)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteCreated(w, grant)
}

// HandleRevokeRole handles DELETE /organizations/{orgID}/roles/{roleID}/permissions?resource_id=&action=
func (h *PermissionHandler) HandleRevokeRole(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	removed, err := h.permissions.RevokeRolePermission(r.Context(), chi.URLParam(r, "orgID"), chi.URLParam(r, "roleID"),
		q.Get("resource_id"), q.Get("action"))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, ChangeResponse{Changed: removed})
}

// HandleListRole handles GET /organizations/{orgID}/roles/{roleID}/permissions
func (h *PermissionHandler) HandleListRole(w http.ResponseWriter, r *http.Request) {
	grants, err := h.permissions.GetRolePermissions(r.Context(), chi.URLParam(r, "orgID"), chi.URLParam(r, "roleID"), grantFilter(r))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, nonNil(grants))
}

// HandleAssignRole handles PUT /organizations/{orgID}/users/{userID}/roles/{roleID}
func (h *PermissionHandler) HandleAssignRole(w http.ResponseWriter, r *http.Request) {
	added, err := h.permissions.AssignUserRole(r.Context(), chi.URLParam(r, "orgID"), chi.URLParam(r, "userID"), chi.URLParam(r, "roleID"))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, ChangeResponse{Changed: added})
}

// HandleUnassignRole handles DELETE /organizations/{orgID}/users/{userID}/roles/{roleID}
func (h *PermissionHandler) HandleUnassignRole(w http.ResponseWriter, r *http.Request) {
	removed, err := h.permissions.UnassignUserRole(r.Context(), chi.URLParam(r, "orgID"), chi.URLParam(r, "userID"), chi.URLParam(r, "roleID"))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, ChangeResponse{Changed: removed})
}

// HandleUserRoles handles GET /organizations/{orgID}/users/{userID}/roles
func (h *PermissionHandler) HandleUserRoles(w http.ResponseWriter, r *http.Request) {
	ids, err := h.permissions.GetUserRoleIDs(r.Context(), chi.URLParam(r, "orgID"), chi.URLParam(r, "userID"))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, IDsResponse{IDs: nonNil(ids)})
}

// HandleRoleUsers handles GET /organizations/{orgID}/roles/{roleID}/users
func (h *PermissionHandler) HandleRoleUsers(w http.ResponseWriter, r *http.Request) {
	ids, err := h.permissions.GetRoleUserIDs(r.Context(), chi.URLParam(r, "orgID"), chi.URLParam(r, "roleID"))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, IDsResponse{IDs: nonNil(ids)})
}
