package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/upb/rbac-control-plane/models"
	"github.com/upb/rbac-control-plane/services/directory"
	"github.com/upb/rbac-control-plane/utils"
	"go.uber.org/zap"
)

// RoleHandler handles role management within an organization
type RoleHandler struct {
	directory *directory.Service
	logger    *zap.Logger
}

// NewRoleHandler creates a new RoleHandler
func NewRoleHandler(dir *directory.Service, logger *zap.Logger) *RoleHandler {
	return &RoleHandler{
		directory: dir,
		logger:    logger,
	}
}

// HandleCreate handles POST /organizations/{orgID}/roles
func (h *RoleHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRoleRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	role, err := h.directory.CreateRole(r.Context(), &models.Role{
		OrgID:       chi.URLParam(r, "orgID"),
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Properties:  req.Properties,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteCreated(w, role)
}

// HandleList handles GET /organizations/{orgID}/roles
func (h *RoleHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	roles, err := h.directory.ListRoles(r.Context(), chi.URLParam(r, "orgID"), page)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, nonNil(roles))
}

// HandleGet handles GET /organizations/{orgID}/roles/{roleID}
func (h *RoleHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	includeHidden, err := utils.QueryBool(r, "include_hidden")
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	role, err := h.directory.GetRole(r.Context(), chi.URLParam(r, "orgID"), chi.URLParam(r, "roleID"), includeHidden)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, role)
}

// HandleUpdate handles PUT /organizations/{orgID}/roles/{roleID}
func (h *RoleHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req UpdateRoleRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	role, err := h.directory.UpdateRole(r.Context(), chi.URLParam(r, "orgID"), chi.URLParam(r, "roleID"), req.Name, req.Description)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, role)
}

// HandleDelete handles DELETE /organizations/{orgID}/roles/{roleID}
func (h *RoleHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.directory.DeleteRole(r.Context(), chi.URLParam(r, "orgID"), chi.URLParam(r, "roleID")); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	utils.WriteNoContent(w)
}
