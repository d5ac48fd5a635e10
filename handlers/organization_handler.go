package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/upb/rbac-control-plane/middleware"
	"github.com/upb/rbac-control-plane/models"
	"github.com/upb/rbac-control-plane/services/directory"
	"github.com/upb/rbac-control-plane/utils"
	"go.uber.org/zap"
)

// OrganizationHandler handles tenant management
type OrganizationHandler struct {
	directory *directory.Service
	logger    *zap.Logger
}

// NewOrganizationHandler creates a new OrganizationHandler
func NewOrganizationHandler(dir *directory.Service, logger *zap.Logger) *OrganizationHandler {
	return &OrganizationHandler{
		directory: dir,
		logger:    logger,
	}
}

// HandleCreate handles POST /api/v1/organizations
func (h *OrganizationHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateOrganizationRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	org, err := h.directory.CreateOrganization(r.Context(), &models.Organization{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Properties:  req.Properties,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("organization created",
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
		zap.String("org_id", org.ID))
	_ = utils.WriteCreated(w, org)
}

// HandleList handles GET /api/v1/organizations
func (h *OrganizationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	orgs, err := h.directory.ListOrganizations(r.Context(), page)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, nonNil(orgs))
}

// HandleGet handles GET /api/v1/organizations/{orgID}
func (h *OrganizationHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	includeHidden, err := utils.QueryBool(r, "include_hidden")
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	org, err := h.directory.GetOrganization(r.Context(), chi.URLParam(r, "orgID"), includeHidden)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, org)
}

// HandleUpdate handles PUT /api/v1/organizations/{orgID}
func (h *OrganizationHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req UpdateOrganizationRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	org, err := h.directory.UpdateOrganization(r.Context(), chi.URLParam(r, "orgID"), req.Name, req.Description)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, org)
}

// HandleDelete handles DELETE /api/v1/organizations/{orgID}
func (h *OrganizationHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	if err := h.directory.DeleteOrganization(r.Context(), orgID); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("organization deleted",
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
		zap.String("org_id", orgID))
	utils.WriteNoContent(w)
}
