package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/upb/rbac-control-plane/models"
	"github.com/upb/rbac-control-plane/services/directory"
	"github.com/upb/rbac-control-plane/utils"
	"go.uber.org/zap"
)

// ResourceHandler manages the resource catalog. Resource ids usually contain
// slashes, so single-resource routes take the id from the "id" query
// parameter rather than the path.
type ResourceHandler struct {
	directory *directory.Service
	logger    *zap.Logger
}

// NewResourceHandler creates a new ResourceHandler
func NewResourceHandler(dir *directory.Service, logger *zap.Logger) *ResourceHandler {
	return &ResourceHandler{
		directory: dir,
		logger:    logger,
	}
}

// HandleCreate handles POST /organizations/{orgID}/resources
func (h *ResourceHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateResourceRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	resource, err := h.directory.CreateResource(r.Context(), &models.Resource{
		OrgID:       chi.URLParam(r, "orgID"),
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteCreated(w, resource)
}

// HandleList handles GET /organizations/{orgID}/resources?prefix=. With an id
// query parameter it returns that single resource.
func (h *ResourceHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")

	if id := r.URL.Query().Get("id"); id != "" {
		resource, err := h.directory.GetResource(r.Context(), orgID, id)
		if err != nil {
			HandleServiceError(w, err, h.logger)
			return
		}
		_ = utils.WriteOK(w, resource)
		return
	}

	page, err := parsePage(r)
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	resources, err := h.directory.ListResources(r.Context(), orgID, r.URL.Query().Get("prefix"), page)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, nonNil(resources))
}

// HandleUpdate handles PATCH /organizations/{orgID}/resources?id=
func (h *ResourceHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req UpdateResourceRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	resource, err := h.directory.UpdateResource(r.Context(), chi.URLParam(r, "orgID"), r.URL.Query().Get("id"), req.Name, req.Description)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, resource)
}

// HandleDelete handles DELETE /organizations/{orgID}/resources?id=
func (h *ResourceHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.directory.DeleteResource(r.Context(), chi.URLParam(r, "orgID"), r.URL.Query().Get("id")); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	utils.WriteNoContent(w)
}
