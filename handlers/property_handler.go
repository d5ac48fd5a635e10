package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/upb/rbac-control-plane/models"
	"github.com/upb/rbac-control-plane/services/directory"
	"github.com/upb/rbac-control-plane/utils"
	"go.uber.org/zap"
)

// PropertyHandler serves the properties of organizations, users and roles.
// Each method takes the owner kind and returns the handler for its routes.
type PropertyHandler struct {
	directory *directory.Service
	logger    *zap.Logger
}

// NewPropertyHandler creates a new PropertyHandler
func NewPropertyHandler(dir *directory.Service, logger *zap.Logger) *PropertyHandler {
	return &PropertyHandler{
		directory: dir,
		logger:    logger,
	}
}

// ownerID resolves the owning entity from the URL.
func ownerID(r *http.Request, owner models.PropertyOwner) string {
	switch owner {
	case models.OwnerUser:
		return chi.URLParam(r, "userID")
	case models.OwnerRole:
		return chi.URLParam(r, "roleID")
	}
	return chi.URLParam(r, "orgID")
}

// List handles GET .../properties
func (h *PropertyHandler) List(owner models.PropertyOwner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		includeHidden, err := utils.QueryBool(r, "include_hidden")
		if err != nil {
			HandleValidationError(w, err, h.logger)
			return
		}

		props, err := h.directory.ListProperties(r.Context(), owner, chi.URLParam(r, "orgID"), ownerID(r, owner), includeHidden)
		if err != nil {
			HandleServiceError(w, err, h.logger)
			return
		}
		_ = utils.WriteOK(w, nonNil(props))
	}
}

// Get handles GET .../properties/{name}
func (h *PropertyHandler) Get(owner models.PropertyOwner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		prop, err := h.directory.GetProperty(r.Context(), owner, chi.URLParam(r, "orgID"), ownerID(r, owner), chi.URLParam(r, "name"))
		if err != nil {
			HandleServiceError(w, err, h.logger)
			return
		}
		_ = utils.WriteOK(w, prop)
	}
}

// Set handles PUT .../properties/{name}
func (h *PropertyHandler) Set(owner models.PropertyOwner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SetPropertyRequest
		if !decodeAndValidate(w, r, &req, h.logger) {
			return
		}

		prop, err := h.directory.SetProperty(r.Context(), owner, chi.URLParam(r, "orgID"), ownerID(r, owner), models.Property{
			Name:   chi.URLParam(r, "name"),
			Value:  req.Value,
			Hidden: req.Hidden,
		})
		if err != nil {
			HandleServiceError(w, err, h.logger)
			return
		}
		_ = utils.WriteOK(w, prop)
	}
}

// Delete handles DELETE .../properties/{name}
func (h *PropertyHandler) Delete(owner models.PropertyOwner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		removed, err := h.directory.DeleteProperty(r.Context(), owner, chi.URLParam(r, "orgID"), ownerID(r, owner), chi.URLParam(r, "name"))
		if err != nil {
			HandleServiceError(w, err, h.logger)
			return
		}
		_ = utils.WriteOK(w, ChangeResponse{Changed: removed})
	}
}
