package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/upb/rbac-control-plane/models"
	"github.com/upb/rbac-control-plane/services/directory"
	"github.com/upb/rbac-control-plane/utils"
	"go.uber.org/zap"
)

// UserHandler handles user management within an organization
type UserHandler struct {
	directory *directory.Service
	logger    *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(dir *directory.Service, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		directory: dir,
		logger:    logger,
	}
}

// HandleCreate handles POST /organizations/{orgID}/users
func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	user, err := h.directory.CreateUser(r.Context(), &models.User{
		OrgID:                  chi.URLParam(r, "orgID"),
		ID:                     req.ID,
		IdentityProvider:       req.IdentityProvider,
		IdentityProviderUserID: req.IdentityProviderUserID,
		Properties:             req.Properties,
		RoleIDs:                req.RoleIDs,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteCreated(w, user)
}

// HandleList handles GET /organizations/{orgID}/users. With identity_provider
// and identity_provider_user_id set it looks up a single user instead.
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	q := r.URL.Query()

	if idp := q.Get("identity_provider"); idp != "" || q.Get("identity_provider_user_id") != "" {
		user, err := h.directory.GetUserByIdentity(r.Context(), orgID, idp, q.Get("identity_provider_user_id"), false)
		if err != nil {
			HandleServiceError(w, err, h.logger)
			return
		}
		_ = utils.WriteOK(w, []*models.User{user})
		return
	}

	page, err := parsePage(r)
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	users, err := h.directory.ListUsers(r.Context(), orgID, page)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, nonNil(users))
}

// HandleGet handles GET /organizations/{orgID}/users/{userID}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	includeHidden, err := utils.QueryBool(r, "include_hidden")
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	user, err := h.directory.GetUser(r.Context(), chi.URLParam(r, "orgID"), chi.URLParam(r, "userID"), includeHidden)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, user)
}

// HandleUpdate handles PUT /organizations/{orgID}/users/{userID}
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	user, err := h.directory.UpdateUser(r.Context(), chi.URLParam(r, "orgID"), chi.URLParam(r, "userID"),
		req.IdentityProvider, req.IdentityProviderUserID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, user)
}

// HandleDelete handles DELETE /organizations/{orgID}/users/{userID}
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.directory.DeleteUser(r.Context(), chi.URLParam(r, "orgID"), chi.URLParam(r, "userID")); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	utils.WriteNoContent(w)
}
