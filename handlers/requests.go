package handlers

import (
	"net/http"

	"github.com/upb/rbac-control-plane/models"
	"github.com/upb/rbac-control-plane/services/directory"
	"github.com/upb/rbac-control-plane/utils"
)

// CreateOrganizationRequest creates an organization. A missing id is generated.
type CreateOrganizationRequest struct {
	ID          string            `json:"id,omitempty" validate:"omitempty,identifier"`
	Name        string            `json:"name" validate:"required,max=255"`
	Description *string           `json:"description,omitempty"`
	Properties  []models.Property `json:"properties,omitempty"`
}

// UpdateOrganizationRequest replaces name and description
type UpdateOrganizationRequest struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Description *string `json:"description,omitempty"`
}

// CreateUserRequest creates a user with optional properties and roles
type CreateUserRequest struct {
	ID                     string            `json:"id" validate:"required,identifier"`
	IdentityProvider       string            `json:"identity_provider" validate:"required"`
	IdentityProviderUserID string            `json:"identity_provider_user_id" validate:"required"`
	Properties             []models.Property `json:"properties,omitempty"`
	RoleIDs                []string          `json:"role_ids,omitempty" validate:"omitempty,dive,identifier"`
}

// UpdateUserRequest replaces the identity of a user
type UpdateUserRequest struct {
	IdentityProvider       string `json:"identity_provider" validate:"required"`
	IdentityProviderUserID string `json:"identity_provider_user_id" validate:"required"`
}

// CreateRoleRequest creates a role with optional properties
type CreateRoleRequest struct {
	ID          string            `json:"id" validate:"required,identifier"`
	Name        string            `json:"name" validate:"required,max=255"`
	Description *string           `json:"description,omitempty"`
	Properties  []models.Property `json:"properties,omitempty"`
}

// UpdateRoleRequest replaces name and description of a role
type UpdateRoleRequest struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Description *string `json:"description,omitempty"`
}

// CreateResourceRequest registers a resource pattern in the catalog
type CreateResourceRequest struct {
	ID          string  `json:"id" validate:"required,identifier"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// UpdateResourceRequest replaces the labels of a resource
type UpdateResourceRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// SetPropertyRequest sets the value of the property named in the URL
type SetPropertyRequest struct {
	Value  models.Value `json:"value"`
	Hidden bool         `json:"hidden"`
}

// GrantRequest grants action on a resource pattern
type GrantRequest struct {
	ResourceID string `json:"resource_id" validate:"required,identifier"`
	Action     string `json:"action" validate:"required,identifier"`
}

// ChangeResponse reports the outcome of a revoke or unassign call
type ChangeResponse struct {
	Changed bool `json:"changed"`
}

// CheckResponse is the answer of a permission check
type CheckResponse struct {
	Allowed bool `json:"allowed"`
}

// IDsResponse lists related entity ids
type IDsResponse struct {
	IDs []string `json:"ids"`
}

// parsePage reads limit and offset query parameters.
func parsePage(r *http.Request) (directory.Page, error) {
	limit, err := utils.QueryInt(r, "limit", 0)
	if err != nil {
		return directory.Page{}, err
	}
	offset, err := utils.QueryInt(r, "offset", 0)
	if err != nil {
		return directory.Page{}, err
	}
	return directory.Page{Limit: limit, Offset: offset}, nil
}

// grantFilter reads the resource_id and action query parameters.
func grantFilter(r *http.Request) models.GrantFilter {
	q := r.URL.Query()
	return models.GrantFilter{ResourceID: q.Get("resource_id"), Action: q.Get("action")}
}
