package models

import "time"

// WildcardAction is the stored action that matches any requested action.
const WildcardAction = "*"

// PermissionSource identifies where an effective permission came from
type PermissionSource string

const (
	SourceUser PermissionSource = "user"
	SourceRole PermissionSource = "role"
)

// UserPermission is a direct grant of an action on a resource pattern to a user.
// (OrgID, UserID, ResourceID, Action) is unique; re-granting refreshes CreatedAt.
type UserPermission struct {
	OrgID      string    `json:"org_id" db:"org_id"`
	UserID     string    `json:"user_id" db:"user_id"`
	ResourceID string    `json:"resource_id" db:"resource_id"`
	Action     string    `json:"action" db:"action"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the UserPermission model
func (UserPermission) TableName() string {
	return "user_permission"
}

// RolePermission is a grant of an action on a resource pattern to a role.
type RolePermission struct {
	OrgID      string    `json:"org_id" db:"org_id"`
	RoleID     string    `json:"role_id" db:"role_id"`
	ResourceID string    `json:"resource_id" db:"resource_id"`
	Action     string    `json:"action" db:"action"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the RolePermission model
func (RolePermission) TableName() string {
	return "role_permission"
}

// UserRole is a role membership
type UserRole struct {
	OrgID     string    `json:"org_id" db:"org_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	RoleID    string    `json:"role_id" db:"role_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the UserRole model
func (UserRole) TableName() string {
	return "user_role"
}

// GrantFilter narrows raw grant lookups. Empty fields are ignored and
// non-empty fields are compared by exact equality.
type GrantFilter struct {
	ResourceID string
	Action     string
}

// Matches reports whether a stored (resourceID, action) pair passes the filter
func (f GrantFilter) Matches(resourceID, action string) bool {
	if f.ResourceID != "" && f.ResourceID != resourceID {
		return false
	}
	if f.Action != "" && f.Action != action {
		return false
	}
	return true
}

// EffectivePermission is a resolved grant tagged with its origin. It is derived
// on every query and never persisted.
type EffectivePermission struct {
	ResourceID string           `json:"resource_id"`
	Action     string           `json:"action"`
	Source     PermissionSource `json:"source"`
	SourceID   string           `json:"source_id"`
	CreatedAt  time.Time        `json:"created_at"`
}

// FromUserPermission converts a direct grant into its effective form
func FromUserPermission(p UserPermission) EffectivePermission {
	return EffectivePermission{
		ResourceID: p.ResourceID,
		Action:     p.Action,
		Source:     SourceUser,
		SourceID:   p.UserID,
		CreatedAt:  p.CreatedAt,
	}
}

// FromRolePermission converts a role grant into its effective form
func FromRolePermission(p RolePermission) EffectivePermission {
	return EffectivePermission{
		ResourceID: p.ResourceID,
		Action:     p.Action,
		Source:     SourceRole,
		SourceID:   p.RoleID,
		CreatedAt:  p.CreatedAt,
	}
}

// PermissionQuery holds the optional filters of an effective permission query.
// An empty field means the filter is absent.
type PermissionQuery struct {
	ResourceID string `json:"resource_id,omitempty"`
	Action     string `json:"action,omitempty"`
}
