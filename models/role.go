package models

import "time"

// Role groups permissions that are inherited by every member user.
// Roles never inherit from other roles.
type Role struct {
	OrgID       string     `json:"org_id" db:"org_id"`
	ID          string     `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Description *string    `json:"description,omitempty" db:"description"`
	Properties  []Property `json:"properties,omitempty" db:"-"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Role model
func (Role) TableName() string {
	return "role"
}

// NewRole creates a new Role instance
func NewRole(orgID, id, name string, description *string) *Role {
	now := time.Now().UTC()
	return &Role{
		OrgID:       orgID,
		ID:          id,
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
