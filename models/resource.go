package models

import "time"

// Resource is a declarative label for a resource pattern such as "/api/users/*".
// Grants reference resource ids as plain strings; a Resource row is catalog
// data and is not required for a grant to take effect.
type Resource struct {
	OrgID       string    `json:"org_id" db:"org_id"`
	ID          string    `json:"id" db:"id"`
	Name        *string   `json:"name,omitempty" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Resource model
func (Resource) TableName() string {
	return "resource"
}

// NewResource creates a new Resource instance
func NewResource(orgID, id string, name, description *string) *Resource {
	now := time.Now().UTC()
	return &Resource{
		OrgID:       orgID,
		ID:          id,
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
