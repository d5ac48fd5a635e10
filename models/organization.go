package models

import (
	"time"

	"github.com/google/uuid"
)

// Organization represents a tenant in the multi-tenant system.
// Every user, role, resource and grant is scoped to exactly one organization.
type Organization struct {
	ID          string     `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Description *string    `json:"description,omitempty" db:"description"`
	Properties  []Property `json:"properties,omitempty" db:"-"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Organization model
func (Organization) TableName() string {
	return "organization"
}

// NewOrganization creates a new Organization instance.
// A random identifier is generated when id is empty.
func NewOrganization(id, name string, description *string) *Organization {
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()
	return &Organization{
		ID:          id,
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
