package models

import "time"

// User represents a principal within an organization.
// (IdentityProvider, IdentityProviderUserID) is a secondary lookup key inside the org.
type User struct {
	OrgID                  string     `json:"org_id" db:"org_id"`
	ID                     string     `json:"id" db:"id"`
	IdentityProvider       string     `json:"identity_provider" db:"identity_provider"`
	IdentityProviderUserID string     `json:"identity_provider_user_id" db:"identity_provider_user_id"`
	Properties             []Property `json:"properties,omitempty" db:"-"`
	RoleIDs                []string   `json:"role_ids,omitempty" db:"-"`
	CreatedAt              time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// NewUser creates a new User instance
func NewUser(orgID, id, identityProvider, identityProviderUserID string) *User {
	now := time.Now().UTC()
	return &User{
		OrgID:                  orgID,
		ID:                     id,
		IdentityProvider:       identityProvider,
		IdentityProviderUserID: identityProviderUserID,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
}
