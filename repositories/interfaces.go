package repositories

import (
	"context"

	"github.com/upb/rbac-control-plane/models"
)

// TransactionManager manages storage transactions. The active transaction is
// carried in the context handed to fn, so repositories called with that
// context join it.
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a storage transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// OrganizationRepository handles organization data operations
type OrganizationRepository interface {
	// Create creates a new organization. Duplicate ids return ErrConflict.
	Create(ctx context.Context, org *models.Organization) error

	// GetByID retrieves an organization by ID
	GetByID(ctx context.Context, id string) (*models.Organization, error)

	// List retrieves organizations with pagination
	List(ctx context.Context, limit, offset int) ([]*models.Organization, error)

	// Update updates name and description of an organization
	Update(ctx context.Context, org *models.Organization) error

	// Delete deletes the organization row only
	Delete(ctx context.Context, id string) error
}

// UserRepository handles user data operations
type UserRepository interface {
	// Create creates a new user. Duplicate (org, id) returns ErrConflict,
	// an unknown organization returns ErrReferential.
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by its composite key
	GetByID(ctx context.Context, orgID, id string) (*models.User, error)

	// GetByIdentity retrieves a user by identity provider and provider user id
	GetByIdentity(ctx context.Context, orgID, identityProvider, identityProviderUserID string) (*models.User, error)

	// List retrieves users of an organization with pagination
	List(ctx context.Context, orgID string, limit, offset int) ([]*models.User, error)

	// Update updates identity fields of a user
	Update(ctx context.Context, user *models.User) error

	// Delete deletes the user row only
	Delete(ctx context.Context, orgID, id string) error

	// DeleteByOrg deletes every user of an organization
	DeleteByOrg(ctx context.Context, orgID string) (int64, error)
}

// RoleRepository handles role data operations
type RoleRepository interface {
	Create(ctx context.Context, role *models.Role) error
	GetByID(ctx context.Context, orgID, id string) (*models.Role, error)
	List(ctx context.Context, orgID string, limit, offset int) ([]*models.Role, error)
	Update(ctx context.Context, role *models.Role) error
	Delete(ctx context.Context, orgID, id string) error
	DeleteByOrg(ctx context.Context, orgID string) (int64, error)
}

// ResourceRepository handles resource catalog operations
type ResourceRepository interface {
	Create(ctx context.Context, resource *models.Resource) error
	GetByID(ctx context.Context, orgID, id string) (*models.Resource, error)

	// List retrieves resources whose id starts with prefix; an empty prefix lists all
	List(ctx context.Context, orgID, prefix string, limit, offset int) ([]*models.Resource, error)

	Update(ctx context.Context, resource *models.Resource) error
	Delete(ctx context.Context, orgID, id string) error
	DeleteByOrg(ctx context.Context, orgID string) (int64, error)
}

// PropertyRepository handles properties of organizations, users and roles.
// For OwnerOrganization the ownerID equals the orgID.
type PropertyRepository interface {
	// Set inserts or replaces a property
	Set(ctx context.Context, owner models.PropertyOwner, orgID, ownerID string, prop *models.Property) error

	// Get retrieves a single property by name
	Get(ctx context.Context, owner models.PropertyOwner, orgID, ownerID, name string) (*models.Property, error)

	// List retrieves properties ordered by name; hidden properties are
	// skipped unless includeHidden is set
	List(ctx context.Context, owner models.PropertyOwner, orgID, ownerID string, includeHidden bool) ([]models.Property, error)

	// Delete removes a property and reports whether it existed
	Delete(ctx context.Context, owner models.PropertyOwner, orgID, ownerID, name string) (bool, error)

	// DeleteByOwner removes every property of one owner
	DeleteByOwner(ctx context.Context, owner models.PropertyOwner, orgID, ownerID string) (int64, error)

	// DeleteByOrg removes every organization, user and role property of an organization
	DeleteByOrg(ctx context.Context, orgID string) (int64, error)
}

// PermissionRepository handles user and role grants
type PermissionRepository interface {
	// GrantUserPermission upserts a direct grant, refreshing created_at on conflict.
	// Returns ErrReferential if the user does not exist in the organization.
	GrantUserPermission(ctx context.Context, orgID, userID, resourceID, action string) (*models.UserPermission, error)

	// RevokeUserPermission deletes a direct grant and reports whether a row was removed
	RevokeUserPermission(ctx context.Context, orgID, userID, resourceID, action string) (bool, error)

	// GetUserPermissions returns stored direct grants matching the exact filter
	GetUserPermissions(ctx context.Context, orgID, userID string, filter models.GrantFilter) ([]models.UserPermission, error)

	GrantRolePermission(ctx context.Context, orgID, roleID, resourceID, action string) (*models.RolePermission, error)
	RevokeRolePermission(ctx context.Context, orgID, roleID, resourceID, action string) (bool, error)
	GetRolePermissions(ctx context.Context, orgID, roleID string, filter models.GrantFilter) ([]models.RolePermission, error)

	// ListRoleGrants fetches the grants of several roles in one call
	ListRoleGrants(ctx context.Context, orgID string, roleIDs []string) ([]models.RolePermission, error)

	DeleteUserPermissions(ctx context.Context, orgID, userID string) (int64, error)
	DeleteRolePermissions(ctx context.Context, orgID, roleID string) (int64, error)

	// DeleteByResource removes user and role grants whose resource id equals resourceID
	DeleteByResource(ctx context.Context, orgID, resourceID string) (int64, error)

	// DeleteByOrg removes every user and role grant of an organization
	DeleteByOrg(ctx context.Context, orgID string) (int64, error)
}

// MembershipRepository handles user to role assignments
type MembershipRepository interface {
	// AssignUserRole creates a membership and reports whether it was new.
	// Returns ErrReferential if the user or role is not in the organization.
	AssignUserRole(ctx context.Context, orgID, userID, roleID string) (bool, error)

	// UnassignUserRole removes a membership and reports whether it existed
	UnassignUserRole(ctx context.Context, orgID, userID, roleID string) (bool, error)

	GetUserRoleIDs(ctx context.Context, orgID, userID string) ([]string, error)
	GetRoleUserIDs(ctx context.Context, orgID, roleID string) ([]string, error)

	DeleteByUser(ctx context.Context, orgID, userID string) (int64, error)
	DeleteByRole(ctx context.Context, orgID, roleID string) (int64, error)
	DeleteByOrg(ctx context.Context, orgID string) (int64, error)
}

// HealthChecker reports storage liveness
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Repositories holds all repository instances
type Repositories struct {
	Organizations OrganizationRepository
	Users         UserRepository
	Roles         RoleRepository
	Resources     ResourceRepository
	Properties    PropertyRepository
	Permissions   PermissionRepository
	Memberships   MembershipRepository
	TxManager     TransactionManager
	Health        HealthChecker
}
