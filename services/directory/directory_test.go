package directory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/rbac-control-plane/models"
	"github.com/upb/rbac-control-plane/repositories"
	"github.com/upb/rbac-control-plane/repositories/memory"
	"github.com/upb/rbac-control-plane/services"
	"github.com/upb/rbac-control-plane/services/permission"
	"go.uber.org/zap"
)

const org = "acme"

type fixture struct {
	ctx   context.Context
	repos *repositories.Repositories
	cache *permission.MembershipCache
	dir   *Service
	perms *permission.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	repos := memory.NewStore(zap.NewNop()).NewRepositories()
	cache := permission.NewMembershipCache(100, time.Minute)
	resolver := permission.NewResolver(permission.NewRepositorySource(repos.Permissions, repos.Memberships, cache), nil, zap.NewNop())

	f := &fixture{
		ctx:   ctx,
		repos: repos,
		cache: cache,
		dir:   NewService(repos, cache, zap.NewNop()),
		perms: permission.NewService(repos.Permissions, repos.Memberships, resolver, cache, zap.NewNop()),
	}

	_, err := f.dir.CreateOrganization(ctx, &models.Organization{ID: org, Name: "Acme"})
	require.NoError(t, err)
	for _, id := range []string{"admin", "r1", "r2"} {
		_, err := f.dir.CreateRole(ctx, &models.Role{OrgID: org, ID: id, Name: id})
		require.NoError(t, err)
	}
	return f
}

func (f *fixture) createUser(t *testing.T, id string, roleIDs ...string) *models.User {
	t.Helper()
	user, err := f.dir.CreateUser(f.ctx, &models.User{
		OrgID:                  org,
		ID:                     id,
		IdentityProvider:       "google",
		IdentityProviderUserID: "sub-" + id,
		RoleIDs:                roleIDs,
	})
	require.NoError(t, err)
	return user
}

func (f *fixture) effectiveCount(t *testing.T, userID, resourceID, action string) int {
	t.Helper()
	perms, err := f.perms.EffectivePermissions(f.ctx, org, userID, models.PermissionQuery{ResourceID: resourceID, Action: action})
	require.NoError(t, err)
	return len(perms)
}

func TestCreateOrganization(t *testing.T) {
	f := newFixture(t)

	created, err := f.dir.CreateOrganization(f.ctx, &models.Organization{
		Name: "Globex",
		Properties: []models.Property{
			*models.NewProperty("tier", models.StringValue("gold"), false),
			*models.NewProperty("secret", models.NumberValue(42), true),
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Len(t, created.Properties, 2)

	public, err := f.dir.GetOrganization(f.ctx, created.ID, false)
	require.NoError(t, err)
	require.Len(t, public.Properties, 1)
	assert.Equal(t, "tier", public.Properties[0].Name)

	_, err = f.dir.CreateOrganization(f.ctx, &models.Organization{ID: org, Name: "Again"})
	assert.True(t, services.IsConflictError(err))

	_, err = f.dir.CreateOrganization(f.ctx, &models.Organization{Name: ""})
	assert.True(t, services.IsValidationError(err))

	_, err = f.dir.GetOrganization(f.ctx, "missing", false)
	assert.True(t, services.IsNotFoundError(err))
}

func TestUpdateAndListOrganizations(t *testing.T) {
	f := newFixture(t)
	desc := "renamed"

	updated, err := f.dir.UpdateOrganization(f.ctx, org, "Acme Corp", &desc)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", updated.Name)
	require.NotNil(t, updated.Description)
	assert.Equal(t, desc, *updated.Description)

	_, err = f.dir.UpdateOrganization(f.ctx, "missing", "x", nil)
	assert.True(t, services.IsNotFoundError(err))

	orgs, err := f.dir.ListOrganizations(f.ctx, Page{})
	require.NoError(t, err)
	assert.Len(t, orgs, 1)
}

func TestCreateUser_WithPropertiesAndRoles(t *testing.T) {
	f := newFixture(t)

	user, err := f.dir.CreateUser(f.ctx, &models.User{
		OrgID:                  org,
		ID:                     "u1",
		IdentityProvider:       "google",
		IdentityProviderUserID: "sub-1",
		Properties:             []models.Property{*models.NewProperty("email", models.StringValue("a@b.c"), false)},
		RoleIDs:                []string{"admin", "r1"},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"admin", "r1"}, user.RoleIDs)
	require.Len(t, user.Properties, 1)

	byIdentity, err := f.dir.GetUserByIdentity(f.ctx, org, "google", "sub-1", false)
	require.NoError(t, err)
	assert.Equal(t, "u1", byIdentity.ID)

	_, err = f.dir.GetUserByIdentity(f.ctx, org, "github", "sub-1", false)
	assert.True(t, services.IsNotFoundError(err))
}

func TestCreateUser_IsAtomic(t *testing.T) {
	f := newFixture(t)

	_, err := f.dir.CreateUser(f.ctx, &models.User{
		OrgID:                  org,
		ID:                     "u1",
		IdentityProvider:       "google",
		IdentityProviderUserID: "sub-1",
		Properties:             []models.Property{*models.NewProperty("email", models.StringValue("a@b.c"), false)},
		RoleIDs:                []string{"admin", "ghost"},
	})
	require.Error(t, err)
	assert.True(t, services.IsReferentialError(err))

	_, err = f.dir.GetUser(f.ctx, org, "u1", true)
	assert.True(t, services.IsNotFoundError(err))

	users, err := f.repos.Memberships.GetRoleUserIDs(f.ctx, org, "admin")
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestCreateUser_DuplicateAndUnknownOrg(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "u1")

	_, err := f.dir.CreateUser(f.ctx, &models.User{OrgID: org, ID: "u1", IdentityProvider: "google", IdentityProviderUserID: "other"})
	assert.True(t, services.IsConflictError(err))

	_, err = f.dir.CreateUser(f.ctx, &models.User{OrgID: "nowhere", ID: "u1", IdentityProvider: "google", IdentityProviderUserID: "x"})
	assert.True(t, services.IsReferentialError(err))

	_, err = f.dir.CreateUser(f.ctx, &models.User{OrgID: org, ID: "u2"})
	assert.True(t, services.IsValidationError(err))
}

func TestUpdateUser(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "u1", "admin")

	updated, err := f.dir.UpdateUser(f.ctx, org, "u1", "okta", "00u1")
	require.NoError(t, err)
	assert.Equal(t, "okta", updated.IdentityProvider)
	assert.Equal(t, []string{"admin"}, updated.RoleIDs)

	_, err = f.dir.UpdateUser(f.ctx, org, "ghost", "okta", "x")
	assert.True(t, services.IsNotFoundError(err))
}

func TestDeleteUser_Cascades(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "u1", "admin")
	_, err := f.dir.SetProperty(f.ctx, models.OwnerUser, org, "u1", *models.NewProperty("k", models.BoolValue(true), false))
	require.NoError(t, err)
	_, err = f.perms.GrantUserPermission(f.ctx, org, "u1", "/x", "read")
	require.NoError(t, err)

	require.NoError(t, f.dir.DeleteUser(f.ctx, org, "u1"))

	members, err := f.repos.Memberships.GetRoleUserIDs(f.ctx, org, "admin")
	require.NoError(t, err)
	assert.Empty(t, members)

	grants, err := f.repos.Permissions.GetUserPermissions(f.ctx, org, "u1", models.GrantFilter{})
	require.NoError(t, err)
	assert.Empty(t, grants)

	props, err := f.repos.Properties.List(f.ctx, models.OwnerUser, org, "u1", true)
	require.NoError(t, err)
	assert.Empty(t, props)

	err = f.dir.DeleteUser(f.ctx, org, "u1")
	assert.True(t, services.IsNotFoundError(err))

	// a recreated user starts without the old grants or roles
	f.createUser(t, "u1")
	assert.Equal(t, 0, f.effectiveCount(t, "u1", "/x", "read"))
}

func TestDeleteRole_RemovesInheritedPermissions(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "u1", "r1", "r2")
	_, err := f.perms.GrantUserPermission(f.ctx, org, "u1", "/x", "read")
	require.NoError(t, err)
	for _, role := range []string{"r1", "r2"} {
		_, err := f.perms.GrantRolePermission(f.ctx, org, role, "/x", "read")
		require.NoError(t, err)
	}

	assert.Equal(t, 3, f.effectiveCount(t, "u1", "/x", "read"))

	require.NoError(t, f.dir.DeleteRole(f.ctx, org, "r1"))

	assert.Equal(t, 2, f.effectiveCount(t, "u1", "/x", "read"))

	roles, err := f.perms.GetUserRoleIDs(f.ctx, org, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"r2"}, roles)

	grants, err := f.repos.Permissions.GetRolePermissions(f.ctx, org, "r1", models.GrantFilter{})
	require.NoError(t, err)
	assert.Empty(t, grants)

	err = f.dir.DeleteRole(f.ctx, org, "r1")
	assert.True(t, services.IsNotFoundError(err))
}

func TestDeleteResource_RemovesEqualGrantsOnly(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "u1")

	_, err := f.dir.CreateResource(f.ctx, &models.Resource{OrgID: org, ID: "/api/*"})
	require.NoError(t, err)
	_, err = f.perms.GrantUserPermission(f.ctx, org, "u1", "/api/*", "read")
	require.NoError(t, err)
	_, err = f.perms.GrantUserPermission(f.ctx, org, "u1", "/api/users", "read")
	require.NoError(t, err)
	_, err = f.perms.GrantRolePermission(f.ctx, org, "admin", "/api/*", "write")
	require.NoError(t, err)

	require.NoError(t, f.dir.DeleteResource(f.ctx, org, "/api/*"))

	userGrants, err := f.repos.Permissions.GetUserPermissions(f.ctx, org, "u1", models.GrantFilter{})
	require.NoError(t, err)
	require.Len(t, userGrants, 1)
	assert.Equal(t, "/api/users", userGrants[0].ResourceID)

	roleGrants, err := f.repos.Permissions.GetRolePermissions(f.ctx, org, "admin", models.GrantFilter{})
	require.NoError(t, err)
	assert.Empty(t, roleGrants)

	_, err = f.dir.GetResource(f.ctx, org, "/api/*")
	assert.True(t, services.IsNotFoundError(err))
}

func TestResources_CRUD(t *testing.T) {
	f := newFixture(t)
	name := "Users API"

	_, err := f.dir.CreateResource(f.ctx, &models.Resource{OrgID: org, ID: "/api/users/*", Name: &name})
	require.NoError(t, err)
	_, err = f.dir.CreateResource(f.ctx, &models.Resource{OrgID: org, ID: "/web/*"})
	require.NoError(t, err)

	_, err = f.dir.CreateResource(f.ctx, &models.Resource{OrgID: org, ID: "/web/*"})
	assert.True(t, services.IsConflictError(err))

	list, err := f.dir.ListResources(f.ctx, org, "/api/", Page{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "/api/users/*", list[0].ID)

	renamed := "Users"
	updated, err := f.dir.UpdateResource(f.ctx, org, "/api/users/*", &renamed, nil)
	require.NoError(t, err)
	require.NotNil(t, updated.Name)
	assert.Equal(t, renamed, *updated.Name)
}

func TestDeleteOrganization_RemovesTenant(t *testing.T) {
	f := newFixture(t)
	_, err := f.dir.CreateOrganization(f.ctx, &models.Organization{ID: "globex", Name: "Globex"})
	require.NoError(t, err)
	_, err = f.dir.CreateUser(f.ctx, &models.User{OrgID: "globex", ID: "u1", IdentityProvider: "google", IdentityProviderUserID: "g"})
	require.NoError(t, err)

	f.createUser(t, "u1", "admin")
	_, err = f.perms.GrantUserPermission(f.ctx, org, "u1", "/x", "read")
	require.NoError(t, err)
	_, err = f.perms.GrantRolePermission(f.ctx, org, "admin", "/y", "read")
	require.NoError(t, err)
	_, err = f.dir.CreateResource(f.ctx, &models.Resource{OrgID: org, ID: "/x"})
	require.NoError(t, err)
	_, err = f.dir.SetProperty(f.ctx, models.OwnerOrganization, org, org, *models.NewProperty("plan", models.StringValue("pro"), false))
	require.NoError(t, err)
	_, err = f.dir.SetProperty(f.ctx, models.OwnerRole, org, "admin", *models.NewProperty("color", models.StringValue("red"), false))
	require.NoError(t, err)

	// warm the membership cache
	assert.Equal(t, 2, f.effectiveCount(t, "u1", "", ""))

	require.NoError(t, f.dir.DeleteOrganization(f.ctx, org))

	_, err = f.dir.GetOrganization(f.ctx, org, true)
	assert.True(t, services.IsNotFoundError(err))

	users, err := f.repos.Users.List(f.ctx, org, 100, 0)
	require.NoError(t, err)
	assert.Empty(t, users)
	roles, err := f.repos.Roles.List(f.ctx, org, 100, 0)
	require.NoError(t, err)
	assert.Empty(t, roles)
	resources, err := f.repos.Resources.List(f.ctx, org, "", 100, 0)
	require.NoError(t, err)
	assert.Empty(t, resources)
	grants, err := f.repos.Permissions.GetUserPermissions(f.ctx, org, "u1", models.GrantFilter{})
	require.NoError(t, err)
	assert.Empty(t, grants)
	roleGrants, err := f.repos.Permissions.ListRoleGrants(f.ctx, org, []string{"admin"})
	require.NoError(t, err)
	assert.Empty(t, roleGrants)
	members, err := f.repos.Memberships.GetRoleUserIDs(f.ctx, org, "admin")
	require.NoError(t, err)
	assert.Empty(t, members)
	props, err := f.repos.Properties.List(f.ctx, models.OwnerRole, org, "admin", true)
	require.NoError(t, err)
	assert.Empty(t, props)

	assert.Equal(t, 0, f.effectiveCount(t, "u1", "", ""))

	// the other tenant is untouched
	other, err := f.dir.GetUser(f.ctx, "globex", "u1", true)
	require.NoError(t, err)
	assert.Equal(t, "g", other.IdentityProviderUserID)

	err = f.dir.DeleteOrganization(f.ctx, org)
	assert.True(t, services.IsNotFoundError(err))
}

func TestProperties(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "u1")

	value := models.ObjectValue(map[string]models.Value{"theme": models.StringValue("dark")})
	prop, err := f.dir.SetProperty(f.ctx, models.OwnerUser, org, "u1", *models.NewProperty("prefs", value, false))
	require.NoError(t, err)
	assert.True(t, prop.Value.Equal(value))

	_, err = f.dir.SetProperty(f.ctx, models.OwnerUser, org, "u1", *models.NewProperty("token", models.StringValue("s3cret"), true))
	require.NoError(t, err)

	visible, err := f.dir.ListProperties(f.ctx, models.OwnerUser, org, "u1", false)
	require.NoError(t, err)
	assert.Len(t, visible, 1)

	all, err := f.dir.ListProperties(f.ctx, models.OwnerUser, org, "u1", true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	removed, err := f.dir.DeleteProperty(f.ctx, models.OwnerUser, org, "u1", "token")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = f.dir.DeleteProperty(f.ctx, models.OwnerUser, org, "u1", "token")
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = f.dir.GetProperty(f.ctx, models.OwnerUser, org, "u1", "token")
	assert.True(t, services.IsNotFoundError(err))

	_, err = f.dir.SetProperty(f.ctx, models.OwnerUser, org, "ghost", *models.NewProperty("x", models.NullValue(), false))
	assert.True(t, services.IsReferentialError(err))

	_, err = f.dir.SetProperty(f.ctx, models.PropertyOwner("group"), org, "u1", *models.NewProperty("x", models.NullValue(), false))
	assert.True(t, services.IsValidationError(err))
}

func TestPage_Normalize(t *testing.T) {
	tests := []struct {
		page       Page
		wantLimit  int
		wantOffset int
	}{
		{Page{}, defaultPageSize, 0},
		{Page{Limit: 10, Offset: 5}, 10, 5},
		{Page{Limit: 10000, Offset: -1}, maxPageSize, 0},
	}
	for _, tt := range tests {
		limit, offset := tt.page.normalize()
		assert.Equal(t, tt.wantLimit, limit)
		assert.Equal(t, tt.wantOffset, offset)
	}
}
