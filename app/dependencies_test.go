package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/rbac-control-plane/config"
	"github.com/upb/rbac-control-plane/models"
	"go.uber.org/zap/zaptest"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Storage:     config.StorageConfig{Backend: config.StorageMemory},
		Auth: config.AuthConfig{
			Enabled:         true,
			JWTSecret:       "0123456789abcdef0123456789abcdef",
			Issuer:          "rbac-test",
			AdminResource:   "/admin",
			AdminAction:     "write",
			AdminReadAction: "read",
		},
		Permissions: config.PermissionsConfig{CacheTTL: time.Minute, CacheSize: 10},
		RateLimit:   config.RateLimitConfig{Enabled: true, RequestsPerSecond: 10, Burst: 10},
	}
}

func TestNewDependencies_Memory(t *testing.T) {
	ctx := context.Background()

	deps, err := NewDependencies(ctx, memoryConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Nil(t, deps.RepoFactory)
	require.NotNil(t, deps.Repos)
	assert.NotNil(t, deps.Repos.Health)
	assert.NotNil(t, deps.Cache)
	assert.NotNil(t, deps.Metrics)
	assert.NotNil(t, deps.Resolver)
	assert.NotNil(t, deps.Permissions)
	assert.NotNil(t, deps.Directory)
	assert.NotNil(t, deps.JWT)
	assert.NotNil(t, deps.AuthMiddleware)
	assert.NotNil(t, deps.PermissionMiddleware)
	assert.NotNil(t, deps.RateLimiter)

	assert.NoError(t, deps.Close(ctx))
	assert.NoError(t, deps.Close(ctx), "close is idempotent")
}

func TestNewDependencies_OptionalComponents(t *testing.T) {
	cfg := memoryConfig()
	cfg.Auth.Enabled = false
	cfg.RateLimit.Enabled = false
	cfg.Permissions.CacheTTL = 0

	deps, err := NewDependencies(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer deps.Close(context.Background())

	assert.Nil(t, deps.Cache)
	assert.Nil(t, deps.JWT)
	assert.Nil(t, deps.AuthMiddleware)
	assert.Nil(t, deps.PermissionMiddleware)
	assert.Nil(t, deps.RateLimiter)
	assert.NotNil(t, deps.Permissions)
}

func TestNewDependencies_UnknownBackend(t *testing.T) {
	cfg := memoryConfig()
	cfg.Storage.Backend = "sqlite"

	_, err := NewDependencies(context.Background(), cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestNewDependencies_ResolvesThroughWiring(t *testing.T) {
	ctx := context.Background()
	deps, err := NewDependencies(ctx, memoryConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer deps.Close(ctx)

	_, err = deps.Directory.CreateOrganization(ctx, &models.Organization{ID: "acme", Name: "Acme"})
	require.NoError(t, err)
	_, err = deps.Directory.CreateRole(ctx, &models.Role{OrgID: "acme", ID: "r1", Name: "r1"})
	require.NoError(t, err)
	_, err = deps.Directory.CreateUser(ctx, &models.User{OrgID: "acme", ID: "u1", IdentityProvider: "okta", IdentityProviderUserID: "1", RoleIDs: []string{"r1"}})
	require.NoError(t, err)
	_, err = deps.Permissions.GrantRolePermission(ctx, "acme", "r1", "/reports/*", "read")
	require.NoError(t, err)

	allowed, err := deps.Permissions.HasPermission(ctx, "acme", "u1", "/reports/q3", "read")
	require.NoError(t, err)
	assert.True(t, allowed)

	// the membership lookup above populated the shared cache
	assert.Equal(t, 1, deps.Cache.Stats().Size)

	require.NoError(t, deps.Directory.DeleteRole(ctx, "acme", "r1"))
	allowed, err = deps.Permissions.HasPermission(ctx, "acme", "u1", "/reports/q3", "read")
	require.NoError(t, err)
	assert.False(t, allowed)
}
