package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/upb/rbac-control-plane/models"
)

func TestMatchResource(t *testing.T) {
	tests := []struct {
		name       string
		pattern    string
		resourceID string
		want       bool
	}{
		{"exact", "/api/users", "/api/users", true},
		{"no wildcard differs", "/api/users", "/api/users/1", false},
		{"no wildcard prefix", "/api/users/1", "/api/users", false},
		{"trailing wildcard child", "/api/*", "/api/x", true},
		{"trailing wildcard empty suffix", "/api/*", "/api/", true},
		{"trailing wildcard deep child", "/api/*", "/api/a/b/c", true},
		{"trailing wildcard parent", "/api/*", "/api", false},
		{"trailing wildcard sibling", "/api/*", "/apiX", false},
		{"bare wildcard", "*", "anything", true},
		{"bare wildcard empty", "*", "", true},
		{"root wildcard", "/*", "/x", true},
		{"root wildcard without slash", "/*", "x", false},
		{"embedded wildcard degrades to first prefix", "/api/*/users/*", "/api/posts/1", true},
		{"embedded wildcard outside prefix", "/api/*/users/*", "/other/users/1", false},
		{"pattern literal equals itself", "/api/*", "/api/*", true},
		{"case sensitive", "/API/*", "/api/x", false},
		{"no trailing slash normalisation", "/api/", "/api", false},
		{"empty pattern matches only empty", "", "", true},
		{"empty pattern", "", "/x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchResource(tt.pattern, tt.resourceID))
		})
	}
}

func TestMatchAction(t *testing.T) {
	assert.True(t, MatchAction("read", "read"))
	assert.True(t, MatchAction("*", "read"))
	assert.True(t, MatchAction("*", "delete"))
	assert.False(t, MatchAction("read", "write"))
	assert.False(t, MatchAction("read", "*"))
	assert.False(t, MatchAction("Read", "read"))
}

func TestMatchPrefix(t *testing.T) {
	assert.True(t, MatchPrefix("/api/users/*", "/api/"))
	assert.True(t, MatchPrefix("/api/users/*", "/api/users/*"))
	assert.True(t, MatchPrefix("/anything", ""))
	assert.False(t, MatchPrefix("/api/*", "/api/users"))
	assert.False(t, MatchPrefix("/ap", "/api"))
}

func TestPredicates(t *testing.T) {
	all := resourcePredicate(models.PermissionQuery{})
	assert.True(t, all("/x", "read"))

	onlyRead := resourcePredicate(models.PermissionQuery{ResourceID: "/api/1", Action: "read"})
	assert.True(t, onlyRead("/api/*", "read"))
	assert.True(t, onlyRead("/api/*", "*"))
	assert.False(t, onlyRead("/api/*", "write"))
	assert.False(t, onlyRead("/other/*", "read"))

	prefix := prefixPredicate("/api/", "")
	assert.True(t, prefix("/api/*", "write"))
	assert.False(t, prefix("/*", "write"))

	prefixRead := prefixPredicate("/api/", "read")
	assert.True(t, prefixRead("/api/users", "*"))
	assert.False(t, prefixRead("/api/users", "write"))
}
