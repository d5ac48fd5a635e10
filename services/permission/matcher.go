package permission

import (
	"strings"

	"github.com/upb/rbac-control-plane/models"
)

// wildcard marks the start of a free suffix in a resource pattern.
const wildcard = "*"

// MatchResource reports whether a stored resource pattern covers resourceID.
//
// A pattern without "*" matches only itself. Otherwise everything before the
// first "*" is a literal prefix that resourceID must start with; later "*"
// tokens are not interpreted, so "/api/*/users/*" behaves like "/api/*".
// Patterns are compared as opaque strings.
func MatchResource(pattern, resourceID string) bool {
	if pattern == resourceID {
		return true
	}
	idx := strings.Index(pattern, wildcard)
	if idx < 0 {
		return false
	}
	return strings.HasPrefix(resourceID, pattern[:idx])
}

// MatchAction reports whether a granted action satisfies the requested one.
func MatchAction(granted, requested string) bool {
	return granted == requested || granted == models.WildcardAction
}

// MatchPrefix is the namespace listing rule: a plain prefix test on the stored
// resource id that ignores wildcards.
func MatchPrefix(stored, prefix string) bool {
	return strings.HasPrefix(stored, prefix)
}

// grantPredicate decides whether a stored (resource, action) pair is part of a result.
type grantPredicate func(resourceID, action string) bool

func resourcePredicate(q models.PermissionQuery) grantPredicate {
	return func(resourceID, action string) bool {
		if q.ResourceID != "" && !MatchResource(resourceID, q.ResourceID) {
			return false
		}
		return q.Action == "" || MatchAction(action, q.Action)
	}
}

func prefixPredicate(prefix, requestedAction string) grantPredicate {
	return func(resourceID, action string) bool {
		if !MatchPrefix(resourceID, prefix) {
			return false
		}
		return requestedAction == "" || MatchAction(action, requestedAction)
	}
}
