package rbac

import (
	"context"
	"strings"
)

// Checker evaluates a role -> permission-pattern policy. A pattern is an
// exact permission, "*", or a prefix ending in "*" ("evaluation:view*").
type Checker struct {
	policy map[string][]string
}

func NewChecker(policy map[string][]string) *Checker {
	if policy == nil {
		policy = RolePermissions
	}
	return &Checker{policy: policy}
}

// Allows reports whether role holds at least one of perms.
func (c *Checker) Allows(role string, perms ...string) bool {
	for _, pattern := range c.policy[role] {
		for _, perm := range perms {
			if grants(pattern, perm) {
				return true
			}
		}
	}
	return false
}

func grants(pattern, perm string) bool {
	if pattern == "*" || pattern == perm {
		return true
	}
	prefix, wild := strings.CutSuffix(pattern, "*")
	return wild && strings.HasPrefix(perm, prefix)
}

// JWTMiddleware stores the token's role here; Require reads it.

type ctxKey struct{}

var ctxKeyRole = ctxKey{}

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ctxKeyRole, role)
}

func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(ctxKeyRole).(string)
	return role
}
