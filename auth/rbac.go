package auth

import (
	"context"
	"fmt"
	"strings"
)

// RBACConfig configures role-based permission checks.
type RBACConfig struct {
	// Roles defines role configurations.
	Roles map[string]RoleConfig

	// DefaultRole is assigned to accounts without explicit roles.
	DefaultRole string
}

// RoleConfig defines permissions for a role.
type RoleConfig struct {
	// Permissions are "resource:action" strings, e.g. "items:update".
	// Either part may be "*", and a resource may end in "*".
	Permissions []string

	// Denied are permissions refused even if another pattern grants them.
	Denied []string

	// Inherits lists roles this role inherits from.
	Inherits []string
}

// RBAC resolves account roles (from the roles attribute) to permissions.
type RBAC struct {
	config RBACConfig
}

// NewRBAC creates a role-based permission resolver.
func NewRBAC(config RBACConfig) *RBAC {
	return &RBAC{config: config}
}

// Permits reports whether any of the account's roles grants permission.
// Denials in any collected role take precedence.
func (r *RBAC) Permits(acct *Account, permission string) bool {
	if acct == nil {
		return false
	}
	resource, action := splitPermission(permission)

	roles := r.collectRoles(acct)
	for _, name := range roles {
		role, ok := r.config.Roles[name]
		if !ok {
			continue
		}
		for _, denied := range role.Denied {
			if matchPermission(denied, resource, action) {
				return false
			}
		}
	}

	for _, name := range roles {
		for _, perm := range r.config.Roles[name].Permissions {
			if matchPermission(perm, resource, action) {
				return true
			}
		}
	}
	return false
}

// RequirePermission builds a check that denies accounts lacking permission.
func RequirePermission(r *RBAC, permission string) Check {
	return Gate("permission:"+permission, func(_ context.Context, s *Session) error {
		if s == nil || s.Account == nil {
			return ErrUnauthenticated
		}
		if !r.Permits(s.Account, permission) {
			return fmt.Errorf("permission %q not granted", permission)
		}
		return nil
	})
}

func (r *RBAC) collectRoles(acct *Account) []string {
	seen := make(map[string]bool)
	result := make([]string, 0)

	// Start with the account's roles
	rolesToProcess := acct.Roles()

	// Add default role if no roles
	if len(rolesToProcess) == 0 && r.config.DefaultRole != "" {
		rolesToProcess = append(rolesToProcess, r.config.DefaultRole)
	}

	// Process roles with inheritance
	for len(rolesToProcess) > 0 {
		current := rolesToProcess[0]
		rolesToProcess = rolesToProcess[1:]

		if seen[current] {
			continue
		}
		seen[current] = true
		result = append(result, current)

		if role, ok := r.config.Roles[current]; ok {
			for _, inherited := range role.Inherits {
				if !seen[inherited] {
					rolesToProcess = append(rolesToProcess, inherited)
				}
			}
		}
	}

	return result
}

func splitPermission(perm string) (resource, action string) {
	resource, action, found := strings.Cut(perm, ":")
	if !found {
		return "", perm
	}
	return resource, action
}

// matchPattern matches a pattern against a value.
// Supports "*" as a wildcard for any characters.
func matchPattern(pattern, value string) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(value, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == value
}

// matchPermission checks a granted pattern against a requested permission.
// Format: <resource>:<action> or just <action>.
func matchPermission(pattern, resource, action string) bool {
	pr, pa := splitPermission(pattern)
	if pr == "" && pa == "*" {
		return true
	}
	if pr == "" {
		return resource == "" && pa == action
	}
	return matchPattern(pr, resource) && (pa == "*" || pa == action)
}
