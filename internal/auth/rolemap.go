package auth

import (
	"fmt"
	"slices"

	"github.com/MacJediWizard/shlink-dashboard-oidc-sub000/internal/conf"
)

// Role is one of the three dashboard privilege levels,
// ranked admin > advanced-user > managed-user.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleAdvancedUser Role = "advanced-user"
	RoleManagedUser  Role = "managed-user"
)

// ParseRole converts a config string into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleAdvancedUser, RoleManagedUser:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// MapGroupsToRole translates IdP group memberships into a Role.
// It is pure and total: every input maps to one of the three roles.
//
// When OIDC is not configured every user is a managed user. Otherwise the
// admin group takes precedence over the advanced group, and users in
// neither get the operator-configured default role. An empty configured
// group name never matches.
func MapGroupsToRole(cfg *conf.OIDC, groups []string) Role {
	if cfg == nil || !cfg.Enabled {
		return RoleManagedUser
	}
	if cfg.AdminGroup != "" && slices.Contains(groups, cfg.AdminGroup) {
		return RoleAdmin
	}
	if cfg.AdvancedGroup != "" && slices.Contains(groups, cfg.AdvancedGroup) {
		return RoleAdvancedUser
	}
	if role, err := ParseRole(cfg.DefaultRole); err == nil {
		return role
	}
	return RoleManagedUser
}
