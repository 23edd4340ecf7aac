package auth

import (
	"testing"

	"github.com/MacJediWizard/shlink-dashboard-oidc-sub000/internal/conf"
)

func testOIDCConf() *conf.OIDC {
	return &conf.OIDC{
		Enabled:       true,
		AdminGroup:    "shlink-admins",
		AdvancedGroup: "shlink-advanced",
		DefaultRole:   "managed-user",
	}
}

func TestMapGroupsToRole(t *testing.T) {
	cfg := testOIDCConf()

	tests := []struct {
		name   string
		groups []string
		want   Role
	}{
		{"admin group", []string{"shlink-admins"}, RoleAdmin},
		{"admin wins over advanced", []string{"shlink-advanced", "shlink-admins"}, RoleAdmin},
		{"advanced group", []string{"shlink-advanced"}, RoleAdvancedUser},
		{"no matching group", []string{"something-else"}, RoleManagedUser},
		{"empty groups", []string{}, RoleManagedUser},
		{"nil groups", nil, RoleManagedUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapGroupsToRole(cfg, tt.groups); got != tt.want {
				t.Fatalf("MapGroupsToRole(%v) = %q, want %q", tt.groups, got, tt.want)
			}
		})
	}
}

func TestMapGroupsToRoleConfiguredDefault(t *testing.T) {
	cfg := testOIDCConf()
	cfg.DefaultRole = "advanced-user"

	if got := MapGroupsToRole(cfg, []string{"unrelated"}); got != RoleAdvancedUser {
		t.Fatalf("expected configured default advanced-user, got %q", got)
	}
	// Admin still has precedence over the default.
	if got := MapGroupsToRole(cfg, []string{"shlink-admins"}); got != RoleAdmin {
		t.Fatalf("expected admin, got %q", got)
	}
}

func TestMapGroupsToRoleUnconfigured(t *testing.T) {
	if got := MapGroupsToRole(nil, []string{"shlink-admins"}); got != RoleManagedUser {
		t.Fatalf("nil config should map to managed-user, got %q", got)
	}
	disabled := testOIDCConf()
	disabled.Enabled = false
	if got := MapGroupsToRole(disabled, []string{"shlink-admins"}); got != RoleManagedUser {
		t.Fatalf("disabled OIDC should map to managed-user, got %q", got)
	}
}

func TestMapGroupsToRoleEmptyGroupNamesNeverMatch(t *testing.T) {
	cfg := testOIDCConf()
	cfg.AdminGroup = ""
	cfg.AdvancedGroup = ""

	// A group literally named "" must not promote anyone.
	if got := MapGroupsToRole(cfg, []string{""}); got != RoleManagedUser {
		t.Fatalf("empty configured group matched, got %q", got)
	}
}

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"admin", "advanced-user", "managed-user"} {
		if _, err := ParseRole(valid); err != nil {
			t.Fatalf("ParseRole(%q) failed: %v", valid, err)
		}
	}
	if _, err := ParseRole("superuser"); err == nil {
		t.Fatal("ParseRole should reject unknown roles")
	}
}
