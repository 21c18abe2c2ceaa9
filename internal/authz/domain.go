// Package authz resolves whether an actor may perform a permission-gated
// action. Grants are explicit (role, permission) pairs with no inheritance
// between roles; absence means denied.
package authz

import (
	"time"

	"github.com/zarforum/zarforum/internal/roles"
)

// Permission keys grantable to roles.
const (
	PermEditAnyProfile   = "edit_any_profile"
	PermDeleteThreads    = "delete_threads"
	PermManageTransfers  = "manage_transfers"
	PermManageCategories = "manage_categories"
	PermBanUsers         = "ban_users"
	PermManageRoles      = "manage_roles"
)

// Permissions lists every grantable permission key.
func Permissions() []string {
	return []string{
		PermEditAnyProfile,
		PermDeleteThreads,
		PermManageTransfers,
		PermManageCategories,
		PermBanUsers,
		PermManageRoles,
	}
}

// KnownPermission reports whether the key belongs to the grantable set.
func KnownPermission(key string) bool {
	for _, p := range Permissions() {
		if p == key {
			return true
		}
	}
	return false
}

// Grant is one explicit (role, permission) pair from role_permissions.
type Grant struct {
	Role       roles.Role
	Permission string
	CreatedAt  time.Time
}
