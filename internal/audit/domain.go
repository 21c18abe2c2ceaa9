// Package audit keeps the append-only record of privileged actions. Entries
// are written inside the same transaction as the mutation they document and
// are never updated or deleted afterwards.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action tags for privileged operations.
const (
	ActionChangeRole       = "CHANGE_ROLE"
	ActionBanUser          = "BAN_USER"
	ActionUnbanUser        = "UNBAN_USER"
	ActionEditProfile      = "EDIT_PROFILE"
	ActionGrantPermission  = "GRANT_PERMISSION"
	ActionRevokePermission = "REVOKE_PERMISSION"
	ActionCreateCategory   = "CREATE_CATEGORY"
	ActionDeleteCategory   = "DELETE_CATEGORY"
	ActionPinThread        = "PIN_THREAD"
	ActionUnpinThread      = "UNPIN_THREAD"
	ActionLockThread       = "LOCK_THREAD"
	ActionUnlockThread     = "UNLOCK_THREAD"
	ActionDeleteThread     = "DELETE_THREAD"
	ActionDeletePost       = "DELETE_POST"
	ActionCreateTransfer   = "CREATE_TRANSFER"
	ActionDeleteTransfer   = "DELETE_TRANSFER"
)

// Entry is one immutable admin_logs row, totally ordered by creation time.
type Entry struct {
	ID        uuid.UUID
	AdminID   uuid.UUID
	Action    string
	TargetID  *uuid.UUID
	Details   map[string]any
	CreatedAt time.Time
}
