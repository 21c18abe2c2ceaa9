package profile

import "time"

// Field names a cooldown-guarded profile field.
type Field string

const (
	FieldEmail  Field = "email"
	FieldAvatar Field = "avatar"
)

// CooldownDays is the minimum number of whole days between successive
// changes to a guarded field.
const CooldownDays = 31

// CanMutate reports whether a guarded field may change now, and how many
// whole days remain otherwise. An absent last-change timestamp means the
// field has never been changed and is free to mutate.
func CanMutate(lastChange *time.Time, now time.Time) (allowed bool, daysRemaining int) {
	if lastChange == nil {
		return true, 0
	}
	elapsed := int(now.Sub(*lastChange).Hours() / 24)
	if elapsed >= CooldownDays {
		return true, 0
	}
	remaining := CooldownDays - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return false, remaining
}

func (p *Profile) lastChange(field Field) *time.Time {
	if field == FieldAvatar {
		return p.LastAvatarChange
	}
	return p.LastEmailChange
}
