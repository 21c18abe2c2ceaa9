package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrPermissionDenied indicates the actor lacks the required permission,
	// is banned, or tripped a self-protection rule.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNotFound indicates the referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState indicates the action is incompatible with the current
	// entity state, e.g. posting to a locked thread.
	ErrInvalidState = errors.New("invalid state")
	// ErrCooldownActive indicates the mutation is blocked by an active
	// cooldown window.
	ErrCooldownActive = errors.New("cooldown active")
	// ErrValidation indicates malformed input at the boundary.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials indicates a failed login attempt. Deliberately
	// vague: it never says whether the email or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// CooldownError reports how long a blocked profile field stays frozen.
type CooldownError struct {
	Field         string
	DaysRemaining int
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s locked for another %d day(s)", e.Field, e.DaysRemaining)
}

// Is makes CooldownError match ErrCooldownActive.
func (e *CooldownError) Is(target error) bool {
	return target == ErrCooldownActive
}

// ValidationError carries the offending field and the reason it was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is makes ValidationError match ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
