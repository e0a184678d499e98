package scheduler

import (
	"errors"
	"fmt"

	"github.com/pingline/pingline/pkg/notification"
)

var (
	ErrScheduleNotFound  = errors.New("schedule not found")
	ErrScheduleCancelled = errors.New("schedule cancelled")
	ErrScheduleExpired   = errors.New("schedule expired")
	ErrAlreadyDispatched = errors.New("schedule already dispatched")
)

// PreferenceError rejects a schedule request because the user disabled the
// notification type. Nothing is stored when it is returned.
type PreferenceError struct {
	UserID string
	Type   notification.Type
}

func (e *PreferenceError) Error() string {
	return fmt.Sprintf("notification type %q is disabled for user %s", e.Type, e.UserID)
}

// FrequencyLimitError rejects a schedule request because the user already
// reached the daily or weekly cap for the type. It is a normal, non-fatal
// outcome for the caller.
type FrequencyLimitError struct {
	UserID string
	Type   notification.Type
	Period string // "daily" or "weekly"
	Limit  int
}

func (e *FrequencyLimitError) Error() string {
	return fmt.Sprintf("%s frequency limit of %d reached for %q notifications to user %s",
		e.Period, e.Limit, e.Type, e.UserID)
}
