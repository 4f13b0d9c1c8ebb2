package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNoRefreshToken means the user never connected a mailbox (or disconnected it).
var ErrNoRefreshToken = errors.New("google account not connected or refresh token is missing")

// AuthError aborts a user's sync run. It is user-actionable: the mailbox has to be
// re-authorized and retrying without that cannot succeed.
type AuthError struct {
	UserID uuid.UUID
	Err    error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("mailbox authorization failed for user %s: %v", e.UserID, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// TransientNetworkError means the mailbox provider could not be reached. The run is
// abandoned for this pass and the next scheduled pass retries naturally.
type TransientNetworkError struct {
	Op  string
	Err error
}

func (e *TransientNetworkError) Error() string {
	return fmt.Sprintf("%s: provider unavailable: %v", e.Op, e.Err)
}

func (e *TransientNetworkError) Unwrap() error { return e.Err }

// IsAuthError reports whether err is, or wraps, an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsTransient reports whether err is, or wraps, a TransientNetworkError.
func IsTransient(err error) bool {
	var netErr *TransientNetworkError
	return errors.As(err, &netErr)
}
