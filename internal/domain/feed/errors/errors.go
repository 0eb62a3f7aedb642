package errors

import (
	"fmt"
	"time"

	pkgerrors "github.com/Conte777/tgnewsfeed/pkg/errors"
)

var (
	// ErrChannelNotFound is returned when a referenced channel does not exist
	ErrChannelNotFound = pkgerrors.NewNotFoundError("channel not found")

	// ErrInvalidUsername is returned when a channel username is empty or malformed
	ErrInvalidUsername = pkgerrors.NewValidationError("channel username must look like @username")

	// ErrAccessDenied is returned when a channel is private or no longer reachable
	ErrAccessDenied = pkgerrors.NewPermissionError("channel is private or unavailable")

	// ErrNotConnected is returned when the content provider is used before Connect
	ErrNotConnected = pkgerrors.NewServiceUnavailableError("content provider is not connected")

	// ErrEngineBusy is returned when a fleet cycle is already running
	ErrEngineBusy = pkgerrors.NewConflictError("channel update already in progress")

	// ErrAdminOnly is returned when a non-admin calls an admin action
	ErrAdminOnly = pkgerrors.NewPermissionError("you are not allowed to use this command")

	// ErrDatabaseOperation is returned when a storage operation fails
	ErrDatabaseOperation = pkgerrors.NewInternalError("database operation failed")
)

// RateLimitedError is returned when the provider asks to wait before retrying
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// ProviderError wraps any other content provider failure
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
