package errors

import (
	"errors"

	"github.com/rs/zerolog"
)

// Kind classifies an error for user-facing replies
type Kind string

const (
	KindNone        Kind = ""
	KindValidation  Kind = "validation"
	KindPermission  Kind = "permission"
	KindNotFound    Kind = "not_found"
	KindConflict    Kind = "conflict"
	KindUnavailable Kind = "unavailable"
	KindInternal    Kind = "internal"
)

// Mapper maps domain errors to reply kinds and messages safe to show to users
type Mapper struct {
	logger zerolog.Logger
}

// NewMapper creates a new error mapper
func NewMapper(logger zerolog.Logger) *Mapper {
	return &Mapper{logger: logger}
}

// MapError maps an error to its kind and a message without internal details
func (m *Mapper) MapError(err error) (Kind, string) {
	if err == nil {
		return KindNone, ""
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return KindValidation, validationErr.Error()
	}

	var permissionErr *PermissionError
	if errors.As(err, &permissionErr) {
		return KindPermission, permissionErr.Error()
	}

	var notFoundErr *NotFoundError
	if errors.As(err, &notFoundErr) {
		return KindNotFound, notFoundErr.Error()
	}

	var conflictErr *ConflictError
	if errors.As(err, &conflictErr) {
		return KindConflict, conflictErr.Error()
	}

	var unavailableErr *ServiceUnavailableError
	if errors.As(err, &unavailableErr) {
		return KindUnavailable, unavailableErr.Error()
	}

	var internalErr *InternalError
	if errors.As(err, &internalErr) {
		m.logger.Error().Err(err).Msg("internal error")
		return KindInternal, "something went wrong, please try again later"
	}

	m.logger.Error().Err(err).Msg("unknown error")
	return KindInternal, "something went wrong, please try again later"
}
