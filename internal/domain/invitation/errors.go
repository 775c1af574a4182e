package invitation

import (
	"errors"
	"fmt"

	"resitrack/backend/internal/apperr"
)

var (
	ErrAdminOnly     = fmt.Errorf("admin role required: %w", apperr.ErrUnauthorized)
	ErrInvalidInput  = fmt.Errorf("invalid invitation request: %w", apperr.ErrValidation)
	ErrWeakPassword  = fmt.Errorf("password must be at least %d characters: %w", MinPasswordLength, apperr.ErrValidation)
	ErrCodeExhausted = fmt.Errorf("could not allocate an unused invitation code: %w", apperr.ErrConflict)
	ErrClaimLost     = fmt.Errorf("invitation claim was lost before the account was linked: %w", apperr.ErrConflict)
	ErrNotFound      = fmt.Errorf("invitation not found: %w", apperr.ErrNotFound)

	// ErrInvitationUnavailable is terminal: the code is unknown, bound to
	// another email, or already used.
	ErrInvitationUnavailable = fmt.Errorf("invalid invitation code or email, or code has already been used: %w", apperr.ErrResourceTaken)

	errCodeInUse = errors.New("invitation code in use")
)

func IsErrInvitationUnavailable(err error) bool {
	return errors.Is(err, ErrInvitationUnavailable)
}

func IsErrWeakPassword(err error) bool {
	return errors.Is(err, ErrWeakPassword)
}
