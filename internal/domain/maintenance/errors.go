package maintenance

import (
	"errors"
	"fmt"

	"resitrack/backend/internal/apperr"
)

var (
	ErrAdminOnly       = fmt.Errorf("admin role required: %w", apperr.ErrUnauthorized)
	ErrInvalidCycle    = fmt.Errorf("invalid cycle: %w", apperr.ErrValidation)
	ErrInvalidAmount   = fmt.Errorf("amount must be non-negative with at most 2 decimals: %w", apperr.ErrValidation)
	ErrCycleIDMismatch = fmt.Errorf("cycle id does not match due date: %w", apperr.ErrValidation)
	ErrInvalidResident = fmt.Errorf("resident without uid: %w", apperr.ErrValidation)
	ErrLedgerTooLarge  = fmt.Errorf("cycle exceeds the single-commit write limit: %w", apperr.ErrValidation)
	ErrInvalidStatus   = fmt.Errorf("payment status must be Pending or Paid: %w", apperr.ErrValidation)
	ErrPaymentNotFound = fmt.Errorf("payment not found: %w", apperr.ErrNotFound)
	ErrCycleNotFound   = fmt.Errorf("cycle not found: %w", apperr.ErrNotFound)
)

func IsErrCycleIDMismatch(err error) bool {
	return errors.Is(err, ErrCycleIDMismatch)
}

func IsErrLedgerTooLarge(err error) bool {
	return errors.Is(err, ErrLedgerTooLarge)
}

func IsErrPaymentNotFound(err error) bool {
	return errors.Is(err, ErrPaymentNotFound)
}
