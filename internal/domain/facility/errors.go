package facility

import (
	"errors"
	"fmt"

	"resitrack/backend/internal/apperr"
)

var (
	ErrSlotTaken           = fmt.Errorf("slot already held: %w", apperr.ErrResourceTaken)
	ErrSlotNotInFacility   = fmt.Errorf("slot does not belong to facility: %w", apperr.ErrValidation)
	ErrBookingNotRequired  = fmt.Errorf("facility does not take bookings: %w", apperr.ErrValidation)
	ErrFacilityUnavailable = fmt.Errorf("facility is not available: %w", apperr.ErrValidation)
	ErrInvalidDate         = fmt.Errorf("invalid booking date: %w", apperr.ErrValidation)
	ErrFacilityNotFound    = fmt.Errorf("facility not found: %w", apperr.ErrNotFound)
)

func IsErrSlotTaken(err error) bool {
	return errors.Is(err, ErrSlotTaken)
}

func IsErrFacilityNotFound(err error) bool {
	return errors.Is(err, ErrFacilityNotFound)
}
