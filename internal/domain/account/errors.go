package account

import (
	"errors"
	"fmt"

	"resitrack/backend/internal/apperr"
)

var ErrAccountNotFound = fmt.Errorf("account not found: %w", apperr.ErrNotFound)

func IsErrAccountNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}
