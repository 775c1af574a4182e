// Package apperr defines the error kinds shared by every service. Domain
// packages declare their own sentinels wrapping one of these so callers can
// match either the specific failure or its general kind.
package apperr

import "errors"

var (
	// ErrValidation marks a request that is inconsistent on its own. Never retried.
	ErrValidation = errors.New("validation failed")
	// ErrConflict marks a guarded transaction that kept losing races until its
	// retry budget ran out. Retrying later may succeed.
	ErrConflict = errors.New("concurrent update conflict")
	// ErrResourceTaken marks durable state that rules the request out, such as a
	// booked slot or a used invitation.
	ErrResourceTaken = errors.New("resource already taken")
	// ErrExternal marks a failure of the store or the identity provider.
	ErrExternal = errors.New("external dependency failed")

	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNotFound        = errors.New("not found")
)

func IsErrValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsErrConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

func IsErrResourceTaken(err error) bool {
	return errors.Is(err, ErrResourceTaken)
}

func IsErrExternal(err error) bool {
	return errors.Is(err, ErrExternal)
}

func IsErrUnauthenticated(err error) bool {
	return errors.Is(err, ErrUnauthenticated)
}

func IsErrUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

func IsErrNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
