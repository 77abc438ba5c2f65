package errors

import (
	"github.com/cockroachdb/errors"
)

// Marker errors for the error taxonomy. Every error produced by the
// application is marked with exactly one of these so that transport and
// callers can classify it with errors.Is without depending on concrete types.
var (
	// ErrValidation indicates malformed or semantically invalid input.
	ErrValidation = errors.New("validation error")

	// ErrNotFound indicates a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an invariant violation such as a duplicate
	// active subscription for a user.
	ErrAlreadyExists = errors.New("already exists")

	// ErrPermissionDenied indicates the caller is not allowed to perform the
	// operation, including missing or invalid auth tokens.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrRateLimitExceeded indicates the caller is over its request budget.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrCircuitOpen indicates a downstream dependency is presumed unhealthy
	// and the call was rejected without being attempted.
	ErrCircuitOpen = errors.New("circuit open")

	// ErrStoreUnavailable indicates the shared counter store or the durable
	// store could not be reached. Distinct from application-level errors so
	// that degraded-mode policies can key off it.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrDatabase indicates an unexpected database failure.
	ErrDatabase = errors.New("database error")

	// ErrInvalidOperation indicates an operation that is not valid for the
	// current state of the entity, e.g. cancelling an expired subscription.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrInternal is the catch-all for unexpected internal failures.
	ErrInternal = errors.New("internal error")

	// ErrSystem indicates a failure in a system-level collaborator such as
	// the token signer or password hasher.
	ErrSystem = errors.New("system error")
)

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

func IsRateLimitExceeded(err error) bool {
	return errors.Is(err, ErrRateLimitExceeded)
}

func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}

func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
