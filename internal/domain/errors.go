package domain

import "errors"

// Error kinds shared by all services. Service errors wrap one of these so
// callers can classify them with errors.Is.
var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrInvalidInput   = errors.New("invalid input")
	ErrStateViolation = errors.New("state violation")
	ErrUnauthorized   = errors.New("unauthorized")

	// ErrUnavailable means the store cannot currently guarantee transactional
	// correctness. Bookings must be refused, not retried blindly.
	ErrUnavailable = errors.New("storage unavailable")
)
