package ticket

import (
	"fmt"
	"time"

	"github.com/kirinyoku/seatline/internal/domain"
)

var (
	ErrGroupNotFound    = fmt.Errorf("ticket group not found: %w", domain.ErrNotFound)
	ErrNotOwned         = fmt.Errorf("tickets belong to another holder: %w", domain.ErrUnauthorized)
	ErrAlreadyTerminal  = fmt.Errorf("tickets are already paid or cancelled: %w", domain.ErrStateViolation)
	ErrNoSeats          = fmt.Errorf("no seats requested: %w", domain.ErrInvalidInput)
	ErrTooManySeats     = fmt.Errorf("too many seats requested: %w", domain.ErrInvalidInput)
	ErrMissingHolder    = fmt.Errorf("holder id is required: %w", domain.ErrInvalidInput)
	ErrClaimContention  = fmt.Errorf("seats kept changing, try again: %w", domain.ErrConflict)
	ErrInvalidPageParam = fmt.Errorf("limit and offset must not be negative: %w", domain.ErrInvalidInput)
)

// RateLimitedError is returned when a holder claims too often.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many claims, retry in %s", e.RetryAfter)
}
