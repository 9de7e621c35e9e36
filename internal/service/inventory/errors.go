package inventory

import (
	"fmt"
	"strings"

	"github.com/kirinyoku/seatline/internal/domain"
)

var (
	ErrScheduleNotFound = fmt.Errorf("schedule not found: %w", domain.ErrNotFound)
	ErrScheduleClosed   = fmt.Errorf("schedule has already started: %w", domain.ErrStateViolation)
	ErrInvalidSeat      = fmt.Errorf("seat not in room layout: %w", domain.ErrInvalidInput)
	ErrDuplicateSeat    = fmt.Errorf("seat requested twice: %w", domain.ErrInvalidInput)
	ErrSeatTaken        = fmt.Errorf("seat already taken: %w", domain.ErrConflict)
)

// InvalidSeatError lists requested codes that the room layout does not have.
type InvalidSeatError struct {
	Codes []string
}

func (e *InvalidSeatError) Error() string {
	return "unknown seats: " + strings.Join(e.Codes, ", ")
}

func (e *InvalidSeatError) Unwrap() error {
	return ErrInvalidSeat
}

// SeatConflictError lists requested codes that another claim holds.
type SeatConflictError struct {
	Taken []string
}

func (e *SeatConflictError) Error() string {
	return "seats already taken: " + strings.Join(e.Taken, ", ")
}

func (e *SeatConflictError) Unwrap() error {
	return ErrSeatTaken
}
