package schedule

import (
	"fmt"
	"time"

	"github.com/kirinyoku/seatline/internal/domain"
)

var (
	ErrScheduleNotFound  = fmt.Errorf("schedule not found: %w", domain.ErrNotFound)
	ErrReferenceNotFound = fmt.Errorf("room or subject not found: %w", domain.ErrNotFound)
	ErrScheduleConflict  = fmt.Errorf("schedule overlaps an existing schedule: %w", domain.ErrConflict)
	ErrHasActiveTickets  = fmt.Errorf("schedule has booked or paid tickets: %w", domain.ErrStateViolation)
	ErrInvalidDuration   = fmt.Errorf("duration must be positive: %w", domain.ErrInvalidInput)
	ErrInvalidPrice      = fmt.Errorf("prices must not be negative: %w", domain.ErrInvalidInput)
	ErrStartsInPast      = fmt.Errorf("schedule must start in the future: %w", domain.ErrInvalidInput)
	ErrInvalidWindow     = fmt.Errorf("window end must be after its start: %w", domain.ErrInvalidInput)
)

// ScheduleConflictError reports the schedule occupying the requested window.
type ScheduleConflictError struct {
	Existing domain.Schedule
}

func (e *ScheduleConflictError) Error() string {
	return fmt.Sprintf(
		"room %d is taken by schedule %d from %s to %s",
		e.Existing.RoomID,
		e.Existing.ID,
		e.Existing.Starts.Format(time.RFC3339),
		e.Existing.Ends.Format(time.RFC3339),
	)
}

func (e *ScheduleConflictError) Unwrap() error {
	return ErrScheduleConflict
}
