package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/kirinyoku/seatline/internal/domain"
	"github.com/kirinyoku/seatline/internal/repository"
)

// Resolver detects schedules of a room that would overlap a candidate window.
// Windows are half-open, so a schedule may start exactly when another ends.
type Resolver struct{}

// Check returns the first schedule of roomID intersecting
// [start, start+duration), or nil when the window is free. excludeID skips
// the schedule being moved. Check does not write.
func (Resolver) Check(
	ctx context.Context,
	q repository.Schedules,
	roomID int64,
	start time.Time,
	duration time.Duration,
	excludeID int64,
) (*domain.Schedule, error) {
	const op = "service.schedule.Resolver.Check"

	if duration <= 0 {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidDuration)
	}

	found, err := q.FindOverlapping(ctx, roomID, start, start.Add(duration), excludeID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if len(found) == 0 {
		return nil, nil
	}

	return &found[0], nil
}
