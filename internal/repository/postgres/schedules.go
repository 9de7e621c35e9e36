package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/kirinyoku/seatline/internal/domain"
	"github.com/kirinyoku/seatline/internal/repository"
)

const scheduleColumns = `id, subject_id, room_id, starts_at, ends_at,
	price_cents, vip_price_cents, created_at, updated_at`

type ScheduleRepo struct {
	db DB
}

// Get retrieves a schedule by its ID.
//
// Returns:
//   - *domain.Schedule: the schedule when found.
//   - error: repository.ErrNotFound if the schedule does not exist.
func (r *ScheduleRepo) Get(ctx context.Context, id int64) (*domain.Schedule, error) {
	const op = "postgres.ScheduleRepo.Get"

	s, err := scanSchedule(r.db.QueryRow(ctx,
		`SELECT `+scheduleColumns+` FROM schedules WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return s, nil
}

// GetForUpdate is Get with a row lock held until the transaction ends.
func (r *ScheduleRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Schedule, error) {
	const op = "postgres.ScheduleRepo.GetForUpdate"

	s, err := scanSchedule(r.db.QueryRow(ctx,
		`SELECT `+scheduleColumns+` FROM schedules WHERE id = $1 FOR UPDATE`,
		id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return s, nil
}

// ListByRoom lists the schedules of a room whose window intersects [from, to),
// ordered by start time.
func (r *ScheduleRepo) ListByRoom(ctx context.Context, roomID int64, from, to time.Time) ([]domain.Schedule, error) {
	const op = "postgres.ScheduleRepo.ListByRoom"

	rows, err := r.db.Query(ctx,
		`SELECT `+scheduleColumns+`
		 FROM schedules
		 WHERE room_id = $1 AND ends_at > $2 AND starts_at < $3
		 ORDER BY starts_at`,
		roomID, from, to,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := collectSchedules(rows)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// FindOverlapping returns the schedules of a room that intersect [start, end).
// Touching windows are not returned. excludeID skips one schedule when non-zero.
func (r *ScheduleRepo) FindOverlapping(
	ctx context.Context,
	roomID int64,
	start, end time.Time,
	excludeID int64,
) ([]domain.Schedule, error) {
	const op = "postgres.ScheduleRepo.FindOverlapping"

	rows, err := r.db.Query(ctx,
		`SELECT `+scheduleColumns+`
		 FROM schedules
		 WHERE room_id = $1
		   AND starts_at < $3
		   AND ends_at > $2
		   AND id <> $4
		 ORDER BY starts_at`,
		roomID, start, end, excludeID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := collectSchedules(rows)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *ScheduleRepo) Create(ctx context.Context, s domain.Schedule) (int64, error) {
	const op = "postgres.ScheduleRepo.Create"

	var id int64
	if err := r.db.QueryRow(ctx,
		`INSERT INTO schedules(subject_id, room_id, starts_at, ends_at, price_cents, vip_price_cents)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		s.SubjectID, s.RoomID, s.Starts, s.Ends, s.PriceCents, s.VIPPriceCents,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

func (r *ScheduleRepo) Update(ctx context.Context, s domain.Schedule) error {
	const op = "postgres.ScheduleRepo.Update"

	tag, err := r.db.Exec(ctx,
		`UPDATE schedules
		 SET subject_id = $2, room_id = $3, starts_at = $4, ends_at = $5,
		     price_cents = $6, vip_price_cents = $7, updated_at = now()
		 WHERE id = $1`,
		s.ID, s.SubjectID, s.RoomID, s.Starts, s.Ends, s.PriceCents, s.VIPPriceCents,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}

func (r *ScheduleRepo) Delete(ctx context.Context, id int64) error {
	const op = "postgres.ScheduleRepo.Delete"

	tag, err := r.db.Exec(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}

func scanSchedule(row pgx.Row) (*domain.Schedule, error) {
	var s domain.Schedule
	if err := row.Scan(
		&s.ID,
		&s.SubjectID,
		&s.RoomID,
		&s.Starts,
		&s.Ends,
		&s.PriceCents,
		&s.VIPPriceCents,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}

func collectSchedules(rows pgx.Rows) ([]domain.Schedule, error) {
	defer rows.Close()

	var out []domain.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}

	return out, rows.Err()
}
