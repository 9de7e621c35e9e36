package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kirinyoku/seatline/internal/domain"
	"github.com/kirinyoku/seatline/internal/repository"
)

const ticketColumns = `id, group_id, schedule_id, seat_code, holder_id, price_cents,
	status, booked_at, settlement_id, payment_method, paid_at, cancelled_at`

type TicketRepo struct {
	db DB
}

// Create inserts tickets in one batch.
//
// Returns:
//   - error: repository.ErrConflict if an active ticket already exists for a seat.
func (r *TicketRepo) Create(ctx context.Context, tickets []domain.Ticket) error {
	const op = "postgres.TicketRepo.Create"

	batch := &pgx.Batch{}
	for _, t := range tickets {
		batch.Queue(
			`INSERT INTO tickets(id, group_id, schedule_id, seat_code, holder_id, price_cents, status, booked_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			t.ID, t.GroupID, t.ScheduleID, t.SeatCode, t.HolderID, t.PriceCents, string(t.Status), t.BookedAt,
		)
	}
	if err := r.db.SendBatch(ctx, batch).Close(); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// ListByIDs returns the tickets with the given ids, locking them for the rest
// of the transaction. Unknown ids are silently absent from the result.
func (r *TicketRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Ticket, error) {
	const op = "postgres.TicketRepo.ListByIDs"

	rows, err := r.db.Query(ctx,
		`SELECT `+ticketColumns+`
		 FROM tickets
		 WHERE id = ANY($1::text[]::uuid[])
		 ORDER BY seat_code
		 FOR UPDATE`,
		uuidStrings(ids),
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := collectTickets(rows)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *TicketRepo) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]domain.Ticket, error) {
	const op = "postgres.TicketRepo.ListByGroup"

	return r.listByGroup(ctx, op, groupID, "")
}

// ListByGroupForUpdate returns the tickets of a group, locked like ListByIDs.
func (r *TicketRepo) ListByGroupForUpdate(ctx context.Context, groupID uuid.UUID) ([]domain.Ticket, error) {
	const op = "postgres.TicketRepo.ListByGroupForUpdate"

	return r.listByGroup(ctx, op, groupID, " FOR UPDATE")
}

func (r *TicketRepo) listByGroup(ctx context.Context, op string, groupID uuid.UUID, lock string) ([]domain.Ticket, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+ticketColumns+`
		 FROM tickets
		 WHERE group_id = $1
		 ORDER BY seat_code`+lock,
		groupID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := collectTickets(rows)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *TicketRepo) ListByHolder(ctx context.Context, holderID string, limit, offset int) ([]domain.Ticket, error) {
	const op = "postgres.TicketRepo.ListByHolder"

	rows, err := r.db.Query(ctx,
		`WITH page AS (
		   SELECT group_id, max(booked_at) AS group_booked_at
		   FROM tickets
		   WHERE holder_id = $1
		   GROUP BY group_id
		   ORDER BY group_booked_at DESC, group_id
		   LIMIT NULLIF($2::int, 0) OFFSET $3
		 )
		 SELECT `+ticketColumns+`
		 FROM tickets
		 JOIN page USING (group_id)
		 WHERE holder_id = $1
		 ORDER BY group_booked_at DESC, group_id, seat_code`,
		holderID, limit, offset,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := collectTickets(rows)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *TicketRepo) CountActiveBySchedule(ctx context.Context, scheduleID int64) (int64, error) {
	const op = "postgres.TicketRepo.CountActiveBySchedule"

	var n int64
	if err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM tickets
		 WHERE schedule_id = $1 AND status IN ('BOOKED', 'PAID')`,
		scheduleID,
	).Scan(&n); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return n, nil
}

// MarkPaid moves BOOKED tickets to PAID. It fails with repository.ErrConflict
// unless every id was BOOKED.
func (r *TicketRepo) MarkPaid(ctx context.Context, ids []uuid.UUID, s domain.Settlement) error {
	const op = "postgres.TicketRepo.MarkPaid"

	tag, err := r.db.Exec(ctx,
		`UPDATE tickets
		 SET status = 'PAID', settlement_id = $2, payment_method = $3, paid_at = $4
		 WHERE id = ANY($1::text[]::uuid[]) AND status = 'BOOKED'`,
		uuidStrings(ids), s.ID, string(s.Method), s.SettledAt,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if int(tag.RowsAffected()) != len(ids) {
		return wrapDBErr(op, repository.ErrConflict)
	}

	return nil
}

// MarkCancelled moves BOOKED tickets to CANCELLED with the same all-or-error
// rule as MarkPaid.
func (r *TicketRepo) MarkCancelled(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	const op = "postgres.TicketRepo.MarkCancelled"

	tag, err := r.db.Exec(ctx,
		`UPDATE tickets
		 SET status = 'CANCELLED', cancelled_at = $2
		 WHERE id = ANY($1::text[]::uuid[]) AND status = 'BOOKED'`,
		uuidStrings(ids), at,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if int(tag.RowsAffected()) != len(ids) {
		return wrapDBErr(op, repository.ErrConflict)
	}

	return nil
}

func collectTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	defer rows.Close()

	var out []domain.Ticket
	for rows.Next() {
		var t domain.Ticket
		var status string
		var method *string

		if err := rows.Scan(
			&t.ID,
			&t.GroupID,
			&t.ScheduleID,
			&t.SeatCode,
			&t.HolderID,
			&t.PriceCents,
			&status,
			&t.BookedAt,
			&t.SettlementID,
			&method,
			&t.PaidAt,
			&t.CancelledAt,
		); err != nil {
			return nil, err
		}

		t.Status = domain.TicketStatus(status)
		if method != nil {
			m := domain.PaymentMethod(*method)
			t.PaymentMethod = &m
		}

		out = append(out, t)
	}

	return out, rows.Err()
}
