package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/kirinyoku/seatline/internal/domain"
)

type ClaimRepo struct {
	db DB
}

// Insert claims seats in a single statement. The (schedule_id, seat_code)
// primary key turns a seat that is already claimed into
// repository.ErrConflict.
func (r *ClaimRepo) Insert(ctx context.Context, claims []domain.SeatClaim) error {
	const op = "postgres.ClaimRepo.Insert"

	if len(claims) == 0 {
		return nil
	}

	scheduleIDs := make([]int64, len(claims))
	codes := make([]string, len(claims))
	ticketIDs := make([]string, len(claims))
	for i, c := range claims {
		scheduleIDs[i] = c.ScheduleID
		codes[i] = c.SeatCode
		ticketIDs[i] = c.TicketID.String()
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO seat_claims(schedule_id, seat_code, ticket_id)
		 SELECT s, c, t::uuid
		 FROM unnest($1::bigint[], $2::text[], $3::text[]) AS x(s, c, t)`,
		scheduleIDs, codes, ticketIDs,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *ClaimRepo) DeleteByTickets(ctx context.Context, ticketIDs []uuid.UUID) (int64, error) {
	const op = "postgres.ClaimRepo.DeleteByTickets"

	if len(ticketIDs) == 0 {
		return 0, nil
	}

	tag, err := r.db.Exec(ctx,
		`DELETE FROM seat_claims WHERE ticket_id = ANY($1::text[]::uuid[])`,
		uuidStrings(ticketIDs),
	)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return tag.RowsAffected(), nil
}

func (r *ClaimRepo) SeatCodes(ctx context.Context, scheduleID int64) ([]string, error) {
	const op = "postgres.ClaimRepo.SeatCodes"

	rows, err := r.db.Query(ctx,
		`SELECT seat_code FROM seat_claims
		 WHERE schedule_id = $1
		 ORDER BY seat_code`,
		scheduleID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, code)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
