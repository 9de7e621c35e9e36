package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/seatline/internal/domain"
	"github.com/kirinyoku/seatline/internal/queue"
	"github.com/kirinyoku/seatline/internal/repository"
	"github.com/kirinyoku/seatline/internal/uow"
)

type Config struct {
	Now func() time.Time
}

// Service applies successful payment results to tickets. It never talks to
// a payment gateway.
type Service struct {
	publisher *queue.Publisher
	uow       *uow.UoW
	cfg       Config
}

func New(store repository.Store, publisher *queue.Publisher, cfg Config) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Service{
		publisher: publisher,
		uow:       uow.NewUoW(store),
		cfg:       cfg,
	}
}

// SettleInput is a payment result. SettlementID is the idempotency key of
// the payment; a zero value gets a fresh id, which makes retries unsafe.
// When HolderID is set every ticket must belong to it.
type SettleInput struct {
	TicketIDs    []uuid.UUID
	Method       domain.PaymentMethod
	SettlementID uuid.UUID
	HolderID     string
}

// Settle marks every ticket PAID, or none of them.
//
// Parameters:
//   - ctx: request-scoped context.
//   - in: tickets, payment method and settlement id.
//
// Returns:
//   - *domain.Settlement: the applied settlement; Replayed is set when the
//     same settlement id had already paid exactly these tickets.
//   - error: payment.ErrTicketNotFound if any ticket does not exist.
//   - error: payment.ErrPartialOwnership if the tickets have different holders.
//   - error: payment.ErrSettledElsewhere if every ticket was already paid
//     under a different settlement id.
//   - error: payment.ErrNotAllBooked if any ticket is not BOOKED or its
//     schedule has already started.
func (s *Service) Settle(ctx context.Context, in SettleInput) (*domain.Settlement, error) {
	const op = "service.payment.Settle"

	ids := dedupe(in.TicketIDs)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%s:%w", op, ErrNoTickets)
	}

	if !in.Method.Valid() {
		return nil, fmt.Errorf("%s:%w: %q", op, ErrInvalidMethod, in.Method)
	}

	settlementID := in.SettlementID
	if settlementID == uuid.Nil {
		settlementID = uuid.New()
	}

	var result domain.Settlement

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		now := s.cfg.Now().UTC()

		tickets, err := tx.Tickets().ListByIDs(ctx, ids)
		if err != nil {
			return err
		}

		if len(tickets) != len(ids) {
			return fmt.Errorf("%w: %v", ErrTicketNotFound, missing(ids, tickets))
		}

		// A replayed set was settled together, so it always has one holder
		// and the ownership checks may run first.
		holder := tickets[0].HolderID
		for _, t := range tickets {
			if t.HolderID != holder {
				return ErrPartialOwnership
			}
		}

		if in.HolderID != "" && in.HolderID != holder {
			return ErrNotOwned
		}

		if replay, ok := replayOf(tickets, settlementID); ok {
			result = replay
			return nil
		}

		if paidElsewhere(tickets, settlementID) {
			return ErrSettledElsewhere
		}

		if err := checkPayable(ctx, tx, tickets, now); err != nil {
			return err
		}

		result = domain.Settlement{
			ID:        settlementID,
			Method:    in.Method,
			TicketIDs: ids,
			SettledAt: now,
		}

		if err := tx.Tickets().MarkPaid(ctx, ids, result); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrNotAllBooked
			}
			return err
		}

		paid := result
		after(func(ctx context.Context) {
			s.publisher.Notify(ctx, queue.QueueTicketsPaid, paidEvent(tickets, paid))
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &result, nil
}

// checkPayable requires every ticket to be BOOKED and its schedule not yet
// started. Overdue is re-derived here from the current time.
func checkPayable(ctx context.Context, tx repository.Tx, tickets []domain.Ticket, now time.Time) error {
	starts := make(map[int64]time.Time)

	for _, t := range tickets {
		if t.Status != domain.TicketBooked {
			return fmt.Errorf("%w: ticket %s is %s", ErrNotAllBooked, t.ID, t.Status)
		}

		st, ok := starts[t.ScheduleID]
		if !ok {
			sched, err := tx.Schedules().Get(ctx, t.ScheduleID)
			if err != nil {
				return err
			}
			st = sched.Starts
			starts[t.ScheduleID] = st
		}

		if domain.Overdue(t.Status, st, now) {
			return fmt.Errorf("%w: ticket %s is overdue", ErrNotAllBooked, t.ID)
		}
	}

	return nil
}

// replayOf reports whether every ticket was already paid by settlementID and
// rebuilds the original settlement from the ticket columns.
func replayOf(tickets []domain.Ticket, settlementID uuid.UUID) (domain.Settlement, bool) {
	out := domain.Settlement{ID: settlementID, Replayed: true}

	for _, t := range tickets {
		if t.Status != domain.TicketPaid || t.SettlementID == nil || *t.SettlementID != settlementID {
			return domain.Settlement{}, false
		}

		out.TicketIDs = append(out.TicketIDs, t.ID)
		if t.PaymentMethod != nil {
			out.Method = *t.PaymentMethod
		}
		if t.PaidAt != nil {
			out.SettledAt = *t.PaidAt
		}
	}

	return out, true
}

// paidElsewhere reports whether every ticket is already PAID under a
// settlement other than settlementID.
func paidElsewhere(tickets []domain.Ticket, settlementID uuid.UUID) bool {
	for _, t := range tickets {
		if t.Status != domain.TicketPaid || t.SettlementID == nil || *t.SettlementID == settlementID {
			return false
		}
	}
	return true
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))

	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	return out
}

func missing(ids []uuid.UUID, found []domain.Ticket) []uuid.UUID {
	have := make(map[uuid.UUID]struct{}, len(found))
	for _, t := range found {
		have[t.ID] = struct{}{}
	}

	var out []uuid.UUID
	for _, id := range ids {
		if _, ok := have[id]; !ok {
			out = append(out, id)
		}
	}

	return out
}

func paidEvent(tickets []domain.Ticket, s domain.Settlement) queue.TicketsEvent {
	ev := queue.TicketsEvent{
		Type:          "tickets_paid",
		SettlementID:  s.ID.String(),
		PaymentMethod: string(s.Method),
		OccurredAt:    s.SettledAt,
	}

	for _, t := range tickets {
		ev.ScheduleID = t.ScheduleID
		ev.HolderID = t.HolderID
		ev.TicketIDs = append(ev.TicketIDs, t.ID.String())
		ev.SeatCodes = append(ev.SeatCodes, t.SeatCode)
		ev.TotalCents += t.PriceCents
	}

	return ev
}
