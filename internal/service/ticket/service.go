package ticket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/seatline/internal/domain"
	"github.com/kirinyoku/seatline/internal/queue"
	"github.com/kirinyoku/seatline/internal/repository"
	redisrepo "github.com/kirinyoku/seatline/internal/repository/redis"
	"github.com/kirinyoku/seatline/internal/seatmap"
	"github.com/kirinyoku/seatline/internal/service/inventory"
	"github.com/kirinyoku/seatline/internal/uow"
)

type Config struct {
	MaxSeatsPerClaim int
	// MaxClaimAttempts bounds how often a claim is retried when it lost a
	// race for seats that were free again by the time it looked.
	MaxClaimAttempts int
	Now              func() time.Time
}

type Service struct {
	store     repository.Store
	inventory *inventory.Service
	limiter   *redisrepo.SlidingWindowLimiter
	pubsub    *redisrepo.SchedulesPubSub
	publisher *queue.Publisher
	uow       *uow.UoW
	logger    *slog.Logger
	cfg       Config
}

func New(
	store repository.Store,
	inv *inventory.Service,
	limiter *redisrepo.SlidingWindowLimiter,
	pubsub *redisrepo.SchedulesPubSub,
	publisher *queue.Publisher,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.MaxSeatsPerClaim <= 0 {
		cfg.MaxSeatsPerClaim = 10
	}

	if cfg.MaxClaimAttempts <= 0 {
		cfg.MaxClaimAttempts = 3
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		store:     store,
		inventory: inv,
		limiter:   limiter,
		pubsub:    pubsub,
		publisher: publisher,
		uow:       uow.NewUoW(store),
		logger:    logger,
		cfg:       cfg,
	}
}

// Claim books seats of a schedule for a holder. All seats are claimed and
// their BOOKED tickets created in one unit of work, or nothing changes.
//
// Parameters:
//   - ctx: request-scoped context.
//   - scheduleID: ID of the schedule.
//   - codes: seat codes; case and surrounding spaces are ignored, repeats are dropped.
//   - holderID: opaque id of the booking holder.
//
// Returns:
//   - *domain.TicketGroup: the new group with one ticket per seat.
//   - error: *inventory.SeatConflictError listing seats taken by others.
//   - error: inventory.ErrScheduleClosed once the schedule has started.
//   - error: *inventory.InvalidSeatError for seats outside the room layout.
//   - error: *ticket.RateLimitedError if the holder claims too often.
func (s *Service) Claim(
	ctx context.Context,
	scheduleID int64,
	codes []string,
	holderID string,
) (*domain.TicketGroup, error) {
	const op = "service.ticket.Claim"

	holderID = strings.TrimSpace(holderID)
	if holderID == "" {
		return nil, fmt.Errorf("%s:%w", op, ErrMissingHolder)
	}

	codes = seatmap.NormalizeCodes(codes)
	if len(codes) == 0 {
		return nil, fmt.Errorf("%s:%w", op, ErrNoSeats)
	}

	if len(codes) > s.cfg.MaxSeatsPerClaim {
		return nil, fmt.Errorf("%s:%w: %d > %d", op, ErrTooManySeats, len(codes), s.cfg.MaxSeatsPerClaim)
	}

	ok, _, retry, err := s.limiter.Allow(ctx, holderID)
	if err != nil {
		s.logger.Warn("rate limiter unavailable", slog.Any("err", err))
	} else if !ok {
		return nil, fmt.Errorf("%s:%w", op, &RateLimitedError{RetryAfter: retry})
	}

	for attempt := 1; ; attempt++ {
		group, err := s.claimOnce(ctx, scheduleID, codes, holderID)
		if err == nil {
			return group, nil
		}

		if !errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%s:%w", op, err)
		}

		taken, terr := s.inventory.Taken(ctx, scheduleID, codes)
		if terr != nil {
			return nil, fmt.Errorf("%s:%w", op, terr)
		}

		if len(taken) > 0 {
			return nil, fmt.Errorf("%s:%w", op, &inventory.SeatConflictError{Taken: taken})
		}

		if attempt >= s.cfg.MaxClaimAttempts {
			return nil, fmt.Errorf("%s:%w: %w", op, ErrClaimContention, err)
		}
	}
}

func (s *Service) claimOnce(
	ctx context.Context,
	scheduleID int64,
	codes []string,
	holderID string,
) (*domain.TicketGroup, error) {
	ids := make([]uuid.UUID, len(codes))
	for i := range ids {
		ids[i] = uuid.New()
	}
	groupID := uuid.New()

	var group domain.TicketGroup

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		now := s.cfg.Now().UTC()

		claimed, err := s.inventory.ClaimIn(ctx, tx, scheduleID, codes, ids)
		if err != nil {
			return err
		}

		tickets := make([]domain.Ticket, len(claimed.Seats))
		for i, seat := range claimed.Seats {
			price := claimed.Schedule.PriceCents
			if seat.VIP {
				price = claimed.Schedule.VIPPriceCents
			}

			tickets[i] = domain.Ticket{
				ID:         ids[i],
				GroupID:    groupID,
				ScheduleID: scheduleID,
				SeatCode:   seat.Code,
				HolderID:   holderID,
				PriceCents: price,
				Status:     domain.TicketBooked,
				BookedAt:   now,
			}
		}

		if err := tx.Tickets().Create(ctx, tickets); err != nil {
			return err
		}

		group = domain.NewTicketGroup(tickets, claimed.Schedule.Starts, now)

		after(func(ctx context.Context) {
			s.inventory.InvalidateSchedule(ctx, scheduleID)
			_ = s.pubsub.PublishScheduleChanged(ctx, "seats_claimed", scheduleID)
			s.publisher.Notify(ctx, queue.QueueTicketsBooked, groupEvent("tickets_booked", group.Tickets, now))
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &group, nil
}

// Cancel cancels every ticket of a group and frees their seats in one unit
// of work. Partial cancellation of a group is not possible.
//
// Parameters:
//   - ctx: request-scoped context.
//   - groupID: ID of the ticket group.
//   - requesterID: holder asking for the cancellation.
//
// Returns:
//   - *domain.TicketGroup: the cancelled group.
//   - error: ticket.ErrGroupNotFound if the group does not exist.
//   - error: ticket.ErrNotOwned if any ticket belongs to another holder.
//   - error: ticket.ErrAlreadyTerminal unless every ticket is BOOKED.
func (s *Service) Cancel(ctx context.Context, groupID uuid.UUID, requesterID string) (*domain.TicketGroup, error) {
	const op = "service.ticket.Cancel"

	var group domain.TicketGroup

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		now := s.cfg.Now().UTC()

		tickets, err := tx.Tickets().ListByGroupForUpdate(ctx, groupID)
		if err != nil {
			return err
		}

		if len(tickets) == 0 {
			return ErrGroupNotFound
		}

		ids := make([]uuid.UUID, len(tickets))
		for i, t := range tickets {
			if t.HolderID != requesterID {
				return ErrNotOwned
			}
			if t.Status != domain.TicketBooked {
				return ErrAlreadyTerminal
			}
			ids[i] = t.ID
		}

		if err := tx.Tickets().MarkCancelled(ctx, ids, now); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrAlreadyTerminal
			}
			return err
		}

		if _, err := s.inventory.ReleaseIn(ctx, tx, ids); err != nil {
			return err
		}

		sched, err := tx.Schedules().Get(ctx, tickets[0].ScheduleID)
		if err != nil {
			return err
		}

		for i := range tickets {
			tickets[i].Status = domain.TicketCancelled
			tickets[i].CancelledAt = &now
		}
		group = domain.NewTicketGroup(tickets, sched.Starts, now)

		scheduleID := sched.ID
		after(func(ctx context.Context) {
			s.inventory.InvalidateSchedule(ctx, scheduleID)
			_ = s.pubsub.PublishScheduleChanged(ctx, "seats_released", scheduleID)
			s.publisher.Notify(ctx, queue.QueueTicketsCancelled, groupEvent("tickets_cancelled", tickets, now))
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &group, nil
}

// GetGroup returns a ticket group of the requesting holder with its derived
// display status.
func (s *Service) GetGroup(ctx context.Context, groupID uuid.UUID, requesterID string) (*domain.TicketGroup, error) {
	const op = "service.ticket.GetGroup"

	tickets, err := s.store.Tickets().ListByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if len(tickets) == 0 {
		return nil, fmt.Errorf("%s:%w", op, ErrGroupNotFound)
	}

	if tickets[0].HolderID != requesterID {
		return nil, fmt.Errorf("%s:%w", op, ErrNotOwned)
	}

	starts, err := s.scheduleStarts(ctx, map[int64]time.Time{}, tickets[0].ScheduleID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	group := s.assemble(tickets, starts)

	return &group, nil
}

// ListByHolder returns the ticket groups of a holder, newest first. limit
// and offset page over groups; a zero limit returns every group.
func (s *Service) ListByHolder(ctx context.Context, holderID string, limit, offset int) ([]domain.TicketGroup, error) {
	const op = "service.ticket.ListByHolder"

	if limit < 0 || offset < 0 {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidPageParam)
	}

	tickets, err := s.store.Tickets().ListByHolder(ctx, holderID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var (
		order   []uuid.UUID
		byGroup = make(map[uuid.UUID][]domain.Ticket)
	)
	for _, t := range tickets {
		if _, ok := byGroup[t.GroupID]; !ok {
			order = append(order, t.GroupID)
		}
		byGroup[t.GroupID] = append(byGroup[t.GroupID], t)
	}

	starts := make(map[int64]time.Time)
	out := make([]domain.TicketGroup, 0, len(order))
	for _, gid := range order {
		members := byGroup[gid]
		st, err := s.scheduleStarts(ctx, starts, members[0].ScheduleID)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		out = append(out, s.assemble(members, st))
	}

	return out, nil
}

func (s *Service) scheduleStarts(ctx context.Context, seen map[int64]time.Time, scheduleID int64) (time.Time, error) {
	if st, ok := seen[scheduleID]; ok {
		return st, nil
	}

	sched, err := s.store.Schedules().Get(ctx, scheduleID)
	if err != nil {
		return time.Time{}, err
	}

	seen[scheduleID] = sched.Starts

	return sched.Starts, nil
}

func (s *Service) assemble(tickets []domain.Ticket, starts time.Time) domain.TicketGroup {
	group := domain.NewTicketGroup(tickets, starts, s.cfg.Now())

	if !domain.GroupConsistent(group.Statuses()) {
		s.logger.Warn("ticket group has mixed statuses",
			slog.String("group_id", group.ID.String()),
			slog.String("display_status", string(group.Status)),
		)
	}

	return group
}

func groupEvent(kind string, tickets []domain.Ticket, at time.Time) queue.TicketsEvent {
	ev := queue.TicketsEvent{Type: kind, OccurredAt: at}
	if len(tickets) == 0 {
		return ev
	}

	ev.GroupID = tickets[0].GroupID.String()
	ev.ScheduleID = tickets[0].ScheduleID
	ev.HolderID = tickets[0].HolderID
	for _, t := range tickets {
		ev.TicketIDs = append(ev.TicketIDs, t.ID.String())
		ev.SeatCodes = append(ev.SeatCodes, t.SeatCode)
		ev.TotalCents += t.PriceCents
	}

	return ev
}
