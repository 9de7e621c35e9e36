package inventory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/seatline/internal/domain"
	"github.com/kirinyoku/seatline/internal/repository"
	redisrepo "github.com/kirinyoku/seatline/internal/repository/redis"
	"github.com/kirinyoku/seatline/internal/seatmap"
	"github.com/kirinyoku/seatline/internal/service/catalog"
	"github.com/kirinyoku/seatline/internal/uow"
)

type Config struct {
	AvailabilityTTL time.Duration
	Now             func() time.Time
}

// Service is the seat inventory of every schedule. A seat is claimed while a
// claim row for (schedule, seat code) exists; the storage primary key makes
// the first committed claim win.
type Service struct {
	store   repository.Store
	catalog *catalog.Service
	cache   *redisrepo.Cache
	uow     *uow.UoW
	cfg     Config
}

func New(store repository.Store, catalogSvc *catalog.Service, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.AvailabilityTTL <= 0 {
		cfg.AvailabilityTTL = 5 * time.Second
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Service{
		store:   store,
		catalog: catalogSvc,
		cache:   cache,
		uow:     uow.NewUoW(store),
		cfg:     cfg,
	}
}

// Claimed is the result of a successful claim.
type Claimed struct {
	Schedule domain.Schedule
	// Seats in the order they were requested.
	Seats []domain.Seat
}

// ClaimIn claims every seat in codes for the matching ticket in ticketIDs,
// inside the caller's unit of work. Either all seats are claimed or the
// transaction must be rolled back.
//
// Parameters:
//   - ctx: request-scoped context.
//   - tx: the caller's transaction.
//   - scheduleID: ID of the schedule.
//   - codes: normalized seat codes.
//   - ticketIDs: one ticket ID per code, in the same order.
//
// Returns:
//   - *Claimed: the schedule and the claimed seats.
//   - error: inventory.ErrScheduleNotFound if the schedule does not exist.
//   - error: inventory.ErrScheduleClosed if the schedule has started.
//   - error: *inventory.InvalidSeatError for codes outside the room layout.
//   - error: repository.ErrConflict if any seat is already claimed.
func (s *Service) ClaimIn(
	ctx context.Context,
	tx repository.Tx,
	scheduleID int64,
	codes []string,
	ticketIDs []uuid.UUID,
) (*Claimed, error) {
	const op = "service.inventory.ClaimIn"

	if len(codes) != len(ticketIDs) {
		return nil, fmt.Errorf("%s: %d codes for %d tickets", op, len(codes), len(ticketIDs))
	}

	sched, err := tx.Schedules().Get(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrScheduleNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if !s.cfg.Now().Before(sched.Starts) {
		return nil, fmt.Errorf("%s:%w", op, ErrScheduleClosed)
	}

	roomSeats, err := s.catalog.RoomSeatsIn(ctx, tx, sched.RoomID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	seats, err := pickSeats(seatmap.Index(roomSeats), codes)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	claims := make([]domain.SeatClaim, len(seats))
	for i, seat := range seats {
		claims[i] = domain.SeatClaim{ScheduleID: scheduleID, SeatCode: seat.Code, TicketID: ticketIDs[i]}
	}

	if err := tx.Claims().Insert(ctx, claims); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &Claimed{Schedule: *sched, Seats: seats}, nil
}

func pickSeats(index map[string]domain.Seat, codes []string) ([]domain.Seat, error) {
	seen := make(map[string]struct{}, len(codes))
	seats := make([]domain.Seat, 0, len(codes))

	var unknown []string
	for _, code := range codes {
		if _, dup := seen[code]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSeat, code)
		}
		seen[code] = struct{}{}

		seat, ok := index[code]
		if !ok {
			unknown = append(unknown, code)
			continue
		}
		seats = append(seats, seat)
	}

	if len(unknown) > 0 {
		return nil, &InvalidSeatError{Codes: unknown}
	}

	return seats, nil
}

// ReleaseIn frees the seats backing ticketIDs inside the caller's unit of
// work. Seats that are already free are skipped, and so are seats whose
// ticket is still BOOKED or PAID: a claim row lives as long as its active
// ticket.
func (s *Service) ReleaseIn(ctx context.Context, tx repository.Tx, ticketIDs []uuid.UUID) (int64, error) {
	const op = "service.inventory.ReleaseIn"

	tickets, err := tx.Tickets().ListByIDs(ctx, ticketIDs)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	ids := releasable(ticketIDs, tickets)
	if len(ids) == 0 {
		return 0, nil
	}

	n, err := tx.Claims().DeleteByTickets(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return n, nil
}

// Release frees the seats backing ticketIDs whose tickets are cancelled or
// gone. Seats of BOOKED or PAID tickets stay claimed; cancel those through
// the ticket lifecycle.
//
// Parameters:
//   - ctx: request-scoped context.
//   - ticketIDs: tickets whose seats are released.
//
// Returns:
//   - int64: the number of seats freed.
//   - error: if the release fails.
func (s *Service) Release(ctx context.Context, ticketIDs []uuid.UUID) (int64, error) {
	const op = "service.inventory.Release"

	var released int64

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		tickets, err := tx.Tickets().ListByIDs(ctx, ticketIDs)
		if err != nil {
			return err
		}

		released, err = s.ReleaseIn(ctx, tx, ticketIDs)
		if err != nil {
			return err
		}
		if released == 0 {
			return nil
		}

		after(func(ctx context.Context) {
			for _, id := range scheduleIDs(tickets) {
				_ = s.cache.InvalidateSchedule(ctx, id)
			}
		})

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return released, nil
}

// BookedSeatCodes returns the claimed seat codes of a schedule, sorted.
func (s *Service) BookedSeatCodes(ctx context.Context, scheduleID int64) ([]string, error) {
	const op = "service.inventory.BookedSeatCodes"

	if _, err := s.store.Schedules().Get(ctx, scheduleID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrScheduleNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	codes, err := s.store.Claims().SeatCodes(ctx, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return codes, nil
}

// Taken returns the codes from codes that are currently claimed, in request
// order. It reads committed state only and is used to explain a failed claim.
func (s *Service) Taken(ctx context.Context, scheduleID int64, codes []string) ([]string, error) {
	const op = "service.inventory.Taken"

	booked, err := s.store.Claims().SeatCodes(ctx, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	claimed := make(map[string]struct{}, len(booked))
	for _, c := range booked {
		claimed[c] = struct{}{}
	}

	var taken []string
	for _, c := range codes {
		if _, ok := claimed[c]; ok {
			taken = append(taken, c)
		}
	}

	return taken, nil
}

// Availability returns the seat map of a schedule with its claimed codes.
//
// Parameters:
//   - ctx: request-scoped context.
//   - scheduleID: ID of the schedule.
//
// Returns:
//   - *domain.Availability: all seats, claimed codes and counters.
//   - error: inventory.ErrScheduleNotFound if the schedule does not exist.
func (s *Service) Availability(ctx context.Context, scheduleID int64) (*domain.Availability, error) {
	const op = "service.inventory.Availability"

	av, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyScheduleAvailability(scheduleID),
		s.cfg.AvailabilityTTL,
		func(ctx context.Context) (domain.Availability, error) {
			return s.loadAvailability(ctx, scheduleID)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &av, nil
}

func (s *Service) loadAvailability(ctx context.Context, scheduleID int64) (domain.Availability, error) {
	sched, err := s.store.Schedules().Get(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Availability{}, ErrScheduleNotFound
		}
		return domain.Availability{}, err
	}

	seats, err := s.catalog.RoomSeats(ctx, sched.RoomID)
	if err != nil {
		return domain.Availability{}, err
	}

	booked, err := s.store.Claims().SeatCodes(ctx, scheduleID)
	if err != nil {
		return domain.Availability{}, err
	}

	if booked == nil {
		booked = []string{}
	}

	return domain.Availability{
		ScheduleID: scheduleID,
		Seats:      seats,
		Booked:     booked,
		Total:      len(seats),
		Free:       len(seats) - len(booked),
	}, nil
}

// InvalidateSchedule drops the cached availability of a schedule. It is
// called after every commit that changes the schedule's claims.
func (s *Service) InvalidateSchedule(ctx context.Context, scheduleID int64) {
	_ = s.cache.InvalidateSchedule(ctx, scheduleID)
}

// releasable drops the ids of tickets that still hold their seat.
func releasable(ids []uuid.UUID, tickets []domain.Ticket) []uuid.UUID {
	active := make(map[uuid.UUID]struct{}, len(tickets))
	for _, t := range tickets {
		if t.Status.Active() {
			active[t.ID] = struct{}{}
		}
	}

	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := active[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func scheduleIDs(tickets []domain.Ticket) []int64 {
	var ids []int64
	for _, t := range tickets {
		if !slices.Contains(ids, t.ScheduleID) {
			ids = append(ids, t.ScheduleID)
		}
	}
	return ids
}
