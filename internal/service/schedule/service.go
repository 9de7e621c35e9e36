package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/seatline/internal/domain"
	"github.com/kirinyoku/seatline/internal/repository"
	redisrepo "github.com/kirinyoku/seatline/internal/repository/redis"
	"github.com/kirinyoku/seatline/internal/service/catalog"
	"github.com/kirinyoku/seatline/internal/uow"
)

type Config struct {
	DetailTTL time.Duration
	Now       func() time.Time
}

type Service struct {
	store    repository.Store
	catalog  *catalog.Service
	cache    *redisrepo.Cache
	pubsub   *redisrepo.SchedulesPubSub
	uow      *uow.UoW
	resolver Resolver
	cfg      Config
}

func New(
	store repository.Store,
	catalogSvc *catalog.Service,
	cache *redisrepo.Cache,
	pubsub *redisrepo.SchedulesPubSub,
	cfg Config,
) *Service {
	if cfg.DetailTTL <= 0 {
		cfg.DetailTTL = time.Minute
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Service{
		store:   store,
		catalog: catalogSvc,
		cache:   cache,
		pubsub:  pubsub,
		uow:     uow.NewUoW(store),
		cfg:     cfg,
	}
}

// Input describes a schedule to create or the new state of one to update.
// A zero VIPPriceCents charges PriceCents for VIP seats too.
type Input struct {
	SubjectID     int64
	RoomID        int64
	StartsAt      time.Time
	PriceCents    int
	VIPPriceCents int
}

// Create schedules a subject in a room. The end time is derived from the
// subject's duration.
//
// Parameters:
//   - ctx: request-scoped context.
//   - in: subject, room, start time and prices.
//
// Returns:
//   - *domain.Schedule: the created schedule.
//   - error: *schedule.ScheduleConflictError if the room is taken in that window.
//   - error: catalog.ErrSubjectNotFound / catalog.ErrRoomNotFound for unknown references.
//   - error: schedule.ErrStartsInPast, schedule.ErrInvalidPrice for bad input.
func (s *Service) Create(ctx context.Context, in Input) (*domain.Schedule, error) {
	const op = "service.schedule.Create"

	duration, err := s.prepare(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	now := s.cfg.Now().UTC()
	sched := domain.Schedule{
		SubjectID:     in.SubjectID,
		RoomID:        in.RoomID,
		Starts:        in.StartsAt.UTC(),
		Ends:          in.StartsAt.Add(duration).UTC(),
		PriceCents:    in.PriceCents,
		VIPPriceCents: vipPrice(in),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		if err := s.checkWindow(ctx, tx, sched.RoomID, sched.Starts, duration, 0); err != nil {
			return err
		}

		id, err := tx.Schedules().Create(ctx, sched)
		if err != nil {
			return translateWriteErr(err)
		}
		sched.ID = id

		after(func(ctx context.Context) {
			_ = s.pubsub.PublishScheduleChanged(ctx, "schedule_created", id)
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &sched, nil
}

// Update reschedules a schedule, possibly to another room or subject. It is
// rejected while any booked or paid ticket references the schedule.
//
// Parameters:
//   - ctx: request-scoped context.
//   - id: ID of the schedule to update.
//   - in: the new subject, room, start time and prices.
//
// Returns:
//   - *domain.Schedule: the updated schedule.
//   - error: schedule.ErrScheduleNotFound if the schedule does not exist.
//   - error: schedule.ErrHasActiveTickets if tickets are outstanding.
//   - error: *schedule.ScheduleConflictError if the new window is taken.
func (s *Service) Update(ctx context.Context, id int64, in Input) (*domain.Schedule, error) {
	const op = "service.schedule.Update"

	duration, err := s.prepare(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var updated domain.Schedule

	err = s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		cur, err := s.lockIdle(ctx, tx, id)
		if err != nil {
			return err
		}

		updated = *cur
		updated.SubjectID = in.SubjectID
		updated.RoomID = in.RoomID
		updated.Starts = in.StartsAt.UTC()
		updated.Ends = in.StartsAt.Add(duration).UTC()
		updated.PriceCents = in.PriceCents
		updated.VIPPriceCents = vipPrice(in)
		updated.UpdatedAt = s.cfg.Now().UTC()

		if err := s.checkWindow(ctx, tx, updated.RoomID, updated.Starts, duration, id); err != nil {
			return err
		}

		// The row is locked, so a missing reference is the only not-found case.
		if err := tx.Schedules().Update(ctx, updated); err != nil {
			return translateWriteErr(err)
		}

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateSchedule(ctx, id)
			_ = s.pubsub.PublishScheduleChanged(ctx, "schedule_updated", id)
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &updated, nil
}

// Delete removes a schedule that has no booked or paid tickets. Cancelled
// tickets of the schedule are removed with it.
//
// Parameters:
//   - ctx: request-scoped context.
//   - id: ID of the schedule to delete.
//
// Returns:
//   - error: schedule.ErrScheduleNotFound if the schedule does not exist.
//   - error: schedule.ErrHasActiveTickets if tickets are outstanding.
func (s *Service) Delete(ctx context.Context, id int64) error {
	const op = "service.schedule.Delete"

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		if _, err := s.lockIdle(ctx, tx, id); err != nil {
			return err
		}

		if err := tx.Schedules().Delete(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrScheduleNotFound
			}
			return err
		}

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateSchedule(ctx, id)
			_ = s.pubsub.PublishScheduleChanged(ctx, "schedule_deleted", id)
		})

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// Get returns a schedule.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Schedule, error) {
	const op = "service.schedule.Get"

	sched, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyScheduleDetail(id),
		s.cfg.DetailTTL,
		func(ctx context.Context) (domain.Schedule, error) {
			sp, err := s.store.Schedules().Get(ctx, id)
			if err != nil {
				return domain.Schedule{}, err
			}
			return *sp, nil
		},
	)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrScheduleNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &sched, nil
}

// ListByRoom returns the schedules of a room intersecting [from, to),
// ordered by start time.
func (s *Service) ListByRoom(ctx context.Context, roomID int64, from, to time.Time) ([]domain.Schedule, error) {
	const op = "service.schedule.ListByRoom"

	if !to.After(from) {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidWindow)
	}

	if _, err := s.catalog.RoomLayout(ctx, roomID); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	list, err := s.store.Schedules().ListByRoom(ctx, roomID, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return list, nil
}

// prepare validates input outside the transaction and returns the subject
// duration. Rooms and subjects are immutable, so reading them before the
// transaction is safe.
func (s *Service) prepare(ctx context.Context, in Input) (time.Duration, error) {
	if in.PriceCents < 0 || in.VIPPriceCents < 0 {
		return 0, ErrInvalidPrice
	}

	if !in.StartsAt.After(s.cfg.Now()) {
		return 0, ErrStartsInPast
	}

	if _, err := s.catalog.RoomLayout(ctx, in.RoomID); err != nil {
		return 0, err
	}

	return s.catalog.SubjectDuration(ctx, in.SubjectID)
}

func (s *Service) checkWindow(
	ctx context.Context,
	tx repository.Tx,
	roomID int64,
	start time.Time,
	duration time.Duration,
	excludeID int64,
) error {
	existing, err := s.resolver.Check(ctx, tx.Schedules(), roomID, start, duration, excludeID)
	if err != nil {
		return err
	}

	if existing != nil {
		return &ScheduleConflictError{Existing: *existing}
	}

	return nil
}

// lockIdle locks a schedule and verifies no active ticket references it.
func (s *Service) lockIdle(ctx context.Context, tx repository.Tx, id int64) (*domain.Schedule, error) {
	cur, err := tx.Schedules().GetForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}

	active, err := tx.Tickets().CountActiveBySchedule(ctx, id)
	if err != nil {
		return nil, err
	}

	if active > 0 {
		return nil, ErrHasActiveTickets
	}

	return cur, nil
}

// translateWriteErr maps constraint violations raised at commit time: the
// room exclusion constraint and the foreign keys.
func translateWriteErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("%w: %w", ErrScheduleConflict, err)
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrReferenceNotFound, err)
	default:
		return err
	}
}

func vipPrice(in Input) int {
	if in.VIPPriceCents == 0 {
		return in.PriceCents
	}
	return in.VIPPriceCents
}
