package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kirinyoku/seatline/internal/domain"
	"github.com/kirinyoku/seatline/internal/repository"
	redisrepo "github.com/kirinyoku/seatline/internal/repository/redis"
	"github.com/kirinyoku/seatline/internal/seatmap"
)

type Config struct {
	// TTL for cached rooms and subjects. Both are immutable once created.
	TTL time.Duration
}

// Service is the read-through view of rooms and subjects plus the minimal
// admin registration needed to schedule them.
type Service struct {
	store repository.Store
	cache *redisrepo.Cache
	cfg   Config
}

func New(store repository.Store, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}

	return &Service{store: store, cache: cache, cfg: cfg}
}

// SubjectDuration returns the fixed running time of a subject.
//
// Parameters:
//   - ctx: request-scoped context.
//   - subjectID: ID of the subject.
//
// Returns:
//   - time.Duration: the subject's duration.
//   - error: catalog.ErrSubjectNotFound if the subject does not exist.
func (s *Service) SubjectDuration(ctx context.Context, subjectID int64) (time.Duration, error) {
	const op = "service.catalog.SubjectDuration"

	subj, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeySubject(subjectID),
		s.cfg.TTL,
		func(ctx context.Context) (domain.Subject, error) {
			sp, err := s.store.Catalog().GetSubject(ctx, subjectID)
			if err != nil {
				return domain.Subject{}, err
			}
			return *sp, nil
		},
	)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, fmt.Errorf("%s:%w", op, ErrSubjectNotFound)
		}
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return subj.Duration, nil
}

// RoomLayout returns the layout descriptor of a room.
func (s *Service) RoomLayout(ctx context.Context, roomID int64) (domain.Layout, error) {
	const op = "service.catalog.RoomLayout"

	room, err := s.store.Catalog().GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Layout{}, fmt.Errorf("%s:%w", op, ErrRoomNotFound)
		}
		return domain.Layout{}, fmt.Errorf("%s:%w", op, err)
	}

	return room.Layout, nil
}

// RoomSeats returns the expanded seat map of a room.
func (s *Service) RoomSeats(ctx context.Context, roomID int64) ([]domain.Seat, error) {
	const op = "service.catalog.RoomSeats"

	seats, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyRoomSeats(roomID),
		s.cfg.TTL,
		func(ctx context.Context) ([]domain.Seat, error) {
			return loadSeats(ctx, s.store.Catalog(), roomID)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return seats, nil
}

// RoomSeatsIn is RoomSeats for callers inside a unit of work: a cache miss
// is loaded through tx and never waits on another caller's load.
func (s *Service) RoomSeatsIn(ctx context.Context, tx repository.Tx, roomID int64) ([]domain.Seat, error) {
	const op = "service.catalog.RoomSeatsIn"

	key := redisrepo.KeyRoomSeats(roomID)
	if seats, ok, err := redisrepo.GetJSON[[]domain.Seat](ctx, s.cache, key); err == nil && ok {
		return seats, nil
	}

	seats, err := loadSeats(ctx, tx.Catalog(), roomID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	_ = redisrepo.SetJSON(ctx, s.cache, key, seats, s.cfg.TTL)

	return seats, nil
}

func loadSeats(ctx context.Context, repo repository.Catalog, roomID int64) ([]domain.Seat, error) {
	room, err := repo.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	return seatmap.Expand(room.Layout)
}

// CreateRoom registers a room. The layout is validated by expanding it and
// the room capacity is the number of expanded seats.
//
// Parameters:
//   - ctx: request-scoped context.
//   - name: unique room name.
//   - layout: seat layout descriptor.
//
// Returns:
//   - *domain.Room: the created room.
//   - error: seatmap.ErrInvalidLayout for a malformed layout.
//   - error: catalog.ErrRoomExists if the name is taken.
func (s *Service) CreateRoom(ctx context.Context, name string, layout domain.Layout) (*domain.Room, error) {
	const op = "service.catalog.CreateRoom"

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%s:%w: %w", op, ErrInvalidRoom, errBlankName)
	}

	seats, err := seatmap.Expand(layout)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	room := domain.Room{Name: name, Capacity: len(seats), Layout: layout}

	id, err := s.store.Catalog().CreateRoom(ctx, room)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%s:%w", op, ErrRoomExists)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	room.ID = id

	return &room, nil
}

// CreateSubject registers a subject with a positive duration.
func (s *Service) CreateSubject(ctx context.Context, title string, duration time.Duration) (*domain.Subject, error) {
	const op = "service.catalog.CreateSubject"

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%s:%w: %w", op, ErrInvalidSubject, errBlankName)
	}
	if duration <= 0 {
		return nil, fmt.Errorf("%s:%w: duration must be positive", op, ErrInvalidSubject)
	}

	subj := domain.Subject{Title: title, Duration: duration}

	id, err := s.store.Catalog().CreateSubject(ctx, subj)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	subj.ID = id

	return &subj, nil
}
