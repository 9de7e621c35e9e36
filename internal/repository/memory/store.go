// Package memory is an in-process repository.Store. A transaction works on a
// copy of the data under a store-wide mutex and swaps it in on success, so
// transactions are fully serialized and all-or-nothing.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/google/uuid"
	"github.com/kirinyoku/seatline/internal/domain"
	"github.com/kirinyoku/seatline/internal/repository"
)

type claimKey struct {
	scheduleID int64
	seatCode   string
}

type state struct {
	nextRoomID     int64
	nextSubjectID  int64
	nextScheduleID int64

	rooms     map[int64]domain.Room
	roomNames map[string]int64
	subjects  map[int64]domain.Subject
	schedules map[int64]domain.Schedule
	tickets   map[uuid.UUID]domain.Ticket
	claims    map[claimKey]uuid.UUID
}

func newState() *state {
	return &state{
		rooms:     make(map[int64]domain.Room),
		roomNames: make(map[string]int64),
		subjects:  make(map[int64]domain.Subject),
		schedules: make(map[int64]domain.Schedule),
		tickets:   make(map[uuid.UUID]domain.Ticket),
		claims:    make(map[claimKey]uuid.UUID),
	}
}

func (s *state) clone() *state {
	cp := *s
	cp.rooms = maps.Clone(s.rooms)
	cp.roomNames = maps.Clone(s.roomNames)
	cp.subjects = maps.Clone(s.subjects)
	cp.schedules = maps.Clone(s.schedules)
	cp.tickets = maps.Clone(s.tickets)
	cp.claims = maps.Clone(s.claims)
	return &cp
}

// access runs fn against the state a repository is bound to.
type access func(fn func(st *state) error) error

type Store struct {
	mu sync.Mutex
	st *state
}

func NewStore() *Store {
	return &Store{st: newState()}
}

// RunTx runs fn on a private copy of the data and commits it only when fn
// returns nil. The repositories of the enclosing Store must not be used from
// inside fn: the store lock is held for the whole call.
func (s *Store) RunTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	const op = "memory.Store.RunTx"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	tx := repos{access: func(fn func(st *state) error) error { return fn(work) }}

	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.st = work

	return nil
}

func (s *Store) locked(fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

func (s *Store) Catalog() repository.Catalog     { return repos{access: s.locked}.Catalog() }
func (s *Store) Schedules() repository.Schedules { return repos{access: s.locked}.Schedules() }
func (s *Store) Claims() repository.Claims       { return repos{access: s.locked}.Claims() }
func (s *Store) Tickets() repository.Tickets     { return repos{access: s.locked}.Tickets() }

type repos struct {
	access access
}

func (r repos) Catalog() repository.Catalog     { return &catalogRepo{access: r.access} }
func (r repos) Schedules() repository.Schedules { return &scheduleRepo{access: r.access} }
func (r repos) Claims() repository.Claims       { return &claimRepo{access: r.access} }
func (r repos) Tickets() repository.Tickets     { return &ticketRepo{access: r.access} }

var _ repository.Store = (*Store)(nil)
