package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/seatline/internal/domain"
)

// Catalog reads and registers rooms and subjects.
type Catalog interface {
	GetRoom(ctx context.Context, id int64) (*domain.Room, error)
	GetSubject(ctx context.Context, id int64) (*domain.Subject, error)
	CreateRoom(ctx context.Context, room domain.Room) (int64, error)
	CreateSubject(ctx context.Context, subject domain.Subject) (int64, error)
}

type Schedules interface {
	Get(ctx context.Context, id int64) (*domain.Schedule, error)
	// GetForUpdate locks the schedule row until the end of the transaction.
	GetForUpdate(ctx context.Context, id int64) (*domain.Schedule, error)
	ListByRoom(ctx context.Context, roomID int64, from, to time.Time) ([]domain.Schedule, error)
	// FindOverlapping returns schedules of roomID intersecting [start, end),
	// skipping excludeID when it is non-zero.
	FindOverlapping(ctx context.Context, roomID int64, start, end time.Time, excludeID int64) ([]domain.Schedule, error)
	Create(ctx context.Context, s domain.Schedule) (int64, error)
	Update(ctx context.Context, s domain.Schedule) error
	Delete(ctx context.Context, id int64) error
}

// Claims is the seat inventory: one row per claimed seat of a schedule.
type Claims interface {
	// Insert fails with ErrConflict when any seat is already claimed.
	Insert(ctx context.Context, claims []domain.SeatClaim) error
	// DeleteByTickets removes the claims backing the tickets. Missing claims
	// are ignored.
	DeleteByTickets(ctx context.Context, ticketIDs []uuid.UUID) (int64, error)
	SeatCodes(ctx context.Context, scheduleID int64) ([]string, error)
}

type Tickets interface {
	Create(ctx context.Context, tickets []domain.Ticket) error
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Ticket, error)
	ListByGroup(ctx context.Context, groupID uuid.UUID) ([]domain.Ticket, error)
	// ListByGroupForUpdate is ListByGroup with the rows locked until the
	// transaction ends.
	ListByGroupForUpdate(ctx context.Context, groupID uuid.UUID) ([]domain.Ticket, error)
	// ListByHolder returns every ticket of a page of a holder's groups,
	// newest group first. limit and offset count groups; a zero limit means
	// no limit.
	ListByHolder(ctx context.Context, holderID string, limit, offset int) ([]domain.Ticket, error)
	CountActiveBySchedule(ctx context.Context, scheduleID int64) (int64, error)
	MarkPaid(ctx context.Context, ids []uuid.UUID, settlement domain.Settlement) error
	MarkCancelled(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// Tx groups the repositories bound to one transaction.
type Tx interface {
	Catalog() Catalog
	Schedules() Schedules
	Claims() Claims
	Tickets() Tickets
}

// Store gives non-transactional access through its Tx methods and runs
// functions inside a transaction with RunTx. fn may be invoked more than
// once when the store retries serialization failures.
type Store interface {
	Tx
	RunTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
