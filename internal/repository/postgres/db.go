package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/seatline/internal/repository"
)

const defaultMaxRetries = 3

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type Store struct {
	pool       *pgxpool.Pool
	txOpts     pgx.TxOptions
	maxRetries int
}

type Option func(*Store)

// WithMaxRetries sets how often a serialization failure is retried.
func WithMaxRetries(n int) Option {
	return func(s *Store) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

func NewStore(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{
		pool: pool,
		txOpts: pgx.TxOptions{
			IsoLevel:   pgx.Serializable,
			AccessMode: pgx.ReadWrite,
		},
		maxRetries: defaultMaxRetries,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// RunTx runs fn inside a transaction. Serialization failures and deadlocks
// are retried; once retries are exhausted they surface as
// repository.ErrConflict.
func (s *Store) RunTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	const op = "postgres.Store.RunTx"

	var err error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			if werr := sleepCtx(ctx, time.Duration(attempt)*10*time.Millisecond); werr != nil {
				return fmt.Errorf("%s:%w", op, werr)
			}
		}

		err = s.runTx(ctx, fn)
		if err == nil || !IsRetryable(err) {
			return err
		}
	}

	return fmt.Errorf("%s:%w: %w", op, repository.ErrConflict, err)
}

func (s *Store) runTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, s.txOpts)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("begin: %w: %w", repository.ErrUnavailable, err)
	}

	defer tx.Rollback(ctx)

	if err := fn(ctx, txRepos{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", translateDBErr(err))
	}

	return nil
}

func (s *Store) Catalog() repository.Catalog     { return &CatalogRepo{db: s.pool} }
func (s *Store) Schedules() repository.Schedules { return &ScheduleRepo{db: s.pool} }
func (s *Store) Claims() repository.Claims       { return &ClaimRepo{db: s.pool} }
func (s *Store) Tickets() repository.Tickets     { return &TicketRepo{db: s.pool} }

// Ping checks that the pool can reach the database.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", repository.ErrUnavailable, err)
	}
	return nil
}

type txRepos struct {
	db DB
}

func (t txRepos) Catalog() repository.Catalog     { return &CatalogRepo{db: t.db} }
func (t txRepos) Schedules() repository.Schedules { return &ScheduleRepo{db: t.db} }
func (t txRepos) Claims() repository.Claims       { return &ClaimRepo{db: t.db} }
func (t txRepos) Tickets() repository.Tickets     { return &TicketRepo{db: t.db} }

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var _ repository.Store = (*Store)(nil)

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
