package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/seatline/internal/domain"
	pgconn "github.com/kirinyoku/seatline/internal/postgres"
	"github.com/kirinyoku/seatline/internal/repository"
	"github.com/kirinyoku/seatline/internal/repository/postgres"
	"github.com/kirinyoku/seatline/internal/service/catalog"
	"github.com/kirinyoku/seatline/internal/service/inventory"
	"github.com/kirinyoku/seatline/internal/service/ticket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

var starts = time.Now().UTC().Add(48 * time.Hour).Truncate(time.Second)

// newStore connects to TEST_POSTGRES_DSN and empties every table.
func newStore(t *testing.T) *postgres.Store {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	pool, err := pgconn.New(ctx, dsn, 16)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, pgconn.Migrate(ctx, pool))
	_, err = pool.Exec(ctx, `TRUNCATE seat_claims, tickets, schedules, subjects, rooms RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	return postgres.NewStore(pool)
}

func seedSchedule(t *testing.T, store *postgres.Store) (roomID, subjectID, scheduleID int64) {
	t.Helper()
	ctx := context.Background()

	var err error
	roomID, err = store.Catalog().CreateRoom(ctx, domain.Room{
		Name: "Hall", Capacity: 12, Layout: domain.Layout{RowCount: 3, SeatsPerRow: 4},
	})
	require.NoError(t, err)

	subjectID, err = store.Catalog().CreateSubject(ctx, domain.Subject{Title: "Film", Duration: 2 * time.Hour})
	require.NoError(t, err)

	scheduleID, err = store.Schedules().Create(ctx, domain.Schedule{
		SubjectID: subjectID, RoomID: roomID, Starts: starts, Ends: starts.Add(2 * time.Hour), PriceCents: 800,
	})
	require.NoError(t, err)

	return roomID, subjectID, scheduleID
}

func TestCatalogAndSchedules(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	roomID, subjectID, id := seedSchedule(t, store)

	room, err := store.Catalog().GetRoom(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, 4, room.Layout.SeatsPerRow)

	subj, err := store.Catalog().GetSubject(ctx, subjectID)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, subj.Duration)

	_, err = store.Catalog().CreateRoom(ctx, domain.Room{Name: "Hall", Capacity: 1, Layout: domain.Layout{RowCount: 1, SeatsPerRow: 1}})
	assert.ErrorIs(t, err, repository.ErrConflict)

	_, err = store.Schedules().Create(ctx, domain.Schedule{
		SubjectID: subjectID, RoomID: roomID, Starts: starts.Add(time.Hour), Ends: starts.Add(3 * time.Hour),
	})
	assert.ErrorIs(t, err, repository.ErrConflict, "exclusion constraint")

	_, err = store.Schedules().Create(ctx, domain.Schedule{
		SubjectID: subjectID, RoomID: roomID, Starts: starts.Add(2 * time.Hour), Ends: starts.Add(4 * time.Hour),
	})
	assert.NoError(t, err, "abutting windows")

	_, err = store.Schedules().Create(ctx, domain.Schedule{
		SubjectID: subjectID, RoomID: roomID + 100, Starts: starts.Add(8 * time.Hour), Ends: starts.Add(9 * time.Hour),
	})
	assert.ErrorIs(t, err, repository.ErrNotFound, "unknown room")

	overlapping, err := store.Schedules().FindOverlapping(ctx, roomID, starts.Add(time.Hour), starts.Add(90*time.Minute), 0)
	require.NoError(t, err)
	require.Len(t, overlapping, 1)
	assert.Equal(t, id, overlapping[0].ID)

	overlapping, err = store.Schedules().FindOverlapping(ctx, roomID, starts.Add(time.Hour), starts.Add(90*time.Minute), id)
	require.NoError(t, err)
	assert.Empty(t, overlapping)

	list, err := store.Schedules().ListByRoom(ctx, roomID, starts.Add(-time.Hour), starts.Add(5*time.Hour))
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = store.Schedules().Get(ctx, id+100)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestClaimsAndTickets(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	_, _, scheduleID := seedSchedule(t, store)

	group := uuid.New()
	tickets := []domain.Ticket{
		{ID: uuid.New(), GroupID: group, ScheduleID: scheduleID, SeatCode: "A1", HolderID: "alice", PriceCents: 800, Status: domain.TicketBooked, BookedAt: starts.Add(-time.Hour)},
		{ID: uuid.New(), GroupID: group, ScheduleID: scheduleID, SeatCode: "A2", HolderID: "alice", PriceCents: 800, Status: domain.TicketBooked, BookedAt: starts.Add(-time.Hour)},
	}

	err := store.RunTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.Tickets().Create(ctx, tickets); err != nil {
			return err
		}
		return tx.Claims().Insert(ctx, []domain.SeatClaim{
			{ScheduleID: scheduleID, SeatCode: "A1", TicketID: tickets[0].ID},
			{ScheduleID: scheduleID, SeatCode: "A2", TicketID: tickets[1].ID},
		})
	})
	require.NoError(t, err)

	codes, err := store.Claims().SeatCodes(ctx, scheduleID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A1", "A2"}, codes)

	other := domain.Ticket{ID: uuid.New(), GroupID: uuid.New(), ScheduleID: scheduleID, SeatCode: "A3", HolderID: "bob", Status: domain.TicketBooked, BookedAt: starts}
	err = store.RunTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.Tickets().Create(ctx, []domain.Ticket{other}); err != nil {
			return err
		}
		return tx.Claims().Insert(ctx, []domain.SeatClaim{
			{ScheduleID: scheduleID, SeatCode: "A3", TicketID: other.ID},
			{ScheduleID: scheduleID, SeatCode: "A2", TicketID: other.ID},
		})
	})
	require.ErrorIs(t, err, repository.ErrConflict)

	codes, err = store.Claims().SeatCodes(ctx, scheduleID)
	require.NoError(t, err)
	assert.Len(t, codes, 2, "the failed claim left nothing behind")

	settlement := domain.Settlement{ID: uuid.New(), Method: domain.PaymentEWallet, SettledAt: starts.Add(-time.Minute)}
	require.NoError(t, store.Tickets().MarkPaid(ctx, []uuid.UUID{tickets[0].ID, tickets[1].ID}, settlement))

	err = store.Tickets().MarkCancelled(ctx, []uuid.UUID{tickets[0].ID}, starts)
	assert.ErrorIs(t, err, repository.ErrConflict, "paid tickets stay paid")

	got, err := store.Tickets().ListByGroup(ctx, group)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, tk := range got {
		assert.Equal(t, domain.TicketPaid, tk.Status)
		require.NotNil(t, tk.SettlementID)
		assert.Equal(t, settlement.ID, *tk.SettlementID)
	}

	err = store.RunTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		locked, err := tx.Tickets().ListByGroupForUpdate(ctx, group)
		if err != nil {
			return err
		}
		require.Len(t, locked, 2)
		assert.Equal(t, []string{"A1", "A2"}, []string{locked[0].SeatCode, locked[1].SeatCode})
		return nil
	})
	require.NoError(t, err)

	active, err := store.Tickets().CountActiveBySchedule(ctx, scheduleID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), active)

	held, err := store.Tickets().ListByHolder(ctx, "alice", 0, 0)
	require.NoError(t, err)
	assert.Len(t, held, 2)

	held, err = store.Tickets().ListByHolder(ctx, "alice", 1, 1)
	require.NoError(t, err)
	assert.Empty(t, held, "alice has a single group")
}

// TestConcurrentClaims races overlapping claims through the ticket service
// and checks that every seat ends up with exactly one winner.
func TestConcurrentClaims(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	_, _, scheduleID := seedSchedule(t, store)

	cat := catalog.New(store, nil, catalog.Config{})
	inv := inventory.New(store, cat, nil, inventory.Config{})
	svc := ticket.New(store, inv, nil, nil, nil, nil, ticket.Config{})

	requests := [][]string{
		{"A1", "A2"}, {"A2", "A3"}, {"A3", "A4"}, {"A4", "B1"},
		{"B1", "B2"}, {"B2", "B3"}, {"A1", "B3"}, {"C1"}, {"C1", "C2"},
	}

	var (
		mu  sync.Mutex
		won = map[string]string{}
	)

	var g errgroup.Group
	for i, seats := range requests {
		holder := fmt.Sprintf("holder-%d", i)
		g.Go(func() error {
			group, err := svc.Claim(ctx, scheduleID, seats, holder)
			var conflict *inventory.SeatConflictError
			switch {
			case err == nil:
			case errors.As(err, &conflict), errors.Is(err, ticket.ErrClaimContention):
				return nil
			default:
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			for _, tk := range group.Tickets {
				if prev, ok := won[tk.SeatCode]; ok {
					return fmt.Errorf("seat %s won by %s and %s", tk.SeatCode, prev, holder)
				}
				won[tk.SeatCode] = holder
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.NotEmpty(t, won)

	codes, err := store.Claims().SeatCodes(ctx, scheduleID)
	require.NoError(t, err)

	want := make([]string, 0, len(won))
	for code := range won {
		want = append(want, code)
	}
	assert.ElementsMatch(t, want, codes)
}
