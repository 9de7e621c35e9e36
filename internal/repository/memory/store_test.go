package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/seatline/internal/domain"
	"github.com/kirinyoku/seatline/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func seed(t *testing.T, s *Store) (roomID, subjectID, scheduleID int64) {
	t.Helper()
	ctx := context.Background()

	roomID, err := s.Catalog().CreateRoom(ctx, domain.Room{Name: "Hall 1", Capacity: 4, Layout: domain.Layout{RowCount: 2, SeatsPerRow: 2}})
	require.NoError(t, err)
	subjectID, err = s.Catalog().CreateSubject(ctx, domain.Subject{Title: "Film", Duration: 2 * time.Hour})
	require.NoError(t, err)
	scheduleID, err = s.Schedules().Create(ctx, domain.Schedule{
		RoomID: roomID, SubjectID: subjectID, Starts: base, Ends: base.Add(2 * time.Hour),
	})
	require.NoError(t, err)

	return roomID, subjectID, scheduleID
}

func TestRunTx_RollbackOnError(t *testing.T) {
	s := NewStore()
	_, _, schedID := seed(t, s)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.RunTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		require.NoError(t, tx.Claims().Insert(ctx, []domain.SeatClaim{{ScheduleID: schedID, SeatCode: "A1", TicketID: uuid.New()}}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	codes, err := s.Claims().SeatCodes(ctx, schedID)
	require.NoError(t, err)
	assert.Empty(t, codes)
}

func TestRunTx_Commit(t *testing.T) {
	s := NewStore()
	_, _, schedID := seed(t, s)
	ctx := context.Background()

	err := s.RunTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.Claims().Insert(ctx, []domain.SeatClaim{
			{ScheduleID: schedID, SeatCode: "B2", TicketID: uuid.New()},
			{ScheduleID: schedID, SeatCode: "A1", TicketID: uuid.New()},
		})
	})
	require.NoError(t, err)

	codes, err := s.Claims().SeatCodes(ctx, schedID)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "B2"}, codes)
}

func TestRunTx_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := NewStore().RunTx(ctx, func(context.Context, repository.Tx) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestClaims_DuplicateIsConflict(t *testing.T) {
	s := NewStore()
	_, _, schedID := seed(t, s)
	ctx := context.Background()

	require.NoError(t, s.Claims().Insert(ctx, []domain.SeatClaim{{ScheduleID: schedID, SeatCode: "A1", TicketID: uuid.New()}}))

	err := s.Claims().Insert(ctx, []domain.SeatClaim{
		{ScheduleID: schedID, SeatCode: "A2", TicketID: uuid.New()},
		{ScheduleID: schedID, SeatCode: "A1", TicketID: uuid.New()},
	})
	require.ErrorIs(t, err, repository.ErrConflict)

	codes, _ := s.Claims().SeatCodes(ctx, schedID)
	assert.Equal(t, []string{"A1"}, codes, "a failed insert must not leave partial claims")
}

func TestSchedules_OverlapAndFK(t *testing.T) {
	s := NewStore()
	roomID, subjectID, _ := seed(t, s)
	ctx := context.Background()

	_, err := s.Schedules().Create(ctx, domain.Schedule{
		RoomID: roomID, SubjectID: subjectID, Starts: base.Add(time.Hour), Ends: base.Add(3 * time.Hour),
	})
	require.ErrorIs(t, err, repository.ErrConflict)

	_, err = s.Schedules().Create(ctx, domain.Schedule{
		RoomID: roomID, SubjectID: subjectID, Starts: base.Add(2 * time.Hour), Ends: base.Add(4 * time.Hour),
	})
	require.NoError(t, err, "abutting windows do not overlap")

	_, err = s.Schedules().Create(ctx, domain.Schedule{
		RoomID: 999, SubjectID: subjectID, Starts: base.Add(10 * time.Hour), Ends: base.Add(11 * time.Hour),
	})
	require.ErrorIs(t, err, repository.ErrNotFound)

	list, err := s.Schedules().ListByRoom(ctx, roomID, base, base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].Starts.Before(list[1].Starts))
}

func TestSchedules_DeleteCascades(t *testing.T) {
	s := NewStore()
	_, _, schedID := seed(t, s)
	ctx := context.Background()

	tid := uuid.New()
	require.NoError(t, s.Tickets().Create(ctx, []domain.Ticket{{ID: tid, GroupID: uuid.New(), ScheduleID: schedID, SeatCode: "A1", Status: domain.TicketBooked}}))
	require.NoError(t, s.Claims().Insert(ctx, []domain.SeatClaim{{ScheduleID: schedID, SeatCode: "A1", TicketID: tid}}))

	require.NoError(t, s.Schedules().Delete(ctx, schedID))

	tickets, err := s.Tickets().ListByIDs(ctx, []uuid.UUID{tid})
	require.NoError(t, err)
	assert.Empty(t, tickets)
	codes, _ := s.Claims().SeatCodes(ctx, schedID)
	assert.Empty(t, codes)

	require.ErrorIs(t, s.Schedules().Delete(ctx, schedID), repository.ErrNotFound)
}

func TestTickets_Transitions(t *testing.T) {
	s := NewStore()
	_, _, schedID := seed(t, s)
	ctx := context.Background()

	t1, t2 := uuid.New(), uuid.New()
	group := uuid.New()
	require.NoError(t, s.Tickets().Create(ctx, []domain.Ticket{
		{ID: t1, GroupID: group, ScheduleID: schedID, SeatCode: "A1", HolderID: "h", Status: domain.TicketBooked, BookedAt: base},
		{ID: t2, GroupID: group, ScheduleID: schedID, SeatCode: "A2", HolderID: "h", Status: domain.TicketBooked, BookedAt: base},
	}))

	require.NoError(t, s.Tickets().MarkCancelled(ctx, []uuid.UUID{t2}, base))

	err := s.Tickets().MarkPaid(ctx, []uuid.UUID{t1, t2}, domain.Settlement{ID: uuid.New(), Method: domain.PaymentCash, SettledAt: base})
	require.ErrorIs(t, err, repository.ErrConflict)

	got, err := s.Tickets().ListByGroup(ctx, group)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.TicketBooked, got[0].Status, "failed settlement must not touch t1")
	assert.Nil(t, got[0].SettlementID)
	assert.Equal(t, domain.TicketCancelled, got[1].Status)

	n, err := s.Tickets().CountActiveBySchedule(ctx, schedID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	// A cancelled seat may be booked again.
	require.NoError(t, s.Tickets().Create(ctx, []domain.Ticket{
		{ID: uuid.New(), GroupID: uuid.New(), ScheduleID: schedID, SeatCode: "A2", HolderID: "g", Status: domain.TicketBooked},
	}))
	err = s.Tickets().Create(ctx, []domain.Ticket{
		{ID: uuid.New(), GroupID: uuid.New(), ScheduleID: schedID, SeatCode: "A1", HolderID: "g", Status: domain.TicketBooked},
	})
	require.ErrorIs(t, err, repository.ErrConflict)
}

func TestTickets_ListByHolderPagesGroups(t *testing.T) {
	s := NewStore()
	_, _, schedID := seed(t, s)
	ctx := context.Background()

	older, newer := uuid.New(), uuid.New()
	require.NoError(t, s.Tickets().Create(ctx, []domain.Ticket{
		{ID: uuid.New(), GroupID: older, ScheduleID: schedID, SeatCode: "A2", HolderID: "h", Status: domain.TicketBooked, BookedAt: base},
		{ID: uuid.New(), GroupID: older, ScheduleID: schedID, SeatCode: "A1", HolderID: "h", Status: domain.TicketBooked, BookedAt: base},
		{ID: uuid.New(), GroupID: newer, ScheduleID: schedID, SeatCode: "B1", HolderID: "h", Status: domain.TicketBooked, BookedAt: base.Add(time.Minute)},
		{ID: uuid.New(), GroupID: uuid.New(), ScheduleID: schedID, SeatCode: "B2", HolderID: "other", Status: domain.TicketBooked, BookedAt: base},
	}))

	page, err := s.Tickets().ListByHolder(ctx, "h", 1, 0)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, newer, page[0].GroupID, "newest group first")

	page, err = s.Tickets().ListByHolder(ctx, "h", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 2, "a page holds whole groups")
	assert.Equal(t, "A1", page[0].SeatCode)
	assert.Equal(t, "A2", page[1].SeatCode)

	page, err = s.Tickets().ListByHolder(ctx, "h", 0, 0)
	require.NoError(t, err)
	assert.Len(t, page, 3)

	page, err = s.Tickets().ListByHolder(ctx, "h", 2, 5)
	require.NoError(t, err)
	assert.Empty(t, page)
}
