package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/kirinyoku/seatline/internal/domain"
	"github.com/kirinyoku/seatline/internal/repository"
	"github.com/kirinyoku/seatline/internal/repository/memory"
	"github.com/kirinyoku/seatline/internal/seatmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRoom_DerivesCapacity(t *testing.T) {
	svc := New(memory.NewStore(), nil, Config{})
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, " Hall 1 ", domain.Layout{RowCount: 10, SeatsPerRow: 12, VIPRowIndices: []int{9}})
	require.NoError(t, err)
	assert.Equal(t, "Hall 1", room.Name)
	assert.Equal(t, 120, room.Capacity)

	seats, err := svc.RoomSeats(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, seats, 120)
	assert.Equal(t, "J12", seats[119].Code)
	assert.True(t, seats[119].VIP)

	layout, err := svc.RoomLayout(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, layout.SeatsPerRow)

	_, err = svc.CreateRoom(ctx, "Hall 1", domain.Layout{RowCount: 1, SeatsPerRow: 1})
	assert.ErrorIs(t, err, ErrRoomExists)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestCreateRoom_Invalid(t *testing.T) {
	svc := New(memory.NewStore(), nil, Config{})

	_, err := svc.CreateRoom(context.Background(), "Hall", domain.Layout{RowCount: 2})
	assert.True(t, seatmap.IsInvalidLayout(err))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.CreateRoom(context.Background(), "  ", domain.Layout{RowCount: 2, SeatsPerRow: 2})
	assert.ErrorIs(t, err, ErrInvalidRoom)
}

func TestSubjectDuration(t *testing.T) {
	svc := New(memory.NewStore(), nil, Config{})
	ctx := context.Background()

	subj, err := svc.CreateSubject(ctx, "Film", 2*time.Hour)
	require.NoError(t, err)

	d, err := svc.SubjectDuration(ctx, subj.ID)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, d)

	_, err = svc.SubjectDuration(ctx, 404)
	assert.ErrorIs(t, err, ErrSubjectNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.CreateSubject(ctx, "Short", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRoomSeatsIn_UsesTransaction(t *testing.T) {
	store := memory.NewStore()
	svc := New(store, nil, Config{})
	ctx := context.Background()

	var seats []domain.Seat
	err := store.RunTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		id, err := tx.Catalog().CreateRoom(ctx, domain.Room{Name: "Tx", Layout: domain.Layout{Rows: []string{"A"}, SeatsPerRow: 3}})
		if err != nil {
			return err
		}
		seats, err = svc.RoomSeatsIn(ctx, tx, id)
		return err
	})
	require.NoError(t, err)
	assert.Len(t, seats, 3)

	_, err = svc.RoomSeats(ctx, 999)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}
