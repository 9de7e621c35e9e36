package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "seatline:v1:schedule:7:availability", KeyScheduleAvailability(7))
	assert.Equal(t, "seatline:v1:room:3:seats", KeyRoomSeats(3))
	assert.Equal(t, "seatline:v1:rl:claims:alice", KeyRateLimit("claims", "alice"))
	assert.Equal(t, "seatline:v1:idem:claims:7:alice:k1", KeyIdemClaim(7, "alice", "k1"))
	assert.Equal(t, "seatline:v1:schedules:changed", ChannelSchedulesChanged())
}

func TestNilComponentsAreInert(t *testing.T) {
	ctx := context.Background()

	var c *Cache
	assert.NoError(t, c.InvalidateSchedule(ctx, 1))
	assert.NoError(t, SetJSON(ctx, c, "k", 1, time.Minute))
	_, ok, err := GetJSON[int](ctx, c, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	calls := 0
	v, err := GetOrSetJSON(ctx, c, "k", time.Minute, func(context.Context) (int, error) {
		calls++
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)

	boom := errors.New("boom")
	_, err = GetOrSetJSON(ctx, c, "k", time.Minute, func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)

	assert.Nil(t, New(nil))
	assert.Nil(t, NewIdempotencyStore(nil, time.Hour))
	assert.Nil(t, NewSchedulesPubSub(nil))
	assert.NoError(t, NewSchedulesPubSub(nil).PublishScheduleChanged(ctx, "schedule_created", 1))

	l := NewSlidingWindowLimiter(nil, "claims", 10, time.Minute)
	ok, _, _, err = l.Allow(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestParseWindowResult(t *testing.T) {
	ok, cur, retry, err := parseWindowResult([]any{int64(0), int64(11), int64(1500)})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.EqualValues(t, 11, cur)
	assert.Equal(t, 1500*time.Millisecond, retry)

	ok, _, _, err = parseWindowResult([]any{int64(1), "3", int64(0)})
	require.NoError(t, err)
	assert.True(t, ok)

	_, _, _, err = parseWindowResult("nope")
	assert.Error(t, err)

	_, _, _, err = parseWindowResult([]any{int64(1), "three", int64(0)})
	assert.Error(t, err)

	_, _, _, err = parseWindowResult([]any{int64(1), 2.5, int64(0)})
	assert.Error(t, err)
}

func TestParseIdemValue(t *testing.T) {
	payload, ok, err := parseIdemValue(`RES:{"group_id":"x"}`)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"group_id":"x"}`, payload)

	_, ok, _ = parseIdemValue("LOCK")
	assert.False(t, ok)
}
