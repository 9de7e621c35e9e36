package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// SchedulesPubSub announces schedule changes so other instances and UI
// listeners can refresh their view of a schedule's seats.
type SchedulesPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewSchedulesPubSub(rdb *redis.Client) *SchedulesPubSub {
	if rdb == nil {
		return nil
	}

	return &SchedulesPubSub{
		rdb:     rdb,
		channel: ChannelSchedulesChanged(),
	}
}

type scheduleChangedMsg struct {
	Type       string `json:"type"`
	ScheduleID int64  `json:"schedule_id"`
	TsUnix     int64  `json:"ts_unix"`
}

// PublishScheduleChanged is a no-op on a nil receiver.
func (p *SchedulesPubSub) PublishScheduleChanged(ctx context.Context, kind string, scheduleID int64) error {
	if p == nil {
		return nil
	}

	b, err := json.Marshal(scheduleChangedMsg{
		Type:       kind,
		ScheduleID: scheduleID,
		TsUnix:     time.Now().Unix(),
	})
	if err != nil {
		return err
	}

	return p.rdb.Publish(ctx, p.channel, b).Err()
}
