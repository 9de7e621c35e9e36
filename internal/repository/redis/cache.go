package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Cache is a JSON read-through cache. A nil *Cache is valid and caches
// nothing: loaders are called directly and invalidation is a no-op.
type Cache struct {
	rdb *redis.Client
	sf  singleflight.Group
}

func New(client *redis.Client) *Cache {
	if client == nil {
		return nil
	}
	return &Cache{rdb: client}
}

func (c *Cache) Del(ctx context.Context, keys ...string) error {
	if c == nil || len(keys) == 0 {
		return nil
	}

	return c.rdb.Del(ctx, keys...).Err()
}

// GetJSON decodes the value stored under key. A value that no longer
// decodes into T is deleted and reported as a miss.
func GetJSON[T any](ctx context.Context, c *Cache, key string) (T, bool, error) {
	var out T

	if c == nil {
		return out, false, nil
	}

	b, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return out, false, nil
	case err != nil:
		return out, false, err
	}

	if err := json.Unmarshal(b, &out); err != nil {
		_ = c.rdb.Del(ctx, key).Err()
		var zero T
		return zero, false, nil
	}

	return out, true, nil
}

// SetJSON stores val under key for ttl. Nothing is stored without a
// positive ttl.
func SetJSON(ctx context.Context, c *Cache, key string, val any, ttl time.Duration) error {
	if c == nil || ttl <= 0 {
		return nil
	}

	b, err := json.Marshal(val)
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, key, b, ttl).Err()
}

// GetOrSetJSON returns the cached value for key or loads, stores and returns
// it. Concurrent misses on the same key share one loader call, which runs
// detached from the first caller's cancellation. Cache read failures fall
// through to the loader.
func GetOrSetJSON[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	loader func(ctx context.Context) (T, error),
) (T, error) {
	if c == nil {
		return loader(ctx)
	}

	if v, ok, err := GetJSON[T](ctx, c, key); err == nil && ok {
		return v, nil
	}

	shared := context.WithoutCancel(ctx)
	vAny, err, _ := c.sf.Do(key, func() (any, error) {
		if v, ok, err := GetJSON[T](shared, c, key); err == nil && ok {
			return v, nil
		}
		v, err := loader(shared)
		if err != nil {
			return nil, err
		}
		_ = SetJSON(shared, c, key, v, ttl)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	v, ok := vAny.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache %s: unexpected %T", key, vAny)
	}

	return v, nil
}

// InvalidateSchedule drops everything cached for one schedule.
func (c *Cache) InvalidateSchedule(ctx context.Context, scheduleID int64) error {
	return c.Del(
		ctx,
		KeyScheduleAvailability(scheduleID),
		KeyScheduleDetail(scheduleID),
	)
}
