package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var errPanicked = errors.New("job panicked")

// Deduper remembers which reminders were already sent.
type Deduper interface {
	// First reports whether key has not been seen within ttl, marking it seen.
	First(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RedisDeduper marks reminders with SET NX so that several cronjob replicas
// and repeated runs send each reminder once.
type RedisDeduper struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisDeduper(client redis.UniversalClient, prefix string) *RedisDeduper {
	return &RedisDeduper{client: client, prefix: prefix}
}

func (d *RedisDeduper) First(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := d.client.SetNX(ctx, d.prefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark reminder %s: %w", key, err)
	}
	return ok, nil
}
