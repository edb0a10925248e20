package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"hireflow-backend/internal/config"
	"hireflow-backend/internal/logger"

	"github.com/redis/go-redis/v9"
)

// Journal keeps undelivered jobs outside the process so a restart can replay
// them.
type Journal interface {
	Save(ctx context.Context, job Job) error
	Remove(ctx context.Context, jobID string) error
	Pending(ctx context.Context) ([]Job, error)
}

// RedisJournal stores pending jobs in a hash keyed by job ID.
type RedisJournal struct {
	client redis.UniversalClient
	key    string
}

func NewRedisJournal(client redis.UniversalClient, key string) *RedisJournal {
	return &RedisJournal{client: client, key: key}
}

// OpenRedisJournal connects to Redis. It returns nil when no address is
// configured.
func OpenRedisJournal(ctx context.Context, cfg config.RedisConfig) (*RedisJournal, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisJournal(client, cfg.QueueKey), nil
}

func (j *RedisJournal) Save(ctx context.Context, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job %s: %w", job.ID, err)
	}
	return j.client.HSet(ctx, j.key, job.ID, data).Err()
}

func (j *RedisJournal) Remove(ctx context.Context, jobID string) error {
	return j.client.HDel(ctx, j.key, jobID).Err()
}

// Pending returns every saved job. Entries that fail to decode are dropped
// from the journal.
func (j *RedisJournal) Pending(ctx context.Context) ([]Job, error) {
	entries, err := j.client.HGetAll(ctx, j.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load pending jobs: %w", err)
	}

	jobs := make([]Job, 0, len(entries))
	for id, raw := range entries {
		var job Job
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			logger.Warn("Dropping unreadable notification job", "jobID", id, "error", err)
			j.client.HDel(ctx, j.key, id)
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (j *RedisJournal) Close() error {
	return j.client.Close()
}
