package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"podpal/internal/platform/config"
)

func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("could not connect to Redis: %w", err)
	}
	slog.InfoContext(ctx, "connected to redis", "addr", cfg.Addr)
	return rdb, nil
}

// Queue is a FIFO list of job IDs: producers LPUSH, consumers BRPOP.
type Queue struct {
	rdb  redis.Cmdable
	name string
}

func New(rdb redis.Cmdable, name string) *Queue {
	return &Queue{rdb: rdb, name: name}
}

func (q *Queue) Push(ctx context.Context, id string) error {
	if err := q.rdb.LPush(ctx, q.name, id).Err(); err != nil {
		return fmt.Errorf("push %s onto %s: %w", id, q.name, err)
	}
	return nil
}

// Requeue puts the ID back at the consuming end so it is picked up next.
func (q *Queue) Requeue(ctx context.Context, id string) error {
	if err := q.rdb.RPush(ctx, q.name, id).Err(); err != nil {
		return fmt.Errorf("requeue %s onto %s: %w", id, q.name, err)
	}
	return nil
}

// Pop blocks for up to timeout. An empty ID with a nil error means the wait
// timed out with nothing queued.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	// res is [queueName, value]
	if len(res) < 2 {
		return "", nil
	}
	return res[1], nil
}
