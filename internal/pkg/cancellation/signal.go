package cancellation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// FlagKeyFormat is the per-job cancellation flag key
	FlagKeyFormat = "cancel:%s"

	// FlagTTL bounds how long a cancel flag outlives its request. Workers
	// check the flag cooperatively; once the TTL passes the job has either
	// observed it or already finished.
	FlagTTL = 5 * time.Minute
)

// Signal is the cooperative cancel flag shared between the HTTP layer and
// import workers. Setting the flag never interrupts a worker directly; the
// pipeline polls it between row chunks and before batch commits.
type Signal interface {
	Request(ctx context.Context, jobID string) error
	IsRequested(ctx context.Context, jobID string) bool
	Clear(ctx context.Context, jobID string) error
}

// RedisSignal implements Signal with short-TTL Redis keys.
type RedisSignal struct {
	client *redis.Client
}

func NewRedisSignal(client *redis.Client) *RedisSignal {
	return &RedisSignal{client: client}
}

func (s *RedisSignal) Request(ctx context.Context, jobID string) error {
	key := fmt.Sprintf(FlagKeyFormat, jobID)
	if err := s.client.Set(ctx, key, "1", FlagTTL).Err(); err != nil {
		return fmt.Errorf("failed to set cancel flag for job %s: %w", jobID, err)
	}
	return nil
}

func (s *RedisSignal) IsRequested(ctx context.Context, jobID string) bool {
	key := fmt.Sprintf(FlagKeyFormat, jobID)
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		// redis.Nil means no flag; other errors are treated as "not
		// cancelled" so a cache hiccup cannot abort a healthy import.
		return false
	}
	return val != ""
}

func (s *RedisSignal) Clear(ctx context.Context, jobID string) error {
	key := fmt.Sprintf(FlagKeyFormat, jobID)
	return s.client.Del(ctx, key).Err()
}
