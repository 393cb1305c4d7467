package cancellation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagConstants(t *testing.T) {
	assert.Equal(t, "cancel:job-1", fmt.Sprintf(FlagKeyFormat, "job-1"))
	assert.Equal(t, 5*time.Minute, FlagTTL)
}

// newTestSignal connects to a local Redis, skipping when none is reachable.
func newTestSignal(t *testing.T) *RedisSignal {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("Skipping Redis-dependent test: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisSignal(client)
}

func TestSignalRoundTrip(t *testing.T) {
	signal := newTestSignal(t)
	ctx := context.Background()
	jobID := fmt.Sprintf("signal-test-%d", time.Now().UnixNano())

	assert.False(t, signal.IsRequested(ctx, jobID))

	require.NoError(t, signal.Request(ctx, jobID))
	assert.True(t, signal.IsRequested(ctx, jobID))

	require.NoError(t, signal.Clear(ctx, jobID))
	assert.False(t, signal.IsRequested(ctx, jobID))
}
