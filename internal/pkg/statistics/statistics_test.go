package statistics

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skuforge/skuforge/internal/pkg/cache"
)

func TestParseCachedCount(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int64
		ok    bool
	}{
		{"valid", "42", 42, true},
		{"zero", "0", 0, true},
		{"negative", "-1", 0, false},
		{"garbage", "many", 0, false},
		{"empty", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseCachedCount(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// requireTestCache skips unless a local Redis endpoint is reachable.
func requireTestCache(t *testing.T) {
	t.Helper()
	if err := cache.GetClient().Ping(context.Background()).Err(); err != nil {
		t.Skipf("no Redis endpoint reachable: %v", err)
	}
}

func TestTotalProductsCacheRoundTrip(t *testing.T) {
	requireTestCache(t)

	// A warm cache entry is served without touching the database.
	require.NoError(t, cache.Set(CacheKeyProductsTotal, "42", time.Minute))
	assert.Equal(t, int64(42), GetTotalProducts())

	InvalidateTotalProducts()
	_, err := cache.Get(CacheKeyProductsTotal)
	assert.ErrorIs(t, err, redis.Nil)
}
