package rate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	rdb "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_FixedWindow(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 10, 0, time.UTC)
	l := NewMemoryLimiter(2, time.Minute)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	r1, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, r1.Allowed)
	assert.Equal(t, int64(1), r1.Remaining)

	r2, _ := l.Allow(ctx, "10.0.0.1")
	assert.True(t, r2.Allowed)
	assert.Equal(t, int64(0), r2.Remaining)

	r3, _ := l.Allow(ctx, "10.0.0.1")
	assert.False(t, r3.Allowed)
	assert.Equal(t, 50*time.Second, r3.RetryAfter)

	// otra clave tiene su propio contador
	other, _ := l.Allow(ctx, "10.0.0.2")
	assert.True(t, other.Allowed)

	// ventana siguiente
	now = now.Add(time.Minute)
	r4, _ := l.Allow(ctx, "10.0.0.1")
	assert.True(t, r4.Allowed)
	assert.Equal(t, int64(1), r4.CurrentHits)
}

func TestRedisLimiter_FixedWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := rdb.NewClient(&rdb.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewRedisLimiter(client, "test:", 3, time.Minute)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "hit %d", i+1)
	}
	res, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, int64(4), res.CurrentHits)
	assert.Greater(t, res.RetryAfter, time.Duration(0))

	key := "test:10.0.0.1:" + "1709294400"
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Minute, mr.TTL(key))

	now = now.Add(time.Minute)
	res, err = l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRedisLimiter_BackendDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := rdb.NewClient(&rdb.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	_, err := NewRedisLimiter(client, "", 1, time.Minute).Allow(context.Background(), "k")
	assert.Error(t, err)
}
