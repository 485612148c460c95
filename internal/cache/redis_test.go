package cache

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return mr, NewRedisCache(client)
}

func TestRedisCache_GetSetExpire(t *testing.T) {
	mr, c := setupTestRedis(t)
	ctx := context.Background()

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	mr.FastForward(2 * time.Minute)
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisCache_JSONHelpers(t *testing.T) {
	_, c := setupTestRedis(t)
	ctx := context.Background()

	type payload struct {
		Name  string  `json:"name"`
		Value float64 `json:"value"`
	}
	require.NoError(t, SetJSON(ctx, c, "json", payload{Name: "di", Value: 42.5}, time.Minute))

	var out payload
	require.NoError(t, GetJSON(ctx, c, "json", &out))
	assert.Equal(t, payload{Name: "di", Value: 42.5}, out)

	assert.ErrorIs(t, GetJSON(ctx, c, "absent", &out), ErrMiss)
}

func TestRedisCache_KeysAndDelete(t *testing.T) {
	_, c := setupTestRedis(t)
	ctx := context.Background()

	for _, k := range []string{"a:1", "a:2", "b:1"} {
		require.NoError(t, c.Set(ctx, k, []byte("x"), 0))
	}

	keys, err := c.Keys(ctx, "a:*")
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"a:1", "a:2"}, keys)

	require.NoError(t, c.Delete(ctx, keys...))
	require.NoError(t, c.Delete(ctx))

	keys, err = c.Keys(ctx, "*")
	require.NoError(t, err)
	assert.Equal(t, []string{"b:1"}, keys)
}

func TestRedisCache_IncrementFields(t *testing.T) {
	mr, c := setupTestRedis(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := c.IncrementFields(ctx, "counters",
			map[string]int64{"total": 1},
			map[string]float64{"sum": 1.5},
			time.Hour,
		)
		require.NoError(t, err)
	}

	fields, err := c.GetFields(ctx, "counters")
	require.NoError(t, err)
	assert.Equal(t, "3", fields["total"])
	assert.Equal(t, "4.5", fields["sum"])
	assert.True(t, mr.TTL("counters") > 0)

	empty, err := c.GetFields(ctx, "nothing")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
