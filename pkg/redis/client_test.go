package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bakery-backend/pkg/config"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	raw := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })
	return NewFromRaw(raw), mr
}

func TestHitCountsWithinWindow(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)
	key := RateLimitKey("payment", "user", "u-1")

	count, remaining, err := client.Hit(ctx, key, time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Equal(t, time.Minute, remaining)
	require.Equal(t, time.Minute, mr.TTL(key))

	mr.FastForward(20 * time.Second)
	count, remaining, err = client.Hit(ctx, key, time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
	require.LessOrEqual(t, remaining, 40*time.Second)

	mr.FastForward(time.Minute)
	count, _, err = client.Hit(ctx, key, time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestReserveCompleteRelease(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)
	key := IdempotencyKey("user|POST|/api/orders", "order-pay_1")

	ok, err := client.Reserve(ctx, key, "pending", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = client.Reserve(ctx, key, "other", time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, client.Complete(ctx, key, "done", time.Hour))
	val, err := client.Load(ctx, key)
	require.NoError(t, err)
	require.Equal(t, "done", val)
	require.Equal(t, time.Hour, mr.TTL(key))

	require.NoError(t, client.Release(ctx, key))
	_, err = client.Load(ctx, key)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, client.Complete(ctx, key, "late", time.Hour))
	require.False(t, mr.Exists(key))
}

func TestRotateSession(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)

	require.NoError(t, client.PutSession(ctx, "old", "refresh-1", time.Hour))
	require.NoError(t, client.RotateSession(ctx, "old", "new", "refresh-2", time.Hour))
	require.False(t, mr.Exists(SessionKey("old")))
	token, err := client.SessionToken(ctx, "new")
	require.NoError(t, err)
	require.Equal(t, "refresh-2", token)

	err = client.RotateSession(ctx, "old", "newer", "refresh-3", time.Hour)
	require.ErrorIs(t, err, ErrNotFound)
	require.False(t, mr.Exists(SessionKey("newer")))
}

func TestKeys(t *testing.T) {
	require.Equal(t, "bakery:session:jti-1", SessionKey("jti-1"))
	require.Equal(t, "bakery:rate_limit:login:ip:1.2.3.4", RateLimitKey("login", "ip", "1.2.3.4"))
	require.Equal(t, "bakery:a:b", Key("a", " ", "b"))

	first := IdempotencyKey("u1|POST|/api/orders", "k")
	require.NotEqual(t, first, IdempotencyKey("u2|POST|/api/orders", "k"))
	require.NotContains(t, first, "u1")
}

func TestUninitializedClient(t *testing.T) {
	var client *Client
	require.Error(t, client.Ping(context.Background()))
	require.NoError(t, client.Close())
	_, _, err := client.Hit(context.Background(), "k", time.Second)
	require.Error(t, err)
}

func TestOptionsFromConfig(t *testing.T) {
	_, err := optionsFromConfig(config.RedisConfig{})
	require.Error(t, err)

	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6379/2", PoolSize: 7, DialTimeout: time.Second})
	require.NoError(t, err)
	require.Equal(t, 2, opts.DB)
	require.Equal(t, 7, opts.PoolSize)
	require.Equal(t, time.Second, opts.DialTimeout)

	opts, err = optionsFromConfig(config.RedisConfig{Address: "cache:6379", DB: 3})
	require.NoError(t, err)
	require.Equal(t, "cache:6379", opts.Addr)
	require.Equal(t, 3, opts.DB)
}
