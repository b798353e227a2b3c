package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/bakery-backend/pkg/config"
	"github.com/angelmondragon/bakery-backend/pkg/logger"
)

const keyNamespace = "bakery"

// ErrNotFound is returned when a looked-up key does not exist or has expired.
var ErrNotFound = errors.New("redis: key not found")

var errNotInitialized = errors.New("redis client not initialized")

// Client backs login sessions, idempotency reservations and rate-limit
// counters. Every key it writes lives under the "bakery:" namespace.
type Client struct {
	rdb *redis.Client
}

// New connects with the configured pool settings and pings the server.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "redis_db", opts.DB), "redis connection established")
	}
	return &Client{rdb: rdb}, nil
}

// NewFromRaw wraps an existing go-redis client without pinging it.
func NewFromRaw(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	var opts *redis.Options
	switch {
	case cfg.URL != "":
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
		if cfg.DB != 0 && opts.DB == 0 {
			opts.DB = cfg.DB
		}
	case cfg.Address != "":
		opts = &redis.Options{Addr: cfg.Address, Password: cfg.Password, DB: cfg.DB}
	default:
		return nil, errors.New("redis url or address is required")
	}

	opts.PoolSize = firstPositive(opts.PoolSize, cfg.PoolSize)
	opts.MinIdleConns = firstPositive(opts.MinIdleConns, cfg.MinIdleConns)
	opts.DialTimeout = firstPositiveDuration(opts.DialTimeout, cfg.DialTimeout)
	opts.ReadTimeout = firstPositiveDuration(opts.ReadTimeout, cfg.ReadTimeout)
	opts.WriteTimeout = firstPositiveDuration(opts.WriteTimeout, cfg.WriteTimeout)
	return opts, nil
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstPositiveDuration(values ...time.Duration) time.Duration {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

// Ping verifies the connection; it backs the readiness probe.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.rdb == nil {
		return errNotInitialized
	}
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// Key joins non-empty parts under the bakery namespace.
func Key(parts ...string) string {
	clean := make([]string, 0, len(parts)+1)
	clean = append(clean, keyNamespace)
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			clean = append(clean, part)
		}
	}
	return strings.Join(clean, ":")
}

// SessionKey is where the refresh token for an access token's jti lives.
func SessionKey(accessID string) string {
	return Key("session", accessID)
}

// IdempotencyKey scopes a client-supplied key. The scope is hashed so user ids
// and paths never appear verbatim in key names.
func IdempotencyKey(scope, clientKey string) string {
	sum := sha256.Sum256([]byte(scope))
	return Key("idempotency", hex.EncodeToString(sum[:8]), clientKey)
}

// RateLimitKey names the counter for one subject under a policy.
func RateLimitKey(policy, dimension, subject string) string {
	return Key("rate_limit", policy, dimension, subject)
}

func notFound(err error) error {
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	return err
}

// PutSession records the refresh token for an access id.
func (c *Client) PutSession(ctx context.Context, accessID, refreshToken string, ttl time.Duration) error {
	if c == nil || c.rdb == nil {
		return errNotInitialized
	}
	return c.rdb.Set(ctx, SessionKey(accessID), refreshToken, ttl).Err()
}

// SessionToken returns the refresh token stored for an access id.
func (c *Client) SessionToken(ctx context.Context, accessID string) (string, error) {
	if c == nil || c.rdb == nil {
		return "", errNotInitialized
	}
	val, err := c.rdb.Get(ctx, SessionKey(accessID)).Result()
	return val, notFound(err)
}

// RotateSession atomically drops the old session and records the new one. It
// returns ErrNotFound when the old session was already gone, in which case
// the new session is not kept.
func (c *Client) RotateSession(ctx context.Context, oldAccessID, newAccessID, refreshToken string, ttl time.Duration) error {
	if c == nil || c.rdb == nil {
		return errNotInitialized
	}
	var deleted *redis.IntCmd
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, SessionKey(oldAccessID))
		pipe.Set(ctx, SessionKey(newAccessID), refreshToken, ttl)
		return nil
	})
	if err != nil {
		return err
	}
	if deleted.Val() == 0 {
		if err := c.rdb.Del(ctx, SessionKey(newAccessID)).Err(); err != nil {
			return err
		}
		return ErrNotFound
	}
	return nil
}

// DeleteSession removes the session for an access id. Missing sessions are not an error.
func (c *Client) DeleteSession(ctx context.Context, accessID string) error {
	if c == nil || c.rdb == nil {
		return errNotInitialized
	}
	return c.rdb.Del(ctx, SessionKey(accessID)).Err()
}

// Reserve claims key with value if nobody holds it yet.
func (c *Client) Reserve(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if c == nil || c.rdb == nil {
		return false, errNotInitialized
	}
	return c.rdb.SetNX(ctx, key, value, ttl).Result()
}

// Load returns the value stored at key.
func (c *Client) Load(ctx context.Context, key string) (string, error) {
	if c == nil || c.rdb == nil {
		return "", errNotInitialized
	}
	val, err := c.rdb.Get(ctx, key).Result()
	return val, notFound(err)
}

// Complete replaces a reservation with its final value and retention. A
// reservation that already expired is left alone.
func (c *Client) Complete(ctx context.Context, key, value string, ttl time.Duration) error {
	if c == nil || c.rdb == nil {
		return errNotInitialized
	}
	err := c.rdb.SetArgs(ctx, key, value, redis.SetArgs{Mode: "XX", TTL: ttl}).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

// Release drops a reservation so the request can be retried.
func (c *Client) Release(ctx context.Context, key string) error {
	if c == nil || c.rdb == nil {
		return errNotInitialized
	}
	return c.rdb.Del(ctx, key).Err()
}

// Hit counts one event in the fixed window that starts with the first hit. It
// returns the count so far and how long until the window resets.
func (c *Client) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if c == nil || c.rdb == nil {
		return 0, 0, errNotInitialized
	}
	var (
		incr *redis.IntCmd
		pttl *redis.DurationCmd
	)
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pttl = pipe.PTTL(ctx, key)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	remaining := pttl.Val()
	if remaining < 0 {
		if err := c.rdb.PExpire(ctx, key, window).Err(); err != nil {
			return incr.Val(), 0, err
		}
		remaining = window
	}
	return incr.Val(), remaining, nil
}
