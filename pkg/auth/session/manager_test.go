package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/bakery-backend/pkg/config"
	pkgredis "github.com/angelmondragon/bakery-backend/pkg/redis"
)

var testJWT = config.JWTConfig{ExpirationMinutes: 15, RefreshTokenTTLMinutes: 60}

func newRedisManager(t *testing.T) (*Manager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	raw := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })
	mgr, err := NewManager(pkgredis.NewFromRaw(raw), testJWT)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return mgr, mr
}

func TestManagerGenerateAndRotate(t *testing.T) {
	manager, mr := newRedisManager(t)
	ctx := context.Background()

	accessID := NewAccessID()
	token, err := manager.Generate(ctx, accessID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got, _ := mr.Get(pkgredis.SessionKey(accessID)); got != token {
		t.Fatalf("expected stored token %q, got %q", token, got)
	}
	if ttl := mr.TTL(pkgredis.SessionKey(accessID)); ttl != time.Hour {
		t.Fatalf("expected one hour ttl, got %s", ttl)
	}

	if _, _, err := manager.Rotate(ctx, accessID, "wrong"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected invalid refresh token error, got %v", err)
	}

	newAccessID, newToken, err := manager.Rotate(ctx, accessID, token)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if mr.Exists(pkgredis.SessionKey(accessID)) {
		t.Fatalf("old session left behind")
	}
	if got, _ := mr.Get(pkgredis.SessionKey(newAccessID)); got != newToken {
		t.Fatalf("expected new token stored, got %q", got)
	}

	if _, _, err := manager.Rotate(ctx, accessID, token); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected reused refresh token to fail, got %v", err)
	}
}

func TestManagerRevokeAndHasSession(t *testing.T) {
	manager, _ := newRedisManager(t)
	ctx := context.Background()

	accessID := NewAccessID()
	if _, err := manager.Generate(ctx, accessID); err != nil {
		t.Fatalf("generate: %v", err)
	}
	ok, err := manager.HasSession(ctx, accessID)
	if err != nil || !ok {
		t.Fatalf("expected active session, ok=%v err=%v", ok, err)
	}

	if err := manager.Revoke(ctx, accessID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	ok, err = manager.HasSession(ctx, accessID)
	if err != nil || ok {
		t.Fatalf("expected revoked session, ok=%v err=%v", ok, err)
	}

	if _, err := manager.HasSession(ctx, " "); err == nil {
		t.Fatalf("expected error for blank access id")
	}
}

// racingStore loses the old session between the lookup and the rotation.
type racingStore struct {
	mu    sync.Mutex
	token string
}

func (s *racingStore) PutSession(context.Context, string, string, time.Duration) error { return nil }
func (s *racingStore) DeleteSession(context.Context, string) error                    { return nil }

func (s *racingStore) SessionToken(context.Context, string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *racingStore) RotateSession(context.Context, string, string, string, time.Duration) error {
	return pkgredis.ErrNotFound
}

func TestManagerRotateLosesRace(t *testing.T) {
	manager, err := NewManager(&racingStore{token: "refresh"}, testJWT)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, _, err := manager.Rotate(context.Background(), "old", "refresh"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected invalid refresh token, got %v", err)
	}
}

func TestNewManagerValidates(t *testing.T) {
	if _, err := NewManager(nil, testJWT); err == nil {
		t.Fatalf("expected missing store error")
	}
	var nilClient *pkgredis.Client
	if _, err := NewManager(nilClient, testJWT); err == nil {
		t.Fatalf("expected nil client error")
	}
	if _, err := NewManager(&racingStore{}, config.JWTConfig{ExpirationMinutes: 60, RefreshTokenTTLMinutes: 30}); err == nil {
		t.Fatalf("expected ttl ordering error")
	}
}
