package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bakery-backend/pkg/config"
	pkgredis "github.com/angelmondragon/bakery-backend/pkg/redis"
)

const refreshTokenBytes = 32

var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	errAccessIDRequired    = errors.New("access id is required")
)

// Store persists refresh tokens keyed by access id.
type Store interface {
	PutSession(ctx context.Context, accessID, refreshToken string, ttl time.Duration) error
	SessionToken(ctx context.Context, accessID string) (string, error)
	RotateSession(ctx context.Context, oldAccessID, newAccessID, refreshToken string, ttl time.Duration) error
	DeleteSession(ctx context.Context, accessID string) error
}

// Manager ties every access token (by jti) to a refresh token. Logout deletes
// the pair, which makes the access token unusable before it expires.
type Manager struct {
	store Store
	ttl   time.Duration
}

// AccessSessionChecker is what the auth middleware needs.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

func NewManager(store Store, cfg config.JWTConfig) (*Manager, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if c, ok := store.(*pkgredis.Client); ok && c == nil {
		return nil, errors.New("session store is required")
	}
	ttl := cfg.RefreshTokenTTL()
	if ttl <= 0 {
		return nil, errors.New("refresh token ttl must be positive")
	}
	if accessTTL := cfg.AccessTokenTTL(); ttl <= accessTTL {
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, accessTTL)
	}
	return &Manager{store: store, ttl: ttl}, nil
}

// Generate opens a session for accessID and returns its refresh token.
func (m *Manager) Generate(ctx context.Context, accessID string) (string, error) {
	if strings.TrimSpace(accessID) == "" {
		return "", errAccessIDRequired
	}
	token, err := newRefreshToken()
	if err != nil {
		return "", err
	}
	if err := m.store.PutSession(ctx, accessID, token, m.ttl); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

// Rotate exchanges a valid refresh token for a new access id and refresh
// token. A refresh token can be used once; a second use fails.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	if strings.TrimSpace(oldAccessID) == "" || strings.TrimSpace(provided) == "" {
		return "", "", ErrInvalidRefreshToken
	}

	stored, err := m.store.SessionToken(ctx, oldAccessID)
	if err != nil {
		return "", "", invalidIfMissing(err)
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(provided)) != 1 {
		return "", "", ErrInvalidRefreshToken
	}

	newAccessID := NewAccessID()
	newToken, err := newRefreshToken()
	if err != nil {
		return "", "", err
	}
	if err := m.store.RotateSession(ctx, oldAccessID, newAccessID, newToken, m.ttl); err != nil {
		return "", "", invalidIfMissing(err)
	}
	return newAccessID, newToken, nil
}

// Revoke ends the session behind accessID.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return errAccessIDRequired
	}
	return m.store.DeleteSession(ctx, accessID)
}

// HasSession reports whether accessID still has a live session.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, errAccessIDRequired
	}
	if _, err := m.store.SessionToken(ctx, accessID); err != nil {
		if errors.Is(err, pkgredis.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// NewAccessID mints the jti shared by the JWT and its session key.
func NewAccessID() string {
	return uuid.NewString()
}

func newRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func invalidIfMissing(err error) error {
	if errors.Is(err, pkgredis.ErrNotFound) {
		return ErrInvalidRefreshToken
	}
	return err
}
