// Package session keeps refresh tokens in Redis keyed by the access token's
// session id.
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
	redislib "github.com/redis/go-redis/v9"

	"github.com/ethoparts/marketplace-backend/pkg/config"
	redisclient "github.com/ethoparts/marketplace-backend/pkg/redis"
)

const refreshTokenBytes = 32

var ErrInvalidRefreshToken = errors.New("invalid refresh token")

type kv interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	AccessSessionKey(accessID string) string
}

// Checker is what auth middleware needs to reject revoked sessions.
type Checker interface {
	Active(ctx context.Context, sessionID string) (bool, error)
}

// Rotated is the session that replaces a refreshed one.
type Rotated struct {
	SessionID    string
	RefreshToken string
}

type Manager struct {
	kv  kv
	ttl time.Duration
}

func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return newManager(client, cfg)
}

func newManager(store kv, cfg config.JWTConfig) (*Manager, error) {
	ttl := cfg.RefreshTokenTTL()
	access := time.Duration(cfg.ExpirationMinutes) * time.Minute
	if ttl <= 0 {
		return nil, errors.New("refresh token ttl must be positive")
	}
	if ttl <= access {
		return nil, fmt.Errorf("refresh token ttl %s must exceed access token ttl %s", ttl, access)
	}
	return &Manager{kv: store, ttl: ttl}, nil
}

// Open stores a new refresh token for sessionID and returns it.
func (m *Manager) Open(ctx context.Context, sessionID string) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", errors.New("session id is required")
	}
	token, err := newRefreshToken()
	if err != nil {
		return "", err
	}
	if err := m.kv.Set(ctx, m.kv.AccessSessionKey(sessionID), token, m.ttl); err != nil {
		return "", err
	}
	return token, nil
}

// Rotate exchanges a valid refresh token for a new session. The old session
// stops being valid.
func (m *Manager) Rotate(ctx context.Context, sessionID, refreshToken string) (Rotated, error) {
	if strings.TrimSpace(sessionID) == "" || strings.TrimSpace(refreshToken) == "" {
		return Rotated{}, ErrInvalidRefreshToken
	}
	key := m.kv.AccessSessionKey(sessionID)
	stored, err := m.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return Rotated{}, ErrInvalidRefreshToken
		}
		return Rotated{}, err
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(refreshToken)) != 1 {
		return Rotated{}, ErrInvalidRefreshToken
	}

	next := Rotated{SessionID: uuid.NewString()}
	if next.RefreshToken, err = m.Open(ctx, next.SessionID); err != nil {
		return Rotated{}, err
	}
	if err := m.kv.Del(ctx, key); err != nil {
		return Rotated{}, err
	}
	return next, nil
}

func (m *Manager) Revoke(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return errors.New("session id is required")
	}
	return m.kv.Del(ctx, m.kv.AccessSessionKey(sessionID))
}

func (m *Manager) Active(ctx context.Context, sessionID string) (bool, error) {
	if strings.TrimSpace(sessionID) == "" {
		return false, nil
	}
	if _, err := m.kv.Get(ctx, m.kv.AccessSessionKey(sessionID)); err != nil {
		if errors.Is(err, redislib.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func newRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
