// Package tokenstore persists the session token across process restarts.
package tokenstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"travelplanner/internal/config"
)

// TokenKey is the storage key holding the bearer token.
const TokenKey = "token"

// Storage is a small string key-value store.
type Storage interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Delete removes key; deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Open builds the storage backend selected in cfg.
func Open(cfg config.StorageConfig) (Storage, error) {
	switch cfg.Backend {
	case config.BackendFile, "":
		return NewFileStorage(cfg.Path), nil
	case config.BackendRedis:
		return NewRedisStorage(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisPrefix), nil
	case config.BackendPostgres:
		return NewGormStorage(cfg.DatabaseURL)
	case config.BackendMemory:
		return NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}

// LoadToken reads the persisted token. A token that is a JWT whose exp claim
// has passed is deleted and reported as absent.
func LoadToken(ctx context.Context, s Storage, now time.Time) (string, error) {
	token, ok, err := s.Get(ctx, TokenKey)
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	if !ok || token == "" {
		return "", nil
	}
	if Expired(token, now) {
		slog.Info("discarding expired session token")
		if err := s.Delete(ctx, TokenKey); err != nil {
			return "", fmt.Errorf("delete expired token: %w", err)
		}
		return "", nil
	}
	return token, nil
}

// Expired reports whether token is a JWT with an exp claim before now.
// Signatures are not checked; opaque tokens never expire here.
func Expired(token string, now time.Time) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}
