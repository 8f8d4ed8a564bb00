package session

import (
	"context"
	"errors"
	"time"
)

var ErrSessionNotFound = errors.New("session not found")

// Backend persists serialized session values keyed by session id.
// Get returns ErrSessionNotFound for unknown or expired ids.
type Backend interface {
	Get(ctx context.Context, id string) ([]byte, error)
	Set(ctx context.Context, id string, data []byte, expiresAt time.Time) error
	Destroy(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context) (int64, error)
}
