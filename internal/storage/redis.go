package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/hcx1999/AIgame/pkg/state"
)

// Session snapshots expire a day after the last write; the core's
// contract is in-memory for the session lifetime, this is advisory.
const sessionTTL = 24 * time.Hour

// SessionStore persists world snapshots to Redis so an observer or a
// post-mortem tool can read back a session's state.
type SessionStore struct {
	client *redis.Client
	logger *slog.Logger
}

// NewSessionStore creates a Redis-backed session store.
func NewSessionStore(client *redis.Client, logger *slog.Logger) *SessionStore {
	return &SessionStore{
		client: client,
		logger: logger,
	}
}

func sessionKey(id uuid.UUID) string {
	return fmt.Sprintf("session:%s", id.String())
}

// SaveWorldState stores a snapshot of the world under its session key.
func (s *SessionStore) SaveWorldState(ctx context.Context, ws *state.WorldState) error {
	data, err := json.Marshal(ws)
	if err != nil {
		return fmt.Errorf("failed to marshal world state: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(ws.ID), data, sessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to save world state: %w", err)
	}
	return nil
}

// LoadWorldState reads a stored snapshot. Returns (nil, nil) when the
// session is unknown.
func (s *SessionStore) LoadWorldState(ctx context.Context, id uuid.UUID) (*state.WorldState, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load world state: %w", err)
	}
	var ws state.WorldState
	if err := json.Unmarshal([]byte(data), &ws); err != nil {
		return nil, fmt.Errorf("failed to unmarshal world state: %w", err)
	}
	return &ws, nil
}

// Ping checks the Redis connection.
func (s *SessionStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the underlying Redis connection.
func (s *SessionStore) Close() error {
	if err := s.client.Close(); err != nil {
		s.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	s.logger.Info("Redis connection closed")
	return nil
}
