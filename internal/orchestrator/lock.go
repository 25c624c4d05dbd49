package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionLock makes Orchestrator.Run idempotent/restartable across
// process restarts via a SET NX PX distributed lock keyed by session
// id, new relative to the teacher's in-process scheduler but grounded
// on the redis/go-redis/v9 dependency the teacher already carries, here
// used for coordination; the score cache in internal/persistence/scores
// uses go-redis/v8 instead.
type SessionLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionLock constructs a SessionLock holding each acquired lock
// for ttl before it expires on its own if the holder crashes.
func NewSessionLock(client *redis.Client, ttl time.Duration) *SessionLock {
	return &SessionLock{client: client, ttl: ttl}
}

// Acquire attempts to take the lock for sessionID, returning false
// (not an error) if another run already holds it.
func (l *SessionLock) Acquire(ctx context.Context, sessionID string) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockKey(sessionID), "held", l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("session lock acquire: %w", err)
	}
	return ok, nil
}

// Release drops the lock early, letting a retry proceed immediately
// instead of waiting out the full ttl.
func (l *SessionLock) Release(ctx context.Context, sessionID string) error {
	return l.client.Del(ctx, lockKey(sessionID)).Err()
}

func lockKey(sessionID string) string {
	return "session:" + sessionID
}
