package lock

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotAcquired is returned by TryAcquire when another owner holds the key.
	ErrNotAcquired = errors.New("lock held by another owner")
	// ErrTimeout is returned by Acquire when the wait budget runs out.
	ErrTimeout = errors.New("timed out waiting for lock")
)

const (
	initialBackoff = 10 * time.Millisecond
	maxBackoff     = 200 * time.Millisecond
)

// ReleaseFunc frees a held lock. It only removes the lock if the caller
// still owns it.
type ReleaseFunc func(ctx context.Context) error

// Locker grants exclusive, expiring ownership of a key.
type Locker interface {
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (ReleaseFunc, error)
}

// Acquire retries TryAcquire with capped exponential backoff until the lock
// is granted, wait elapses, or ctx is done.
func Acquire(ctx context.Context, l Locker, key string, ttl, wait time.Duration) (ReleaseFunc, error) {
	deadline := time.Now().Add(wait)
	backoff := initialBackoff

	for {
		release, err := l.TryAcquire(ctx, key, ttl)
		if err == nil {
			return release, nil
		}
		if !errors.Is(err, ErrNotAcquired) {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("acquire %s: %w", key, ErrTimeout)
		}

		timer := time.NewTimer(min(backoff, remaining))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// RoomKey scopes a lock to a single room.
func RoomKey(roomID string) string {
	return "room:" + roomID
}
