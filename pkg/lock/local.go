package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type localEntry struct {
	owner     string
	expiresAt time.Time
}

// Local is an in-process Locker. It is used by the in-memory store and in
// tests; it gives no protection across processes.
type Local struct {
	mu      sync.Mutex
	entries map[string]localEntry
	now     func() time.Time
}

func NewLocal() *Local {
	return &Local{
		entries: make(map[string]localEntry),
		now:     time.Now,
	}
}

func (l *Local) TryAcquire(_ context.Context, key string, ttl time.Duration) (ReleaseFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if e, ok := l.entries[key]; ok && now.Before(e.expiresAt) {
		return nil, ErrNotAcquired
	}

	owner := uuid.NewString()
	l.entries[key] = localEntry{owner: owner, expiresAt: now.Add(ttl)}

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if e, ok := l.entries[key]; ok && e.owner == owner {
			delete(l.entries, key)
		}
		return nil
	}, nil
}
