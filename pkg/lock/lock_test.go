package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_ExclusiveUntilReleased(t *testing.T) {
	ctx := context.Background()
	l := NewLocal()

	release, err := l.TryAcquire(ctx, RoomKey("r1"), time.Minute)
	require.NoError(t, err)

	_, err = l.TryAcquire(ctx, RoomKey("r1"), time.Minute)
	assert.ErrorIs(t, err, ErrNotAcquired)

	other, err := l.TryAcquire(ctx, RoomKey("r2"), time.Minute)
	require.NoError(t, err, "different rooms must not contend")
	require.NoError(t, other(ctx))

	require.NoError(t, release(ctx))

	again, err := l.TryAcquire(ctx, RoomKey("r1"), time.Minute)
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestLocal_ExpiredLockIsTakenOver(t *testing.T) {
	ctx := context.Background()
	l := NewLocal()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	stale, err := l.TryAcquire(ctx, "k", time.Second)
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	fresh, err := l.TryAcquire(ctx, "k", time.Second)
	require.NoError(t, err)

	// the stale owner must not release the new owner's lock
	require.NoError(t, stale(ctx))
	_, err = l.TryAcquire(ctx, "k", time.Second)
	assert.ErrorIs(t, err, ErrNotAcquired)

	require.NoError(t, fresh(ctx))
}

func TestAcquire_WaitsForRelease(t *testing.T) {
	ctx := context.Background()
	l := NewLocal()

	release, err := l.TryAcquire(ctx, "k", time.Minute)
	require.NoError(t, err)

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = release(ctx)
	}()

	got, err := Acquire(ctx, l, "k", time.Minute, 2*time.Second)
	require.NoError(t, err)
	require.NoError(t, got(ctx))
}

func TestAcquire_TimesOut(t *testing.T) {
	ctx := context.Background()
	l := NewLocal()

	_, err := l.TryAcquire(ctx, "k", time.Minute)
	require.NoError(t, err)

	_, err = Acquire(ctx, l, "k", time.Minute, 50*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestAcquire_ContextCancelled(t *testing.T) {
	l := NewLocal()
	_, err := l.TryAcquire(context.Background(), "k", time.Minute)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = Acquire(ctx, l, "k", time.Minute, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

type failingLocker struct{}

func (failingLocker) TryAcquire(context.Context, string, time.Duration) (ReleaseFunc, error) {
	return nil, errors.New("connection refused")
}

func TestAcquire_BackendErrorIsNotRetried(t *testing.T) {
	_, err := Acquire(context.Background(), failingLocker{}, "k", time.Minute, time.Second)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestAcquire_MutualExclusion(t *testing.T) {
	ctx := context.Background()
	l := NewLocal()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := Acquire(ctx, l, "room:shared", time.Minute, 5*time.Second)
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			_ = release(ctx)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
}
