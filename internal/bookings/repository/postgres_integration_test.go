package repository

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	bookingserrors "hotelbook/internal/bookings/errors"
	postgresMigration "hotelbook/internal/migrations/postgres"
	"hotelbook/pkg/client"
	"hotelbook/pkg/config"
	"hotelbook/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real database when TEST_POSTGRES_DSN is set.
func newPostgresTestRepository(t *testing.T) (BookingRepository, string) {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	log := logger.Discard()
	cfg := &config.Config{
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		Log:          log,
		Client:       client.NewClient(),
	}
	cfg.Client.SetPostgres(log, dsn, 10, 10*time.Second)
	t.Cleanup(func() { cfg.Client.GracefulShutdown(log) })

	ctx := context.Background()
	require.NoError(t, postgresMigration.RunMigration(ctx, cfg.Client.Postgres, t.Logf))

	roomID := uuid.NewString()
	_, err := cfg.Client.Postgres.ExecContext(ctx,
		`INSERT INTO rooms (id, name, price_per_night, max_guests) VALUES ($1, $2, $3, $4)`,
		roomID, "Integration Room", 10000, 2)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = cfg.Client.Postgres.ExecContext(context.Background(), `DELETE FROM rooms WHERE id = $1`, roomID)
	})

	return NewPostgresBookingRepository(cfg), roomID
}

func TestPostgresRepository_HalfOpenRanges(t *testing.T) {
	repo, roomID := newPostgresTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateIfAvailable(ctx, newBooking(uuid.NewString(), roomID, "2024-01-01", "2024-01-05")))
	require.NoError(t, repo.CreateIfAvailable(ctx, newBooking(uuid.NewString(), roomID, "2024-01-05", "2024-01-10")))

	err := repo.CreateIfAvailable(ctx, newBooking(uuid.NewString(), roomID, "2024-01-03", "2024-01-07"))
	assert.ErrorIs(t, err, bookingserrors.ErrOverlap)

	overlap, err := repo.HasOverlap(ctx, roomID, day("2024-01-10"), day("2024-01-12"))
	require.NoError(t, err)
	assert.False(t, overlap)
}

func TestPostgresRepository_UnknownRoom(t *testing.T) {
	repo, _ := newPostgresTestRepository(t)

	err := repo.CreateIfAvailable(context.Background(), newBooking(uuid.NewString(), uuid.NewString(), "2024-01-01", "2024-01-02"))
	assert.ErrorIs(t, err, bookingserrors.ErrRoomNotFound)
}

func TestPostgresRepository_ConcurrentInsertsOneWins(t *testing.T) {
	repo, roomID := newPostgresTestRepository(t)

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		conflicts atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.CreateIfAvailable(context.Background(), newBooking(uuid.NewString(), roomID, "2024-02-01", "2024-02-03"))
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, bookingserrors.ErrOverlap):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(7), conflicts.Load())
}
