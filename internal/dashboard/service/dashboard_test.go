package service

import (
	"context"
	"testing"

	"hotelbook/pkg/config"
	apperrors "hotelbook/pkg/errors"
	"hotelbook/pkg/logger"
	"hotelbook/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRooms struct{ total, active int64 }

func (f fakeRooms) Count(context.Context) (int64, error)       { return f.total, nil }
func (f fakeRooms) CountActive(context.Context) (int64, error) { return f.active, nil }

type fakeUsers struct {
	total int64
	err   error
}

func (f fakeUsers) Count(context.Context) (int64, error) { return f.total, f.err }

type fakeBookings struct {
	recentLimit *int
}

func (f fakeBookings) Count(context.Context) (int64, error)         { return 9, nil }
func (f fakeBookings) CountUpcoming(context.Context) (int64, error) { return 4, nil }
func (f fakeBookings) Recent(_ context.Context, limit int) ([]*model.BookingDetails, error) {
	*f.recentLimit = limit
	return []*model.BookingDetails{{Booking: &model.Booking{ID: "b1"}}}, nil
}

func TestStats(t *testing.T) {
	var limit int
	cfg := &config.Config{Log: logger.Discard()}
	svc := NewDashboardService(fakeRooms{total: 5, active: 3}, fakeUsers{total: 12}, fakeBookings{recentLimit: &limit}, cfg)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.TotalRooms)
	assert.Equal(t, int64(3), stats.ActiveRooms)
	assert.Equal(t, int64(12), stats.TotalUsers)
	assert.Equal(t, int64(9), stats.TotalBookings)
	assert.Equal(t, int64(4), stats.UpcomingBookings)
	assert.Len(t, stats.RecentBookings, 1)
	assert.Equal(t, 3, limit)
}

func TestStats_PropagatesFailure(t *testing.T) {
	var limit int
	cfg := &config.Config{Log: logger.Discard()}
	failing := fakeUsers{err: apperrors.StoreError("Failed to count users", nil)}
	svc := NewDashboardService(fakeRooms{}, failing, fakeBookings{recentLimit: &limit}, cfg)

	_, err := svc.Stats(context.Background())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeStoreError))
}
