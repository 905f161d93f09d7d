package service

import (
	"context"

	"hotelbook/pkg/config"
	"hotelbook/pkg/model"

	"golang.org/x/sync/errgroup"
)

const recentBookingsLimit = 3

type RoomStats interface {
	Count(ctx context.Context) (int64, error)
	CountActive(ctx context.Context) (int64, error)
}

type UserStats interface {
	Count(ctx context.Context) (int64, error)
}

type BookingStats interface {
	Count(ctx context.Context) (int64, error)
	CountUpcoming(ctx context.Context) (int64, error)
	Recent(ctx context.Context, limit int) ([]*model.BookingDetails, error)
}

type DashboardService interface {
	Stats(ctx context.Context) (*model.DashboardStats, error)
}

type dashboardService struct {
	rooms    RoomStats
	users    UserStats
	bookings BookingStats
	cfg      *config.Config
}

func NewDashboardService(rooms RoomStats, users UserStats, bookings BookingStats, cfg *config.Config) DashboardService {
	return &dashboardService{
		rooms:    rooms,
		users:    users,
		bookings: bookings,
		cfg:      cfg,
	}
}

// Stats gathers every figure concurrently and fails if any of them fails.
func (s *dashboardService) Stats(ctx context.Context) (*model.DashboardStats, error) {
	stats := &model.DashboardStats{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.TotalRooms, err = s.rooms.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.ActiveRooms, err = s.rooms.CountActive(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.TotalUsers, err = s.users.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.TotalBookings, err = s.bookings.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.UpcomingBookings, err = s.bookings.CountUpcoming(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.RecentBookings, err = s.bookings.Recent(gctx, recentBookingsLimit)
		return err
	})

	if err := g.Wait(); err != nil {
		s.cfg.Log.Error("Failed to gather dashboard stats", "error", err)
		return nil, err
	}
	return stats, nil
}
