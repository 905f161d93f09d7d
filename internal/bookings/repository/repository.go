package repository

import (
	"context"
	"time"

	"hotelbook/pkg/model"
)

// BookingRepository is the booking store. Every implementation must make
// CreateIfAvailable atomic per room: the overlap check and the insert see the
// same state, and two overlapping inserts for one room never both succeed.
type BookingRepository interface {
	// HasOverlap reports whether a confirmed booking for roomID satisfies
	// check_in < checkOut AND check_out > checkIn.
	HasOverlap(ctx context.Context, roomID string, checkIn, checkOut time.Time) (bool, error)
	// CreateIfAvailable inserts booking unless it overlaps a confirmed one,
	// in which case it returns ErrOverlap and writes nothing.
	CreateIfAvailable(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindByUser(ctx context.Context, userID string) ([]*model.Booking, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, error)
	FindRecent(ctx context.Context, limit int) ([]*model.Booking, error)
	Count(ctx context.Context) (int64, error)
	CountCheckInFrom(ctx context.Context, from time.Time) (int64, error)
	// Cancel moves a confirmed booking to cancelled.
	Cancel(ctx context.Context, id string) error
}
