package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	bookingserrors "hotelbook/internal/bookings/errors"
	"hotelbook/pkg/lock"
	"hotelbook/pkg/model"
)

const memoryLockTTL = 30 * time.Second

// memoryBookingRepository keeps bookings in process. Writers for one room are
// serialised by a per-room lock; the map itself is guarded separately so
// readers and other rooms never wait on a commit.
type memoryBookingRepository struct {
	mu       sync.RWMutex
	bookings map[string]*model.Booking
	locker   *lock.Local
}

func NewMemoryBookingRepository() BookingRepository {
	return &memoryBookingRepository{
		bookings: make(map[string]*model.Booking),
		locker:   lock.NewLocal(),
	}
}

func (r *memoryBookingRepository) HasOverlap(_ context.Context, roomID string, checkIn, checkOut time.Time) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.overlapLocked(roomID, checkIn, checkOut), nil
}

func (r *memoryBookingRepository) overlapLocked(roomID string, checkIn, checkOut time.Time) bool {
	for _, b := range r.bookings {
		if b.RoomID != roomID || !b.IsConfirmed() {
			continue
		}
		if model.Overlaps(b.CheckIn, b.CheckOut, checkIn, checkOut) {
			return true
		}
	}
	return false
}

func (r *memoryBookingRepository) CreateIfAvailable(ctx context.Context, b *model.Booking) error {
	release, err := lock.Acquire(ctx, r.locker, lock.RoomKey(b.RoomID), memoryLockTTL, memoryLockTTL)
	if err != nil {
		return bookingserrors.ErrLockTimeout
	}
	defer release(context.Background())

	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.overlapLocked(b.RoomID, b.CheckIn, b.CheckOut) {
		return bookingserrors.ErrOverlap
	}
	stored := *b
	r.bookings[b.ID] = &stored
	return nil
}

func (r *memoryBookingRepository) FindByID(_ context.Context, id string) (*model.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	out := *b
	return &out, nil
}

func (r *memoryBookingRepository) FindByUser(_ context.Context, userID string) ([]*model.Booking, error) {
	out := r.filter(func(b *model.Booking) bool { return b.UserID == userID })
	sortByCreated(out, true)
	return out, nil
}

func (r *memoryBookingRepository) FindAll(_ context.Context, limit int, offset int64) ([]*model.Booking, error) {
	out := r.filter(func(*model.Booking) bool { return true })
	sortByCreated(out, false)
	return page(out, limit, offset), nil
}

func (r *memoryBookingRepository) FindRecent(_ context.Context, limit int) ([]*model.Booking, error) {
	out := r.filter(func(*model.Booking) bool { return true })
	sortByCreated(out, true)
	return page(out, limit, 0), nil
}

func (r *memoryBookingRepository) Count(_ context.Context) (int64, error) {
	return int64(len(r.filter(func(*model.Booking) bool { return true }))), nil
}

func (r *memoryBookingRepository) CountCheckInFrom(_ context.Context, from time.Time) (int64, error) {
	return int64(len(r.filter(func(b *model.Booking) bool { return !b.CheckIn.Before(from) }))), nil
}

func (r *memoryBookingRepository) Cancel(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return bookingserrors.ErrNotFound
	}
	if !b.IsConfirmed() {
		return bookingserrors.ErrAlreadyCancelled
	}
	b.Status = model.BookingStatusCancelled
	return nil
}

func (r *memoryBookingRepository) filter(keep func(*model.Booking) bool) []*model.Booking {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*model.Booking{}
	for _, b := range r.bookings {
		if keep(b) {
			c := *b
			out = append(out, &c)
		}
	}
	return out
}

func sortByCreated(bookings []*model.Booking, desc bool) {
	sort.SliceStable(bookings, func(i, j int) bool {
		if bookings[i].CreatedAt.Equal(bookings[j].CreatedAt) {
			return bookings[i].ID < bookings[j].ID
		}
		if desc {
			return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
		}
		return bookings[i].CreatedAt.Before(bookings[j].CreatedAt)
	})
}

func page(bookings []*model.Booking, limit int, offset int64) []*model.Booking {
	if offset >= int64(len(bookings)) {
		return []*model.Booking{}
	}
	bookings = bookings[offset:]
	if limit > 0 && limit < len(bookings) {
		bookings = bookings[:limit]
	}
	return bookings
}
