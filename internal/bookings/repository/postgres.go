package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	bookingserrors "hotelbook/internal/bookings/errors"
	"hotelbook/pkg/config"
	"hotelbook/pkg/db/postgres"
	"hotelbook/pkg/model"

	"github.com/jmoiron/sqlx"
)

const bookingColumns = `id, room_id, user_id, check_in, check_out, total_price, status, created_at`

const overlapQuery = `
SELECT EXISTS (
	SELECT 1 FROM bookings
	WHERE room_id = $1
	  AND status = 'confirmed'
	  AND check_in < $2
	  AND check_out > $3
)`

type postgresBookingRepository struct {
	cfg       *config.Config
	db        *sqlx.DB
	txManager postgres.TransactionManager
}

func NewPostgresBookingRepository(cfg *config.Config) BookingRepository {
	return &postgresBookingRepository{
		cfg:       cfg,
		db:        cfg.Client.Postgres,
		txManager: postgres.NewTransactionManager(cfg.Client.Postgres),
	}
}

func (r *postgresBookingRepository) HasOverlap(ctx context.Context, roomID string, checkIn, checkOut time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	return hasOverlap(ctx, r.db, roomID, checkIn, checkOut)
}

func hasOverlap(ctx context.Context, q sqlx.QueryerContext, roomID string, checkIn, checkOut time.Time) (bool, error) {
	var exists bool
	if err := sqlx.GetContext(ctx, q, &exists, overlapQuery, roomID, checkOut, checkIn); err != nil {
		if postgres.HasCode(err, postgres.InvalidText) {
			return false, bookingserrors.ErrRoomNotFound
		}
		return false, fmt.Errorf("overlap check: %w", err)
	}
	return exists, nil
}

// CreateIfAvailable locks the room row so concurrent writers for the same
// room queue up behind each other, re-runs the check and inserts. The
// exclusion constraint on bookings rejects anything that slips past.
func (r *postgresBookingRepository) CreateIfAvailable(ctx context.Context, b *model.Booking) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	err := r.txManager.ExecuteTransaction(ctx, func(tx *sqlx.Tx) error {
		var locked string
		if err := tx.GetContext(ctx, &locked, `SELECT id FROM rooms WHERE id = $1 FOR UPDATE`, b.RoomID); err != nil {
			if errors.Is(err, sql.ErrNoRows) || postgres.HasCode(err, postgres.InvalidText) {
				return bookingserrors.ErrRoomNotFound
			}
			return fmt.Errorf("lock room: %w", err)
		}

		overlap, err := hasOverlap(ctx, tx, b.RoomID, b.CheckIn, b.CheckOut)
		if err != nil {
			return err
		}
		if overlap {
			return bookingserrors.ErrOverlap
		}

		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO bookings (`+bookingColumns+`)
			VALUES (:id, :room_id, :user_id, :check_in, :check_out, :total_price, :status, :created_at)`, b)
		if err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		return nil
	})

	switch {
	case err == nil:
		return nil
	case postgres.HasCode(err, postgres.ExclusionViolation):
		return bookingserrors.ErrOverlap
	case postgres.HasCode(err, postgres.ForeignKeyViolation):
		return bookingserrors.ErrRoomNotFound
	default:
		return err
	}
}

func (r *postgresBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var b model.Booking
	err := r.db.GetContext(ctx, &b, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, bookingserrors.ErrNotFound
		}
		if postgres.HasCode(err, postgres.InvalidText) {
			return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return &b, nil
}

func (r *postgresBookingRepository) FindByUser(ctx context.Context, userID string) ([]*model.Booking, error) {
	return r.selectMany(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *postgresBookingRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
	return r.selectMany(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY created_at ASC LIMIT $1 OFFSET $2`, limit, offset)
}

func (r *postgresBookingRepository) FindRecent(ctx context.Context, limit int) ([]*model.Booking, error) {
	return r.selectMany(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY created_at DESC LIMIT $1`, limit)
}

func (r *postgresBookingRepository) selectMany(ctx context.Context, query string, args ...any) ([]*model.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	bookings := []*model.Booking{}
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

func (r *postgresBookingRepository) Count(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM bookings`)
}

func (r *postgresBookingRepository) CountCheckInFrom(ctx context.Context, from time.Time) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM bookings WHERE check_in >= $1`, from)
}

func (r *postgresBookingRepository) count(ctx context.Context, query string, args ...any) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var n int64
	if err := r.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return n, nil
}

func (r *postgresBookingRepository) Cancel(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	var status string
	err := r.db.GetContext(ctx, &status, `
		WITH target AS (SELECT id, status AS before FROM bookings WHERE id = $1),
		     updated AS (
				UPDATE bookings SET status = 'cancelled'
				WHERE id = $1 AND status = 'confirmed'
				RETURNING id
		     )
		SELECT target.before FROM target`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return bookingserrors.ErrNotFound
		}
		if postgres.HasCode(err, postgres.InvalidText) {
			return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
		}
		return fmt.Errorf("failed to cancel booking: %w", err)
	}
	if status != model.BookingStatusConfirmed {
		return bookingserrors.ErrAlreadyCancelled
	}
	return nil
}
