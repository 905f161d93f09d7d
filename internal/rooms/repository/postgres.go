package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	roomserrors "hotelbook/internal/rooms/errors"
	"hotelbook/pkg/config"
	"hotelbook/pkg/db/postgres"
	"hotelbook/pkg/model"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const roomColumns = `id, name, description, bed_type, price_per_night, max_guests, is_active, created_at`

type postgresRoomRepository struct {
	cfg       *config.Config
	db        *sqlx.DB
	txManager postgres.TransactionManager
}

func NewPostgresRoomRepository(cfg *config.Config) RoomRepository {
	return &postgresRoomRepository{
		cfg:       cfg,
		db:        cfg.Client.Postgres,
		txManager: postgres.NewTransactionManager(cfg.Client.Postgres),
	}
}

func (r *postgresRoomRepository) Create(ctx context.Context, room *model.Room) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO rooms (`+roomColumns+`)
		VALUES (:id, :name, :description, :bed_type, :price_per_night, :max_guests, :is_active, :created_at)`, room)
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}
	return nil
}

func (r *postgresRoomRepository) FindByID(ctx context.Context, id string) (*model.Room, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var room model.Room
	if err := r.db.GetContext(ctx, &room, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id); err != nil {
		return nil, mapLookupError(err, id)
	}
	return &room, nil
}

func (r *postgresRoomRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*model.Room, error) {
	out := make(map[string]*model.Room, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rooms, err := r.selectMany(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id::text = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	for _, room := range rooms {
		out[room.ID] = room
	}
	return out, nil
}

func (r *postgresRoomRepository) FindActive(ctx context.Context) ([]*model.Room, error) {
	return r.selectMany(ctx, `SELECT `+roomColumns+` FROM rooms WHERE is_active ORDER BY price_per_night ASC, name ASC`)
}

func (r *postgresRoomRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Room, error) {
	return r.selectMany(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
}

func (r *postgresRoomRepository) selectMany(ctx context.Context, query string, args ...any) ([]*model.Room, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	rooms := []*model.Room{}
	if err := r.db.SelectContext(ctx, &rooms, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return rooms, nil
}

func (r *postgresRoomRepository) Update(ctx context.Context, room *model.Room) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	res, err := r.db.NamedExecContext(ctx, `
		UPDATE rooms SET
			name = :name,
			description = :description,
			bed_type = :bed_type,
			price_per_night = :price_per_night,
			max_guests = :max_guests,
			is_active = :is_active
		WHERE id = :id`, room)
	if err != nil {
		return mapLookupError(err, room.ID)
	}
	return expectOne(res)
}

func (r *postgresRoomRepository) SetActive(ctx context.Context, id string, active bool) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `UPDATE rooms SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return mapLookupError(err, id)
	}
	return expectOne(res)
}

// Delete locks the room row, the same lock a booking commit takes, so no
// booking can land between the count and the delete. Cancelled and past
// bookings go with the room (ON DELETE CASCADE).
func (r *postgresRoomRepository) Delete(ctx context.Context, id string, from time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	return r.txManager.ExecuteTransaction(ctx, func(tx *sqlx.Tx) error {
		var locked string
		if err := tx.GetContext(ctx, &locked, `SELECT id FROM rooms WHERE id = $1 FOR UPDATE`, id); err != nil {
			return mapLookupError(err, id)
		}

		var active int64
		if err := tx.GetContext(ctx, &active, `
			SELECT COUNT(*) FROM bookings
			WHERE room_id = $1 AND status = 'confirmed' AND check_out >= $2`, id, from); err != nil {
			return fmt.Errorf("count room bookings: %w", err)
		}
		if active > 0 {
			return &roomserrors.ActiveBookingsError{Count: active}
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE id = $1`, id)
		if err != nil {
			return mapLookupError(err, id)
		}
		return expectOne(res)
	})
}

func (r *postgresRoomRepository) Count(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM rooms`)
}

func (r *postgresRoomRepository) CountActive(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM rooms WHERE is_active`)
}

func (r *postgresRoomRepository) count(ctx context.Context, query string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var n int64
	if err := r.db.GetContext(ctx, &n, query); err != nil {
		return 0, fmt.Errorf("failed to count rooms: %w", err)
	}
	return n, nil
}

func mapLookupError(err error, id string) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return roomserrors.ErrNotFound
	case postgres.HasCode(err, postgres.InvalidText):
		return fmt.Errorf("%w: %s", roomserrors.ErrInvalidID, id)
	default:
		return fmt.Errorf("room %s: %w", id, err)
	}
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return roomserrors.ErrNotFound
	}
	return nil
}
