package repository

import (
	"context"
	"time"

	"hotelbook/pkg/model"
)

type RoomRepository interface {
	Create(ctx context.Context, room *model.Room) error
	FindByID(ctx context.Context, id string) (*model.Room, error)
	// FindByIDs returns the rooms that exist, keyed by id. Unknown ids are
	// skipped.
	FindByIDs(ctx context.Context, ids []string) (map[string]*model.Room, error)
	// FindActive lists bookable rooms, cheapest first.
	FindActive(ctx context.Context) ([]*model.Room, error)
	// FindAll lists every room, newest first.
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Room, error)
	Update(ctx context.Context, room *model.Room) error
	SetActive(ctx context.Context, id string, active bool) error
	// Delete removes the room unless a confirmed booking ending on or after
	// from still holds it, in which case it returns *ActiveBookingsError.
	// The check and the delete are atomic against booking commits.
	Delete(ctx context.Context, id string, from time.Time) error
	Count(ctx context.Context) (int64, error)
	CountActive(ctx context.Context) (int64, error)
}
