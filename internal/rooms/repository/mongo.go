package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	roomserrors "hotelbook/internal/rooms/errors"
	"hotelbook/pkg/config"
	mongodb "hotelbook/pkg/db/mongo"
	"hotelbook/pkg/lock"
	"hotelbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const releaseTimeout = 5 * time.Second

type mongoRoomRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	bookings   *mongo.Collection
	txManager  mongodb.TransactionManager
	locker     lock.Locker
}

// NewMongoRoomRepository takes the locker the booking store uses so room
// deletion and booking commits exclude each other.
func NewMongoRoomRepository(cfg *config.Config, locker lock.Locker) RoomRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoRoomRepository{
		cfg:        cfg,
		collection: db.Collection(mongodb.CollectionRooms),
		bookings:   db.Collection(mongodb.CollectionBookings),
		txManager:  mongodb.NewTransactionManager(cfg.Client.Mongo),
		locker:     locker,
	}
}

func (r *mongoRoomRepository) Create(ctx context.Context, room *model.Room) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, room); err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}
	return nil
}

func (r *mongoRoomRepository) FindByID(ctx context.Context, id string) (*model.Room, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var room model.Room
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&room); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, roomserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find room: %w", err)
	}
	return &room, nil
}

func (r *mongoRoomRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*model.Room, error) {
	out := make(map[string]*model.Room, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rooms, err := r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find())
	if err != nil {
		return nil, err
	}
	for _, room := range rooms {
		out[room.ID] = room
	}
	return out, nil
}

func (r *mongoRoomRepository) FindActive(ctx context.Context) ([]*model.Room, error) {
	opts := options.Find().SetSort(bson.D{{Key: "price_per_night", Value: 1}, {Key: "name", Value: 1}})
	return r.find(ctx, bson.M{"is_active": true}, opts)
}

func (r *mongoRoomRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Room, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)
	return r.find(ctx, bson.M{}, opts)
}

func (r *mongoRoomRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Room, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer cursor.Close(ctx)

	rooms := []*model.Room{}
	if err := cursor.All(ctx, &rooms); err != nil {
		return nil, fmt.Errorf("failed to decode rooms: %w", err)
	}
	return rooms, nil
}

func (r *mongoRoomRepository) Update(ctx context.Context, room *model.Room) error {
	return r.updateOne(ctx, room.ID, bson.M{
		"name":            room.Name,
		"description":     room.Description,
		"bed_type":        room.BedType,
		"price_per_night": room.PricePerNight,
		"max_guests":      room.MaxGuests,
		"is_active":       room.IsActive,
	})
}

func (r *mongoRoomRepository) SetActive(ctx context.Context, id string, active bool) error {
	return r.updateOne(ctx, id, bson.M{"is_active": active})
}

func (r *mongoRoomRepository) updateOne(ctx context.Context, id string, set bson.M) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update room: %w", err)
	}
	if res.MatchedCount == 0 {
		return roomserrors.ErrNotFound
	}
	return nil
}

// Delete holds the room's booking lock while it counts active bookings and
// removes the room together with its remaining bookings in one transaction.
func (r *mongoRoomRepository) Delete(ctx context.Context, id string, from time.Time) error {
	release, err := lock.Acquire(ctx, r.locker, lock.RoomKey(id), r.cfg.BookingLockTTL, r.cfg.BookingLockWait)
	if err != nil {
		return fmt.Errorf("acquire room lock: %w", err)
	}
	defer func() {
		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if relErr := release(relCtx); relErr != nil {
			r.cfg.Log.Warn("Failed to release room lock", "room_id", id, "error", relErr)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, min(r.cfg.WriteTimeout, r.cfg.BookingLockTTL))
	defer cancel()

	return r.txManager.ExecuteTransaction(ctx, func(sc mongo.SessionContext) error {
		active, err := r.bookings.CountDocuments(sc, bson.M{
			"room_id":   id,
			"status":    model.BookingStatusConfirmed,
			"check_out": bson.M{"$gte": from},
		})
		if err != nil {
			return fmt.Errorf("failed to count room bookings: %w", err)
		}
		if active > 0 {
			return &roomserrors.ActiveBookingsError{Count: active}
		}

		res, err := r.collection.DeleteOne(sc, bson.M{"_id": id})
		if err != nil {
			return fmt.Errorf("failed to delete room: %w", err)
		}
		if res.DeletedCount == 0 {
			return roomserrors.ErrNotFound
		}
		if _, err := r.bookings.DeleteMany(sc, bson.M{"room_id": id}); err != nil {
			return fmt.Errorf("failed to delete room bookings: %w", err)
		}
		return nil
	})
}

func (r *mongoRoomRepository) Count(ctx context.Context) (int64, error) {
	return r.count(ctx, bson.M{})
}

func (r *mongoRoomRepository) CountActive(ctx context.Context) (int64, error) {
	return r.count(ctx, bson.M{"is_active": true})
}

func (r *mongoRoomRepository) count(ctx context.Context, filter bson.M) (int64, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	n, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count rooms: %w", err)
	}
	return n, nil
}
