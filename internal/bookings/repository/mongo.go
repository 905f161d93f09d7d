package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "hotelbook/internal/bookings/errors"
	"hotelbook/pkg/config"
	mongodb "hotelbook/pkg/db/mongo"
	"hotelbook/pkg/lock"
	"hotelbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const releaseTimeout = 5 * time.Second

type mongoBookingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	rooms      *mongo.Collection
	txManager  mongodb.TransactionManager
	locker     lock.Locker
}

func NewMongoBookingRepository(cfg *config.Config, locker lock.Locker) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		collection: db.Collection(mongodb.CollectionBookings),
		rooms:      db.Collection(mongodb.CollectionRooms),
		txManager:  mongodb.NewTransactionManager(cfg.Client.Mongo),
		locker:     locker,
	}
}

func overlapFilter(roomID string, checkIn, checkOut time.Time) bson.M {
	return bson.M{
		"room_id":   roomID,
		"status":    model.BookingStatusConfirmed,
		"check_in":  bson.M{"$lt": checkOut},
		"check_out": bson.M{"$gt": checkIn},
	}
}

func (r *mongoBookingRepository) HasOverlap(ctx context.Context, roomID string, checkIn, checkOut time.Time) (bool, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	n, err := r.collection.CountDocuments(ctx, overlapFilter(roomID, checkIn, checkOut), options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("overlap check: %w", err)
	}
	return n > 0, nil
}

// CreateIfAvailable holds the room lock across a snapshot transaction that
// checks and inserts. Writers for other rooms take other locks.
func (r *mongoBookingRepository) CreateIfAvailable(ctx context.Context, b *model.Booking) error {
	release, err := lock.Acquire(ctx, r.locker, lock.RoomKey(b.RoomID), r.cfg.BookingLockTTL, r.cfg.BookingLockWait)
	if err != nil {
		if errors.Is(err, lock.ErrTimeout) {
			return bookingserrors.ErrLockTimeout
		}
		return fmt.Errorf("acquire room lock: %w", err)
	}
	defer func() {
		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if relErr := release(relCtx); relErr != nil {
			r.cfg.Log.Warn("Failed to release room lock", "room_id", b.RoomID, "error", relErr)
		}
	}()

	// The transaction must finish while the lock is still held.
	ctx, cancel := context.WithTimeout(ctx, min(r.cfg.WriteTimeout, r.cfg.BookingLockTTL))
	defer cancel()

	return r.txManager.ExecuteTransaction(ctx, func(sc mongo.SessionContext) error {
		if err := r.rooms.FindOne(sc, bson.M{"_id": b.RoomID}).Err(); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return bookingserrors.ErrRoomNotFound
			}
			return fmt.Errorf("find room: %w", err)
		}

		overlap, err := r.HasOverlap(sc, b.RoomID, b.CheckIn, b.CheckOut)
		if err != nil {
			return err
		}
		if overlap {
			return bookingserrors.ErrOverlap
		}

		if _, err := r.collection.InsertOne(sc, b); err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		return nil
	})
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var b model.Booking
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return &b, nil
}

func (r *mongoBookingRepository) FindByUser(ctx context.Context, userID string) ([]*model.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.find(ctx, bson.M{"user_id": userID}, opts)
}

func (r *mongoBookingRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)
	return r.find(ctx, bson.M{}, opts)
}

func (r *mongoBookingRepository) FindRecent(ctx context.Context, limit int) ([]*model.Booking, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	return r.find(ctx, bson.M{}, opts)
}

func (r *mongoBookingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Booking, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := []*model.Booking{}
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

func (r *mongoBookingRepository) Count(ctx context.Context) (int64, error) {
	return r.count(ctx, bson.M{})
}

func (r *mongoBookingRepository) CountCheckInFrom(ctx context.Context, from time.Time) (int64, error) {
	return r.count(ctx, bson.M{"check_in": bson.M{"$gte": from}})
}

func (r *mongoBookingRepository) count(ctx context.Context, filter bson.M) (int64, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	n, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return n, nil
}

func (r *mongoBookingRepository) Cancel(ctx context.Context, id string) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": model.BookingStatusConfirmed},
		bson.M{"$set": bson.M{"status": model.BookingStatusCancelled}},
	)
	if err != nil {
		return fmt.Errorf("failed to cancel booking: %w", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	if _, err := r.FindByID(ctx, id); err != nil {
		return err
	}
	return bookingserrors.ErrAlreadyCancelled
}
