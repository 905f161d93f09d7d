package mongo

import (
	"context"
	"fmt"

	"hotelbook/internal/migrations/mongo/validators"
	mongodb "hotelbook/pkg/db/mongo"
	"hotelbook/pkg/lock"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Printf reports progress to the operator.
type Printf func(format string, args ...any)

var (
	RoomsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "is_active", Value: 1}, {Key: "price_per_night", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}

	BookingsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "room_id", Value: 1},
			{Key: "status", Value: 1},
			{Key: "check_in", Value: 1},
			{Key: "check_out", Value: 1},
		}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "created_at", Value: 1}}},
	}

	ProfilesIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}

	// expired locks are also taken over by the locker; the TTL index only
	// keeps the collection small
	BookingLocksIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}
)

type collectionDef struct {
	Indexes   []mongo.IndexModel
	Validator bson.M
}

func RunMigration(ctx context.Context, db *mongo.Database, printf Printf) error {
	printf("Running hotelbook Mongo migrations on database: %s\n", db.Name())

	collections := map[string]collectionDef{
		mongodb.CollectionRooms: {
			Indexes:   RoomsIndexes,
			Validator: validators.RoomValidator,
		},
		mongodb.CollectionBookings: {
			Indexes:   BookingsIndexes,
			Validator: validators.BookingValidator,
		},
		mongodb.CollectionProfiles: {
			Indexes:   ProfilesIndexes,
			Validator: validators.ProfileValidator,
		},
		lock.LockCollection: {
			Indexes:   BookingLocksIndexes,
			Validator: validators.BookingLockValidator,
		},
	}

	for name, def := range collections {
		if err := ensureCollection(ctx, db, name, def.Validator, printf); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes, printf); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	printf("All Mongo migrations applied successfully.\n")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, printf Printf) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		printf("Creating collection: %s\n", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	printf("Collection %s already exists, updating validator\n", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		printf("Warning: failed updating validator for %s: %v\n", name, err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, printf Printf) error {
	if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
		return err
	}
	printf("Ensured indexes for %s\n", name)
	return nil
}
