package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const LockCollection = "Booking_locks"

type lockDocument struct {
	Key       string    `bson:"_id"`
	Owner     string    `bson:"owner"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

// Mongo keeps one document per held key. The unique _id makes a second
// insert fail with a duplicate key error; a TTL index on expires_at reaps
// abandoned locks, and expired ones are taken over on acquire.
type Mongo struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{
		collection: db.Collection(LockCollection),
		now:        time.Now,
	}
}

func (m *Mongo) TryAcquire(ctx context.Context, key string, ttl time.Duration) (ReleaseFunc, error) {
	now := m.now().UTC()
	owner := uuid.NewString()

	_, err := m.collection.InsertOne(ctx, lockDocument{
		Key:       key,
		Owner:     owner,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	})
	if err != nil {
		if !mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("insert lock: %w", err)
		}
		stolen, err := m.takeExpired(ctx, key, owner, now, ttl)
		if err != nil {
			return nil, err
		}
		if !stolen {
			return nil, ErrNotAcquired
		}
	}

	return func(ctx context.Context) error {
		if _, err := m.collection.DeleteOne(ctx, bson.M{"_id": key, "owner": owner}); err != nil {
			return fmt.Errorf("delete lock: %w", err)
		}
		return nil
	}, nil
}

func (m *Mongo) takeExpired(ctx context.Context, key, owner string, now time.Time, ttl time.Duration) (bool, error) {
	res, err := m.collection.UpdateOne(ctx,
		bson.M{"_id": key, "expires_at": bson.M{"$lte": now}},
		bson.M{"$set": bson.M{"owner": owner, "expires_at": now.Add(ttl), "created_at": now}},
	)
	if err != nil {
		return false, fmt.Errorf("take over expired lock: %w", err)
	}
	return res.ModifiedCount == 1, nil
}
