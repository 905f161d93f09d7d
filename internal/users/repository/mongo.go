package repository

import (
	"context"
	"errors"
	"fmt"

	userserrors "hotelbook/internal/users/errors"
	"hotelbook/pkg/config"
	mongodb "hotelbook/pkg/db/mongo"
	"hotelbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoProfileRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoProfileRepository(cfg *config.Config) ProfileRepository {
	return &mongoProfileRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(mongodb.CollectionProfiles),
	}
}

func (r *mongoProfileRepository) Upsert(ctx context.Context, p *model.Profile) (*model.Profile, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{
		"$set": bson.M{"full_name": p.FullName},
		"$setOnInsert": bson.M{
			"role":       model.RoleUser,
			"created_at": p.CreatedAt,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var out model.Profile
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": p.ID}, update, opts).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to upsert profile: %w", err)
	}
	return &out, nil
}

func (r *mongoProfileRepository) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var p model.Profile
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, userserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	return &p, nil
}

func (r *mongoProfileRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*model.Profile, error) {
	out := make(map[string]*model.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	profiles, err := r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find())
	if err != nil {
		return nil, err
	}
	for _, p := range profiles {
		out[p.ID] = p
	}
	return out, nil
}

func (r *mongoProfileRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Profile, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)
	return r.find(ctx, bson.M{}, opts)
}

func (r *mongoProfileRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Profile, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer cursor.Close(ctx)

	profiles := []*model.Profile{}
	if err := cursor.All(ctx, &profiles); err != nil {
		return nil, fmt.Errorf("failed to decode profiles: %w", err)
	}
	return profiles, nil
}

func (r *mongoProfileRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	n, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count profiles: %w", err)
	}
	return n, nil
}
