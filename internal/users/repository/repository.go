package repository

import (
	"context"

	"hotelbook/pkg/model"
)

type ProfileRepository interface {
	// Upsert creates the profile as a plain user or updates its name. The
	// stored role is never changed by an upsert.
	Upsert(ctx context.Context, profile *model.Profile) (*model.Profile, error)
	FindByID(ctx context.Context, id string) (*model.Profile, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]*model.Profile, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Profile, error)
	Count(ctx context.Context) (int64, error)
}
