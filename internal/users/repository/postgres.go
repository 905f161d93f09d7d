package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	userserrors "hotelbook/internal/users/errors"
	"hotelbook/pkg/config"
	"hotelbook/pkg/model"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const profileColumns = `id, full_name, role, created_at`

type postgresProfileRepository struct {
	cfg *config.Config
	db  *sqlx.DB
}

func NewPostgresProfileRepository(cfg *config.Config) ProfileRepository {
	return &postgresProfileRepository{
		cfg: cfg,
		db:  cfg.Client.Postgres,
	}
}

func (r *postgresProfileRepository) Upsert(ctx context.Context, p *model.Profile) (*model.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	var out model.Profile
	err := r.db.GetContext(ctx, &out, `
		INSERT INTO profiles (id, full_name, role, created_at)
		VALUES ($1, $2, 'user', $3)
		ON CONFLICT (id) DO UPDATE SET full_name = EXCLUDED.full_name
		RETURNING `+profileColumns, p.ID, p.FullName, p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert profile: %w", err)
	}
	return &out, nil
}

func (r *postgresProfileRepository) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var p model.Profile
	if err := r.db.GetContext(ctx, &p, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, userserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	return &p, nil
}

func (r *postgresProfileRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*model.Profile, error) {
	out := make(map[string]*model.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	profiles, err := r.selectMany(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	for _, p := range profiles {
		out[p.ID] = p
	}
	return out, nil
}

func (r *postgresProfileRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Profile, error) {
	return r.selectMany(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
}

func (r *postgresProfileRepository) selectMany(ctx context.Context, query string, args ...any) ([]*model.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	profiles := []*model.Profile{}
	if err := r.db.SelectContext(ctx, &profiles, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return profiles, nil
}

func (r *postgresProfileRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var n int64
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM profiles`); err != nil {
		return 0, fmt.Errorf("failed to count profiles: %w", err)
	}
	return n, nil
}
