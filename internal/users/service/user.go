package service

import (
	"context"
	"errors"
	"time"

	userserrors "hotelbook/internal/users/errors"
	"hotelbook/internal/users/repository"
	"hotelbook/pkg/config"
	apperrors "hotelbook/pkg/errors"
	"hotelbook/pkg/model"
	"hotelbook/pkg/sanitizer"
	"hotelbook/pkg/validation"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
)

type UserService interface {
	List(ctx context.Context, limit int, offset int64) ([]*model.Profile, int64, error)
	GetRole(ctx context.Context, userID string) (string, error)
	UpsertMine(ctx context.Context, userID, fullName string) (*model.Profile, error)
	Count(ctx context.Context) (int64, error)
}

type userService struct {
	repo     repository.ProfileRepository
	validate *validator.Validate
	cfg      *config.Config
	now      func() time.Time
}

func NewUserService(repo repository.ProfileRepository, cfg *config.Config) UserService {
	return &userService{
		repo:     repo,
		validate: validation.New(),
		cfg:      cfg,
		now:      time.Now,
	}
}

func (s *userService) List(ctx context.Context, limit int, offset int64) ([]*model.Profile, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var (
		profiles []*model.Profile
		count    int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profiles, err = s.repo.FindAll(gctx, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to list profiles", "error", err)
			return apperrors.StoreError("Failed to retrieve users", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		count, err = s.repo.Count(gctx)
		if err != nil {
			s.cfg.Log.Error("Failed to count profiles", "error", err)
			return apperrors.StoreError("Failed to count users", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return profiles, count, nil
}

// GetRole returns the stored role. A user without a profile is a plain user.
func (s *userService) GetRole(ctx context.Context, userID string) (string, error) {
	p, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return model.RoleUser, nil
		}
		return "", err
	}
	return p.Role, nil
}

func (s *userService) UpsertMine(ctx context.Context, userID, fullName string) (*model.Profile, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("You must be signed in to update your profile")
	}

	p := &model.Profile{
		ID:        userID,
		FullName:  sanitizer.NormalizeName(fullName),
		Role:      model.RoleUser,
		CreatedAt: s.now().UTC(),
	}
	if err := validation.Struct(s.validate, p); err != nil {
		var verrs validation.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, apperrors.Validation("Profile validation failed", verrs.Details())
		}
		return nil, apperrors.InvalidInput(err.Error())
	}

	saved, err := s.repo.Upsert(ctx, p)
	if err != nil {
		s.cfg.Log.Error("Failed to save profile", "user_id", userID, "error", err)
		return nil, apperrors.StoreError("Failed to save profile", err)
	}

	s.cfg.Log.Info("Profile saved", "user_id", userID)
	return saved, nil
}

func (s *userService) Count(ctx context.Context) (int64, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, apperrors.StoreError("Failed to count users", err)
	}
	return n, nil
}
