package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	roomserrors "hotelbook/internal/rooms/errors"
	"hotelbook/internal/rooms/repository"
	"hotelbook/internal/rooms/validator"
	"hotelbook/pkg/config"
	apperrors "hotelbook/pkg/errors"
	"hotelbook/pkg/model"
	"hotelbook/pkg/sanitizer"
	"hotelbook/pkg/validation"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type RoomService interface {
	ListActive(ctx context.Context) ([]*model.Room, error)
	GetActive(ctx context.Context, id string) (*model.Room, error)
	ListAll(ctx context.Context, limit int, offset int64) ([]*model.Room, int64, error)
	Create(ctx context.Context, room *model.Room) error
	Update(ctx context.Context, id string, updates *model.RoomUpdate) (*model.Room, error)
	SetActive(ctx context.Context, id string, active bool) (*model.Room, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
	CountActive(ctx context.Context) (int64, error)
}

type roomService struct {
	repo      repository.RoomRepository
	validator *validator.RoomValidator
	cfg       *config.Config
	now       func() time.Time
}

func NewRoomService(
	repo repository.RoomRepository,
	validator *validator.RoomValidator,
	cfg *config.Config,
) RoomService {
	return &roomService{
		repo:      repo,
		validator: validator,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *roomService) ListActive(ctx context.Context) ([]*model.Room, error) {
	rooms, err := s.repo.FindActive(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to list active rooms", "error", err)
		return nil, apperrors.StoreError("Failed to retrieve rooms", err)
	}
	return rooms, nil
}

// GetActive hides inactive rooms from guests by reporting them as missing.
func (s *roomService) GetActive(ctx context.Context, id string) (*model.Room, error) {
	room, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !room.IsActive {
		return nil, apperrors.NotFoundWithID("Room", room.ID)
	}
	return room, nil
}

func (s *roomService) get(ctx context.Context, id string) (*model.Room, error) {
	id = sanitizer.NormalizeID(id)
	if id == "" {
		return nil, apperrors.InvalidInput("Room ID cannot be empty")
	}

	room, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapError(err, id)
	}
	return room, nil
}

func (s *roomService) ListAll(ctx context.Context, limit int, offset int64) ([]*model.Room, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var (
		rooms []*model.Room
		count int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rooms, err = s.repo.FindAll(gctx, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to list rooms", "error", err)
			return apperrors.StoreError("Failed to retrieve rooms", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		count, err = s.repo.Count(gctx)
		if err != nil {
			s.cfg.Log.Error("Failed to count rooms", "error", err)
			return apperrors.StoreError("Failed to count rooms", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return rooms, count, nil
}

func (s *roomService) Create(ctx context.Context, room *model.Room) error {
	s.sanitize(room)
	if err := s.validate(room); err != nil {
		return err
	}

	room.ID = uuid.NewString()
	room.CreatedAt = s.now().UTC()

	if err := s.repo.Create(ctx, room); err != nil {
		s.cfg.Log.Error("Failed to create room", "name", room.Name, "error", err)
		return apperrors.StoreError("Failed to create room", err)
	}

	s.cfg.Log.Info("Room created successfully",
		"id", room.ID,
		"name", room.Name,
		"price_per_night", room.PricePerNight,
	)
	return nil
}

func (s *roomService) Update(ctx context.Context, id string, updates *model.RoomUpdate) (*model.Room, error) {
	if updates == nil {
		return nil, apperrors.InvalidInput("Update body is required")
	}
	s.sanitizeUpdate(updates)
	if err := s.validator.ValidateUpdate(updates); err != nil {
		return nil, validationError(err)
	}

	existing, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	merged := mergeRoomUpdates(existing, updates)
	if err := s.validate(merged); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, merged); err != nil {
		return nil, s.mapError(err, merged.ID)
	}

	s.cfg.Log.Info("Room updated successfully", "id", merged.ID)
	return merged, nil
}

func (s *roomService) SetActive(ctx context.Context, id string, active bool) (*model.Room, error) {
	room, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetActive(ctx, room.ID, active); err != nil {
		return nil, s.mapError(err, room.ID)
	}
	room.IsActive = active

	s.cfg.Log.Info("Room availability toggled", "id", room.ID, "is_active", active)
	return room, nil
}

// Delete refuses to remove a room that still has confirmed bookings ending
// today or later. The store checks and deletes atomically.
func (s *roomService) Delete(ctx context.Context, id string) error {
	room, err := s.get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, room.ID, model.TruncateToDate(s.now())); err != nil {
		var active *roomserrors.ActiveBookingsError
		if errors.As(err, &active) {
			return apperrors.Conflict(fmt.Sprintf("Cannot delete room with %d active booking(s)", active.Count)).
				WithDetails(map[string]any{"active_bookings": active.Count})
		}
		return s.mapError(err, room.ID)
	}

	s.cfg.Log.Info("Room deleted successfully", "id", room.ID, "name", room.Name)
	return nil
}

func (s *roomService) Count(ctx context.Context) (int64, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, apperrors.StoreError("Failed to count rooms", err)
	}
	return n, nil
}

func (s *roomService) CountActive(ctx context.Context) (int64, error) {
	n, err := s.repo.CountActive(ctx)
	if err != nil {
		return 0, apperrors.StoreError("Failed to count active rooms", err)
	}
	return n, nil
}

func (s *roomService) mapError(err error, id string) error {
	switch {
	case errors.Is(err, roomserrors.ErrNotFound), errors.Is(err, roomserrors.ErrInvalidID):
		return apperrors.NotFoundWithID("Room", id)
	default:
		s.cfg.Log.Error("Room store failure", "id", id, "error", err)
		return apperrors.StoreError("Failed to access room", err)
	}
}

func (s *roomService) sanitize(room *model.Room) {
	room.Name = sanitizer.NormalizeName(room.Name)
	room.Description = sanitizer.NormalizeDescription(room.Description)
	room.BedType = sanitizer.NormalizeBedType(room.BedType)
}

func (s *roomService) sanitizeUpdate(updates *model.RoomUpdate) {
	if updates.Name != nil {
		v := sanitizer.NormalizeName(*updates.Name)
		updates.Name = &v
	}
	if updates.Description != nil {
		v := sanitizer.NormalizeDescription(*updates.Description)
		updates.Description = &v
	}
	if updates.BedType != nil {
		v := sanitizer.NormalizeBedType(*updates.BedType)
		updates.BedType = &v
	}
}

func (s *roomService) validate(room *model.Room) error {
	if err := s.validator.Validate(room); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation("Room validation failed", verrs.Details())
	}
	return apperrors.InvalidInput(err.Error())
}

func mergeRoomUpdates(existing *model.Room, updates *model.RoomUpdate) *model.Room {
	merged := *existing
	if updates.Name != nil {
		merged.Name = *updates.Name
	}
	if updates.Description != nil {
		merged.Description = *updates.Description
	}
	if updates.BedType != nil {
		merged.BedType = *updates.BedType
	}
	if updates.PricePerNight != nil {
		merged.PricePerNight = *updates.PricePerNight
	}
	if updates.MaxGuests != nil {
		merged.MaxGuests = *updates.MaxGuests
	}
	if updates.IsActive != nil {
		merged.IsActive = *updates.IsActive
	}
	return &merged
}
