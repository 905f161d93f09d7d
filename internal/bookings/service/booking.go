package service

import (
	"context"
	"errors"
	"time"

	"hotelbook/internal/bookings/cache"
	bookingserrors "hotelbook/internal/bookings/errors"
	"hotelbook/internal/bookings/events"
	"hotelbook/internal/bookings/repository"
	"hotelbook/internal/bookings/validator"
	roomserrors "hotelbook/internal/rooms/errors"
	"hotelbook/pkg/config"
	apperrors "hotelbook/pkg/errors"
	"hotelbook/pkg/identity"
	"hotelbook/pkg/middleware"
	"hotelbook/pkg/model"
	"hotelbook/pkg/obs"
	"hotelbook/pkg/sanitizer"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const sideEffectTimeout = 5 * time.Second

type BookingService interface {
	IsAvailable(ctx context.Context, roomID string, checkIn, checkOut time.Time) (bool, error)
	CheckAvailability(ctx context.Context, roomID, checkIn, checkOut string) (*model.Availability, error)
	CreateBooking(ctx context.Context, userID string, req *model.BookingRequest) (*model.Booking, error)
	ListMine(ctx context.Context, userID string) ([]*model.BookingDetails, error)
	ListAll(ctx context.Context, limit int, offset int64) ([]*model.BookingDetails, int64, error)
	Recent(ctx context.Context, limit int) ([]*model.BookingDetails, error)
	Cancel(ctx context.Context, caller identity.User, id string) (*model.Booking, error)
	Count(ctx context.Context) (int64, error)
	CountUpcoming(ctx context.Context) (int64, error)
}

// RoomFinder returns roomserrors.ErrNotFound for unknown rooms.
type RoomFinder interface {
	FindByID(ctx context.Context, id string) (*model.Room, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]*model.Room, error)
}

type ProfileFinder interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]*model.Profile, error)
}

type bookingService struct {
	repo      repository.BookingRepository
	rooms     RoomFinder
	profiles  ProfileFinder
	cache     cache.AvailabilityCache
	events    events.Publisher
	validator *validator.BookingValidator
	cfg       *config.Config
	tracer    trace.Tracer
	now       func() time.Time
}

func NewBookingService(
	repo repository.BookingRepository,
	rooms RoomFinder,
	profiles ProfileFinder,
	availability cache.AvailabilityCache,
	publisher events.Publisher,
	validator *validator.BookingValidator,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		rooms:     rooms,
		profiles:  profiles,
		cache:     availability,
		events:    publisher,
		validator: validator,
		cfg:       cfg,
		tracer:    obs.Tracer("hotelbook/bookings"),
		now:       time.Now,
	}
}

// IsAvailable reports whether no confirmed booking of roomID overlaps
// [checkIn, checkOut). A store failure is returned as an error, never as
// "available".
func (s *bookingService) IsAvailable(ctx context.Context, roomID string, checkIn, checkOut time.Time) (bool, error) {
	if !checkIn.Before(checkOut) {
		return false, apperrors.InvalidDateRange("check_out must be after check_in")
	}

	ctx, span := s.tracer.Start(ctx, "bookings.IsAvailable", trace.WithAttributes(
		attribute.String("room_id", roomID),
	))
	defer span.End()

	overlap, err := s.repo.HasOverlap(ctx, roomID, checkIn, checkOut)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrRoomNotFound) {
			return false, apperrors.NotFoundWithID("Room", roomID)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "overlap check failed")
		s.cfg.Log.Error("Availability check failed", "room_id", roomID, "error", err)
		return false, apperrors.StoreError("Could not check availability, please try again", err)
	}
	return !overlap, nil
}

func (s *bookingService) CheckAvailability(ctx context.Context, roomID, checkInStr, checkOutStr string) (*model.Availability, error) {
	roomID = sanitizer.NormalizeID(roomID)
	checkIn, checkOut, err := parseRange(checkInStr, checkOutStr)
	if err != nil {
		return nil, err
	}

	room, err := s.activeRoom(ctx, roomID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeRoomUnavailable) {
			return nil, apperrors.NotFoundWithID("Room", roomID)
		}
		return nil, err
	}

	key := cache.Key{RoomID: roomID, CheckIn: checkIn, CheckOut: checkOut}
	available, hit, token := s.cache.Get(ctx, key)
	if !hit {
		available, err = s.IsAvailable(ctx, roomID, checkIn, checkOut)
		if err != nil {
			return nil, err
		}
		s.cache.Set(ctx, key, token, available)
	}

	return &model.Availability{
		RoomID:     roomID,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Available:  available,
		Nights:     model.Nights(checkIn, checkOut),
		TotalPrice: model.TotalPrice(checkIn, checkOut, room.PricePerNight),
	}, nil
}

// CreateBooking commits a confirmed booking for userID. Checks run in order
// and stop at the first failure: caller identity, input shape, date order,
// then the atomic overlap check and insert in the store.
func (s *bookingService) CreateBooking(ctx context.Context, userID string, req *model.BookingRequest) (*model.Booking, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("You must be signed in to book a room")
	}
	if req == nil {
		return nil, apperrors.InvalidInput("Booking request is required")
	}

	req.RoomID = sanitizer.NormalizeID(req.RoomID)
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}
	checkIn, checkOut, err := parseRange(req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "bookings.CreateBooking", trace.WithAttributes(
		attribute.String("room_id", req.RoomID),
		attribute.String("check_in", checkIn.Format(model.DateLayout)),
		attribute.String("check_out", checkOut.Format(model.DateLayout)),
	))
	defer span.End()

	room, err := s.activeRoom(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}

	total := model.TotalPrice(checkIn, checkOut, room.PricePerNight)
	if req.TotalPrice != 0 && req.TotalPrice != total {
		return nil, apperrors.InvalidInput("total_price does not match the room rate").WithDetails(map[string]any{
			"expected_total_price": total,
		})
	}

	booking := &model.Booking{
		ID:         uuid.NewString(),
		RoomID:     room.ID,
		UserID:     userID,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		TotalPrice: total,
		Status:     model.BookingStatusConfirmed,
		CreatedAt:  s.now().UTC(),
	}

	if err := s.repo.CreateIfAvailable(ctx, booking); err != nil {
		switch {
		case errors.Is(err, bookingserrors.ErrOverlap):
			span.SetAttributes(attribute.Bool("conflict", true))
			s.cfg.Log.Info("Booking rejected, room already booked",
				"room_id", booking.RoomID,
				"check_in", req.CheckIn,
				"check_out", req.CheckOut,
			)
			return nil, apperrors.RoomUnavailable("The room is already booked for some of the selected dates")
		case errors.Is(err, bookingserrors.ErrRoomNotFound):
			return nil, apperrors.NotFoundWithID("Room", booking.RoomID)
		case errors.Is(err, bookingserrors.ErrLockTimeout):
			s.cfg.Log.Warn("Booking lock wait exhausted", "room_id", booking.RoomID)
			return nil, apperrors.StoreError("The room is busy, please try again", err)
		case errors.Is(err, context.DeadlineExceeded):
			s.cfg.Log.Warn("Booking commit deadline exceeded", "room_id", booking.RoomID)
			return nil, apperrors.StoreError("Booking timed out, please try again", err)
		default:
			span.RecordError(err)
			span.SetStatus(codes.Error, "commit failed")
			s.cfg.Log.Error("Failed to create booking", "room_id", booking.RoomID, "error", err)
			return nil, apperrors.StoreError("Could not save the booking, please try again", err)
		}
	}

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"room_id", booking.RoomID,
		"user_id", booking.UserID,
		"check_in", req.CheckIn,
		"check_out", req.CheckOut,
		"total_price", booking.TotalPrice,
	)
	s.afterChange(ctx, booking, s.events.BookingCreated)
	return booking, nil
}

// afterChange drops cached availability for the room and announces the
// change. Both are best effort: the booking is already committed.
func (s *bookingService) afterChange(ctx context.Context, b *model.Booking, publish func(context.Context, *model.Booking, string) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if err := s.cache.Invalidate(ctx, b.RoomID); err != nil {
		s.cfg.Log.Warn("Failed to invalidate availability cache", "room_id", b.RoomID, "error", err)
	}
	if err := publish(ctx, b, middleware.RequestIDFromContext(ctx)); err != nil {
		s.cfg.Log.Warn("Failed to publish booking event", "id", b.ID, "room_id", b.RoomID, "error", err)
	}
}

func (s *bookingService) activeRoom(ctx context.Context, roomID string) (*model.Room, error) {
	room, err := s.rooms.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, roomserrors.ErrNotFound) || errors.Is(err, roomserrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("Room", roomID)
		}
		s.cfg.Log.Error("Failed to load room", "room_id", roomID, "error", err)
		return nil, apperrors.StoreError("Could not load the room, please try again", err)
	}
	if !room.IsActive {
		return nil, apperrors.RoomUnavailable("This room is not open for booking")
	}
	return room, nil
}

func parseRange(checkInStr, checkOutStr string) (time.Time, time.Time, error) {
	checkIn, err := model.ParseDate(checkInStr)
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.InvalidInput("check_in must be a date (YYYY-MM-DD)")
	}
	checkOut, err := model.ParseDate(checkOutStr)
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.InvalidInput("check_out must be a date (YYYY-MM-DD)")
	}
	if !checkIn.Before(checkOut) {
		return time.Time{}, time.Time{}, apperrors.InvalidDateRange("check_out must be after check_in")
	}
	return checkIn, checkOut, nil
}

func (s *bookingService) ListMine(ctx context.Context, userID string) ([]*model.BookingDetails, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("You must be signed in to see your bookings")
	}

	bookings, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		s.cfg.Log.Error("Failed to list user bookings", "user_id", userID, "error", err)
		return nil, apperrors.StoreError("Failed to retrieve bookings", err)
	}
	return s.details(ctx, bookings, false)
}

func (s *bookingService) ListAll(ctx context.Context, limit int, offset int64) ([]*model.BookingDetails, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var (
		bookings []*model.Booking
		count    int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		bookings, err = s.repo.FindAll(gctx, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to list bookings", "error", err)
			return apperrors.StoreError("Failed to retrieve bookings", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		count, err = s.repo.Count(gctx)
		if err != nil {
			s.cfg.Log.Error("Failed to count bookings", "error", err)
			return apperrors.StoreError("Failed to count bookings", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	details, err := s.details(ctx, bookings, true)
	if err != nil {
		return nil, 0, err
	}
	return details, count, nil
}

func (s *bookingService) Recent(ctx context.Context, limit int) ([]*model.BookingDetails, error) {
	bookings, err := s.repo.FindRecent(ctx, limit)
	if err != nil {
		s.cfg.Log.Error("Failed to list recent bookings", "error", err)
		return nil, apperrors.StoreError("Failed to retrieve bookings", err)
	}
	return s.details(ctx, bookings, true)
}

// details joins room and, when withGuests is set, guest display fields.
func (s *bookingService) details(ctx context.Context, bookings []*model.Booking, withGuests bool) ([]*model.BookingDetails, error) {
	out := make([]*model.BookingDetails, 0, len(bookings))
	if len(bookings) == 0 {
		return out, nil
	}

	roomIDs := make([]string, 0, len(bookings))
	userIDs := make([]string, 0, len(bookings))
	for _, b := range bookings {
		roomIDs = append(roomIDs, b.RoomID)
		userIDs = append(userIDs, b.UserID)
	}

	var (
		rooms    map[string]*model.Room
		profiles map[string]*model.Profile
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rooms, err = s.rooms.FindByIDs(gctx, roomIDs)
		return err
	})
	if withGuests {
		g.Go(func() error {
			var err error
			profiles, err = s.profiles.FindByIDs(gctx, userIDs)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		s.cfg.Log.Error("Failed to load booking details", "error", err)
		return nil, apperrors.StoreError("Failed to retrieve booking details", err)
	}

	for _, b := range bookings {
		d := &model.BookingDetails{Booking: b}
		if room, ok := rooms[b.RoomID]; ok {
			d.RoomName = room.Name
			d.RoomPricePerNight = room.PricePerNight
		}
		if p, ok := profiles[b.UserID]; ok {
			d.UserFullName = p.FullName
		}
		out = append(out, d)
	}
	return out, nil
}

// Cancel lets the guest who made a booking, or an admin, cancel it.
func (s *bookingService) Cancel(ctx context.Context, caller identity.User, id string) (*model.Booking, error) {
	if caller.ID == "" {
		return nil, apperrors.Unauthorized("You must be signed in to cancel a booking")
	}
	id = sanitizer.NormalizeID(id)
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapLookupError(err, id)
	}
	if booking.UserID != caller.ID && !caller.IsAdmin() {
		return nil, apperrors.Forbidden("You can only cancel your own bookings")
	}

	if err := s.repo.Cancel(ctx, id); err != nil {
		return nil, s.mapLookupError(err, id)
	}
	booking.Status = model.BookingStatusCancelled

	s.cfg.Log.Info("Booking cancelled",
		"id", booking.ID,
		"room_id", booking.RoomID,
		"cancelled_by", caller.ID,
	)
	s.afterChange(ctx, booking, s.events.BookingCancelled)
	return booking, nil
}

func (s *bookingService) mapLookupError(err error, id string) error {
	switch {
	case errors.Is(err, bookingserrors.ErrNotFound), errors.Is(err, bookingserrors.ErrInvalidID):
		return apperrors.NotFoundWithID("Booking", id)
	case errors.Is(err, bookingserrors.ErrAlreadyCancelled):
		return apperrors.Conflict("Booking is already cancelled")
	default:
		s.cfg.Log.Error("Booking store failure", "id", id, "error", err)
		return apperrors.StoreError("Failed to update booking", err)
	}
}

func (s *bookingService) Count(ctx context.Context) (int64, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, apperrors.StoreError("Failed to count bookings", err)
	}
	return n, nil
}

// CountUpcoming counts bookings whose stay starts today or later.
func (s *bookingService) CountUpcoming(ctx context.Context) (int64, error) {
	n, err := s.repo.CountCheckInFrom(ctx, model.TruncateToDate(s.now()))
	if err != nil {
		return 0, apperrors.StoreError("Failed to count upcoming bookings", err)
	}
	return n, nil
}
