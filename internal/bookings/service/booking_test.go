package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
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
	"hotelbook/pkg/logger"
	"hotelbook/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	roomA = "0b8f7a52-3a4e-4b8e-9a41-6f1c1e0c2d11"
	roomB = "7d1e5c3a-9f2b-4c6d-8e1a-2b3c4d5e6f70"
	guest = "user-1"
)

type fakeRooms struct {
	rooms map[string]*model.Room
	err   error
}

func (f *fakeRooms) FindByID(_ context.Context, id string) (*model.Room, error) {
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.rooms[id]
	if !ok {
		return nil, roomserrors.ErrNotFound
	}
	return r, nil
}

func (f *fakeRooms) FindByIDs(_ context.Context, ids []string) (map[string]*model.Room, error) {
	out := make(map[string]*model.Room)
	for _, id := range ids {
		if r, ok := f.rooms[id]; ok {
			out[id] = r
		}
	}
	return out, nil
}

type fakeProfiles struct {
	profiles map[string]*model.Profile
}

func (f *fakeProfiles) FindByIDs(_ context.Context, ids []string) (map[string]*model.Profile, error) {
	out := make(map[string]*model.Profile)
	for _, id := range ids {
		if p, ok := f.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// countingRepo records store calls and can be told to fail.
type countingRepo struct {
	repository.BookingRepository
	mu       sync.Mutex
	calls    int
	checkErr error
}

func (r *countingRepo) HasOverlap(ctx context.Context, roomID string, in, out time.Time) (bool, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.checkErr != nil {
		return false, r.checkErr
	}
	return r.BookingRepository.HasOverlap(ctx, roomID, in, out)
}

func (r *countingRepo) CreateIfAvailable(ctx context.Context, b *model.Booking) error {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.checkErr != nil {
		return r.checkErr
	}
	return r.BookingRepository.CreateIfAvailable(ctx, b)
}

type recordingPublisher struct {
	mu        sync.Mutex
	created   []string
	cancelled []string
}

func (p *recordingPublisher) BookingCreated(_ context.Context, b *model.Booking, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, b.ID)
	return nil
}

func (p *recordingPublisher) BookingCancelled(_ context.Context, b *model.Booking, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = append(p.cancelled, b.ID)
	return nil
}

var _ events.Publisher = (*recordingPublisher)(nil)

type fixture struct {
	svc       *bookingService
	repo      *countingRepo
	rooms     *fakeRooms
	cache     *cache.Local
	publisher *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.Discard()
	cfg := &config.Config{Log: log}

	f := &fixture{
		repo: &countingRepo{BookingRepository: repository.NewMemoryBookingRepository()},
		rooms: &fakeRooms{rooms: map[string]*model.Room{
			roomA: {ID: roomA, Name: "Sea View", PricePerNight: 10000, MaxGuests: 2, IsActive: true},
			roomB: {ID: roomB, Name: "Garden", PricePerNight: 8000, MaxGuests: 2, IsActive: false},
		}},
		cache:     cache.NewLocal(time.Minute),
		publisher: &recordingPublisher{},
	}
	profiles := &fakeProfiles{profiles: map[string]*model.Profile{
		guest: {ID: guest, FullName: "Ada Guest", Role: model.RoleUser},
	}}

	f.svc = NewBookingService(f.repo, f.rooms, profiles, f.cache, f.publisher, validator.NewBookingValidator(log), cfg).(*bookingService)
	f.svc.now = func() time.Time { return time.Date(2023, 12, 1, 10, 0, 0, 0, time.UTC) }
	return f
}

func request(room, in, out string) *model.BookingRequest {
	return &model.BookingRequest{RoomID: room, CheckIn: in, CheckOut: out}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	appErr := apperrors.AsAppError(err)
	assert.Equal(t, code, appErr.Code, "error: %v", err)
}

func TestCreateBooking_Preconditions(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		req    *model.BookingRequest
		code   string
	}{
		{"no user", "", request(roomA, "2024-01-01", "2024-01-05"), apperrors.CodeUnauthorized},
		{"missing check in", guest, request(roomA, "", "2024-01-05"), apperrors.CodeInvalidInput},
		{"missing check out", guest, request(roomA, "2024-01-01", ""), apperrors.CodeInvalidInput},
		{"unparseable date", guest, request(roomA, "01/05/2024", "2024-01-10"), apperrors.CodeInvalidInput},
		{"reversed range", guest, request(roomA, "2024-01-05", "2024-01-01"), apperrors.CodeInvalidDateRange},
		{"empty range", guest, request(roomA, "2024-01-05", "2024-01-05"), apperrors.CodeInvalidDateRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.CreateBooking(context.Background(), tt.userID, tt.req)
			assertCode(t, err, tt.code)
			assert.Zero(t, f.repo.calls, "store must not be touched")
		})
	}
}

func TestCreateBooking_PriceIsComputed(t *testing.T) {
	f := newFixture(t)

	b, err := f.svc.CreateBooking(context.Background(), guest, request(roomA, "2024-03-01", "2024-03-04"))
	require.NoError(t, err)
	assert.Equal(t, int64(30000), b.TotalPrice)
	assert.Equal(t, model.BookingStatusConfirmed, b.Status)
	assert.Equal(t, guest, b.UserID)
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, []string{b.ID}, f.publisher.created)
}

func TestCreateBooking_PriceMismatch(t *testing.T) {
	f := newFixture(t)
	req := request(roomA, "2024-03-01", "2024-03-04")
	req.TotalPrice = 100

	_, err := f.svc.CreateBooking(context.Background(), guest, req)
	assertCode(t, err, apperrors.CodeInvalidInput)

	req.TotalPrice = 30000
	_, err = f.svc.CreateBooking(context.Background(), guest, req)
	require.NoError(t, err)
}

func TestCreateBooking_AdjacentAllowedOverlapRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateBooking(ctx, guest, request(roomA, "2024-01-01", "2024-01-05"))
	require.NoError(t, err)

	_, err = f.svc.CreateBooking(ctx, "user-2", request(roomA, "2024-01-05", "2024-01-10"))
	require.NoError(t, err)

	_, err = f.svc.CreateBooking(ctx, "user-3", request(roomA, "2024-01-03", "2024-01-07"))
	assertCode(t, err, apperrors.CodeRoomUnavailable)
}

func TestCreateBooking_RoomChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateBooking(ctx, guest, request("9a0e1c2d-3b4f-4a5b-8c6d-7e8f9a0b1c2d", "2024-01-01", "2024-01-02"))
	assertCode(t, err, apperrors.CodeNotFound)

	_, err = f.svc.CreateBooking(ctx, guest, request(roomB, "2024-01-01", "2024-01-02"))
	assertCode(t, err, apperrors.CodeRoomUnavailable)
}

func TestCreateBooking_ConcurrentIdenticalRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]error, 2)
	start := make(chan struct{})
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, results[i] = f.svc.CreateBooking(ctx, guest, request(roomA, "2024-02-01", "2024-02-03"))
		}(i)
	}
	close(start)
	wg.Wait()

	var ok, unavailable int
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		case apperrors.HasCode(err, apperrors.CodeRoomUnavailable):
			unavailable++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, unavailable)
}

func TestCreateBooking_ConfirmedBookingsNeverOverlap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ranges := [][2]string{
		{"2024-05-01", "2024-05-04"},
		{"2024-05-02", "2024-05-03"},
		{"2024-05-04", "2024-05-06"},
		{"2024-04-28", "2024-05-02"},
		{"2024-05-05", "2024-05-09"},
		{"2024-05-06", "2024-05-08"},
		{"2024-04-25", "2024-04-28"},
		{"2024-05-01", "2024-05-10"},
	}

	var wg sync.WaitGroup
	for _, r := range ranges {
		wg.Add(1)
		go func(in, out string) {
			defer wg.Done()
			_, _ = f.svc.CreateBooking(ctx, guest, request(roomA, in, out))
		}(r[0], r[1])
	}
	wg.Wait()

	mine, err := f.repo.FindByUser(ctx, guest)
	require.NoError(t, err)
	require.NotEmpty(t, mine)
	for i := range mine {
		for j := i + 1; j < len(mine); j++ {
			a, b := mine[i], mine[j]
			assert.False(t, model.Overlaps(a.CheckIn, a.CheckOut, b.CheckIn, b.CheckOut),
				"bookings %s and %s overlap", a.ID, b.ID)
		}
	}
}

func TestCreateBooking_StoreFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"connectivity", errors.New("connection refused"), apperrors.CodeStoreError},
		{"lock wait", bookingserrors.ErrLockTimeout, apperrors.CodeStoreError},
		{"room vanished", bookingserrors.ErrRoomNotFound, apperrors.CodeNotFound},
		{"deadline", context.DeadlineExceeded, apperrors.CodeStoreError},
		{"wrapped deadline", fmt.Errorf("commit transaction: %w", context.DeadlineExceeded), apperrors.CodeStoreError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.repo.checkErr = tt.err

			_, err := f.svc.CreateBooking(context.Background(), guest, request(roomA, "2024-01-01", "2024-01-02"))
			assertCode(t, err, tt.code)
			assert.Empty(t, f.publisher.created)
		})
	}
}

func TestCreateBooking_DeadlineIsStoreError(t *testing.T) {
	f := newFixture(t)
	f.repo.checkErr = context.DeadlineExceeded

	_, err := f.svc.CreateBooking(context.Background(), guest, request(roomA, "2024-01-01", "2024-01-02"))
	appErr := apperrors.AsAppError(err)
	assert.Equal(t, http.StatusServiceUnavailable, appErr.HTTPStatus)
	assert.Equal(t, "Booking timed out, please try again", appErr.Message)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIsAvailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreateBooking(ctx, guest, request(roomA, "2024-01-01", "2024-01-05"))
	require.NoError(t, err)

	tests := []struct {
		in, out string
		want    bool
	}{
		{"2024-01-05", "2024-01-10", true},
		{"2023-12-28", "2024-01-01", true},
		{"2024-01-04", "2024-01-05", false},
		{"2023-12-31", "2024-01-02", false},
		{"2023-12-01", "2024-02-01", false},
	}
	for _, tt := range tests {
		got, err := f.svc.IsAvailable(ctx, roomA, day(tt.in), day(tt.out))
		require.NoError(t, err)

		overlap, err := f.repo.HasOverlap(ctx, roomA, day(tt.in), day(tt.out))
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s..%s", tt.in, tt.out)
		assert.Equal(t, !overlap, got)
	}
}

func TestIsAvailable_FailsClosed(t *testing.T) {
	f := newFixture(t)
	f.repo.checkErr = errors.New("connection reset")

	available, err := f.svc.IsAvailable(context.Background(), roomA, day("2024-01-01"), day("2024-01-02"))
	assert.False(t, available)
	assertCode(t, err, apperrors.CodeStoreError)
	assert.True(t, apperrors.AsAppError(err).Retryable())
}

func TestIsAvailable_InvalidRangeSkipsStore(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.IsAvailable(context.Background(), roomA, day("2024-01-05"), day("2024-01-01"))
	assertCode(t, err, apperrors.CodeInvalidDateRange)
	assert.Zero(t, f.repo.calls)
}

func TestCheckAvailability_CacheInvalidatedOnCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.CheckAvailability(ctx, roomA, "2024-03-01", "2024-03-04")
	require.NoError(t, err)
	assert.True(t, a.Available)
	assert.Equal(t, int64(3), a.Nights)
	assert.Equal(t, int64(30000), a.TotalPrice)

	calls := f.repo.calls
	_, err = f.svc.CheckAvailability(ctx, roomA, "2024-03-01", "2024-03-04")
	require.NoError(t, err)
	assert.Equal(t, calls, f.repo.calls, "second check should be served from cache")

	_, err = f.svc.CreateBooking(ctx, guest, request(roomA, "2024-03-02", "2024-03-03"))
	require.NoError(t, err)

	a, err = f.svc.CheckAvailability(ctx, roomA, "2024-03-01", "2024-03-04")
	require.NoError(t, err)
	assert.False(t, a.Available)

	_, err = f.svc.CheckAvailability(ctx, roomB, "2024-03-01", "2024-03-04")
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.CreateBooking(ctx, guest, request(roomA, "2024-01-01", "2024-01-05"))
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, identity.User{ID: "someone-else", Role: identity.RoleUser}, b.ID)
	assertCode(t, err, apperrors.CodeForbidden)

	cancelled, err := f.svc.Cancel(ctx, identity.User{ID: guest, Role: identity.RoleUser}, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCancelled, cancelled.Status)
	assert.Equal(t, []string{b.ID}, f.publisher.cancelled)

	_, err = f.svc.Cancel(ctx, identity.User{ID: "admin-1", Role: identity.RoleAdmin}, b.ID)
	assertCode(t, err, apperrors.CodeConflict)

	_, err = f.svc.Cancel(ctx, identity.User{ID: guest}, "missing")
	assertCode(t, err, apperrors.CodeNotFound)

	_, err = f.svc.CreateBooking(ctx, "user-2", request(roomA, "2024-01-02", "2024-01-04"))
	require.NoError(t, err)
}

func TestListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateBooking(ctx, guest, request(roomA, "2024-01-01", "2024-01-05"))
	require.NoError(t, err)
	_, err = f.svc.CreateBooking(ctx, "user-2", request(roomA, "2024-01-05", "2024-01-06"))
	require.NoError(t, err)

	mine, err := f.svc.ListMine(ctx, guest)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Sea View", mine[0].RoomName)
	assert.Equal(t, int64(10000), mine[0].RoomPricePerNight)
	assert.Empty(t, mine[0].UserFullName)

	all, total, err := f.svc.ListAll(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, all, 2)

	names := map[string]string{}
	for _, d := range all {
		names[d.UserID] = d.UserFullName
	}
	assert.Equal(t, "Ada Guest", names[guest])

	upcoming, err := f.svc.CountUpcoming(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), upcoming)
}

func day(s string) time.Time {
	t, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}
