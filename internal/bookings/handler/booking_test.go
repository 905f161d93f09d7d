package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hotelbook/internal/bookings/cache"
	"hotelbook/internal/bookings/events"
	"hotelbook/internal/bookings/repository"
	"hotelbook/internal/bookings/service"
	"hotelbook/internal/bookings/validator"
	roomserrors "hotelbook/internal/rooms/errors"
	"hotelbook/pkg/config"
	apperrors "hotelbook/pkg/errors"
	"hotelbook/pkg/identity"
	"hotelbook/pkg/logger"
	"hotelbook/pkg/middleware"
	"hotelbook/pkg/model"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "handler-test-secret-0123456789"
	testRoomID = "0b8f7a52-3a4e-4b8e-9a41-6f1c1e0c2d11"
)

type stubRooms struct{}

func (stubRooms) FindByID(_ context.Context, id string) (*model.Room, error) {
	if id != testRoomID {
		return nil, roomserrors.ErrNotFound
	}
	return &model.Room{ID: testRoomID, Name: "Sea View", PricePerNight: 10000, MaxGuests: 2, IsActive: true}, nil
}

func (r stubRooms) FindByIDs(ctx context.Context, ids []string) (map[string]*model.Room, error) {
	room, _ := r.FindByID(ctx, testRoomID)
	return map[string]*model.Room{testRoomID: room}, nil
}

type stubProfiles struct{}

func (stubProfiles) FindByIDs(context.Context, []string) (map[string]*model.Profile, error) {
	return map[string]*model.Profile{}, nil
}

type stubRoles map[string]string

func (s stubRoles) GetRole(_ context.Context, userID string) (string, error) {
	if role, ok := s[userID]; ok {
		return role, nil
	}
	return identity.RoleUser, nil
}

func newRouter(t *testing.T) (*httprouter.Router, *identity.Verifier) {
	t.Helper()
	log := logger.Discard()
	cfg := &config.Config{Log: log}

	svc := service.NewBookingService(
		repository.NewMemoryBookingRepository(),
		stubRooms{},
		stubProfiles{},
		cache.NewLocal(time.Minute),
		events.Noop{},
		validator.NewBookingValidator(log),
		cfg,
	)
	verifier := identity.NewVerifier(testSecret)
	auth := middleware.NewAuthenticator(verifier, stubRoles{"admin-1": identity.RoleAdmin}, log)

	router := httprouter.New()
	NewBookingHandler(svc, auth, log).RegisterRoutes(router)
	return router, verifier
}

func token(t *testing.T, v *identity.Verifier, userID string) string {
	t.Helper()
	tok, err := v.Sign(identity.User{ID: userID, Email: userID + "@example.com"}, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func do(router http.Handler, method, path, auth, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) apperrors.ErrorResponse {
	t.Helper()
	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestCreate_RequiresAuthentication(t *testing.T) {
	router, _ := newRouter(t)

	rec := do(router, http.MethodPost, "/api/v1/bookings", "",
		`{"room_id":"`+testRoomID+`","check_in":"2024-01-01","check_out":"2024-01-02"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apperrors.CodeUnauthorized, errorCode(t, rec).Code)
}

func TestCreate_StatusCodes(t *testing.T) {
	router, v := newRouter(t)
	auth := token(t, v, "user-1")

	body := `{"room_id":"` + testRoomID + `","check_in":"2024-01-01","check_out":"2024-01-05"}`
	rec := do(router, http.MethodPost, "/api/v1/bookings", auth, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Data model.Booking `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, int64(40000), created.Data.TotalPrice)
	assert.Equal(t, "user-1", created.Data.UserID)

	tests := []struct {
		name      string
		body      string
		status    int
		code      string
		retryable bool
	}{
		{
			name:   "overlap",
			body:   `{"room_id":"` + testRoomID + `","check_in":"2024-01-03","check_out":"2024-01-07"}`,
			status: http.StatusConflict,
			code:   apperrors.CodeRoomUnavailable,
		},
		{
			name:   "reversed dates",
			body:   `{"room_id":"` + testRoomID + `","check_in":"2024-01-05","check_out":"2024-01-01"}`,
			status: http.StatusBadRequest,
			code:   apperrors.CodeInvalidDateRange,
		},
		{
			name:   "missing dates",
			body:   `{"room_id":"` + testRoomID + `"}`,
			status: http.StatusBadRequest,
			code:   apperrors.CodeInvalidInput,
		},
		{
			name:   "unknown field",
			body:   `{"room_id":"` + testRoomID + `","check_in":"2024-02-01","check_out":"2024-02-02","guests":3}`,
			status: http.StatusBadRequest,
			code:   apperrors.CodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(router, http.MethodPost, "/api/v1/bookings", auth, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			resp := errorCode(t, rec)
			assert.Equal(t, tt.code, resp.Code)
			assert.Equal(t, tt.retryable, resp.Retryable)
		})
	}
}

func TestAvailability(t *testing.T) {
	router, v := newRouter(t)

	rec := do(router, http.MethodGet, "/api/v1/rooms/"+testRoomID+"/availability?check_in=2024-01-01&check_out=2024-01-05", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"available":true`)

	rec = do(router, http.MethodPost, "/api/v1/bookings", token(t, v, "user-1"),
		`{"room_id":"`+testRoomID+`","check_in":"2024-01-02","check_out":"2024-01-03"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(router, http.MethodGet, "/api/v1/rooms/"+testRoomID+"/availability?check_in=2024-01-01&check_out=2024-01-05", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"available":false`)

	rec = do(router, http.MethodGet, "/api/v1/rooms/"+testRoomID+"/availability?check_in=2024-01-01", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelAndListMine(t *testing.T) {
	router, v := newRouter(t)
	owner := token(t, v, "user-1")

	rec := do(router, http.MethodPost, "/api/v1/bookings", owner,
		`{"room_id":"`+testRoomID+`","check_in":"2024-01-01","check_out":"2024-01-02"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Data model.Booking `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = do(router, http.MethodPost, "/api/v1/bookings/id/"+created.Data.ID+"/cancel", token(t, v, "user-2"), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(router, http.MethodPost, "/api/v1/bookings/id/"+created.Data.ID+"/cancel", owner, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"cancelled"`)

	rec = do(router, http.MethodGet, "/api/v1/me/bookings", owner, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"room_name":"Sea View"`)
}

func TestListAll_AdminOnly(t *testing.T) {
	router, v := newRouter(t)

	rec := do(router, http.MethodGet, "/api/v1/admin/bookings", token(t, v, "user-1"), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(router, http.MethodGet, "/api/v1/admin/bookings?limit=5", token(t, v, "admin-1"), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"limit":5`)
}
