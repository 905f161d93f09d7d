package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "hotelbook/pkg/errors"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantStatus    int
		wantCode      string
		wantRetryable bool
	}{
		{"room unavailable", apperrors.RoomUnavailable("Room is not available for the selected dates"), http.StatusConflict, apperrors.CodeRoomUnavailable, false},
		{"invalid range", apperrors.InvalidDateRange("check_in must be before check_out"), http.StatusBadRequest, apperrors.CodeInvalidDateRange, false},
		{"store error", apperrors.StoreError("store unavailable", errors.New("dial tcp")), http.StatusServiceUnavailable, apperrors.CodeStoreError, true},
		{"unauthenticated", apperrors.Unauthorized("Authentication required"), http.StatusUnauthorized, apperrors.CodeUnauthorized, false},
		{"plain error hides cause", errors.New("pq: secret detail"), http.StatusInternalServerError, apperrors.CodeInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			if err := WriteError(rec, tt.err); err != nil {
				t.Fatalf("WriteError() error = %v", err)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var body apperrors.ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
			if body.Retryable != tt.wantRetryable {
				t.Errorf("retryable = %v, want %v", body.Retryable, tt.wantRetryable)
			}
			if strings.Contains(rec.Body.String(), "secret detail") {
				t.Error("internal error text leaked to the client")
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name     string
		body     string
		wantErr  bool
		wantName string
	}{
		{name: "valid", body: `{"name":"Suite"}`, wantName: "Suite"},
		{name: "empty", body: ``, wantErr: true},
		{name: "unknown field", body: `{"name":"Suite","price":1}`, wantErr: true},
		{name: "trailing object", body: `{"name":"a"}{"name":"b"}`, wantErr: true},
		{name: "malformed", body: `{"name":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := DecodeJSON(r, &p)
			if tt.wantErr {
				if !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
					t.Errorf("expected INVALID_INPUT, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Name != tt.wantName {
				t.Errorf("name = %q, want %q", p.Name, tt.wantName)
			}
		})
	}
}

func TestExtractLimitOffset(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?limit=500&offset=-3", nil)
	limit, offset, err := ExtractLimitOffset(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if limit != 100 || offset != 0 {
		t.Errorf("got limit=%d offset=%d, want 100/0", limit, offset)
	}

	r = httptest.NewRequest(http.MethodGet, "/?limit=ten", nil)
	if _, _, err := ExtractLimitOffset(r); !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}
