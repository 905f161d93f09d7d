package handler

import (
	"net/http"

	"hotelbook/internal/bookings/service"
	apperrors "hotelbook/pkg/errors"
	httputil "hotelbook/pkg/http"
	"hotelbook/pkg/identity"
	"hotelbook/pkg/logger"
	"hotelbook/pkg/middleware"
	"hotelbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	service service.BookingService
	auth    *middleware.Authenticator
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, auth *middleware.Authenticator, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		auth:    auth,
		log:     log,
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/rooms/:id/availability", h.Availability)
	router.POST("/api/v1/bookings", h.auth.Authenticated(h.Create))
	router.POST("/api/v1/bookings/id/:id/cancel", h.auth.Authenticated(h.Cancel))
	router.GET("/api/v1/me/bookings", h.auth.Authenticated(h.ListMine))
	router.GET("/api/v1/admin/bookings", h.auth.AdminOnly(h.ListAll))
}

func (h *BookingHandler) Availability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	query := r.URL.Query()
	if query.Get("check_in") == "" || query.Get("check_out") == "" {
		h.writeError(w, "Availability", apperrors.InvalidInput("check_in and check_out are required"))
		return
	}

	availability, err := h.service.CheckAvailability(r.Context(), ps.ByName("id"), query.Get("check_in"), query.Get("check_out"))
	if err != nil {
		h.writeError(w, "Availability", err)
		return
	}

	if err := httputil.WriteSuccess(w, availability); err != nil {
		h.log.Error("failed to write success response", "handler", "Availability", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.BookingRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	booking, err := h.service.CreateBooking(r.Context(), identity.UserID(r.Context()), &req)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, _ := identity.FromContext(r.Context())

	booking, err := h.service.Cancel(r.Context(), caller, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Cancel", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) ListMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	bookings, err := h.service.ListMine(r.Context(), identity.UserID(r.Context()))
	if err != nil {
		h.writeError(w, "ListMine", err)
		return
	}

	if err := httputil.WriteSuccess(w, bookings); err != nil {
		h.log.Error("failed to write success response", "handler", "ListMine", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) ListAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListAll", err)
		return
	}

	bookings, total, err := h.service.ListAll(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, "ListAll", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}
