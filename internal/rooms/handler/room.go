package handler

import (
	"net/http"

	"hotelbook/internal/rooms/service"
	apperrors "hotelbook/pkg/errors"
	httputil "hotelbook/pkg/http"
	"hotelbook/pkg/logger"
	"hotelbook/pkg/middleware"
	"hotelbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type RoomHandler struct {
	service service.RoomService
	auth    *middleware.Authenticator
	log     *logger.Logger
}

func NewRoomHandler(service service.RoomService, auth *middleware.Authenticator, log *logger.Logger) *RoomHandler {
	return &RoomHandler{
		service: service,
		auth:    auth,
		log:     log,
	}
}

func (h *RoomHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/rooms", h.ListActive)
	router.GET("/api/v1/rooms/:id", h.GetActive)

	router.GET("/api/v1/admin/rooms", h.auth.AdminOnly(h.ListAll))
	router.POST("/api/v1/admin/rooms", h.auth.AdminOnly(h.Create))
	router.PATCH("/api/v1/admin/rooms/:id", h.auth.AdminOnly(h.Update))
	router.DELETE("/api/v1/admin/rooms/:id", h.auth.AdminOnly(h.Delete))
	router.PATCH("/api/v1/admin/rooms/:id/active", h.auth.AdminOnly(h.SetActive))
}

func (h *RoomHandler) ListActive(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	rooms, err := h.service.ListActive(r.Context())
	if err != nil {
		h.writeError(w, "ListActive", err)
		return
	}

	if err := httputil.WriteSuccess(w, rooms); err != nil {
		h.log.Error("failed to write success response", "handler", "ListActive", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RoomHandler) GetActive(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	room, err := h.service.GetActive(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetActive", err)
		return
	}

	if err := httputil.WriteSuccess(w, room); err != nil {
		h.log.Error("failed to write success response", "handler", "GetActive", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RoomHandler) ListAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListAll", err)
		return
	}

	rooms, total, err := h.service.ListAll(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, "ListAll", err)
		return
	}

	if err := httputil.WritePaginated(w, rooms, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var room model.Room
	if err := httputil.DecodeJSON(r, &room); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := h.service.Create(r.Context(), &room); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, room); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *RoomHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var updates model.RoomUpdate
	if err := httputil.DecodeJSON(r, &updates); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	room, err := h.service.Update(r.Context(), ps.ByName("id"), &updates)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, room); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

type setActiveRequest struct {
	IsActive *bool `json:"is_active"`
}

func (h *RoomHandler) SetActive(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req setActiveRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "SetActive", err)
		return
	}
	if req.IsActive == nil {
		h.writeError(w, "SetActive", apperrors.InvalidInput("is_active is required"))
		return
	}

	room, err := h.service.SetActive(r.Context(), ps.ByName("id"), *req.IsActive)
	if err != nil {
		h.writeError(w, "SetActive", err)
		return
	}

	if err := httputil.WriteSuccess(w, room); err != nil {
		h.log.Error("failed to write success response", "handler", "SetActive", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RoomHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Delete(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *RoomHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}
