package handler

import (
	"net/http"

	"hotelbook/internal/users/service"
	httputil "hotelbook/pkg/http"
	"hotelbook/pkg/identity"
	"hotelbook/pkg/logger"
	"hotelbook/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

type UserHandler struct {
	service service.UserService
	auth    *middleware.Authenticator
	log     *logger.Logger
}

func NewUserHandler(service service.UserService, auth *middleware.Authenticator, log *logger.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		auth:    auth,
		log:     log,
	}
}

func (h *UserHandler) RegisterRoutes(router *httprouter.Router) {
	router.PUT("/api/v1/me/profile", h.auth.Authenticated(h.UpsertMine))
	router.GET("/api/v1/admin/users", h.auth.AdminOnly(h.List))
}

type profileRequest struct {
	FullName string `json:"full_name"`
}

func (h *UserHandler) UpsertMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req profileRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "UpsertMine", err)
		return
	}

	profile, err := h.service.UpsertMine(r.Context(), identity.UserID(r.Context()), req.FullName)
	if err != nil {
		h.writeError(w, "UpsertMine", err)
		return
	}

	if err := httputil.WriteSuccess(w, profile); err != nil {
		h.log.Error("failed to write success response", "handler", "UpsertMine", "operation", "WriteSuccess", "error", err)
	}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	profiles, total, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WritePaginated(w, profiles, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "List", "operation", "WritePaginated", "error", err)
	}
}

func (h *UserHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}
