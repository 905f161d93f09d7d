package handler

import (
	"net/http"

	"hotelbook/internal/dashboard/service"
	httputil "hotelbook/pkg/http"
	"hotelbook/pkg/logger"
	"hotelbook/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

type DashboardHandler struct {
	service service.DashboardService
	auth    *middleware.Authenticator
	log     *logger.Logger
}

func NewDashboardHandler(service service.DashboardService, auth *middleware.Authenticator, log *logger.Logger) *DashboardHandler {
	return &DashboardHandler{service: service, auth: auth, log: log}
}

func (h *DashboardHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/admin/dashboard", h.auth.AdminOnly(h.Stats))
}

func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Stats", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, stats); err != nil {
		h.log.Error("failed to write success response", "handler", "Stats", "operation", "WriteSuccess", "error", err)
	}
}
