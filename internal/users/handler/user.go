package handler

import (
	"net/http"

	"campbook/internal/users/service"
	httputil "campbook/pkg/http"
	"campbook/pkg/logger"
	"campbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type UserHandler struct {
	service service.UserService
	log     *logger.Logger
}

func NewUserHandler(service service.UserService, log *logger.Logger) *UserHandler {
	return &UserHandler{service: service, log: log}
}

func (h *UserHandler) RegisterGuest(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var reg model.GuestRegistration
	if err := httputil.DecodeJSON(r, &reg); err != nil {
		h.writeError(w, "RegisterGuest", err)
		return
	}

	user, err := h.service.RegisterGuest(r.Context(), &reg)
	if err != nil {
		h.writeError(w, "RegisterGuest", err)
		return
	}

	if err := httputil.WriteCreated(w, user); err != nil {
		h.log.Error("failed to write created response", "handler", "RegisterGuest", "operation", "WriteCreated", "error", err)
	}
}

func (h *UserHandler) GetGuest(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, err := h.service.GetGuest(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetGuest", err)
		return
	}

	if err := httputil.WriteSuccess(w, user); err != nil {
		h.log.Error("failed to write success response", "handler", "GetGuest", "operation", "WriteSuccess", "error", err)
	}
}

func (h *UserHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *UserHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/guests", h.RegisterGuest)
	router.GET("/api/v1/guests/:id", h.GetGuest)
}
