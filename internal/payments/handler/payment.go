package handler

import (
	"net/http"

	"campbook/internal/payments/service"
	httputil "campbook/pkg/http"
	"campbook/pkg/logger"
	"campbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type PaymentHandler struct {
	service service.PaymentService
	log     *logger.Logger
}

func NewPaymentHandler(service service.PaymentService, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{service: service, log: log}
}

func (h *PaymentHandler) Initiate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.PaymentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Initiate", err)
		return
	}

	payment, err := h.service.Initiate(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Initiate", err)
		return
	}

	if err := httputil.WriteCreated(w, payment); err != nil {
		h.log.Error("failed to write created response", "handler", "Initiate", "operation", "WriteCreated", "error", err)
	}
}

func (h *PaymentHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	payment, err := h.service.Get(r.Context(), ps.ByName("id"))
	h.respond(w, "GetByID", payment, err)
}

func (h *PaymentHandler) Complete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.PaymentCompletion
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Complete", err)
		return
	}
	payment, err := h.service.MarkCompleted(r.Context(), ps.ByName("id"), &req)
	h.respond(w, "Complete", payment, err)
}

func (h *PaymentHandler) Fail(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.PaymentFailure
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Fail", err)
		return
	}
	payment, err := h.service.MarkFailed(r.Context(), ps.ByName("id"), &req)
	h.respond(w, "Fail", payment, err)
}

func (h *PaymentHandler) Retry(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	payment, err := h.service.Retry(r.Context(), ps.ByName("id"))
	h.respond(w, "Retry", payment, err)
}

func (h *PaymentHandler) Refund(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	payment, err := h.service.Refund(r.Context(), ps.ByName("id"))
	h.respond(w, "Refund", payment, err)
}

func (h *PaymentHandler) respond(w http.ResponseWriter, handler string, payment *model.Payment, err error) {
	if err != nil {
		h.writeError(w, handler, err)
		return
	}
	if err := httputil.WriteSuccess(w, payment); err != nil {
		h.log.Error("failed to write success response", "handler", handler, "operation", "WriteSuccess", "error", err)
	}
}

func (h *PaymentHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *PaymentHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/payments", h.Initiate)
	router.GET("/api/v1/payments/:id", h.GetByID)
	router.POST("/api/v1/payments/:id/complete", h.Complete)
	router.POST("/api/v1/payments/:id/fail", h.Fail)
	router.POST("/api/v1/payments/:id/retry", h.Retry)
	router.POST("/api/v1/payments/:id/refund", h.Refund)
}
