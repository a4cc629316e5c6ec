package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "campbook/pkg/errors"
	"campbook/pkg/logger"
	"campbook/pkg/model"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPaymentService struct {
	initiated *model.PaymentRequest
	completed *model.PaymentCompletion
	failed    *model.PaymentFailure
	lastID    string
	err       error
}

func (s *stubPaymentService) result(status model.PaymentStatus) (*model.Payment, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.Payment{ID: 3, BookingID: 1, Status: status}, nil
}

func (s *stubPaymentService) Initiate(ctx context.Context, req *model.PaymentRequest) (*model.Payment, error) {
	s.initiated = req
	return s.result(model.PaymentStatusPending)
}

func (s *stubPaymentService) MarkCompleted(ctx context.Context, id string, req *model.PaymentCompletion) (*model.Payment, error) {
	s.lastID, s.completed = id, req
	return s.result(model.PaymentStatusCompleted)
}

func (s *stubPaymentService) MarkFailed(ctx context.Context, id string, req *model.PaymentFailure) (*model.Payment, error) {
	s.lastID, s.failed = id, req
	return s.result(model.PaymentStatusFailed)
}

func (s *stubPaymentService) Retry(ctx context.Context, id string) (*model.Payment, error) {
	s.lastID = id
	return s.result(model.PaymentStatusPending)
}

func (s *stubPaymentService) Refund(ctx context.Context, id string) (*model.Payment, error) {
	s.lastID = id
	return s.result(model.PaymentStatusRefunded)
}

func (s *stubPaymentService) Get(ctx context.Context, id string) (*model.Payment, error) {
	s.lastID = id
	return s.result(model.PaymentStatusPending)
}

func serve(svc *stubPaymentService, method, path, body string) *httptest.ResponseRecorder {
	router := httprouter.New()
	NewPaymentHandler(svc, logger.NewNop()).RegisterRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestInitiate_Created(t *testing.T) {
	svc := &stubPaymentService{}
	rec := serve(svc, http.MethodPost, "/api/v1/payments",
		`{"booking_id":1,"amount":"415.00","currency":"EUR","method":"card"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.initiated)
	assert.Equal(t, "415.00", svc.initiated.Amount)
	assert.Equal(t, "card", svc.initiated.Method)
}

func TestComplete_PassesReference(t *testing.T) {
	svc := &stubPaymentService{}
	rec := serve(svc, http.MethodPost, "/api/v1/payments/3/complete", `{"transaction_ref":"tx-1"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "3", svc.lastID)
	require.NotNil(t, svc.completed)
	assert.Equal(t, "tx-1", svc.completed.TransactionRef)
	assert.Contains(t, rec.Body.String(), `"completed"`)
}

func TestFail_MalformedBody(t *testing.T) {
	svc := &stubPaymentService{}
	rec := serve(svc, http.MethodPost, "/api/v1/payments/3/fail", `{"reason":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, svc.failed)
}

func TestRefund_InvalidTransition(t *testing.T) {
	svc := &stubPaymentService{err: &model.TransitionError{Entity: "payment", From: "pending", To: "refunded"}}
	rec := serve(svc, http.MethodPost, "/api/v1/payments/3/refund", "")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), apperrors.CodeInvalidTransition)
}

func TestRetryAndGet(t *testing.T) {
	svc := &stubPaymentService{}

	rec := serve(svc, http.MethodPost, "/api/v1/payments/9/retry", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "9", svc.lastID)

	svc.err = apperrors.NotFoundWithID("Payment", "9")
	rec = serve(svc, http.MethodGet, "/api/v1/payments/9", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
