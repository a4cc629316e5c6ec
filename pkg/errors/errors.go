package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"campbook/pkg/model"
)

const (
	CodeNotFound            = "NOT_FOUND"
	CodeValidation          = "VALIDATION_ERROR"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeConflict            = "CONFLICT"
	CodeSpotUnavailable     = "SPOT_UNAVAILABLE"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	CodeInvalidTransition   = "INVALID_STATUS_TRANSITION"
	CodeTimeout             = "TIMEOUT"
	CodeUnavailable         = "SERVICE_UNAVAILABLE"
	CodeInternal            = "INTERNAL_ERROR"
)

// retryableCodes are outcomes where repeating the whole request may succeed.
var retryableCodes = map[string]bool{
	CodeSpotUnavailable:     true,
	CodeConcurrencyConflict: true,
	CodeTimeout:             true,
	CodeUnavailable:         true,
}

type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.HTTPStatus
}

func (e *AppError) Retryable() bool {
	return retryableCodes[e.Code]
}

func (e *AppError) ToJSON() []byte {
	data, _ := json.Marshal(ErrorResponse{
		Code:      e.Code,
		Message:   e.Message,
		Retryable: e.Retryable(),
		Details:   e.Details,
	})
	return data
}

type ErrorResponse struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

func Wrap(err error, code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func NotFoundWithID(resource, id string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func Validation(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

func InvalidInput(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

func SpotUnavailable(spotID, period string, err error) *AppError {
	return &AppError{
		Code:       CodeSpotUnavailable,
		Message:    "The accommodation spot is not available for the requested dates",
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"spot_id": spotID,
			"period":  period,
		},
		Err: err,
	}
}

func ConcurrencyConflict(err error) *AppError {
	return &AppError{
		Code:       CodeConcurrencyConflict,
		Message:    "The request conflicted with a concurrent update, retry it",
		HTTPStatus: http.StatusConflict,
		Err:        err,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func Timeout(message string) *AppError {
	return &AppError{
		Code:       CodeTimeout,
		Message:    message,
		HTTPStatus: http.StatusGatewayTimeout,
	}
}

func Unavailable(service string, err error) *AppError {
	return &AppError{
		Code:       CodeUnavailable,
		Message:    fmt.Sprintf("%s is temporarily unavailable", service),
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

// FromDomain converts model validation and transition errors into AppErrors
// that keep the offending field and value. Other errors yield nil.
func FromDomain(err error) *AppError {
	var vErr *model.ValidationError
	if errors.As(err, &vErr) {
		return &AppError{
			Code:       CodeValidation,
			Message:    vErr.Error(),
			HTTPStatus: http.StatusUnprocessableEntity,
			Details: map[string]any{
				"kind":   string(vErr.Kind),
				"field":  vErr.Field,
				"value":  fmt.Sprint(vErr.Value),
				"reason": vErr.Reason,
			},
			Err: err,
		}
	}

	var tErr *model.TransitionError
	if errors.As(err, &tErr) {
		return &AppError{
			Code:       CodeInvalidTransition,
			Message:    tErr.Error(),
			HTTPStatus: http.StatusConflict,
			Details: map[string]any{
				"entity": tErr.Entity,
				"from":   tErr.From,
				"to":     tErr.To,
			},
			Err: err,
		}
	}

	return nil
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if domainErr := FromDomain(err); domainErr != nil {
		return domainErr
	}
	return Internal("An unexpected error occurred", err)
}
