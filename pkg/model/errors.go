package model

import (
	"errors"
	"fmt"
)

var (
	ErrValidation              = errors.New("validation failed")
	ErrCurrencyMismatch        = errors.New("currency mismatch")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

type ErrorKind string

const (
	KindInvalidIdentifier ErrorKind = "invalid_identifier"
	KindInvalidMoney      ErrorKind = "invalid_money"
	KindCurrencyMismatch  ErrorKind = "currency_mismatch"
	KindNegativeAmount    ErrorKind = "negative_amount"
	KindInvalidDateRange  ErrorKind = "invalid_date_range"
	KindInvalidEmail      ErrorKind = "invalid_email"
	KindInvalidStatus     ErrorKind = "invalid_status"
	KindInvalidField      ErrorKind = "invalid_field"
)

// ValidationError carries the offending field and value so callers can react
// without parsing the message.
type ValidationError struct {
	Kind   ErrorKind
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got %v)", e.Field, e.Reason, e.Value)
}

func (e *ValidationError) Is(target error) bool {
	if target == ErrValidation {
		return true
	}
	return target == ErrCurrencyMismatch && e.Kind == KindCurrencyMismatch
}

func newValidationError(kind ErrorKind, field string, value any, reason string) *ValidationError {
	return &ValidationError{Kind: kind, Field: field, Value: value, Reason: reason}
}

type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s cannot transition from %s to %s", e.Entity, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidStatusTransition
}
