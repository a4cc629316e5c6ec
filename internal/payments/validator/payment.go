package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"campbook/pkg/logger"
	"campbook/pkg/model"

	"github.com/go-playground/validator/v10"
)

var amountRegex = regexp.MustCompile(`^\d{1,12}(\.\d{1,2})?$`)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type PaymentValidator struct {
	validate *validator.Validate
}

func NewPaymentValidator(log *logger.Logger) *PaymentValidator {
	v := validator.New()

	if err := v.RegisterValidation("money_amount", func(fl validator.FieldLevel) bool {
		return amountRegex.MatchString(fl.Field().String())
	}); err != nil {
		log.Fatal("Failed to register 'money_amount' validator", "error", err)
	}

	return &PaymentValidator{validate: v}
}

func (v *PaymentValidator) Validate(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *PaymentValidator) ValidatePayment(req *model.PaymentRequest) error {
	if err := v.Validate(req); err != nil {
		return err
	}
	if strings.Trim(req.Amount, "0.") == "" {
		return ValidationErrors{{Field: "Amount", Message: "Amount must be greater than zero"}}
	}
	return nil
}

func (v *PaymentValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", err.Field(), err.Param())
		case "gt":
			message = fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
		case "money_amount":
			message = fmt.Sprintf("%s must be a decimal amount with at most two fraction digits", err.Field())
		case "iso4217":
			message = fmt.Sprintf("%s must be an ISO 4217 currency code", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
