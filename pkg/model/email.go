package model

import (
	"net/mail"
	"strings"
)

const maxEmailLength = 254

type Email string

func NewEmail(raw string) (Email, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return "", newValidationError(KindInvalidEmail, "email", raw, "is required")
	}
	if len(normalized) > maxEmailLength {
		return "", newValidationError(KindInvalidEmail, "email", raw, "is too long")
	}

	addr, err := mail.ParseAddress(normalized)
	if err != nil || addr.Address != normalized {
		return "", newValidationError(KindInvalidEmail, "email", raw, "is not a valid address")
	}

	_, domain, _ := strings.Cut(normalized, "@")
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return "", newValidationError(KindInvalidEmail, "email", raw, "domain is not valid")
	}

	return Email(normalized), nil
}

func (e Email) String() string { return string(e) }

func (e Email) Domain() string {
	_, domain, _ := strings.Cut(string(e), "@")
	return domain
}
