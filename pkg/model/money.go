package model

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)

// Money is an amount in minor units (two decimal places) of a single currency.
type Money struct {
	amount   int64
	currency string
}

func NewMoney(minorUnits int64, currency string) (Money, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if !currencyRegex.MatchString(currency) {
		return Money{}, newValidationError(KindInvalidMoney, "currency", currency, "must be a 3-letter ISO code")
	}
	if minorUnits < 0 {
		return Money{}, newValidationError(KindNegativeAmount, "amount", minorUnits, "must not be negative")
	}
	return Money{amount: minorUnits, currency: currency}, nil
}

// ParseMoney parses a decimal amount such as "120", "120.5" or "120.50".
func ParseMoney(amount, currency string) (Money, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return Money{}, newValidationError(KindInvalidMoney, "amount", amount, "is required")
	}
	if strings.HasPrefix(amount, "-") {
		return Money{}, newValidationError(KindNegativeAmount, "amount", amount, "must not be negative")
	}

	whole, frac, hasFrac := strings.Cut(amount, ".")
	if hasFrac && (len(frac) == 0 || len(frac) > 2) {
		return Money{}, newValidationError(KindInvalidMoney, "amount", amount, "must have at most two decimal places")
	}
	for len(frac) < 2 {
		frac += "0"
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return Money{}, newValidationError(KindInvalidMoney, "amount", amount, "is not a decimal number")
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return Money{}, newValidationError(KindInvalidMoney, "amount", amount, "is not a decimal number")
	}
	if units > (math.MaxInt64-cents)/100 {
		return Money{}, newValidationError(KindInvalidMoney, "amount", amount, "is too large")
	}

	return NewMoney(units*100+cents, currency)
}

func ZeroMoney(currency string) (Money, error) {
	return NewMoney(0, currency)
}

func (m Money) MinorUnits() int64 { return m.amount }
func (m Money) Currency() string  { return m.currency }
func (m Money) IsZero() bool      { return m.amount == 0 }

// Decimal renders the amount with exactly two decimal places.
func (m Money) Decimal() string {
	return fmt.Sprintf("%d.%02d", m.amount/100, m.amount%100)
}

func (m Money) String() string {
	return m.Decimal() + " " + m.currency
}

func (m Money) sameCurrency(other Money) error {
	if m.currency != other.currency {
		return newValidationError(KindCurrencyMismatch, "currency", other.currency,
			fmt.Sprintf("expected %s", m.currency))
	}
	return nil
}

func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	if m.amount > math.MaxInt64-other.amount {
		return Money{}, newValidationError(KindInvalidMoney, "amount", other.Decimal(), "sum overflows")
	}
	return Money{amount: m.amount + other.amount, currency: m.currency}, nil
}

func (m Money) Subtract(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	if other.amount > m.amount {
		return Money{}, newValidationError(KindNegativeAmount, "amount", other.Decimal(),
			fmt.Sprintf("subtracting from %s would go negative", m.Decimal()))
	}
	return Money{amount: m.amount - other.amount, currency: m.currency}, nil
}

func (m Money) Multiply(factor int) (Money, error) {
	if factor < 0 {
		return Money{}, newValidationError(KindNegativeAmount, "factor", factor, "must not be negative")
	}
	if factor != 0 && m.amount > math.MaxInt64/int64(factor) {
		return Money{}, newValidationError(KindInvalidMoney, "factor", factor, "product overflows")
	}
	return Money{amount: m.amount * int64(factor), currency: m.currency}, nil
}

// Compare returns -1, 0 or 1. Money of different currencies is not comparable.
func (m Money) Compare(other Money) (int, error) {
	if err := m.sameCurrency(other); err != nil {
		return 0, err
	}
	switch {
	case m.amount < other.amount:
		return -1, nil
	case m.amount > other.amount:
		return 1, nil
	default:
		return 0, nil
	}
}

func (m Money) GreaterThan(other Money) (bool, error) {
	c, err := m.Compare(other)
	return c > 0, err
}

func (m Money) LessThan(other Money) (bool, error) {
	c, err := m.Compare(other)
	return c < 0, err
}

func (m Money) Equal(other Money) bool {
	return m.currency == other.currency && m.amount == other.amount
}

type moneyJSON struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.Decimal(), Currency: m.currency})
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseMoney(raw.Amount, raw.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
