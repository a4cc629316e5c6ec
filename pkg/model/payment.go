package model

import "time"

type Payment struct {
	ID             PaymentID     `json:"id"`
	BookingID      BookingID     `json:"booking_id"`
	Amount         Money         `json:"amount"`
	Status         PaymentStatus `json:"status"`
	Method         PaymentMethod `json:"method"`
	TransactionRef string        `json:"transaction_ref,omitempty"`
	FailureReason  string        `json:"failure_reason,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

func NewPayment(id PaymentID, bookingID BookingID, amount Money, method PaymentMethod, now time.Time) (*Payment, PaymentInitiated, error) {
	if id.IsZero() {
		return nil, PaymentInitiated{}, newValidationError(KindInvalidIdentifier, "payment_id", id, "must be assigned before creation")
	}
	if bookingID.IsZero() {
		return nil, PaymentInitiated{}, newValidationError(KindInvalidIdentifier, "booking_id", bookingID, "is required")
	}
	if amount.IsZero() {
		return nil, PaymentInitiated{}, newValidationError(KindInvalidMoney, "amount", amount.Decimal(), "must be positive")
	}
	if _, err := ParsePaymentMethod(string(method)); err != nil {
		return nil, PaymentInitiated{}, err
	}

	now = now.UTC()
	p := &Payment{
		ID:        id,
		BookingID: bookingID,
		Amount:    amount,
		Status:    PaymentStatusPending,
		Method:    method,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return p, p.initiated(now), nil
}

func (p *Payment) initiated(now time.Time) PaymentInitiated {
	return PaymentInitiated{
		EventMeta: newEventMeta(EventPaymentInitiated, now),
		PaymentID: p.ID.Int64(),
		BookingID: p.BookingID.Int64(),
		Amount:    p.Amount.Decimal(),
		Currency:  p.Amount.Currency(),
		Method:    string(p.Method),
	}
}

func (p *Payment) transition(target PaymentStatus, now time.Time) error {
	if !p.Status.CanTransitionTo(target) {
		return &TransitionError{Entity: "payment", From: p.Status.String(), To: target.String()}
	}
	p.Status = target
	p.UpdatedAt = now.UTC()
	return nil
}

func (p *Payment) MarkCompleted(transactionRef string, now time.Time) (PaymentCompleted, error) {
	if err := p.transition(PaymentStatusCompleted, now); err != nil {
		return PaymentCompleted{}, err
	}
	p.TransactionRef = transactionRef
	p.FailureReason = ""
	return PaymentCompleted{
		EventMeta:      newEventMeta(EventPaymentCompleted, now),
		PaymentID:      p.ID.Int64(),
		BookingID:      p.BookingID.Int64(),
		Amount:         p.Amount.Decimal(),
		Currency:       p.Amount.Currency(),
		TransactionRef: transactionRef,
	}, nil
}

func (p *Payment) MarkFailed(reason string, now time.Time) (PaymentFailed, error) {
	if err := p.transition(PaymentStatusFailed, now); err != nil {
		return PaymentFailed{}, err
	}
	p.FailureReason = reason
	return PaymentFailed{
		EventMeta: newEventMeta(EventPaymentFailed, now),
		PaymentID: p.ID.Int64(),
		BookingID: p.BookingID.Int64(),
		Reason:    reason,
	}, nil
}

// Retry moves a failed payment back to pending and raises a fresh initiation.
func (p *Payment) Retry(now time.Time) (PaymentInitiated, error) {
	if err := p.transition(PaymentStatusPending, now); err != nil {
		return PaymentInitiated{}, err
	}
	p.FailureReason = ""
	return p.initiated(now), nil
}

func (p *Payment) Refund(now time.Time) (PaymentRefunded, error) {
	if err := p.transition(PaymentStatusRefunded, now); err != nil {
		return PaymentRefunded{}, err
	}
	return PaymentRefunded{
		EventMeta: newEventMeta(EventPaymentRefunded, now),
		PaymentID: p.ID.Int64(),
		BookingID: p.BookingID.Int64(),
		Amount:    p.Amount.Decimal(),
		Currency:  p.Amount.Currency(),
	}, nil
}
