package handler

import (
	"context"
	"errors"
	"fmt"

	"campbook/internal/notifications/notifier"
	"campbook/internal/notifications/repository"
	"campbook/pkg/kafka"
	"campbook/pkg/logger"
	"campbook/pkg/model"
)

// Deduper remembers which events already produced a notification.
// *idempotency.Store satisfies it.
type Deduper interface {
	Seen(ctx context.Context, id string) (bool, error)
	Mark(ctx context.Context, id string) error
}

var handledTypes = map[string]bool{
	model.EventBookingCreated:   true,
	model.EventBookingConfirmed: true,
	model.EventBookingCancelled: true,
	model.EventPaymentCompleted: true,
	model.EventPaymentFailed:    true,
	model.EventPaymentRefunded:  true,
	model.EventUserCreated:      true,
}

// NotificationHandler tells guests about changes to their bookings and
// payments. An event is marked only after a successful send, so a crash in
// between yields a duplicate rather than a lost notification.
type NotificationHandler struct {
	directory repository.Directory
	notifier  notifier.Notifier
	dedupe    Deduper
	log       *logger.Logger
}

func NewNotificationHandler(directory repository.Directory, n notifier.Notifier, dedupe Deduper, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		directory: directory,
		notifier:  n,
		dedupe:    dedupe,
		log:       log.With("handler", "notifications"),
	}
}

func (h *NotificationHandler) Name() string { return "notifications" }

func (h *NotificationHandler) CanHandle(eventType string) bool { return handledTypes[eventType] }

func (h *NotificationHandler) Handle(ctx context.Context, event model.Event) error {
	seen, err := h.dedupe.Seen(ctx, event.EventID())
	if err != nil {
		h.log.WarnContext(ctx, "Dedupe lookup failed, sending anyway", "event_id", event.EventID(), "error", err)
	}
	if seen {
		h.log.DebugContext(ctx, "Notification already sent", "event_id", event.EventID())
		return nil
	}

	n, err := h.compose(ctx, event)
	if err != nil {
		if errors.Is(err, repository.ErrRecipientNotFound) {
			return fmt.Errorf("%w: %w", kafka.ErrInvalidMessage, err)
		}
		return err
	}

	if err := h.notifier.Send(ctx, n); err != nil {
		return fmt.Errorf("send %s notification: %w", event.EventType(), err)
	}

	if err := h.dedupe.Mark(ctx, event.EventID()); err != nil {
		h.log.WarnContext(ctx, "Failed to mark notification as sent", "event_id", event.EventID(), "error", err)
	}
	return nil
}

func (h *NotificationHandler) compose(ctx context.Context, event model.Event) (notifier.Notification, error) {
	var (
		to      repository.Recipient
		err     error
		subject string
		body    string
	)

	switch e := event.(type) {
	case model.BookingCreated:
		to, err = h.directory.Guest(ctx, e.GuestID)
		subject = fmt.Sprintf("Booking #%d received", e.BookingID)
		body = fmt.Sprintf("We received your booking for %s to %s (%d nights). Total: %s %s.",
			e.StartDate, e.EndDate, e.Nights, e.TotalAmount, e.Currency)
	case model.BookingConfirmed:
		to, err = h.directory.Guest(ctx, e.GuestID)
		subject = fmt.Sprintf("Booking #%d confirmed", e.BookingID)
		body = fmt.Sprintf("Your stay from %s to %s is confirmed.", e.StartDate, e.EndDate)
	case model.BookingCancelled:
		to, err = h.directory.Guest(ctx, e.GuestID)
		subject = fmt.Sprintf("Booking #%d cancelled", e.BookingID)
		body = "Your booking was cancelled."
		if e.Reason != "" {
			body += " Reason: " + e.Reason
		}
	case model.PaymentCompleted:
		to, err = h.directory.GuestForBooking(ctx, e.BookingID)
		subject = fmt.Sprintf("Payment received for booking #%d", e.BookingID)
		body = fmt.Sprintf("We received %s %s (ref %s).", e.Amount, e.Currency, e.TransactionRef)
	case model.PaymentFailed:
		to, err = h.directory.GuestForBooking(ctx, e.BookingID)
		subject = fmt.Sprintf("Payment failed for booking #%d", e.BookingID)
		body = "Your payment could not be processed: " + e.Reason
	case model.PaymentRefunded:
		to, err = h.directory.GuestForBooking(ctx, e.BookingID)
		subject = fmt.Sprintf("Refund issued for booking #%d", e.BookingID)
		body = fmt.Sprintf("%s %s is on its way back to you.", e.Amount, e.Currency)
	case model.UserCreated:
		to = repository.Recipient{GuestID: e.GuestID, Email: e.Email, Name: e.FirstName + " " + e.LastName}
		subject = "Welcome to campbook"
		body = fmt.Sprintf("Hi %s, your guest account is ready.", e.FirstName)
	default:
		return notifier.Notification{}, fmt.Errorf("%w: no template for %s", kafka.ErrInvalidMessage, event.EventType())
	}
	if err != nil {
		return notifier.Notification{}, err
	}

	return notifier.Notification{
		EventID: event.EventID(),
		To:      to.Email,
		Name:    to.Name,
		Subject: subject,
		Body:    body,
	}, nil
}
