package handler

import (
	"context"
	"fmt"
	"time"

	"campbook/internal/analytics/repository"
	"campbook/internal/events"
	"campbook/pkg/kafka"
	"campbook/pkg/logger"
	"campbook/pkg/model"
)

// ActivityHandler projects every domain event into the reporting store.
type ActivityHandler struct {
	repo repository.ActivityRepository
	log  *logger.Logger
	now  func() time.Time
}

func NewActivityHandler(repo repository.ActivityRepository, log *logger.Logger) *ActivityHandler {
	return &ActivityHandler{
		repo: repo,
		log:  log.With("handler", "analytics"),
		now:  time.Now,
	}
}

func (h *ActivityHandler) Name() string { return "analytics" }

func (h *ActivityHandler) CanHandle(eventType string) bool { return events.Known(eventType) }

func (h *ActivityHandler) Handle(ctx context.Context, event model.Event) error {
	activity, err := h.project(event)
	if err != nil {
		return fmt.Errorf("%w: %w", kafka.ErrInvalidMessage, err)
	}

	inserted, err := h.repo.Record(ctx, activity)
	if err != nil {
		return err
	}
	if !inserted {
		h.log.DebugContext(ctx, "Activity already recorded", "event_id", activity.EventID)
		return nil
	}

	h.log.DebugContext(ctx, "Activity recorded",
		"event_id", activity.EventID,
		"event_type", activity.EventType,
		"day", activity.Day(),
	)
	return nil
}

func (h *ActivityHandler) project(event model.Event) (repository.Activity, error) {
	a := repository.Activity{
		EventID:     event.EventID(),
		EventType:   event.EventType(),
		AggregateID: event.AggregateID(),
		OccurredOn:  event.OccurredOn().UTC(),
		RecordedAt:  h.now().UTC(),
	}

	var (
		amount   string
		currency string
	)
	switch e := event.(type) {
	case model.BookingCreated:
		a.BookingID, a.GuestID, a.CampsiteID, a.Nights = e.BookingID, e.GuestID, e.CampsiteID, e.Nights
		amount, currency = e.TotalAmount, e.Currency
	case model.BookingConfirmed:
		a.BookingID, a.GuestID, a.CampsiteID = e.BookingID, e.GuestID, e.CampsiteID
	case model.BookingCancelled:
		a.BookingID, a.GuestID = e.BookingID, e.GuestID
	case model.BookingCompleted:
		a.BookingID, a.GuestID = e.BookingID, e.GuestID
	case model.PaymentInitiated:
		a.BookingID = e.BookingID
		amount, currency = e.Amount, e.Currency
	case model.PaymentCompleted:
		a.BookingID = e.BookingID
		amount, currency = e.Amount, e.Currency
	case model.PaymentFailed:
		a.BookingID = e.BookingID
	case model.PaymentRefunded:
		a.BookingID = e.BookingID
		amount, currency = e.Amount, e.Currency
	case model.UserCreated:
		a.GuestID = e.GuestID
	default:
		return a, fmt.Errorf("no projection for %s", event.EventType())
	}

	if amount != "" {
		money, err := model.ParseMoney(amount, currency)
		if err != nil {
			return a, fmt.Errorf("event %s amount: %w", a.EventID, err)
		}
		a.AmountMinor, a.Currency = money.MinorUnits(), money.Currency()
	}
	return a, nil
}
