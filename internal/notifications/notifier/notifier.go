package notifier

import (
	"context"

	"campbook/pkg/logger"
)

type Notification struct {
	EventID string
	To      string
	Name    string
	Subject string
	Body    string
}

// Notifier delivers a notification. Delivery may repeat for the same
// EventID when a message is redelivered.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the log instead of a mail gateway.
type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(ctx context.Context, msg Notification) error {
	n.log.InfoContext(ctx, "Notification sent",
		"event_id", msg.EventID,
		"to", msg.To,
		"subject", msg.Subject,
	)
	return nil
}
