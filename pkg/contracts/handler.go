package contracts

import (
	"context"

	"campbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type Handler interface {
	RegisterRoutes(*httprouter.Router)
}

// EventHandler performs the side effects of a consumed domain event.
// Handle may run more than once for the same event and must tolerate that.
type EventHandler interface {
	Name() string
	CanHandle(eventType string) bool
	Handle(ctx context.Context, event model.Event) error
}
