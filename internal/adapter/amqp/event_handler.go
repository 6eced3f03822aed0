package amqp

import (
	"context"
	"encoding/json"

	"github.com/YelzhanWeb/restaurant/internal/adapter/logger"
	"github.com/YelzhanWeb/restaurant/internal/domain"
	"github.com/YelzhanWeb/restaurant/internal/interfaces"
)

// EventEmitter delivers an event to local listeners.
type EventEmitter interface {
	Emit(ev domain.Event)
}

// EventHandler relays events published by other API instances to this
// instance's listeners. Events from this instance were emitted locally already.
type EventHandler struct {
	emitter EventEmitter
	origin  string
	logger  logger.Logger
}

func NewEventHandler(emitter EventEmitter, origin string, logger logger.Logger) *EventHandler {
	return &EventHandler{
		emitter: emitter,
		origin:  origin,
		logger:  logger,
	}
}

func (h *EventHandler) HandleEvent(ctx context.Context, body []byte) error {
	var msg interfaces.EventMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		h.logger.Error("message_parse_failed", "Failed to parse event message", "", nil, err)
		return err
	}
	if msg.Origin == h.origin {
		return nil
	}

	h.emitter.Emit(domain.Event{
		Name:    msg.Name,
		Room:    msg.Room,
		Payload: msg.Payload,
		At:      msg.At,
	})
	return nil
}
