package ws

import (
	"context"
	"encoding/json"

	"github.com/YelzhanWeb/restaurant/internal/adapter/logger"
	"github.com/YelzhanWeb/restaurant/internal/domain"
	"github.com/YelzhanWeb/restaurant/internal/interfaces"
)

// Broadcaster emits events to the local hub and fans them out to the other
// API instances. Failures are logged, never returned.
type Broadcaster struct {
	hub       *Hub
	publisher interfaces.MessagePublisher
	origin    string
	logger    logger.Logger
}

// NewBroadcaster builds a broadcaster; a nil publisher keeps events local.
func NewBroadcaster(hub *Hub, publisher interfaces.MessagePublisher, origin string, logger logger.Logger) *Broadcaster {
	return &Broadcaster{hub: hub, publisher: publisher, origin: origin, logger: logger}
}

func (b *Broadcaster) Broadcast(ctx context.Context, events ...domain.Event) {
	for _, ev := range events {
		b.hub.Emit(ev)
		if b.publisher == nil {
			continue
		}

		payload, err := json.Marshal(ev.Payload)
		if err != nil {
			b.logger.Error("event_encode_failed", "Failed to encode event payload", "", map[string]interface{}{
				"event": ev.Name,
			}, err)
			continue
		}
		msg := interfaces.EventMessage{
			Name:    ev.Name,
			Room:    ev.Room,
			Payload: payload,
			At:      ev.At,
			Origin:  b.origin,
		}
		if err := b.publisher.PublishEvent(ctx, msg); err != nil {
			b.logger.Warn("event_publish_failed", "Failed to fan out event", "", map[string]interface{}{
				"event": ev.Name,
				"error": err.Error(),
			})
		}
	}
}

// Origin identifies this instance on relayed events.
func (b *Broadcaster) Origin() string {
	return b.origin
}
