package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/YelzhanWeb/restaurant/internal/interfaces"
	amqp "github.com/rabbitmq/amqp091-go"
)

type publisher struct {
	conn Connection
}

func NewPublisher(conn Connection) interfaces.MessagePublisher {
	return &publisher{conn: conn}
}

func (p *publisher) PublishEvent(ctx context.Context, msg interfaces.EventMessage) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := declareEvents(ch); err != nil {
		return err
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = ch.Publish(ctx, eventsExchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   msg.At,
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

func (p *publisher) PublishLowStock(ctx context.Context, msg interfaces.LowStockMessage) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := declareLowStock(ch); err != nil {
		return err
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = ch.Publish(ctx, lowStockExchange, lowStockKey, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    msg.Timestamp,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish low stock alert: %w", err)
	}

	return nil
}

// Notifier queues low-stock reports for the notification subscriber.
type Notifier struct {
	publisher interfaces.MessagePublisher
}

func NewNotifier(publisher interfaces.MessagePublisher) *Notifier {
	return &Notifier{publisher: publisher}
}

func (n *Notifier) NotifyLowStock(ctx context.Context, msg interfaces.LowStockMessage) error {
	return n.publisher.PublishLowStock(ctx, msg)
}
