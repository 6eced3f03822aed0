package interfaces

import (
	"context"
	"encoding/json"
	"time"

	"github.com/YelzhanWeb/restaurant/internal/domain"
)

// Сообщения RabbitMQ

// EventMessage carries a real-time event between API instances.
type EventMessage struct {
	Name    string          `json:"event"`
	Room    string          `json:"room,omitempty"`
	Payload json.RawMessage `json:"payload"`
	At      time.Time       `json:"at"`
	Origin  string          `json:"origin"`
}

// LowStockMessage is one aggregated low-stock notification.
type LowStockMessage struct {
	Recipient   string                 `json:"recipient"`
	OrderNumber string                 `json:"order_number"`
	Alerts      []domain.LowStockAlert `json:"alerts"`
	Timestamp   time.Time              `json:"timestamp"`
}

// Интерфейсы Messaging (Adapter/RabbitMQ)
type MessagePublisher interface {
	PublishEvent(ctx context.Context, msg EventMessage) error
	PublishLowStock(ctx context.Context, msg LowStockMessage) error
}

type MessageConsumer interface {
	ConsumeEvents(ctx context.Context, handler EventHandler) error
	ConsumeLowStock(ctx context.Context, handler LowStockHandler) error
}

type (
	EventHandler    func(ctx context.Context, body []byte) error
	LowStockHandler func(ctx context.Context, body []byte) error
)

// EventBroadcaster delivers events to connected listeners, fire-and-forget.
type EventBroadcaster interface {
	Broadcast(ctx context.Context, events ...domain.Event)
}

// LowStockNotifier hands an aggregated low-stock report to the notification sink.
type LowStockNotifier interface {
	NotifyLowStock(ctx context.Context, msg LowStockMessage) error
}

type Mail struct {
	To       []string
	Subject  string
	TextBody string
	HTMLBody string
}

type Mailer interface {
	Send(ctx context.Context, mail Mail) error
}
