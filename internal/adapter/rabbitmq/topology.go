package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	eventsExchange = "restaurant_events"

	lowStockExchange = "low_stock"
	lowStockQueue    = "low_stock_alerts"
	lowStockKey      = "alerts.low_stock"
	lowStockDLX      = "low_stock_dlq"
	lowStockDLQ      = "low_stock_alerts_dlq"
)

func declareEvents(ch Channel) error {
	if err := ch.ExchangeDeclare(eventsExchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare events exchange: %w", err)
	}
	return nil
}

func declareLowStock(ch Channel) error {
	// Declare main exchange
	if err := ch.ExchangeDeclare(lowStockExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare low stock exchange: %w", err)
	}

	// Declare DLQ exchange
	if err := ch.ExchangeDeclare(lowStockDLX, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare DLQ exchange: %w", err)
	}

	// Declare DLQ queue
	if _, err := ch.QueueDeclare(lowStockDLQ, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare DLQ: %w", err)
	}

	// Bind DLQ
	if err := ch.QueueBind(lowStockDLQ, "", lowStockDLX, false, nil); err != nil {
		return fmt.Errorf("failed to bind DLQ: %w", err)
	}

	// Declare main queue with DLQ binding
	args := amqp.Table{
		"x-dead-letter-exchange": lowStockDLX,
	}
	q, err := ch.QueueDeclare(lowStockQueue, true, false, false, false, args)
	if err != nil {
		return fmt.Errorf("failed to declare low stock queue: %w", err)
	}

	// Bind main queue
	if err := ch.QueueBind(q.Name, lowStockKey, lowStockExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind low stock queue: %w", err)
	}
	return nil
}
