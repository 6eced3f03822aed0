package rabbitmq

import (
	"context"
	"fmt"
	"time"

	"github.com/YelzhanWeb/restaurant/internal/adapter/logger"
	"github.com/YelzhanWeb/restaurant/internal/interfaces"
)

const reconnectDelay = 5 * time.Second

type consumer struct {
	conn     Connection
	prefetch int
	logger   logger.Logger
}

func NewConsumer(conn Connection, prefetch int, logger logger.Logger) interfaces.MessageConsumer {
	return &consumer{conn: conn, prefetch: prefetch, logger: logger}
}

func (c *consumer) ConsumeEvents(ctx context.Context, handler interfaces.EventHandler) error {
	return c.loop(ctx, "events", func(ctx context.Context) error {
		return c.consumeEvents(ctx, handler)
	})
}

func (c *consumer) ConsumeLowStock(ctx context.Context, handler interfaces.LowStockHandler) error {
	return c.loop(ctx, "low_stock", func(ctx context.Context) error {
		return c.consumeLowStock(ctx, handler)
	})
}

// loop keeps one consumer session alive, re-establishing it after broker failures.
func (c *consumer) loop(ctx context.Context, name string, session func(ctx context.Context) error) error {
	for {
		err := session(ctx)

		// Если контекст отменен или соединение закрыто намеренно - выходим
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err == nil {
			return nil
		}

		// Логируем ошибку и пытаемся переподключиться
		c.logger.Warn("consumer_disconnected", "Consumer disconnected, reconnecting", "", map[string]interface{}{
			"consumer": name,
			"error":    err.Error(),
			"retry_in": reconnectDelay.String(),
		})

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
			// Продолжаем попытки переподключения
		}
	}
}

func (c *consumer) consumeEvents(ctx context.Context, handler interfaces.EventHandler) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	// Отслеживаем закрытие канала
	closeChan := ch.NotifyClose()

	if err := declareEvents(ch); err != nil {
		return err
	}

	// Declare temporary exclusive queue
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	// Bind queue
	if err := ch.QueueBind(q.Name, "", eventsExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	// Start consuming
	msgs, err := ch.Consume(q.Name, "", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-closeChan:
			if err != nil {
				return fmt.Errorf("channel closed: %w", err)
			}
			return fmt.Errorf("channel closed gracefully")

		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("messages channel closed")
			}

			// События best-effort: ошибки только логируем
			if err := handler(ctx, msg.Body); err != nil {
				c.logger.Debug("event_dropped", "Failed to relay event", "", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}
}

func (c *consumer) consumeLowStock(ctx context.Context, handler interfaces.LowStockHandler) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	closeChan := ch.NotifyClose()

	// Set QoS
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	if err := declareLowStock(ch); err != nil {
		return err
	}

	msgs, err := ch.Consume(lowStockQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-closeChan:
			if err != nil {
				return fmt.Errorf("channel closed: %w", err)
			}
			return fmt.Errorf("channel closed gracefully")

		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("messages channel closed")
			}

			if err := handler(ctx, msg.Body); err != nil {
				// Отправляем в DLQ (requeue=false)
				msg.Nack(false, false)
			} else {
				msg.Ack(false)
			}
		}
	}
}
