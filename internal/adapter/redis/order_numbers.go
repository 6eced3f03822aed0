// Package redis keeps the shared order sequence so that several api-service
// replicas hand out distinct order numbers.
package redis

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/YelzhanWeb/restaurant/internal/config"
	"github.com/YelzhanWeb/restaurant/internal/domain"
	"github.com/YelzhanWeb/restaurant/internal/interfaces"
	goredis "github.com/go-redis/redis/v8"
)

const sequenceKey = "orders:sequence"

func Connect(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// OrderNumbers issues ORD-<millis>-<n> from an INCR counter. The counter is
// seeded once from the stored order count so numbering continues after a
// fresh Redis.
type OrderNumbers struct {
	client *goredis.Client
	orders interfaces.OrderRepository
	seeded atomic.Bool
	now    func() time.Time
}

func NewOrderNumbers(client *goredis.Client, orders interfaces.OrderRepository) *OrderNumbers {
	return &OrderNumbers{client: client, orders: orders, now: time.Now}
}

func (n *OrderNumbers) Next(ctx context.Context) (string, error) {
	if !n.seeded.Load() {
		if err := n.seed(ctx); err != nil {
			return "", err
		}
	}

	seq, err := n.client.Incr(ctx, sequenceKey).Result()
	if err != nil {
		return "", domain.Internal("failed to advance order sequence", err)
	}
	return domain.FormatOrderNumber(n.now(), seq), nil
}

func (n *OrderNumbers) seed(ctx context.Context) error {
	count, err := n.orders.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count orders: %w", err)
	}
	// SETNX leaves a counter another replica already started untouched.
	if err := n.client.SetNX(ctx, sequenceKey, count, 0).Err(); err != nil {
		return domain.Internal("failed to seed order sequence", err)
	}
	n.seeded.Store(true)
	return nil
}
