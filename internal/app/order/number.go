package order

import (
	"context"
	"fmt"
	"time"

	"github.com/YelzhanWeb/restaurant/internal/domain"
	"github.com/YelzhanWeb/restaurant/internal/interfaces"
)

// CountingNumbers derives the running count from the stored orders. It is the
// fallback when no shared counter is configured.
type CountingNumbers struct {
	orders interfaces.OrderRepository
	now    func() time.Time
}

func NewCountingNumbers(orders interfaces.OrderRepository) *CountingNumbers {
	return &CountingNumbers{orders: orders, now: time.Now}
}

func (c *CountingNumbers) Next(ctx context.Context) (string, error) {
	count, err := c.orders.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to count orders: %w", err)
	}
	return domain.FormatOrderNumber(c.now(), count+1), nil
}
