package delivery

import (
	"context"
	"time"

	"github.com/YelzhanWeb/restaurant/internal/adapter/logger"
	"github.com/YelzhanWeb/restaurant/internal/app/access"
	"github.com/YelzhanWeb/restaurant/internal/domain"
	"github.com/YelzhanWeb/restaurant/internal/interfaces"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("restaurant/delivery")

// Service implements the deliverer claim protocol. Every step is a single
// conditional write in the order repository, so at most one deliverer holds
// an order at any time.
type Service struct {
	orders interfaces.OrderRepository
	guard  *access.Guard
	logger logger.Logger
	now    func() time.Time
}

func NewService(orders interfaces.OrderRepository, users interfaces.UserRepository, logger logger.Logger) *Service {
	return &Service{
		orders: orders,
		guard:  access.NewGuard(users),
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ListAvailable returns ready, unassigned orders, oldest first.
func (s *Service) ListAvailable(ctx context.Context, p domain.Principal) ([]*domain.Order, error) {
	if _, err := s.guard.Require(ctx, p, domain.RoleDelivery); err != nil {
		return nil, err
	}
	return s.orders.ListAvailable(ctx)
}

func (s *Service) TakeOrder(ctx context.Context, p domain.Principal, orderID string) (*interfaces.DeliveryOutcome, error) {
	ctx, span := tracer.Start(ctx, "delivery.TakeOrder", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	user, err := s.guard.Require(ctx, p, domain.RoleDelivery)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Claimable() {
		return nil, domain.Conflict("order may have been taken by another deliverer")
	}

	chat := &domain.Chat{
		ID:          uuid.NewString(),
		OrderID:     order.ID,
		ClientID:    order.CustomerID,
		DelivererID: user.ID,
		CreatedAt:   s.now(),
	}

	taken, err := s.orders.Claim(ctx, orderID, user.ID, chat)
	if err != nil {
		if domain.IsKind(err, domain.KindConflict) {
			s.logger.Debug("order_take_lost", "Order was claimed by another deliverer", order.Number, map[string]interface{}{
				"deliverer_id": user.ID,
			})
		}
		return nil, err
	}

	s.logger.Info("order_taken", "Order taken for delivery", taken.Number, map[string]interface{}{
		"order_id":     taken.ID,
		"deliverer_id": user.ID,
		"chat_id":      chat.ID,
	})

	return &interfaces.DeliveryOutcome{
		Order: taken,
		Events: []domain.Event{
			domain.NewEvent(domain.EventOrderTaken, "", map[string]interface{}{
				"orderId":     taken.ID,
				"orderNumber": taken.Number,
				"deliverer": map[string]string{
					"id":   user.ID,
					"name": user.FullName(),
				},
			}),
			statusEvent(taken, domain.StatusReady),
		},
	}, nil
}

// ReleaseOrder hands an order back to the pool. Orders that do not exist or are
// held by someone else look the same to the caller.
func (s *Service) ReleaseOrder(ctx context.Context, p domain.Principal, orderID string) (*interfaces.DeliveryOutcome, error) {
	ctx, span := tracer.Start(ctx, "delivery.ReleaseOrder", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	user, err := s.guard.Require(ctx, p, domain.RoleDelivery)
	if err != nil {
		return nil, err
	}

	released, err := s.orders.Release(ctx, orderID, user.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("order_released", "Order released by deliverer", released.Number, map[string]interface{}{
		"order_id":     released.ID,
		"deliverer_id": user.ID,
	})

	return &interfaces.DeliveryOutcome{
		Order: released,
		Events: []domain.Event{
			domain.NewEvent(domain.EventOrderReleased, "", map[string]interface{}{
				"orderId":     released.ID,
				"orderNumber": released.Number,
			}),
			statusEvent(released, domain.StatusOutForDelivery),
		},
	}, nil
}

func (s *Service) MarkDelivered(ctx context.Context, p domain.Principal, orderID string) (*interfaces.DeliveryOutcome, error) {
	ctx, span := tracer.Start(ctx, "delivery.MarkDelivered", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	user, err := s.guard.Require(ctx, p, domain.RoleDelivery)
	if err != nil {
		return nil, err
	}

	delivered, err := s.orders.MarkDelivered(ctx, orderID, user.ID, s.now())
	if err != nil {
		return nil, err
	}

	s.logger.Info("order_delivered", "Order marked as delivered", delivered.Number, map[string]interface{}{
		"order_id":     delivered.ID,
		"deliverer_id": user.ID,
	})

	return &interfaces.DeliveryOutcome{
		Order: delivered,
		Events: []domain.Event{
			domain.NewEvent(domain.EventOrderDelivered, "", map[string]interface{}{
				"orderId":     delivered.ID,
				"orderNumber": delivered.Number,
				"deliveredAt": delivered.DeliveredAt,
			}),
			statusEvent(delivered, domain.StatusOutForDelivery),
		},
	}, nil
}

func statusEvent(order *domain.Order, previous domain.Status) domain.Event {
	return domain.NewEvent(domain.EventOrderStatus, domain.OrderRoom(order.ID), map[string]interface{}{
		"orderId":        order.ID,
		"orderNumber":    order.Number,
		"previousStatus": previous,
		"newStatus":      order.Status,
	})
}
