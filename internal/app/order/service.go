package order

import (
	"context"
	"fmt"

	"github.com/YelzhanWeb/restaurant/internal/adapter/logger"
	"github.com/YelzhanWeb/restaurant/internal/app/access"
	"github.com/YelzhanWeb/restaurant/internal/app/inventory"
	"github.com/YelzhanWeb/restaurant/internal/domain"
	"github.com/YelzhanWeb/restaurant/internal/interfaces"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("restaurant/order")

// createAttempts bounds order number regeneration on a uniqueness clash.
const createAttempts = 3

// StockReducer runs the stock reduction pass of an order entering ready.
type StockReducer interface {
	Reduce(ctx context.Context, order *domain.Order, recipient string) (*inventory.Report, error)
}

type Service struct {
	orders        interfaces.OrderRepository
	products      interfaces.ProductRepository
	users         interfaces.UserRepository
	numbers       interfaces.OrderNumberGenerator
	reducer       StockReducer
	guard         *access.Guard
	logger        logger.Logger
	blockTerminal bool
}

type Option func(*Service)

// WithTerminalGuard toggles rejection of status updates on terminal orders.
func WithTerminalGuard(enabled bool) Option {
	return func(s *Service) { s.blockTerminal = enabled }
}

func NewService(
	orders interfaces.OrderRepository,
	products interfaces.ProductRepository,
	users interfaces.UserRepository,
	numbers interfaces.OrderNumberGenerator,
	reducer StockReducer,
	logger logger.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		orders:        orders,
		products:      products,
		users:         users,
		numbers:       numbers,
		reducer:       reducer,
		guard:         access.NewGuard(users),
		logger:        logger,
		blockTerminal: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) CreateOrder(ctx context.Context, p domain.Principal, cmd interfaces.CreateOrderCommand) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "order.Create")
	defer span.End()

	if cmd.CustomerID == "" {
		cmd.CustomerID = p.UserID
	}
	if _, err := s.guard.RequireSelf(ctx, p, cmd.CustomerID); err != nil {
		return nil, err
	}

	// 1. Преобразование команд в доменные модели
	items := make([]domain.OrderItem, len(cmd.Items))
	for i, item := range cmd.Items {
		items[i] = domain.OrderItem{
			ProductID:           item.ProductID,
			Quantity:            item.Quantity,
			SpecialInstructions: item.SpecialInstructions,
		}
	}

	order, err := domain.NewOrder(cmd.CustomerID, items, cmd.DeliveryAddress, cmd.CustomerNotes)
	if err != nil {
		return nil, err
	}

	// 2. Клиент и продукты загружаются параллельно
	var products []*domain.Product
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if _, err := s.users.FindByID(gctx, cmd.CustomerID); err != nil {
			if domain.IsKind(err, domain.KindNotFound) {
				return domain.NotFound("customer %s not found", cmd.CustomerID)
			}
			return err
		}
		return nil
	})
	g.Go(func() error {
		var err error
		products, err = s.products.FindByIDs(gctx, order.ProductIDs())
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := checkProducts(order, products); err != nil {
		return nil, err
	}

	// 3. Номер заказа и сохранение
	for attempt := 1; ; attempt++ {
		number, err := s.numbers.Next(ctx)
		if err != nil {
			return nil, domain.Internal("failed to generate order number", err)
		}
		order.ID = uuid.NewString()
		order.Number = number

		err = s.orders.Create(ctx, order)
		if err == nil {
			break
		}
		if !domain.IsKind(err, domain.KindConflict) || attempt == createAttempts {
			s.logger.Error("db_transaction_failed", "Failed to create order", "", map[string]interface{}{
				"order_number": number,
			}, err)
			return nil, err
		}
	}

	span.SetAttributes(attribute.String("order.number", order.Number))
	s.logger.Info("order_created", "Order created", order.Number, map[string]interface{}{
		"order_id":    order.ID,
		"customer_id": order.CustomerID,
		"items":       len(order.Items),
	})
	return order, nil
}

// checkProducts rejects unknown and unavailable products.
func checkProducts(order *domain.Order, products []*domain.Product) error {
	byID := make(map[string]*domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	var missing, unavailable []string
	for _, id := range order.ProductIDs() {
		p, ok := byID[id]
		switch {
		case !ok:
			missing = append(missing, id)
		case !p.Available:
			unavailable = append(unavailable, p.Name)
		}
	}

	if len(missing) > 0 {
		return domain.Validation("some products were not found").WithDetails(missing...)
	}
	if len(unavailable) > 0 {
		return domain.Validation("some products are not available").WithDetails(unavailable...)
	}
	return nil
}

// GetOrder is visible to admins, deliverers and the ordering customer.
func (s *Service) GetOrder(ctx context.Context, p domain.Principal, id string) (*domain.Order, error) {
	user, err := s.guard.Require(ctx, p)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role == domain.RoleCustomer && order.CustomerID != user.ID {
		return nil, domain.NotFound("order %s not found", id)
	}
	return order, nil
}

func (s *Service) ListOrders(ctx context.Context, p domain.Principal, filter interfaces.OrderFilter) ([]*domain.Order, error) {
	if _, err := s.guard.Require(ctx, p, domain.RoleAdmin); err != nil {
		return nil, err
	}
	return s.orders.List(ctx, filter)
}

func (s *Service) ListCustomerOrders(ctx context.Context, p domain.Principal, customerID string) ([]*domain.Order, error) {
	if _, err := s.guard.RequireSelf(ctx, p, customerID); err != nil {
		return nil, err
	}
	return s.orders.List(ctx, interfaces.OrderFilter{CustomerID: customerID})
}

func (s *Service) GetHistory(ctx context.Context, p domain.Principal, id string) ([]*domain.StatusLog, error) {
	if _, err := s.GetOrder(ctx, p, id); err != nil {
		return nil, err
	}
	return s.orders.GetStatusHistory(ctx, id)
}

// UpdateStatus is the administrative transition. Entering ready from any other
// status runs exactly one stock reduction pass; the conditional write on the
// previous status keeps concurrent admins from both triggering it.
func (s *Service) UpdateStatus(ctx context.Context, p domain.Principal, cmd interfaces.UpdateStatusCommand) (*interfaces.StatusChange, error) {
	ctx, span := tracer.Start(ctx, "order.UpdateStatus")
	defer span.End()

	admin, err := s.guard.Require(ctx, p, domain.RoleAdmin)
	if err != nil {
		return nil, err
	}

	newStatus, err := domain.ParseStatus(cmd.Status)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.FindByID(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	previous := order.Status

	change := &interfaces.StatusChange{
		OrderNumber:    order.Number,
		PreviousStatus: previous,
		NewStatus:      newStatus,
	}
	if previous == newStatus {
		return change, nil
	}

	if err := order.CanSetStatus(newStatus, s.blockTerminal); err != nil {
		return nil, err
	}

	updated, err := s.orders.UpdateStatus(ctx, order.ID, previous, newStatus, admin.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("order_status_updated", fmt.Sprintf("Order %s moved to %s", updated.Number, newStatus), updated.Number, map[string]interface{}{
		"previous_status": previous,
		"new_status":      newStatus,
		"changed_by":      admin.ID,
	})

	if newStatus == domain.StatusReady {
		s.reduceStock(ctx, updated, admin.Email)
	}

	change.Events = []domain.Event{statusEvent(updated, previous)}
	return change, nil
}

// reduceStock never fails the transition, which has already been committed.
func (s *Service) reduceStock(ctx context.Context, order *domain.Order, recipient string) {
	report, err := s.reducer.Reduce(ctx, order, recipient)
	if err != nil {
		s.logger.Error("stock_reduction_failed", "Stock reduction failed", order.Number, map[string]interface{}{
			"order_id": order.ID,
		}, err)
		return
	}
	s.logger.Info("stock_reduced", "Stock reduced for order", order.Number, map[string]interface{}{
		"low_stock_alerts": len(report.Alerts),
		"missing_stocks":   len(report.MissingStocks),
		"missing_products": len(report.MissingProducts),
	})
}

// ConfirmReceipt lets the customer close a delivered order.
func (s *Service) ConfirmReceipt(ctx context.Context, p domain.Principal, id string) (*interfaces.DeliveryOutcome, error) {
	user, err := s.guard.Require(ctx, p, domain.RoleCustomer)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := order.Status
	if err := order.ConfirmReceipt(user.ID); err != nil {
		return nil, err
	}

	updated, err := s.orders.UpdateStatus(ctx, id, previous, domain.StatusReceived, user.ID)
	if err != nil {
		return nil, err
	}
	return &interfaces.DeliveryOutcome{
		Order:  updated,
		Events: []domain.Event{statusEvent(updated, previous)},
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
