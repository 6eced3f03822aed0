package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/YelzhanWeb/restaurant/internal/adapter/logger"
	"github.com/YelzhanWeb/restaurant/internal/domain"
	"github.com/YelzhanWeb/restaurant/internal/interfaces"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("restaurant/inventory")

// Report summarises one reduction pass.
type Report struct {
	Alerts          []domain.LowStockAlert
	MissingStocks   []string
	MissingProducts []string
}

// Ledger decrements stock for orders entering the ready state.
type Ledger struct {
	stocks    interfaces.StockRepository
	products  interfaces.ProductRepository
	batch     interfaces.ReductionStore
	notifier  interfaces.LowStockNotifier
	logger    logger.Logger
	recipient string
}

type Option func(*Ledger)

// WithTransactionalBatch commits every decrement and counter of a pass in one transaction.
func WithTransactionalBatch(store interfaces.ReductionStore) Option {
	return func(l *Ledger) { l.batch = store }
}

// WithDefaultRecipient sets where alerts go when the caller has no address.
func WithDefaultRecipient(email string) Option {
	return func(l *Ledger) { l.recipient = email }
}

func NewLedger(
	stocks interfaces.StockRepository,
	products interfaces.ProductRepository,
	notifier interfaces.LowStockNotifier,
	logger logger.Logger,
	opts ...Option,
) *Ledger {
	l := &Ledger{
		stocks:   stocks,
		products: products,
		notifier: notifier,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Reduce runs one reduction pass for order. Missing stock and products are
// skipped with a warning; a failed notification is logged and never returned.
func (l *Ledger) Reduce(ctx context.Context, order *domain.Order, recipient string) (*Report, error) {
	ctx, span := tracer.Start(ctx, "inventory.Reduce")
	defer span.End()
	span.SetAttributes(attribute.String("order.number", order.Number))

	products, err := l.products.FindByIDs(ctx, order.ProductIDs())
	if err != nil {
		return nil, fmt.Errorf("failed to load order products: %w", err)
	}
	byID := make(map[string]*domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	var report *Report
	if l.batch != nil {
		report, err = l.reduceBatch(ctx, order, byID)
	} else {
		report = l.reduceEach(ctx, order, byID)
	}
	if err != nil {
		return nil, err
	}

	if len(report.Alerts) > 0 {
		l.notify(ctx, order, recipient, report.Alerts)
	}
	return report, nil
}

// reduceEach issues one atomic statement per ingredient with no rollback.
func (l *Ledger) reduceEach(ctx context.Context, order *domain.Order, byID map[string]*domain.Product) *Report {
	report := &Report{}
	alerts := newAlertSet()

	for _, item := range order.Items {
		product, ok := byID[item.ProductID]
		if !ok {
			l.warnMissingProduct(order, item.ProductID)
			report.MissingProducts = append(report.MissingProducts, item.ProductID)
			continue
		}

		for _, ing := range product.Ingredients {
			amount := ing.Quantity * float64(item.Quantity)
			stock, err := l.stocks.Adjust(ctx, ing.StockID, -amount)
			if err != nil {
				if domain.IsKind(err, domain.KindNotFound) {
					l.logger.Warn("stock_missing", "Stock not found, skipping ingredient", order.Number, map[string]interface{}{
						"stock_id":   ing.StockID,
						"product_id": product.ID,
					})
					report.MissingStocks = append(report.MissingStocks, ing.StockID)
					continue
				}
				l.logger.Error("stock_reduce_failed", "Failed to reduce stock", order.Number, map[string]interface{}{
					"stock_id": ing.StockID,
					"amount":   amount,
				}, err)
				continue
			}
			if stock.IsLow() {
				alerts.add(domain.NewLowStockAlert(stock))
			}
		}
	}

	for productID, qty := range order.QuantityByProduct() {
		if _, ok := byID[productID]; !ok {
			continue
		}
		if err := l.products.IncrementOrderCount(ctx, productID, qty); err != nil {
			l.logger.Warn("order_count_failed", "Failed to increment product order count", order.Number, map[string]interface{}{
				"product_id": productID,
				"error":      err.Error(),
			})
		}
	}

	report.Alerts = alerts.list()
	return report
}

func (l *Ledger) reduceBatch(ctx context.Context, order *domain.Order, byID map[string]*domain.Product) (*Report, error) {
	report := &Report{}
	batch := interfaces.ReductionBatch{OrderCounts: make(map[string]int)}

	for _, item := range order.Items {
		product, ok := byID[item.ProductID]
		if !ok {
			l.warnMissingProduct(order, item.ProductID)
			report.MissingProducts = append(report.MissingProducts, item.ProductID)
			continue
		}
		for _, ing := range product.Ingredients {
			batch.Decrements = append(batch.Decrements, interfaces.StockDelta{
				StockID: ing.StockID,
				Amount:  ing.Quantity * float64(item.Quantity),
			})
		}
		batch.OrderCounts[item.ProductID] += item.Quantity
	}

	res, err := l.batch.ApplyReduction(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("failed to apply stock reduction: %w", err)
	}

	for _, id := range res.MissingStocks {
		l.logger.Warn("stock_missing", "Stock not found, skipping ingredient", order.Number, map[string]interface{}{
			"stock_id": id,
		})
	}
	report.MissingStocks = append(report.MissingStocks, res.MissingStocks...)
	report.MissingProducts = append(report.MissingProducts, res.MissingProducts...)

	alerts := newAlertSet()
	for _, st := range res.Updated {
		if st.IsLow() {
			alerts.add(domain.NewLowStockAlert(st))
		}
	}
	report.Alerts = alerts.list()
	return report, nil
}

func (l *Ledger) notify(ctx context.Context, order *domain.Order, recipient string, alerts []domain.LowStockAlert) {
	if recipient == "" {
		recipient = l.recipient
	}
	if recipient == "" || l.notifier == nil {
		l.logger.Warn("low_stock_unsent", "Low stock detected but no recipient is configured", order.Number, map[string]interface{}{
			"alerts": len(alerts),
		})
		return
	}

	msg := interfaces.LowStockMessage{
		Recipient:   recipient,
		OrderNumber: order.Number,
		Alerts:      alerts,
		Timestamp:   time.Now().UTC(),
	}
	if err := l.notifier.NotifyLowStock(ctx, msg); err != nil {
		l.logger.Error("low_stock_notify_failed", "Failed to send low stock notification", order.Number, map[string]interface{}{
			"alerts": len(alerts),
		}, err)
		return
	}
	l.logger.Info("low_stock_notified", "Low stock notification dispatched", order.Number, map[string]interface{}{
		"alerts":    len(alerts),
		"recipient": recipient,
	})
}

func (l *Ledger) warnMissingProduct(order *domain.Order, productID string) {
	l.logger.Warn("product_missing", "Product not found, skipping item", order.Number, map[string]interface{}{
		"product_id": productID,
	})
}

// alertSet keeps one alert per stock, holding the latest quantity, in first-seen order.
type alertSet struct {
	order []string
	byID  map[string]domain.LowStockAlert
}

func newAlertSet() *alertSet {
	return &alertSet{byID: make(map[string]domain.LowStockAlert)}
}

func (s *alertSet) add(a domain.LowStockAlert) {
	if _, ok := s.byID[a.StockID]; !ok {
		s.order = append(s.order, a.StockID)
	}
	s.byID[a.StockID] = a
}

func (s *alertSet) list() []domain.LowStockAlert {
	if len(s.order) == 0 {
		return nil
	}
	out := make([]domain.LowStockAlert, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}
