package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/YelzhanWeb/restaurant/internal/domain"
	"github.com/YelzhanWeb/restaurant/internal/interfaces"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var orderColumns = []string{
	"id", "number", "customer_id", "deliverer_id", "chat_id", "status",
	"delivery_address", "customer_notes", "delivered_at", "created_at", "updated_at",
}

type orderRepository struct {
	db DB
}

func NewOrderRepository(db DB) interfaces.OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}

	return inTx(ctx, r.db, func(tx Tx) error {
		// Insert order
		query, args, err := psql.Insert("orders").
			Columns("id", "number", "customer_id", "status", "delivery_address",
				"customer_notes", "created_at", "updated_at").
			Values(order.ID, order.Number, order.CustomerID, string(order.Status),
				order.DeliveryAddress, order.CustomerNotes, order.CreatedAt, order.UpdatedAt).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build order insert query: %w", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return mapError(err, "order "+order.Number)
		}

		// Insert order items
		items := psql.Insert("order_items").
			Columns("order_id", "product_id", "quantity", "special_instructions")
		for _, item := range order.Items {
			items = items.Values(order.ID, item.ProductID, item.Quantity, item.SpecialInstructions)
		}
		query, args, err = items.ToSql()
		if err != nil {
			return fmt.Errorf("failed to build order items insert query: %w", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return mapError(err, "order item")
		}

		// Log initial status
		return logStatus(ctx, tx, order.ID, order.Status, order.CustomerID)
	})
}

func (r *orderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.findOne(ctx, sq.Eq{"id": id}, "order "+id)
}

func (r *orderRepository) findOne(ctx context.Context, where sq.Sqlizer, what string) (*domain.Order, error) {
	query, args, err := psql.Select(orderColumns...).From("orders").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build order query: %w", err)
	}

	order, err := scanOrder(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, what)
	}
	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) List(ctx context.Context, filter interfaces.OrderFilter) ([]*domain.Order, error) {
	builder := psql.Select(orderColumns...).From("orders").OrderBy("created_at DESC")
	if filter.Status != nil {
		builder = builder.Where(sq.Eq{"status": string(*filter.Status)})
	}
	if filter.CustomerID != "" {
		builder = builder.Where(sq.Eq{"customer_id": filter.CustomerID})
	}
	return r.findMany(ctx, builder)
}

func (r *orderRepository) ListAvailable(ctx context.Context) ([]*domain.Order, error) {
	builder := psql.Select(orderColumns...).From("orders").
		Where(sq.Eq{"status": string(domain.StatusReady), "deliverer_id": nil}).
		OrderBy("created_at ASC")
	return r.findMany(ctx, builder)
}

func (r *orderRepository) findMany(ctx context.Context, builder sq.SelectBuilder) ([]*domain.Order, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build orders query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "orders")
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "orders")
	}

	if err := r.loadItems(ctx, orders...); err != nil {
		return nil, err
	}
	return orders, nil
}

// loadItems fills Items of every given order with a single query.
func (r *orderRepository) loadItems(ctx context.Context, orders ...*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	byID := make(map[string]*domain.Order, len(orders))
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	query, args, err := psql.Select("order_id", "product_id", "quantity", "special_instructions").
		From("order_items").
		Where(sq.Eq{"order_id": ids}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build order items query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return mapError(err, "order items")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID string
			item    domain.OrderItem
		)
		if err := rows.Scan(&orderID, &item.ProductID, &item.Quantity, &item.SpecialInstructions); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return mapError(rows.Err(), "order items")
}

func (r *orderRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&count); err != nil {
		return 0, mapError(err, "orders")
	}
	return count, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id string, from, to domain.Status, changedBy string) (*domain.Order, error) {
	builder := psql.Update("orders").
		Set("status", string(to)).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id, "status": string(from)})
	if !to.IsAssigned() {
		builder = builder.Set("deliverer_id", nil).Set("chat_id", nil)
	}

	return r.transition(ctx, id, builder, changedBy, func() error {
		return domain.Conflict("order %s changed concurrently", id)
	})
}

func (r *orderRepository) Claim(ctx context.Context, orderID, delivererID string, chat *domain.Chat) (*domain.Order, error) {
	var order *domain.Order
	err := inTx(ctx, r.db, func(tx Tx) error {
		query, args, err := psql.Update("orders").
			Set("status", string(domain.StatusOutForDelivery)).
			Set("deliverer_id", delivererID).
			Set("chat_id", chat.ID).
			Set("updated_at", sq.Expr("now()")).
			Where(sq.Eq{"id": orderID, "status": string(domain.StatusReady), "deliverer_id": nil}).
			Suffix(returningOrder()).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build claim query: %w", err)
		}

		order, err = scanOrder(tx.QueryRow(ctx, query, args...))
		if errors.Is(err, pgx.ErrNoRows) {
			return r.missOrConflict(ctx, tx, orderID)
		}
		if err != nil {
			return mapError(err, "order "+orderID)
		}

		query, args, err = psql.Insert("chats").
			Columns("id", "order_id", "client_id", "deliverer_id", "created_at").
			Values(chat.ID, chat.OrderID, chat.ClientID, chat.DelivererID, chat.CreatedAt).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build chat insert query: %w", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return mapError(err, "chat")
		}

		return logStatus(ctx, tx, orderID, domain.StatusOutForDelivery, delivererID)
	})
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) missOrConflict(ctx context.Context, q querier, orderID string) error {
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, orderID).Scan(&exists); err != nil {
		return mapError(err, "order "+orderID)
	}
	if !exists {
		return domain.NotFound("order %s not found", orderID)
	}
	return domain.Conflict("order may have been taken by another deliverer")
}

func (r *orderRepository) Release(ctx context.Context, orderID, delivererID string) (*domain.Order, error) {
	builder := psql.Update("orders").
		Set("status", string(domain.StatusReady)).
		Set("deliverer_id", nil).
		Set("chat_id", nil).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": orderID, "deliverer_id": delivererID, "status": string(domain.StatusOutForDelivery)})

	return r.transition(ctx, orderID, builder, delivererID, notAssigned)
}

func (r *orderRepository) MarkDelivered(ctx context.Context, orderID, delivererID string, at time.Time) (*domain.Order, error) {
	builder := psql.Update("orders").
		Set("status", string(domain.StatusDelivered)).
		Set("delivered_at", at).
		Set("updated_at", at).
		Where(sq.Eq{"id": orderID, "deliverer_id": delivererID, "status": string(domain.StatusOutForDelivery)})

	return r.transition(ctx, orderID, builder, delivererID, notAssigned)
}

func notAssigned() error {
	return domain.NotFound("order not found or not assigned to you")
}

// transition runs a conditional update and logs the resulting status. When no
// row matches, an unknown order is NotFound and a known one gets miss().
func (r *orderRepository) transition(ctx context.Context, id string, builder sq.UpdateBuilder, changedBy string, miss func() error) (*domain.Order, error) {
	query, args, err := builder.Suffix(returningOrder()).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build order update query: %w", err)
	}

	var order *domain.Order
	err = inTx(ctx, r.db, func(tx Tx) error {
		var scanErr error
		order, scanErr = scanOrder(tx.QueryRow(ctx, query, args...))
		if errors.Is(scanErr, pgx.ErrNoRows) {
			err := r.missOrConflict(ctx, tx, id)
			if domain.IsKind(err, domain.KindConflict) {
				return miss()
			}
			return err
		}
		if scanErr != nil {
			return mapError(scanErr, "order "+id)
		}
		return logStatus(ctx, tx, id, order.Status, changedBy)
	})
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) GetStatusHistory(ctx context.Context, orderID string) ([]*domain.StatusLog, error) {
	query, args, err := psql.Select("id", "order_id", "status", "changed_by", "changed_at", "notes").
		From("order_status_log").
		Where(sq.Eq{"order_id": orderID}).
		OrderBy("changed_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build status history query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "status history")
	}
	defer rows.Close()

	var logs []*domain.StatusLog
	for rows.Next() {
		var (
			log    domain.StatusLog
			status string
		)
		if err := rows.Scan(&log.ID, &log.OrderID, &status, &log.ChangedBy, &log.ChangedAt, &log.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan status log: %w", err)
		}
		log.Status = domain.Status(status)
		logs = append(logs, &log)
	}

	return logs, mapError(rows.Err(), "status history")
}

func (r *orderRepository) TopProducts(ctx context.Context, customerID string, statuses []domain.Status, limit int) ([]interfaces.ProductCount, error) {
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = string(st)
	}

	builder := psql.Select("oi.product_id", "SUM(oi.quantity) AS total").
		From("order_items oi").
		Join("orders o ON o.id = oi.order_id").
		Where(sq.Eq{"o.customer_id": customerID, "o.status": names}).
		GroupBy("oi.product_id").
		OrderBy("total DESC", "oi.product_id ASC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build top products query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "top products")
	}
	defer rows.Close()

	var out []interfaces.ProductCount
	for rows.Next() {
		var pc interfaces.ProductCount
		if err := rows.Scan(&pc.ProductID, &pc.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan product count: %w", err)
		}
		out = append(out, pc)
	}
	return out, mapError(rows.Err(), "top products")
}

func logStatus(ctx context.Context, q querier, orderID string, status domain.Status, changedBy string) error {
	query, args, err := psql.Insert("order_status_log").
		Columns("order_id", "status", "changed_by", "changed_at").
		Values(orderID, string(status), changedBy, time.Now().UTC()).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build status log query: %w", err)
	}
	if _, err := q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to log status: %w", err)
	}
	return nil
}

func returningOrder() string {
	return "RETURNING " + strings.Join(orderColumns, ", ")
}

func scanOrder(row Row) (*domain.Order, error) {
	var (
		order  domain.Order
		status string
	)
	err := row.Scan(
		&order.ID, &order.Number, &order.CustomerID, &order.DelivererID, &order.ChatID, &status,
		&order.DeliveryAddress, &order.CustomerNotes, &order.DeliveredAt, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	order.Status = domain.Status(status)
	return &order, nil
}
