package interfaces

import (
	"context"
	"time"

	"github.com/YelzhanWeb/restaurant/internal/domain"
)

// Интерфейсы Репозиториев (Adapter/Postgres)

type OrderFilter struct {
	Status     *domain.Status
	CustomerID string
}

// ProductCount is a product with the quantity one customer ordered of it.
type ProductCount struct {
	ProductID string
	Quantity  int
}

type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]*domain.Order, error)
	ListAvailable(ctx context.Context) ([]*domain.Order, error)
	Count(ctx context.Context) (int64, error)

	// UpdateStatus moves the order from one status to another only if it is
	// still in from; otherwise it fails with Conflict.
	UpdateStatus(ctx context.Context, id string, from, to domain.Status, changedBy string) (*domain.Order, error)
	// Claim creates the chat and assigns the deliverer in one step, only while
	// the order is ready and unassigned; otherwise it fails with Conflict.
	Claim(ctx context.Context, orderID, delivererID string, chat *domain.Chat) (*domain.Order, error)
	Release(ctx context.Context, orderID, delivererID string) (*domain.Order, error)
	MarkDelivered(ctx context.Context, orderID, delivererID string, at time.Time) (*domain.Order, error)

	GetStatusHistory(ctx context.Context, orderID string) ([]*domain.StatusLog, error)
	TopProducts(ctx context.Context, customerID string, statuses []domain.Status, limit int) ([]ProductCount, error)
}

type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	FindByIDs(ctx context.Context, ids []string) ([]*domain.Product, error)
	List(ctx context.Context) ([]*domain.Product, error)
	ListUsingStock(ctx context.Context, stockID string) ([]*domain.Product, error)
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id string) error
	// UpdateRating stores next only if the stored rating count still equals prev.Count.
	UpdateRating(ctx context.Context, id string, prev, next domain.Rating) error
	IncrementOrderCount(ctx context.Context, id string, by int) error
}

type StockRepository interface {
	Create(ctx context.Context, stock *domain.Stock) error
	FindByID(ctx context.Context, id string) (*domain.Stock, error)
	List(ctx context.Context) ([]*domain.Stock, error)
	Update(ctx context.Context, stock *domain.Stock) error
	Delete(ctx context.Context, id string) error
	// Adjust adds delta to the quantity atomically and returns the stored row.
	Adjust(ctx context.Context, id string, delta float64) (*domain.Stock, error)
}

// StockDelta is one stock decrement of a reduction batch.
type StockDelta struct {
	StockID string
	Amount  float64
}

type ReductionBatch struct {
	Decrements  []StockDelta
	OrderCounts map[string]int
}

type ReductionResult struct {
	Updated         []*domain.Stock
	MissingStocks   []string
	MissingProducts []string
}

// ReductionStore applies a whole reduction batch atomically.
type ReductionStore interface {
	ApplyReduction(ctx context.Context, batch ReductionBatch) (*ReductionResult, error)
}

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

type ChatRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Chat, error)
	AppendMessage(ctx context.Context, chatID string, msg domain.ChatMessage) error
}

type OrderNumberGenerator interface {
	Next(ctx context.Context) (string, error)
}
