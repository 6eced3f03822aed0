package interfaces

import (
	"context"

	"github.com/YelzhanWeb/restaurant/internal/domain"
	"github.com/shopspring/decimal"
)

// Команды для сервисов
type CreateOrderCommand struct {
	CustomerID      string
	DeliveryAddress string
	CustomerNotes   string
	Items           []CreateOrderItemCommand
}

type CreateOrderItemCommand struct {
	ProductID           string
	Quantity            int
	SpecialInstructions string
}

type UpdateStatusCommand struct {
	OrderID string
	Status  string
}

// StatusChange is the outcome of an administrative status update.
type StatusChange struct {
	OrderNumber    string
	PreviousStatus domain.Status
	NewStatus      domain.Status
	Events         []domain.Event
}

// DeliveryOutcome is an order after a claim-protocol step plus the events it produced.
type DeliveryOutcome struct {
	Order  *domain.Order
	Events []domain.Event
}

type ProductCommand struct {
	Name        string
	Category    string
	Price       decimal.Decimal
	Image       string
	Available   bool
	Ingredients []domain.Ingredient
}

type StockCommand struct {
	Name         string
	Quantity     float64
	Unit         string
	CostPerUnit  decimal.Decimal
	MinThreshold float64
	Supplier     domain.Supplier
	Category     string
}

// TopProduct is one entry of a customer's most ordered products.
type TopProduct struct {
	Product  *domain.Product
	Quantity int
}

type SentMessage struct {
	ChatID  string
	Message domain.ChatMessage
	Events  []domain.Event
}

// Интерфейсы Сервисов (Business Logic)
type OrderService interface {
	CreateOrder(ctx context.Context, p domain.Principal, cmd CreateOrderCommand) (*domain.Order, error)
	GetOrder(ctx context.Context, p domain.Principal, id string) (*domain.Order, error)
	ListOrders(ctx context.Context, p domain.Principal, filter OrderFilter) ([]*domain.Order, error)
	ListCustomerOrders(ctx context.Context, p domain.Principal, customerID string) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, p domain.Principal, cmd UpdateStatusCommand) (*StatusChange, error)
	ConfirmReceipt(ctx context.Context, p domain.Principal, id string) (*DeliveryOutcome, error)
	GetHistory(ctx context.Context, p domain.Principal, id string) ([]*domain.StatusLog, error)
}

type DeliveryService interface {
	ListAvailable(ctx context.Context, p domain.Principal) ([]*domain.Order, error)
	TakeOrder(ctx context.Context, p domain.Principal, orderID string) (*DeliveryOutcome, error)
	ReleaseOrder(ctx context.Context, p domain.Principal, orderID string) (*DeliveryOutcome, error)
	MarkDelivered(ctx context.Context, p domain.Principal, orderID string) (*DeliveryOutcome, error)
}

type CatalogService interface {
	ListProducts(ctx context.Context) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, p domain.Principal, cmd ProductCommand) (*domain.Product, error)
	UpdateProduct(ctx context.Context, p domain.Principal, id string, cmd ProductCommand) (*domain.Product, error)
	DeleteProduct(ctx context.Context, p domain.Principal, id string) error
	RateProduct(ctx context.Context, p domain.Principal, id string, rating float64) (*domain.Product, error)
	TopOrdered(ctx context.Context, p domain.Principal, customerID string) ([]TopProduct, error)
}

type InventoryService interface {
	ListStocks(ctx context.Context, p domain.Principal) ([]*domain.Stock, error)
	GetStock(ctx context.Context, p domain.Principal, id string) (*domain.Stock, error)
	CreateStock(ctx context.Context, p domain.Principal, cmd StockCommand) (*domain.Stock, error)
	UpdateStock(ctx context.Context, p domain.Principal, id string, cmd StockCommand) (*domain.Stock, error)
	DeleteStock(ctx context.Context, p domain.Principal, id string) error
	Restock(ctx context.Context, p domain.Principal, id string, amount float64) (*domain.Stock, error)
}

type ChatService interface {
	Join(ctx context.Context, p domain.Principal, chatID string) (*domain.Chat, error)
	Send(ctx context.Context, p domain.Principal, chatID, text string) (*SentMessage, error)
	History(ctx context.Context, p domain.Principal, chatID string) (*domain.Chat, error)
}
