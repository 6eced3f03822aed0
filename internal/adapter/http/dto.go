package http

import (
	"time"

	"github.com/YelzhanWeb/restaurant/internal/domain"
	"github.com/YelzhanWeb/restaurant/internal/interfaces"
	"github.com/shopspring/decimal"
)

// DTO для HTTP запросов
type CreateOrderRequest struct {
	CustomerID      string                   `json:"customerId"`
	DeliveryAddress string                   `json:"deliveryAddress" validate:"required,max=500"`
	CustomerNotes   string                   `json:"customerNotes" validate:"max=1000"`
	Items           []CreateOrderItemRequest `json:"items" validate:"required,min=1,max=50,dive"`
}

type CreateOrderItemRequest struct {
	ProductID           string `json:"productId" validate:"required"`
	Quantity            int    `json:"quantity" validate:"gte=1,max=100"`
	SpecialInstructions string `json:"specialInstructions" validate:"max=500"`
}

type UpdateStatusRequest struct {
	Status  string `json:"status" validate:"required"`
	AdminID string `json:"adminId"`
}

type DelivererRequest struct {
	DelivererID string `json:"delivererId"`
}

type ConfirmReceiptRequest struct {
	CustomerID string `json:"customerId"`
}

type IngredientRequest struct {
	StockID  string  `json:"stockId" validate:"required"`
	Quantity float64 `json:"quantity" validate:"gte=0"`
}

type ProductRequest struct {
	Name        string              `json:"name" validate:"required,max=200"`
	Category    string              `json:"category" validate:"required"`
	Price       decimal.Decimal     `json:"price"`
	Image       string              `json:"image"`
	Available   *bool               `json:"available"`
	Ingredients []IngredientRequest `json:"ingredients" validate:"dive"`
}

type RatingRequest struct {
	Rating     float64 `json:"rating"`
	CustomerID string  `json:"customerId"`
}

type SupplierRequest struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
}

type StockRequest struct {
	Name         string          `json:"name" validate:"required,max=200"`
	Quantity     float64         `json:"quantity" validate:"gte=0"`
	Unit         string          `json:"unit" validate:"required"`
	CostPerUnit  decimal.Decimal `json:"costPerUnit"`
	MinThreshold float64         `json:"minThreshold" validate:"gte=0"`
	Supplier     SupplierRequest `json:"supplier"`
	Category     string          `json:"category"`
}

type RestockRequest struct {
	Amount float64 `json:"amount" validate:"gt=0"`
}

// DTO для HTTP ответов
type OrderItemResponse struct {
	ProductID           string `json:"productId"`
	Quantity            int    `json:"quantity"`
	SpecialInstructions string `json:"specialInstructions,omitempty"`
}

type OrderResponse struct {
	ID              string              `json:"id"`
	OrderNumber     string              `json:"orderNumber"`
	CustomerID      string              `json:"customerId"`
	DelivererID     *string             `json:"delivererId"`
	ChatID          *string             `json:"chatId"`
	Items           []OrderItemResponse `json:"items"`
	Status          domain.Status       `json:"status"`
	DeliveryAddress string              `json:"deliveryAddress"`
	CustomerNotes   string              `json:"customerNotes,omitempty"`
	DeliveredAt     *time.Time          `json:"deliveredAt,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

type StatusChangeResponse struct {
	OrderNumber    string        `json:"orderNumber"`
	PreviousStatus domain.Status `json:"previousStatus"`
	NewStatus      domain.Status `json:"newStatus"`
}

type StatusLogResponse struct {
	Status    domain.Status `json:"status"`
	ChangedBy string        `json:"changedBy"`
	ChangedAt time.Time     `json:"changedAt"`
	Notes     *string       `json:"notes,omitempty"`
}

type IngredientResponse struct {
	StockID  string  `json:"stockId"`
	Quantity float64 `json:"quantity"`
}

type RatingResponse struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

type ProductResponse struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Category    domain.Category      `json:"category"`
	Price       decimal.Decimal      `json:"price"`
	Image       string               `json:"image,omitempty"`
	Rating      RatingResponse       `json:"rating"`
	OrderCount  int                  `json:"orderCount"`
	Ingredients []IngredientResponse `json:"ingredients"`
	Available   bool                 `json:"available"`
}

type TopProductResponse struct {
	ProductResponse
	Quantity int `json:"quantity"`
}

type StockResponse struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Quantity     float64            `json:"quantity"`
	Unit         string             `json:"unit"`
	CostPerUnit  decimal.Decimal    `json:"costPerUnit"`
	MinThreshold float64            `json:"minThreshold"`
	Supplier     SupplierRequest    `json:"supplier"`
	Category     string             `json:"category,omitempty"`
	Status       domain.StockStatus `json:"status"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

type ChatMessageResponse struct {
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type ChatResponse struct {
	ID          string                `json:"id"`
	OrderID     string                `json:"orderId"`
	ClientID    string                `json:"clientId"`
	DelivererID string                `json:"delivererId"`
	Messages    []ChatMessageResponse `json:"messages"`
}

func (r CreateOrderRequest) command() interfaces.CreateOrderCommand {
	cmd := interfaces.CreateOrderCommand{
		CustomerID:      r.CustomerID,
		DeliveryAddress: r.DeliveryAddress,
		CustomerNotes:   r.CustomerNotes,
		Items:           make([]interfaces.CreateOrderItemCommand, len(r.Items)),
	}
	for i, item := range r.Items {
		cmd.Items[i] = interfaces.CreateOrderItemCommand{
			ProductID:           item.ProductID,
			Quantity:            item.Quantity,
			SpecialInstructions: item.SpecialInstructions,
		}
	}
	return cmd
}

func (r ProductRequest) command() interfaces.ProductCommand {
	cmd := interfaces.ProductCommand{
		Name:        r.Name,
		Category:    r.Category,
		Price:       r.Price,
		Image:       r.Image,
		Available:   r.Available == nil || *r.Available,
		Ingredients: make([]domain.Ingredient, len(r.Ingredients)),
	}
	for i, ing := range r.Ingredients {
		cmd.Ingredients[i] = domain.Ingredient{StockID: ing.StockID, Quantity: ing.Quantity}
	}
	return cmd
}

func (r StockRequest) command() interfaces.StockCommand {
	return interfaces.StockCommand{
		Name:         r.Name,
		Quantity:     r.Quantity,
		Unit:         r.Unit,
		CostPerUnit:  r.CostPerUnit,
		MinThreshold: r.MinThreshold,
		Supplier:     domain.Supplier{Name: r.Supplier.Name, Contact: r.Supplier.Contact},
		Category:     r.Category,
	}
}

func toOrderResponse(o *domain.Order) OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemResponse{
			ProductID:           item.ProductID,
			Quantity:            item.Quantity,
			SpecialInstructions: item.SpecialInstructions,
		}
	}
	return OrderResponse{
		ID:              o.ID,
		OrderNumber:     o.Number,
		CustomerID:      o.CustomerID,
		DelivererID:     o.DelivererID,
		ChatID:          o.ChatID,
		Items:           items,
		Status:          o.Status,
		DeliveryAddress: o.DeliveryAddress,
		CustomerNotes:   o.CustomerNotes,
		DeliveredAt:     o.DeliveredAt,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func toOrderResponses(orders []*domain.Order) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i, o := range orders {
		out[i] = toOrderResponse(o)
	}
	return out
}

func toProductResponse(p *domain.Product) ProductResponse {
	ings := make([]IngredientResponse, len(p.Ingredients))
	for i, ing := range p.Ingredients {
		ings[i] = IngredientResponse{StockID: ing.StockID, Quantity: ing.Quantity}
	}
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Category:    p.Category,
		Price:       p.Price,
		Image:       p.Image,
		Rating:      RatingResponse{Average: p.Rating.Average, Count: p.Rating.Count},
		OrderCount:  p.OrderCount,
		Ingredients: ings,
		Available:   p.Available,
	}
}

func toStockResponse(s *domain.Stock) StockResponse {
	return StockResponse{
		ID:           s.ID,
		Name:         s.Name,
		Quantity:     s.Quantity,
		Unit:         s.Unit,
		CostPerUnit:  s.CostPerUnit,
		MinThreshold: s.MinThreshold,
		Supplier:     SupplierRequest{Name: s.Supplier.Name, Contact: s.Supplier.Contact},
		Category:     s.Category,
		Status:       s.Status(),
		UpdatedAt:    s.UpdatedAt,
	}
}

func toChatResponse(c *domain.Chat) ChatResponse {
	msgs := make([]ChatMessageResponse, len(c.Messages))
	for i, m := range c.Messages {
		msgs[i] = ChatMessageResponse{Sender: m.Sender, Text: m.Text, Timestamp: m.Timestamp}
	}
	return ChatResponse{
		ID:          c.ID,
		OrderID:     c.OrderID,
		ClientID:    c.ClientID,
		DelivererID: c.DelivererID,
		Messages:    msgs,
	}
}
