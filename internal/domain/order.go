package domain

import (
	"fmt"
	"strings"
	"time"
)

// Order represents a customer delivery order
type Order struct {
	ID              string
	Number          string
	CustomerID      string
	DelivererID     *string
	ChatID          *string
	Items           []OrderItem
	Status          Status
	DeliveryAddress string
	CustomerNotes   string
	DeliveredAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderItem represents a product line in an order
type OrderItem struct {
	ProductID           string
	Quantity            int
	SpecialInstructions string
}

// NewOrder creates a pending order with business rules applied
func NewOrder(customerID string, items []OrderItem, deliveryAddress, notes string) (*Order, error) {
	now := time.Now().UTC()
	order := &Order{
		CustomerID:      customerID,
		Items:           items,
		Status:          StatusPending,
		DeliveryAddress: strings.TrimSpace(deliveryAddress),
		CustomerNotes:   notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := order.Validate(); err != nil {
		return nil, err
	}

	return order, nil
}

// Validate applies business validation rules
func (o *Order) Validate() error {
	if o.CustomerID == "" {
		return Validation("customer is required")
	}
	if o.DeliveryAddress == "" {
		return Validation("delivery address is required")
	}
	if len(o.Items) == 0 {
		return Validation("order must contain at least one item")
	}
	for i, item := range o.Items {
		if item.ProductID == "" {
			return Validation("item %d: product is required", i)
		}
		if item.Quantity < 1 {
			return Validation("item %d: quantity must be at least 1", i)
		}
	}
	return nil
}

// ProductIDs returns the distinct product ids in item order.
func (o *Order) ProductIDs() []string {
	seen := make(map[string]struct{}, len(o.Items))
	ids := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}

// QuantityByProduct sums the ordered quantity per product.
func (o *Order) QuantityByProduct() map[string]int {
	out := make(map[string]int, len(o.Items))
	for _, item := range o.Items {
		out[item.ProductID] += item.Quantity
	}
	return out
}

// CanSetStatus checks whether an administrator may move the order to newStatus.
func (o *Order) CanSetStatus(newStatus Status, blockTerminal bool) error {
	if newStatus == o.Status {
		return nil
	}
	if blockTerminal && o.Status.IsTerminal() {
		return Validation("order is %s and accepts no further status updates", o.Status)
	}
	switch {
	case newStatus == StatusOutForDelivery:
		return Validation("orders go out for delivery only when a deliverer takes them")
	case newStatus == StatusCancelled && !o.Status.Cancellable():
		return ErrInvalidStatusTransition
	}
	return nil
}

// Claimable reports whether a deliverer may take the order.
func (o *Order) Claimable() bool {
	return o.Status == StatusReady && o.DelivererID == nil
}

// Claim attaches a deliverer and chat channel to a ready, unassigned order.
func (o *Order) Claim(delivererID, chatID string) error {
	if !o.Claimable() {
		return Conflict("order may have been taken by another deliverer")
	}
	o.DelivererID = &delivererID
	o.ChatID = &chatID
	o.Status = StatusOutForDelivery
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// HeldBy reports whether the order is out for delivery with the given deliverer.
func (o *Order) HeldBy(delivererID string) bool {
	return o.Status == StatusOutForDelivery && o.DelivererID != nil && *o.DelivererID == delivererID
}

// Release detaches the deliverer and returns the order to the ready pool.
func (o *Order) Release(delivererID string) error {
	if !o.HeldBy(delivererID) {
		return NotFound("order not found or not assigned to you")
	}
	o.DelivererID = nil
	o.ChatID = nil
	o.Status = StatusReady
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkDelivered completes the hand-off by the assigned deliverer.
func (o *Order) MarkDelivered(delivererID string, at time.Time) error {
	if !o.HeldBy(delivererID) {
		return NotFound("order not found or not assigned to you")
	}
	o.Status = StatusDelivered
	o.DeliveredAt = &at
	o.UpdatedAt = at
	return nil
}

// ConfirmReceipt closes a delivered order on behalf of its customer.
func (o *Order) ConfirmReceipt(customerID string) error {
	if o.CustomerID != customerID {
		return NotFound("order not found")
	}
	if o.Status != StatusDelivered {
		return Validation("only delivered orders can be confirmed, order is %s", o.Status)
	}
	o.Status = StatusReceived
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// CheckAssignment verifies that deliverer, chat and status agree.
func (o *Order) CheckAssignment() error {
	hasDeliverer := o.DelivererID != nil
	hasChat := o.ChatID != nil
	if hasDeliverer != hasChat {
		return Internal("order assignment is inconsistent", nil)
	}
	if hasDeliverer && !o.Status.IsAssigned() {
		return Internal("order has a deliverer while "+string(o.Status), nil)
	}
	if o.Status == StatusOutForDelivery && !hasDeliverer {
		return Internal("order is out for delivery without a deliverer", nil)
	}
	return nil
}

// FormatOrderNumber composes ORD-<unix millis>-<running count>.
func FormatOrderNumber(at time.Time, seq int64) string {
	return fmt.Sprintf("ORD-%d-%d", at.UnixMilli(), seq)
}
