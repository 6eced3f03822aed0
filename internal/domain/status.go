package domain

import "time"

type Status string

const (
	StatusPending        Status = "pending"
	StatusConfirmed      Status = "confirmed"
	StatusPreparing      Status = "preparing"
	StatusReady          Status = "ready"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	// StatusReceived keeps the historical spelling used by clients.
	StatusReceived  Status = "recieved"
	StatusCancelled Status = "cancelled"
)

var allStatuses = []Status{
	StatusPending,
	StatusConfirmed,
	StatusPreparing,
	StatusReady,
	StatusOutForDelivery,
	StatusDelivered,
	StatusReceived,
	StatusCancelled,
}

// ParseStatus validates s against the enumerated set.
func ParseStatus(s string) (Status, error) {
	for _, st := range allStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", Validation("invalid status %q", s).WithDetails(statusNames()...)
}

func statusNames() []string {
	names := make([]string, len(allStatuses))
	for i, st := range allStatuses {
		names[i] = string(st)
	}
	return names
}

// IsTerminal reports whether no further lifecycle step follows s.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusReceived || s == StatusCancelled
}

// IsAssigned reports whether an order in status s carries a deliverer.
func (s Status) IsAssigned() bool {
	return s == StatusOutForDelivery || s == StatusDelivered || s == StatusReceived
}

// Cancellable reports whether s precedes the hand-off to a deliverer.
func (s Status) Cancellable() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPreparing, StatusReady:
		return true
	}
	return false
}

// StatusLog represents a log entry for order status changes
type StatusLog struct {
	ID        int64
	OrderID   string
	Status    Status
	ChangedBy string
	ChangedAt time.Time
	Notes     *string
}
