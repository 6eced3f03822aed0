package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type StockStatus string

const (
	StockInStock    StockStatus = "in_stock"
	StockLow        StockStatus = "low_stock"
	StockOutOfStock StockStatus = "out_of_stock"
)

// Stock is an inventory item consumed by product recipes
type Stock struct {
	ID           string
	Name         string
	Quantity     float64
	Unit         string
	CostPerUnit  decimal.Decimal
	MinThreshold float64
	Supplier     Supplier
	Category     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Supplier struct {
	Name    string
	Contact string
}

// Status is derived from quantity and threshold. Reduction has no floor, so
// negative quantities count as out of stock.
func (s *Stock) Status() StockStatus {
	switch {
	case s.Quantity <= 0:
		return StockOutOfStock
	case s.Quantity <= s.MinThreshold:
		return StockLow
	default:
		return StockInStock
	}
}

// IsLow reports whether the quantity sits at or below the alert threshold.
func (s *Stock) IsLow() bool {
	return s.Quantity <= s.MinThreshold
}

func (s *Stock) Validate() error {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return Validation("stock name is required")
	}
	if strings.TrimSpace(s.Unit) == "" {
		return Validation("stock unit is required")
	}
	if s.Quantity < 0 {
		return Validation("quantity must not be negative")
	}
	if s.MinThreshold < 0 {
		return Validation("minimum threshold must not be negative")
	}
	if s.CostPerUnit.IsNegative() {
		return Validation("cost per unit must not be negative")
	}
	return nil
}

// LowStockAlert records one ingredient that fell to or below its threshold
type LowStockAlert struct {
	StockID         string  `json:"stockId"`
	StockName       string  `json:"stockName"`
	CurrentQuantity float64 `json:"currentQuantity"`
	MinThreshold    float64 `json:"minThreshold"`
	Unit            string  `json:"unit"`
}

func NewLowStockAlert(s *Stock) LowStockAlert {
	return LowStockAlert{
		StockID:         s.ID,
		StockName:       s.Name,
		CurrentQuantity: s.Quantity,
		MinThreshold:    s.MinThreshold,
		Unit:            s.Unit,
	}
}

// Line renders the alert as "- name: qty unit (Min: x unit)".
func (a LowStockAlert) Line() string {
	return fmt.Sprintf("- %s: %s %s (Min: %s %s)",
		a.StockName, a.FormattedQuantity(), a.Unit, a.FormattedThreshold(), a.Unit)
}

func (a LowStockAlert) FormattedQuantity() string {
	return formatQty(a.CurrentQuantity)
}

func (a LowStockAlert) FormattedThreshold() string {
	return formatQty(a.MinThreshold)
}

func formatQty(v float64) string {
	return decimal.NewFromFloat(v).String()
}
