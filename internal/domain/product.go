package domain

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryPizza    Category = "pizza"
	CategoryBurger   Category = "burger"
	CategorySandwich Category = "sandwich"
	CategorySalad    Category = "salad"
	CategorySide     Category = "side"
	CategoryDessert  Category = "dessert"
	CategoryDrink    Category = "drink"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryPizza, CategoryBurger, CategorySandwich, CategorySalad,
		CategorySide, CategoryDessert, CategoryDrink:
		return true
	}
	return false
}

// Product is a menu entry together with its recipe
type Product struct {
	ID          string
	Name        string
	Category    Category
	Price       decimal.Decimal
	Image       string
	Rating      Rating
	OrderCount  int
	Ingredients []Ingredient
	Available   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Ingredient is the amount of a stock item one unit of a product consumes
type Ingredient struct {
	StockID  string
	Quantity float64
}

// Rating is a running average over all submitted ratings
type Rating struct {
	Average float64
	Count   int
}

// Validate applies catalog rules
func (p *Product) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return Validation("product name is required")
	}
	if !p.Category.Valid() {
		return Validation("invalid product category %q", p.Category)
	}
	if p.Price.IsNegative() {
		return Validation("price must not be negative")
	}
	for _, ing := range p.Ingredients {
		if ing.StockID == "" {
			return Validation("ingredient stock is required")
		}
		if ing.Quantity < 0 {
			return Validation("ingredient quantity must not be negative")
		}
	}
	return nil
}

// Rate folds one rating in [1,5] into the running average, rounded to one decimal.
// Fractional ratings are accepted.
func (r Rating) Rate(value float64) (Rating, error) {
	if !(value >= 1 && value <= 5) {
		return r, ErrInvalidRating
	}
	total := r.Average*float64(r.Count) + value
	count := r.Count + 1
	return Rating{
		Average: round1(total / float64(count)),
		Count:   count,
	}, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
