package domain

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatingRate(t *testing.T) {
	tests := []struct {
		start Rating
		value float64
		want  Rating
	}{
		{Rating{}, 4, Rating{Average: 4, Count: 1}},
		{Rating{Average: 4, Count: 1}, 5, Rating{Average: 4.5, Count: 2}},
		{Rating{Average: 4.5, Count: 2}, 3, Rating{Average: 4, Count: 3}},
		{Rating{Average: 4, Count: 2}, 5, Rating{Average: 4.3, Count: 3}},
		{Rating{}, 4.5, Rating{Average: 4.5, Count: 1}},
		{Rating{Average: 4, Count: 1}, 4.5, Rating{Average: 4.3, Count: 2}},
	}

	for _, tt := range tests {
		got, err := tt.start.Rate(tt.value)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestRatingRejectsOutOfRange(t *testing.T) {
	r := Rating{Average: 3, Count: 4}
	for _, v := range []float64{0, 0.99, 5.01, 6, -1, math.NaN()} {
		got, err := r.Rate(v)
		assert.ErrorIs(t, err, ErrInvalidRating)
		assert.Equal(t, r, got)
	}
}

func TestProductValidate(t *testing.T) {
	p := &Product{Name: "  Margherita ", Category: CategoryPizza, Price: decimal.NewFromInt(9)}
	require.NoError(t, p.Validate())
	assert.Equal(t, "Margherita", p.Name)

	p.Category = "soup"
	assert.True(t, IsKind(p.Validate(), KindValidation))

	p.Category = CategoryPizza
	p.Price = decimal.NewFromInt(-1)
	assert.True(t, IsKind(p.Validate(), KindValidation))
}

func TestStockStatus(t *testing.T) {
	s := &Stock{Quantity: 10, MinThreshold: 5}
	assert.Equal(t, StockInStock, s.Status())

	s.Quantity = 5
	assert.Equal(t, StockLow, s.Status())
	assert.True(t, s.IsLow())

	s.Quantity = 0
	assert.Equal(t, StockOutOfStock, s.Status())

	s.Quantity = -2
	assert.Equal(t, StockOutOfStock, s.Status())
}

func TestLowStockAlertLine(t *testing.T) {
	a := NewLowStockAlert(&Stock{Name: "Cheese", Quantity: 0.5, MinThreshold: 2, Unit: "kg"})
	assert.Equal(t, "- Cheese: 0.5 kg (Min: 2 kg)", a.Line())
}

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NotFound("order %s not found", "o1"))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.False(t, IsKind(nil, KindInternal))
}

func TestChatMessage(t *testing.T) {
	_, err := NewChatMessage("u1", "   ")
	assert.True(t, IsKind(err, KindValidation))

	msg, err := NewChatMessage("u1", " on my way ")
	require.NoError(t, err)
	assert.Equal(t, "on my way", msg.Text)

	c := &Chat{ClientID: "u1", DelivererID: "d1"}
	assert.True(t, c.HasParticipant("d1"))
	assert.False(t, c.HasParticipant("x"))
}
