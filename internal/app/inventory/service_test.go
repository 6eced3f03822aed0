package inventory

import (
	"context"
	"testing"

	"github.com/YelzhanWeb/restaurant/internal/adapter/logger"
	"github.com/YelzhanWeb/restaurant/internal/app/access"
	"github.com/YelzhanWeb/restaurant/internal/domain"
	"github.com/YelzhanWeb/restaurant/internal/interfaces"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin    = domain.Principal{UserID: "admin-1", Role: domain.RoleAdmin}
	customer = domain.Principal{UserID: "cust-1", Role: domain.RoleCustomer}
)

func newInventoryService(t *testing.T) (*Service, context.Context) {
	t.Helper()
	store := seedLedger(t)
	store.AddUser(domain.User{ID: "admin-1", Role: domain.RoleAdmin, Email: "admin@example.com"})
	store.AddUser(domain.User{ID: "cust-1", Role: domain.RoleCustomer})
	svc := NewService(store.Stocks(), store.Products(), access.NewGuard(store.Users()), logger.Nop())
	return svc, context.Background()
}

func TestCreateStock(t *testing.T) {
	svc, ctx := newInventoryService(t)

	stock, err := svc.CreateStock(ctx, admin, interfaces.StockCommand{
		Name:         "Basil",
		Quantity:     3,
		Unit:         "bunch",
		CostPerUnit:  decimal.RequireFromString("1.20"),
		MinThreshold: 1,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, stock.ID)
	assert.Equal(t, domain.StockInStock, stock.Status())

	_, err = svc.CreateStock(ctx, admin, interfaces.StockCommand{Name: "Basil", Unit: "bunch"})
	assert.True(t, domain.IsKind(err, domain.KindConflict))

	_, err = svc.CreateStock(ctx, admin, interfaces.StockCommand{Name: "Salt"})
	assert.True(t, domain.IsKind(err, domain.KindValidation))
}

func TestStockRequiresAdmin(t *testing.T) {
	svc, ctx := newInventoryService(t)

	_, err := svc.ListStocks(ctx, customer)
	assert.True(t, domain.IsKind(err, domain.KindUnauthorized))

	_, err = svc.ListStocks(ctx, domain.Principal{UserID: "ghost", Role: domain.RoleAdmin})
	assert.True(t, domain.IsKind(err, domain.KindUnauthorized))

	stocks, err := svc.ListStocks(ctx, admin)
	require.NoError(t, err)
	require.Len(t, stocks, 2)
	assert.Equal(t, "Cheese", stocks[0].Name)
}

func TestDeleteStockInUse(t *testing.T) {
	svc, ctx := newInventoryService(t)

	err := svc.DeleteStock(ctx, admin, "dough")
	require.True(t, domain.IsKind(err, domain.KindValidation))

	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, []string{"Pizza"}, de.Details)
}

func TestRestock(t *testing.T) {
	svc, ctx := newInventoryService(t)

	stock, err := svc.Restock(ctx, admin, "dough", 15)
	require.NoError(t, err)
	assert.Equal(t, 25.0, stock.Quantity)

	_, err = svc.Restock(ctx, admin, "dough", 0)
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	_, err = svc.Restock(ctx, admin, "unknown", 1)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestUpdateStock(t *testing.T) {
	svc, ctx := newInventoryService(t)

	stock, err := svc.UpdateStock(ctx, admin, "cheese", interfaces.StockCommand{
		Name:         "Mozzarella",
		Quantity:     4,
		Unit:         "g",
		MinThreshold: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StockLow, stock.Status())

	got, err := svc.GetStock(ctx, admin, "cheese")
	require.NoError(t, err)
	assert.Equal(t, "Mozzarella", got.Name)
}
