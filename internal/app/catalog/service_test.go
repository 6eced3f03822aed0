package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/YelzhanWeb/restaurant/internal/adapter/logger"
	"github.com/YelzhanWeb/restaurant/internal/adapter/memory"
	"github.com/YelzhanWeb/restaurant/internal/app/access"
	"github.com/YelzhanWeb/restaurant/internal/domain"
	"github.com/YelzhanWeb/restaurant/internal/interfaces"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin    = domain.Principal{UserID: "admin-1"}
	customer = domain.Principal{UserID: "cust-1"}
	other    = domain.Principal{UserID: "cust-2"}
)

func setup(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	store.AddUser(domain.User{ID: "admin-1", Role: domain.RoleAdmin})
	store.AddUser(domain.User{ID: "cust-1", Role: domain.RoleCustomer})
	store.AddUser(domain.User{ID: "cust-2", Role: domain.RoleCustomer})
	require.NoError(t, store.Stocks().Create(ctx, &domain.Stock{ID: "flour", Name: "Flour", Quantity: 50, Unit: "kg"}))

	svc := NewService(store.Products(), store.Stocks(), store.Orders(), store.Users(), access.NewGuard(store.Users()), logger.Nop())
	return svc, store
}

func TestCreateProduct(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	cmd := interfaces.ProductCommand{
		Name:        "Margherita",
		Category:    "pizza",
		Price:       decimal.RequireFromString("8.50"),
		Available:   true,
		Ingredients: []domain.Ingredient{{StockID: "flour", Quantity: 0.2}},
	}

	_, err := svc.CreateProduct(ctx, customer, cmd)
	assert.True(t, domain.IsKind(err, domain.KindUnauthorized))

	product, err := svc.CreateProduct(ctx, admin, cmd)
	require.NoError(t, err)
	assert.NotEmpty(t, product.ID)

	cmd.Name = "Calzone"
	cmd.Ingredients = []domain.Ingredient{{StockID: "ham", Quantity: 1}}
	_, err = svc.CreateProduct(ctx, admin, cmd)
	require.True(t, domain.IsKind(err, domain.KindValidation))
}

func TestListProductsByOrderCount(t *testing.T) {
	svc, store := setup(t)
	ctx := context.Background()

	require.NoError(t, store.Products().Create(ctx, &domain.Product{ID: "a", Name: "A", Category: domain.CategoryDrink, OrderCount: 1}))
	require.NoError(t, store.Products().Create(ctx, &domain.Product{ID: "b", Name: "B", Category: domain.CategoryDrink, OrderCount: 7}))

	products, err := svc.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "b", products[0].ID)
}

func TestRateProduct(t *testing.T) {
	svc, store := setup(t)
	ctx := context.Background()
	require.NoError(t, store.Products().Create(ctx, &domain.Product{
		ID: "p1", Name: "Cola", Category: domain.CategoryDrink,
		Rating: domain.Rating{Average: 4, Count: 1},
	}))

	product, err := svc.RateProduct(ctx, customer, "p1", 5)
	require.NoError(t, err)
	assert.Equal(t, domain.Rating{Average: 4.5, Count: 2}, product.Rating)

	_, err = svc.RateProduct(ctx, customer, "p1", 6)
	assert.ErrorIs(t, err, domain.ErrInvalidRating)

	_, err = svc.RateProduct(ctx, domain.Principal{UserID: "nobody"}, "p1", 3)
	assert.True(t, domain.IsKind(err, domain.KindUnauthorized))

	_, err = svc.RateProduct(ctx, customer, "missing", 3)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	stored, err := store.Products().FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Rating.Count)
}

func TestTopOrdered(t *testing.T) {
	svc, store := setup(t)
	ctx := context.Background()

	for _, id := range []string{"p1", "p2", "p3"} {
		require.NoError(t, store.Products().Create(ctx, &domain.Product{ID: id, Name: id, Category: domain.CategorySide}))
	}

	orders := []struct {
		status domain.Status
		items  []domain.OrderItem
	}{
		{domain.StatusDelivered, []domain.OrderItem{{ProductID: "p1", Quantity: 1}, {ProductID: "p2", Quantity: 4}}},
		{domain.StatusReady, []domain.OrderItem{{ProductID: "p1", Quantity: 2}}},
		{domain.StatusPending, []domain.OrderItem{{ProductID: "p3", Quantity: 9}}},
	}
	for i, o := range orders {
		require.NoError(t, store.Orders().Create(ctx, &domain.Order{
			Number:     "ORD-" + string(rune('a'+i)),
			CustomerID: "cust-1",
			Status:     o.status,
			Items:      o.items,
			CreatedAt:  time.Now(),
		}))
	}

	top, err := svc.TopOrdered(ctx, customer, "cust-1")
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "p2", top[0].Product.ID)
	assert.Equal(t, 4, top[0].Quantity)
	assert.Equal(t, "p1", top[1].Product.ID)
	assert.Equal(t, 3, top[1].Quantity)

	_, err = svc.TopOrdered(ctx, other, "cust-1")
	assert.True(t, domain.IsKind(err, domain.KindUnauthorized))

	top, err = svc.TopOrdered(ctx, other, "cust-2")
	require.NoError(t, err)
	assert.Empty(t, top)
}

func TestTopOrderedForAnotherCustomer(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	top, err := svc.TopOrdered(ctx, admin, "cust-2")
	require.NoError(t, err)
	assert.Empty(t, top)

	_, err = svc.TopOrdered(ctx, admin, "ghost")
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
	assert.ErrorContains(t, err, "customer ghost not found")
}
