package postgres

import (
	"context"
	"math"
	"net/url"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/YelzhanWeb/restaurant/internal/config"
	"github.com/YelzhanWeb/restaurant/internal/domain"
	"github.com/YelzhanWeb/restaurant/internal/interfaces"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testDatabaseEnv holds a postgres:// URL of a disposable database.
const testDatabaseEnv = "RESTAURANT_TEST_DATABASE_URL"

func openTestDB(t *testing.T) DB {
	t.Helper()
	raw := os.Getenv(testDatabaseEnv)
	if raw == "" {
		t.Skipf("%s not set", testDatabaseEnv)
	}

	u, err := url.Parse(raw)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	password, _ := u.User.Password()
	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := Connect(ctx, config.DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		Database: u.Path[1:],
		SSLMode:  sslMode,
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, Migrate(ctx, db))
	return db
}

func seedUser(t *testing.T, db DB, role domain.Role) string {
	t.Helper()
	id := uuid.NewString()
	_, err := db.Exec(context.Background(),
		`INSERT INTO users (id, first_name, email, role) VALUES ($1, $2, $3, $4)`,
		id, string(role), id+"@example.com", string(role))
	require.NoError(t, err)
	return id
}

func seedReadyOrder(t *testing.T, repo interfaces.OrderRepository, customerID string) *domain.Order {
	t.Helper()
	now := time.Now().UTC()
	o := &domain.Order{
		Number:          "ORD-" + uuid.NewString(),
		CustomerID:      customerID,
		Status:          domain.StatusReady,
		DeliveryAddress: "1 Main St",
		Items:           []domain.OrderItem{{ProductID: "prod-1", Quantity: 2}},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, repo.Create(context.Background(), o))
	return o
}

func newChat(o *domain.Order, delivererID string) *domain.Chat {
	return &domain.Chat{
		ID:          uuid.NewString(),
		OrderID:     o.ID,
		ClientID:    o.CustomerID,
		DelivererID: delivererID,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestOrderRepository_ClaimAndRelease(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewOrderRepository(db)
	chats := NewChatRepository(db)

	customer := seedUser(t, db, domain.RoleCustomer)
	first := seedUser(t, db, domain.RoleDelivery)
	second := seedUser(t, db, domain.RoleDelivery)
	o := seedReadyOrder(t, repo, customer)

	chat := newChat(o, first)
	claimed, err := repo.Claim(ctx, o.ID, first, chat)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOutForDelivery, claimed.Status)
	require.NotNil(t, claimed.DelivererID)
	assert.Equal(t, first, *claimed.DelivererID)
	require.NotNil(t, claimed.ChatID)
	assert.Equal(t, chat.ID, *claimed.ChatID)
	assert.Len(t, claimed.Items, 1)

	stored, err := chats.FindByID(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, stored.OrderID)

	t.Run("second claim conflicts", func(t *testing.T) {
		_, err := repo.Claim(ctx, o.ID, second, newChat(o, second))
		assert.True(t, domain.IsKind(err, domain.KindConflict), "got %v", err)
	})

	t.Run("unknown order is not found", func(t *testing.T) {
		_, err := repo.Claim(ctx, uuid.NewString(), second, newChat(o, second))
		assert.True(t, domain.IsKind(err, domain.KindNotFound), "got %v", err)
	})

	t.Run("release by another deliverer is not found", func(t *testing.T) {
		_, err := repo.Release(ctx, o.ID, second)
		assert.True(t, domain.IsKind(err, domain.KindNotFound), "got %v", err)
	})

	released, err := repo.Release(ctx, o.ID, first)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReady, released.Status)
	assert.Nil(t, released.DelivererID)
	assert.Nil(t, released.ChatID)

	reclaimed, err := repo.Claim(ctx, o.ID, second, newChat(o, second))
	require.NoError(t, err)
	assert.Equal(t, second, *reclaimed.DelivererID)

	history, err := repo.GetStatusHistory(ctx, o.ID)
	require.NoError(t, err)
	statuses := make([]domain.Status, len(history))
	for i, h := range history {
		statuses[i] = h.Status
	}
	assert.Equal(t, []domain.Status{
		domain.StatusReady,
		domain.StatusOutForDelivery,
		domain.StatusReady,
		domain.StatusOutForDelivery,
	}, statuses)
}

func TestOrderRepository_MissOrConflict(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := &orderRepository{db: db}

	o := seedReadyOrder(t, repo, seedUser(t, db, domain.RoleCustomer))

	err := repo.missOrConflict(ctx, db, o.ID)
	assert.True(t, domain.IsKind(err, domain.KindConflict), "got %v", err)

	err = repo.missOrConflict(ctx, db, uuid.NewString())
	assert.True(t, domain.IsKind(err, domain.KindNotFound), "got %v", err)
}

func TestReductionStore_ApplyReduction(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	stocks := NewStockRepository(db)
	products := NewProductRepository(db)
	store := NewReductionStore(db)

	dough := &domain.Stock{Name: "Dough " + uuid.NewString(), Quantity: 10, Unit: "kg", MinThreshold: 2}
	require.NoError(t, stocks.Create(ctx, dough))
	pizza := &domain.Product{
		Name: "Margherita " + uuid.NewString(), Category: domain.CategoryPizza,
		Price: decimal.NewFromInt(12), Available: true,
	}
	require.NoError(t, products.Create(ctx, pizza))

	t.Run("missing rows are reported", func(t *testing.T) {
		missingStock, missingProduct := uuid.NewString(), uuid.NewString()
		res, err := store.ApplyReduction(ctx, interfaces.ReductionBatch{
			Decrements: []interfaces.StockDelta{
				{StockID: dough.ID, Amount: 3},
				{StockID: missingStock, Amount: 1},
				{StockID: dough.ID, Amount: 1.5},
			},
			OrderCounts: map[string]int{pizza.ID: 2, missingProduct: 1},
		})
		require.NoError(t, err)
		require.Len(t, res.Updated, 1)
		assert.Equal(t, 5.5, res.Updated[0].Quantity)
		assert.Equal(t, []string{missingStock}, res.MissingStocks)
		assert.Equal(t, []string{missingProduct}, res.MissingProducts)

		got, err := products.FindByID(ctx, pizza.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.OrderCount)
	})

	t.Run("failed batch rolls back every decrement", func(t *testing.T) {
		_, err := store.ApplyReduction(ctx, interfaces.ReductionBatch{
			Decrements:  []interfaces.StockDelta{{StockID: dough.ID, Amount: 4}},
			OrderCounts: map[string]int{pizza.ID: math.MaxInt32},
		})
		require.Error(t, err)

		got, err := stocks.FindByID(ctx, dough.ID)
		require.NoError(t, err)
		assert.Equal(t, 5.5, got.Quantity)

		prod, err := products.FindByID(ctx, pizza.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, prod.OrderCount)
	})
}
