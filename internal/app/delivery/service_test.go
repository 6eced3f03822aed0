package delivery

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/YelzhanWeb/restaurant/internal/adapter/logger"
	"github.com/YelzhanWeb/restaurant/internal/adapter/memory"
	"github.com/YelzhanWeb/restaurant/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice    = domain.Principal{UserID: "del-alice"}
	bob      = domain.Principal{UserID: "del-bob"}
	customer = domain.Principal{UserID: "cust-1"}
)

func setup(t *testing.T, statuses ...domain.Status) (*Service, *memory.Store, []*domain.Order) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	store.AddUser(domain.User{ID: "del-alice", FirstName: "Alice", LastName: "Smith", Role: domain.RoleDelivery})
	store.AddUser(domain.User{ID: "del-bob", FirstName: "Bob", Role: domain.RoleDelivery})
	store.AddUser(domain.User{ID: "cust-1", Role: domain.RoleCustomer})

	base := time.Now().Add(-time.Hour)
	var orders []*domain.Order
	for i, st := range statuses {
		o := &domain.Order{
			Number:          "ORD-" + string(rune('A'+i)),
			CustomerID:      "cust-1",
			Status:          st,
			DeliveryAddress: "Main st",
			Items:           []domain.OrderItem{{ProductID: "p", Quantity: 1}},
			CreatedAt:       base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, store.Orders().Create(ctx, o))
		orders = append(orders, o)
	}
	return NewService(store.Orders(), store.Users(), logger.Nop()), store, orders
}

func TestListAvailable(t *testing.T) {
	svc, _, orders := setup(t, domain.StatusReady, domain.StatusPending, domain.StatusReady)
	ctx := context.Background()

	_, err := svc.ListAvailable(ctx, customer)
	assert.True(t, domain.IsKind(err, domain.KindUnauthorized))

	available, err := svc.ListAvailable(ctx, alice)
	require.NoError(t, err)
	require.Len(t, available, 2)
	assert.Equal(t, orders[0].ID, available[0].ID)
	assert.Equal(t, orders[2].ID, available[1].ID)

	_, err = svc.TakeOrder(ctx, alice, orders[0].ID)
	require.NoError(t, err)

	available, err = svc.ListAvailable(ctx, bob)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, orders[2].ID, available[0].ID)
}

func TestTakeOrder(t *testing.T) {
	svc, store, orders := setup(t, domain.StatusReady)
	ctx := context.Background()

	out, err := svc.TakeOrder(ctx, alice, orders[0].ID)
	require.NoError(t, err)

	taken := out.Order
	assert.Equal(t, domain.StatusOutForDelivery, taken.Status)
	require.NotNil(t, taken.DelivererID)
	require.NotNil(t, taken.ChatID)
	assert.Equal(t, "del-alice", *taken.DelivererID)
	assert.NoError(t, taken.CheckAssignment())

	chat, err := store.Chats().FindByID(ctx, *taken.ChatID)
	require.NoError(t, err)
	assert.Equal(t, "cust-1", chat.ClientID)
	assert.Equal(t, "del-alice", chat.DelivererID)

	require.Len(t, out.Events, 2)
	assert.Equal(t, domain.EventOrderTaken, out.Events[0].Name)
	assert.Empty(t, out.Events[0].Room)
	payload := out.Events[0].Payload.(map[string]interface{})
	assert.Equal(t, map[string]string{"id": "del-alice", "name": "Alice Smith"}, payload["deliverer"])

	_, err = svc.TakeOrder(ctx, bob, orders[0].ID)
	assert.True(t, domain.IsKind(err, domain.KindConflict))
}

func TestTakeOrderRequiresReady(t *testing.T) {
	svc, _, orders := setup(t, domain.StatusConfirmed)

	_, err := svc.TakeOrder(context.Background(), alice, orders[0].ID)
	assert.True(t, domain.IsKind(err, domain.KindConflict))

	_, err = svc.TakeOrder(context.Background(), alice, "missing")
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	_, err = svc.TakeOrder(context.Background(), customer, orders[0].ID)
	assert.True(t, domain.IsKind(err, domain.KindUnauthorized))
}

func TestConcurrentTakeHasOneWinner(t *testing.T) {
	svc, store, orders := setup(t, domain.StatusReady)
	ctx := context.Background()

	principals := []domain.Principal{alice, bob, alice, bob, alice, bob}
	errs := make([]error, len(principals))

	var wg sync.WaitGroup
	for i, p := range principals {
		wg.Add(1)
		go func(i int, p domain.Principal) {
			defer wg.Done()
			_, errs[i] = svc.TakeOrder(ctx, p, orders[0].ID)
		}(i, p)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.True(t, domain.IsKind(err, domain.KindConflict))
	}
	assert.Equal(t, 1, wins)

	stored, err := store.Orders().FindByID(ctx, orders[0].ID)
	require.NoError(t, err)
	assert.NoError(t, stored.CheckAssignment())
}

func TestReleaseRestoresPreTakeShape(t *testing.T) {
	svc, store, orders := setup(t, domain.StatusReady)
	ctx := context.Background()

	before, err := store.Orders().FindByID(ctx, orders[0].ID)
	require.NoError(t, err)

	_, err = svc.TakeOrder(ctx, alice, orders[0].ID)
	require.NoError(t, err)

	_, err = svc.ReleaseOrder(ctx, bob, orders[0].ID)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	out, err := svc.ReleaseOrder(ctx, alice, orders[0].ID)
	require.NoError(t, err)
	assert.Equal(t, before.Status, out.Order.Status)
	assert.Nil(t, out.Order.DelivererID)
	assert.Nil(t, out.Order.ChatID)
	assert.Equal(t, domain.EventOrderReleased, out.Events[0].Name)

	_, err = svc.ReleaseOrder(ctx, alice, orders[0].ID)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	_, err = svc.TakeOrder(ctx, bob, orders[0].ID)
	assert.NoError(t, err)
}

func TestMarkDelivered(t *testing.T) {
	svc, _, orders := setup(t, domain.StatusReady)
	ctx := context.Background()
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	_, err := svc.MarkDelivered(ctx, alice, orders[0].ID)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	_, err = svc.TakeOrder(ctx, alice, orders[0].ID)
	require.NoError(t, err)

	_, err = svc.MarkDelivered(ctx, bob, orders[0].ID)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	out, err := svc.MarkDelivered(ctx, alice, orders[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, out.Order.Status)
	require.NotNil(t, out.Order.DeliveredAt)
	assert.Equal(t, fixed, *out.Order.DeliveredAt)
	assert.NoError(t, out.Order.CheckAssignment())
	assert.Equal(t, domain.EventOrderDelivered, out.Events[0].Name)
}
