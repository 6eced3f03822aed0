package redis

import (
	"context"
	"testing"
	"time"

	"github.com/YelzhanWeb/restaurant/internal/adapter/memory"
	"github.com/YelzhanWeb/restaurant/internal/domain"
	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestOrderNumbersContinueFromStoredCount(t *testing.T) {
	mr, client := setupRedis(t)
	ctx := context.Background()

	store := memory.NewStore()
	for _, number := range []string{"ORD-1", "ORD-2"} {
		require.NoError(t, store.Orders().Create(ctx, &domain.Order{Number: number, CustomerID: "c", Status: domain.StatusPending}))
	}

	gen := NewOrderNumbers(client, store.Orders())
	fixed := time.UnixMilli(1700000000000)
	gen.now = func() time.Time { return fixed }

	first, err := gen.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ORD-1700000000000-3", first)

	second, err := gen.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ORD-1700000000000-4", second)

	got, err := mr.Get(sequenceKey)
	require.NoError(t, err)
	assert.Equal(t, "4", got)
}

func TestOrderNumbersKeepExistingCounter(t *testing.T) {
	mr, client := setupRedis(t)
	require.NoError(t, mr.Set(sequenceKey, "41"))

	gen := NewOrderNumbers(client, memory.NewStore().Orders())
	number, err := gen.Next(context.Background())
	require.NoError(t, err)
	assert.Contains(t, number, "-42")
}

func TestOrderNumbersRedisDown(t *testing.T) {
	mr, client := setupRedis(t)
	gen := NewOrderNumbers(client, memory.NewStore().Orders())
	mr.Close()

	_, err := gen.Next(context.Background())
	assert.True(t, domain.IsKind(err, domain.KindInternal))
}
