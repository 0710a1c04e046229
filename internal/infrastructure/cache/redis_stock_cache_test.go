package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Bodega-api/internal/application/stock"
	"github.com/jhoicas/Bodega-api/internal/domain/entity"
	"github.com/jhoicas/Bodega-api/internal/infrastructure/memory"
)

func newTestCache(t *testing.T) (*RedisStockCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStockCache(client, 30*time.Second), mr
}

func TestKey(t *testing.T) {
	assert.Equal(t, "bodega:stock:p-1", key("p-1"))
	assert.Equal(t, "bodega:stock:p-1:gen", genKey("p-1"))
}

func TestNewRedisStockCache_TTLPorDefecto(t *testing.T) {
	c := NewRedisStockCache(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), 0)
	assert.Equal(t, 30*time.Second, c.ttl)
}

func TestInvalidate_SinProductosNoContactaRedis(t *testing.T) {
	c := NewRedisStockCache(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), time.Second)
	assert.NoError(t, c.Invalidate(context.Background()))
}

func TestRedisStockCache_MissSetHit(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	got, err := c.Get(ctx, "p-1")
	require.NoError(t, err)
	assert.False(t, got.Hit)
	assert.Equal(t, int64(0), got.Generation)

	require.NoError(t, c.Set(ctx, "p-1", decimal.RequireFromString("12.5"), got.Generation))
	assert.Equal(t, 30*time.Second, mr.TTL(key("p-1")))

	got, err = c.Get(ctx, "p-1")
	require.NoError(t, err)
	assert.True(t, got.Hit)
	assert.True(t, got.Quantity.Equal(decimal.RequireFromString("12.5")))
}

func TestRedisStockCache_InvalidateBorraEIncrementaGeneracion(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "p-1", decimal.NewFromInt(3), 0))
	require.NoError(t, c.Set(ctx, "p-2", decimal.NewFromInt(4), 0))

	require.NoError(t, c.Invalidate(ctx, "p-1", "p-2"))

	assert.False(t, mr.Exists(key("p-1")))
	assert.False(t, mr.Exists(key("p-2")))
	got, err := c.Get(ctx, "p-1")
	require.NoError(t, err)
	assert.False(t, got.Hit)
	assert.Equal(t, int64(1), got.Generation)
	assert.Equal(t, genTTL, mr.TTL(genKey("p-1")))
}

// Un lector que leyó la base antes del commit no puede reescribir su valor después de la invalidación.
func TestRedisStockCache_SetDescartaGeneracionVieja(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	before, err := c.Get(ctx, "p-1")
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(ctx, "p-1"))

	require.NoError(t, c.Set(ctx, "p-1", decimal.NewFromInt(10), before.Generation))
	assert.False(t, mr.Exists(key("p-1")), "valor previo al commit cacheado tras la invalidación")

	after, err := c.Get(ctx, "p-1")
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, "p-1", decimal.NewFromInt(7), after.Generation))
	v, err := mr.Get(key("p-1"))
	require.NoError(t, err)
	assert.Equal(t, "7", v)
}

func TestRedisStockCache_ValorCorrupto(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set(key("p-1"), "abc"))

	_, err := c.Get(context.Background(), "p-1")
	assert.Error(t, err)
}

func TestRedisStockCache_RedisCaido(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()

	_, err := c.Get(context.Background(), "p-1")
	assert.Error(t, err)
}

// Recorrido completo con el ledger: la lectura concurrente a una recepción no deja stock viejo en caché.
func TestRedisStockCache_LedgerNoQuedaDesfasado(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	s := memory.NewStore()
	l := stock.NewLedger(s, s.Repos(), stock.WithCache(c), stock.WithLogger(zerolog.Nop()))

	p := &entity.Product{Reference: "R-1", Name: "Perno", UnitMeasure: "UND", Active: true}
	require.NoError(t, s.Repos().Products.Create(ctx, p))

	// El lector falla el caché y lee el stock en cero.
	stale, err := c.Get(ctx, p.ID)
	require.NoError(t, err)
	require.False(t, stale.Hit)

	_, err = l.ReceiveStock(ctx, stock.ReceiveCommand{
		ProductID: p.ID, LotNumber: "L1", Quantity: decimal.NewFromInt(8), UnitPrice: decimal.NewFromInt(2),
	})
	require.NoError(t, err)

	// El lector intenta cachear su lectura vieja después del commit y la invalidación.
	require.NoError(t, c.Set(ctx, p.ID, decimal.Zero, stale.Generation))

	qty, err := l.GetCurrentStock(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, qty.Equal(decimal.NewFromInt(8)), "stock en caché: %s", qty)

	// La segunda lectura sale del caché con el valor nuevo.
	got, err := c.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.Hit)
	assert.True(t, got.Quantity.Equal(decimal.NewFromInt(8)))
}
