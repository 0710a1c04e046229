package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Bodega-api/internal/application/stock"
	"github.com/jhoicas/Bodega-api/pkg/config"
)

var _ stock.StockCache = (*RedisStockCache)(nil)

const keyPrefix = "bodega:stock:"

// RedisStockCache caché del stock actual por producto. El ledger invalida tras cada commit;
// el TTL acota la ventana en que un fallo de invalidación deja un valor viejo.
// Cada producto tiene un contador de generación junto al valor.
type RedisStockCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient abre el cliente y verifica la conexión.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// NewRedisStockCache construye el caché sobre un cliente ya abierto.
func NewRedisStockCache(client *redis.Client, ttl time.Duration) *RedisStockCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisStockCache{client: client, ttl: ttl}
}

func key(productID string) string { return keyPrefix + productID }
func genKey(productID string) string { return keyPrefix + productID + ":gen" }

// genTTL mantiene el contador de generación mucho más allá del TTL del valor.
const genTTL = 24 * time.Hour

// setIfGeneration escribe el valor solo si la generación no cambió desde la lectura.
// KEYS[1] valor, KEYS[2] generación; ARGV[1] generación leída, ARGV[2] cantidad, ARGV[3] TTL en ms.
var setIfGeneration = redis.NewScript(`
local cur = redis.call('GET', KEYS[2]) or '0'
if cur ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// Get devuelve la cantidad cacheada y, en un miss, la generación vigente. Ambas claves se leen con un único MGET.
func (c *RedisStockCache) Get(ctx context.Context, productID string) (stock.CachedStock, error) {
	vals, err := c.client.MGet(ctx, key(productID), genKey(productID)).Result()
	if err != nil {
		return stock.CachedStock{}, fmt.Errorf("redis mget: %w", err)
	}
	var out stock.CachedStock
	if raw, ok := vals[1].(string); ok {
		if out.Generation, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return stock.CachedStock{}, fmt.Errorf("generación de caché inválida para %s: %w", productID, err)
		}
	}
	raw, ok := vals[0].(string)
	if !ok {
		return out, nil
	}
	if out.Quantity, err = decimal.NewFromString(raw); err != nil {
		return stock.CachedStock{}, fmt.Errorf("valor de caché inválido para %s: %w", productID, err)
	}
	out.Hit = true
	return out, nil
}

// Set guarda la cantidad con el TTL configurado si nadie invalidó el producto desde el Get.
func (c *RedisStockCache) Set(ctx context.Context, productID string, quantity decimal.Decimal, generation int64) error {
	err := setIfGeneration.Run(ctx, c.client,
		[]string{key(productID), genKey(productID)},
		strconv.FormatInt(generation, 10), quantity.String(), c.ttl.Milliseconds(),
	).Err()
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Invalidate incrementa la generación y borra el valor de cada producto en una sola transacción MULTI.
func (c *RedisStockCache) Invalidate(ctx context.Context, productIDs ...string) error {
	if len(productIDs) == 0 {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range productIDs {
			pipe.Incr(ctx, genKey(id))
			pipe.Expire(ctx, genKey(id), genTTL)
			pipe.Del(ctx, key(id))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis invalidate: %w", err)
	}
	return nil
}
