package stock

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Bodega-api/internal/domain/entity"
	"github.com/jhoicas/Bodega-api/internal/domain/inventory"
)

// Clock fuente de tiempo del ledger.
type Clock interface {
	Now() time.Time
}

// SystemClock reloj real en UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// ReorderAlert producto que quedó bajo su umbral tras una operación que disminuyó stock.
type ReorderAlert struct {
	ProductID    string                  `json:"product_id"`
	Reference    string                  `json:"reference"`
	ProductName  string                  `json:"product_name"`
	CurrentStock decimal.Decimal         `json:"current_stock"`
	ReorderPoint decimal.Decimal         `json:"reorder_point"`
	Status       inventory.ReorderStatus `json:"status"`
	DetectedAt   time.Time               `json:"detected_at"`
}

// EventPublisher recibe los hechos ya confirmados. Un fallo aquí nunca revierte la operación.
type EventPublisher interface {
	PublishMovements(ctx context.Context, movements []*entity.StockMovement) error
	PublishReorderAlert(ctx context.Context, alert ReorderAlert) error
}

// CachedStock resultado de una lectura del caché. En un miss, Generation es la generación
// vigente del producto y debe pasarse a Set.
type CachedStock struct {
	Quantity   decimal.Decimal
	Hit        bool
	Generation int64
}

// StockCache caché de lectura del stock actual por producto.
// Invalidate incrementa la generación; Set descarta el valor si la generación cambió
// desde el Get, de modo que una lectura previa al commit no sobrevive a la invalidación.
type StockCache interface {
	Get(ctx context.Context, productID string) (CachedStock, error)
	Set(ctx context.Context, productID string, quantity decimal.Decimal, generation int64) error
	Invalidate(ctx context.Context, productIDs ...string) error
}

// Metrics instrumentación de operaciones del ledger.
type Metrics interface {
	ObserveOperation(op, outcome string, elapsed time.Duration)
	ObserveRetry(reason string)
}

// NoopPublisher descarta los eventos.
type NoopPublisher struct{}

func (NoopPublisher) PublishMovements(context.Context, []*entity.StockMovement) error { return nil }
func (NoopPublisher) PublishReorderAlert(context.Context, ReorderAlert) error { return nil }

// NoopCache caché deshabilitado: siempre miss.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) (CachedStock, error) { return CachedStock{}, nil }
func (NoopCache) Set(context.Context, string, decimal.Decimal, int64) error { return nil }
func (NoopCache) Invalidate(context.Context, ...string) error { return nil }

// NoopMetrics no registra nada.
type NoopMetrics struct{}

func (NoopMetrics) ObserveOperation(string, string, time.Duration) {}
func (NoopMetrics) ObserveRetry(string) {}
