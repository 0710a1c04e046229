package repository

import (
	"context"

	"github.com/jhoicas/Bodega-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// ReorderCandidate resultado crudo del repositorio para un producto bajo su umbral de reposición.
type ReorderCandidate struct {
	ProductID     string
	Reference     string
	ProductName   string
	UnitMeasure   string
	CurrentStock  decimal.Decimal
	ReorderPoint  decimal.Decimal
	LastUnitPrice decimal.Decimal // precio del lote más reciente (0 si nunca hubo recepción)
}

// ProductRepository define el puerto de persistencia para Product (DIP).
// GetByID devuelve (nil, nil) si no existe.
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	GetByReference(ctx context.Context, reference string) (*entity.Product, error)
	// GetForUpdate bloquea el producto hasta el fin de la transacción (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, id string) (*entity.Product, error)
	// UpdateStock reescribe el caché de stock; solo lo usa el ledger dentro de una transacción.
	UpdateStock(ctx context.Context, id string, quantity decimal.Decimal) error
	Deactivate(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]*entity.Product, error)

	// ListBelowReorderPoint devuelve los productos activos con CurrentStock < ReorderPoint,
	// ordenados por mayor déficit primero.
	ListBelowReorderPoint(ctx context.Context) ([]ReorderCandidate, error)
}
