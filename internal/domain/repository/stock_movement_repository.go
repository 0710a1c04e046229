package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Bodega-api/internal/domain/entity"
)

// StockMovementRepository puerto del ledger de movimientos. Solo permite agregar y leer:
// no existe operación de actualización ni borrado.
type StockMovementRepository interface {
	// Append inserta el movimiento y asigna ID (si falta) y Seq.
	Append(ctx context.Context, movement *entity.StockMovement) error
	// ListByProduct devuelve el historial cronológico (OccurredAt, Seq ascendente); from/to opcionales e inclusivos.
	ListByProduct(ctx context.Context, productID string, from, to *time.Time) ([]*entity.StockMovement, error)
	ListByReference(ctx context.Context, reference string) ([]*entity.StockMovement, error)
}
