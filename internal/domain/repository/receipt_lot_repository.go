package repository

import (
	"context"

	"github.com/jhoicas/Bodega-api/internal/domain/entity"
)

// ReceiptLotRepository define el puerto de persistencia para lotes de recepción.
// Los listados vienen en orden FIFO: ReceivedAt ascendente, ID ascendente.
type ReceiptLotRepository interface {
	// Create falla con domain.ErrDuplicate si el número de lote ya existe para el producto.
	Create(ctx context.Context, lot *entity.ReceiptLot) error
	GetByID(ctx context.Context, id string) (*entity.ReceiptLot, error)
	GetByLotNumber(ctx context.Context, productID, lotNumber string) (*entity.ReceiptLot, error)
	// ListOpenForUpdate lista los lotes OPEN del producto bloqueándolos para la transacción.
	ListOpenForUpdate(ctx context.Context, productID string) ([]*entity.ReceiptLot, error)
	ListByProduct(ctx context.Context, productID string) ([]*entity.ReceiptLot, error)
	// Update persiste RemainingQuantity y Status solo si Version coincide (CAS) e incrementa lot.Version.
	// Devuelve domain.ErrConcurrencyConflict si otro escritor modificó el lote.
	Update(ctx context.Context, lot *entity.ReceiptLot) error
}
