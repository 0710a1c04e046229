package issuance

import (
	"context"

	"github.com/jhoicas/Bodega-api/internal/application/dto"
	"github.com/jhoicas/Bodega-api/internal/application/stock"
	"github.com/jhoicas/Bodega-api/internal/domain/repository"
)

// Allocator motor de asignación usado dentro de la transacción del bon.
// Lo implementa *stock.Ledger.
type Allocator interface {
	LockProducts(ctx context.Context, tx repository.TxRepos, productIDs []string) error
	AllocateInTx(ctx context.Context, tx repository.TxRepos, req stock.AllocationRequest) (*stock.Allocation, error)
	Propagate(ctx context.Context, eff *stock.Effects)
}

// PDFGenerator genera el documento imprimible del bon confirmado.
type PDFGenerator interface {
	GenerateIssuanceSlip(slip dto.IssuanceResponse) ([]byte, error)
}
