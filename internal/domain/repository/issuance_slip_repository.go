package repository

import (
	"context"

	"github.com/jhoicas/Bodega-api/internal/domain/entity"
)

// IssuanceSlipRepository puerto de persistencia del bon de sortie y sus líneas.
type IssuanceSlipRepository interface {
	// Create persiste cabecera y líneas. domain.ErrDuplicate si Number ya existe.
	Create(ctx context.Context, slip *entity.IssuanceSlip) error
	GetByID(ctx context.Context, id string) (*entity.IssuanceSlip, error)
	// GetByNumber devuelve nil si ningún bon usa ese número.
	GetByNumber(ctx context.Context, number string) (*entity.IssuanceSlip, error)
	GetForUpdate(ctx context.Context, id string) (*entity.IssuanceSlip, error)
	// Update persiste estado, totales, fecha de confirmación y montos de línea.
	Update(ctx context.Context, slip *entity.IssuanceSlip) error
}
