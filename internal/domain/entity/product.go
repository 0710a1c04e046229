package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un artículo del almacén.
// CurrentStock es un caché de Σ RemainingQuantity de sus lotes; solo lo modifica el ledger de stock
// dentro de la misma transacción que escribe lotes y movimientos.
type Product struct {
	ID           string
	Reference    string // código único
	Name         string
	Description  string
	Category     string
	UnitMeasure  string
	CurrentStock decimal.Decimal
	ReorderPoint decimal.Decimal // umbral de reposición (0 = sin alerta)
	Active       bool            // desactivación lógica; nunca se borra si tiene lotes
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
