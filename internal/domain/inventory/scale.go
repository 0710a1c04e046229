package inventory

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Bodega-api/internal/domain"
)

// MaxScale decimales que conservan las columnas NUMERIC(18,4) de cantidades y precios.
const MaxScale = 4

// CheckScale rechaza valores con más de MaxScale decimales significativos.
func CheckScale(field string, v decimal.Decimal) error {
	if !v.Equal(v.Truncate(MaxScale)) {
		return fmt.Errorf("%w: %s admite como máximo %d decimales (%s)", domain.ErrInvalidInput, field, MaxScale, v)
	}
	return nil
}

// Amount cantidad × precio redondeado a MaxScale, igual que lo persiste el almacén.
func Amount(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return quantity.Mul(unitPrice).Round(MaxScale)
}
