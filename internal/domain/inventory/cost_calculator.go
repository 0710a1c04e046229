package inventory

import (
	"github.com/jhoicas/Bodega-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// CostCalculator implementa la lógica de costo promedio ponderado (servicio de dominio).
// NuevoCosto = ((StockActual * CostoActual) + (CantEntrada * CostoEntrada)) / (StockActual + CantEntrada)
func CostCalculator(stockActual, costoActual, cantEntrada, costoEntrada decimal.Decimal) decimal.Decimal {
	sum := stockActual.Add(cantEntrada)
	if sum.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	num := stockActual.Mul(costoActual).Add(cantEntrada.Mul(costoEntrada))
	return num.Div(sum)
}

// StockValuation valor del stock remanente de un producto.
type StockValuation struct {
	Quantity        decimal.Decimal
	TotalValue      decimal.Decimal // Σ remanente × precio del lote
	AverageUnitCost decimal.Decimal // promedio ponderado por cantidad remanente
}

// Valuation valoriza los lotes abiertos acumulando el costo promedio ponderado lote a lote.
func Valuation(lots []*entity.ReceiptLot) StockValuation {
	v := StockValuation{Quantity: decimal.Zero, TotalValue: decimal.Zero, AverageUnitCost: decimal.Zero}
	for _, l := range lots {
		if l.Status != entity.LotStatusOpen || !l.RemainingQuantity.GreaterThan(decimal.Zero) {
			continue
		}
		v.AverageUnitCost = CostCalculator(v.Quantity, v.AverageUnitCost, l.RemainingQuantity, l.UnitPrice)
		v.Quantity = v.Quantity.Add(l.RemainingQuantity)
		v.TotalValue = v.TotalValue.Add(l.RemainingQuantity.Mul(l.UnitPrice))
	}
	return v
}
