package inventory

import "github.com/shopspring/decimal"

// ReorderStatus resultado de la señal de reposición.
type ReorderStatus string

const (
	ReorderOK             ReorderStatus = "OK"
	ReorderBelowThreshold ReorderStatus = "BELOW_THRESHOLD"
)

// idealStockFactor stock objetivo relativo al umbral para sugerir pedidos.
var idealStockFactor = decimal.NewFromFloat(1.5)

// Evaluate compara el stock actual contra el umbral. Un umbral <= 0 nunca dispara.
func Evaluate(current, threshold decimal.Decimal) ReorderStatus {
	if threshold.GreaterThan(decimal.Zero) && current.LessThan(threshold) {
		return ReorderBelowThreshold
	}
	return ReorderOK
}

// SuggestedOrderQty cantidad a pedir para llegar a 1.5 × umbral (nunca negativa).
func SuggestedOrderQty(current, threshold decimal.Decimal) decimal.Decimal {
	qty := threshold.Mul(idealStockFactor).Sub(current)
	if qty.LessThan(decimal.Zero) {
		return decimal.Zero
	}
	return qty
}
