package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento de stock.
const (
	MovementTypeIN         = "IN"         // entrada (recepción)
	MovementTypeOUT        = "OUT"        // salida (bon de sortie)
	MovementTypeADJUSTMENT = "ADJUSTMENT" // ajuste / corrección
)

// Sentido del movimiento. IN implica INCREASE y OUT implica DECREASE; ADJUSTMENT lo declara.
const (
	DirectionIncrease = "INCREASE"
	DirectionDecrease = "DECREASE"
)

// StockMovement registro de auditoría de un evento que afecta el stock.
// Append-only: nunca se modifica ni se borra. Quantity siempre positiva.
type StockMovement struct {
	ID         string
	Seq        int64 // orden asignado por el almacén al insertar
	ProductID  string
	LotID      string // vacío si el movimiento no se asocia a un lote
	Type       string
	Direction  string
	Quantity   decimal.Decimal
	UnitPrice  decimal.Decimal // precio del lote afectado (valorización)
	Reference  string          // documento de origen: orden de compra, bon de sortie
	Reason     string
	OccurredAt time.Time
	CreatedBy  string
}

// SignedQuantity devuelve Quantity con signo según Direction.
func (m *StockMovement) SignedQuantity() decimal.Decimal {
	if m.Direction == DirectionDecrease {
		return m.Quantity.Neg()
	}
	return m.Quantity
}

// DirectionFor devuelve el sentido implícito de un tipo de movimiento (vacío para ADJUSTMENT).
func DirectionFor(movementType string) string {
	switch movementType {
	case MovementTypeIN:
		return DirectionIncrease
	case MovementTypeOUT:
		return DirectionDecrease
	}
	return ""
}
