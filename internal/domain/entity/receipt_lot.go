package entity

import (
	"fmt"
	"time"

	"github.com/jhoicas/Bodega-api/internal/domain"
	"github.com/shopspring/decimal"
)

// Estados de un lote de recepción.
const (
	LotStatusOpen     = "OPEN"
	LotStatusDepleted = "DEPLETED"
	LotStatusClosed   = "CLOSED"
)

// ReceiptLot lote creado al recibir una orden de compra.
// InitialQuantity y UnitPrice son inmutables; RemainingQuantity es el único campo que cambia.
// Invariante: 0 <= RemainingQuantity <= InitialQuantity, DEPLETED si y solo si RemainingQuantity == 0 (salvo CLOSED).
type ReceiptLot struct {
	ID                string
	ProductID         string
	PurchaseOrderRef  string
	LotNumber         string // único por producto
	UnitPrice         decimal.Decimal
	InitialQuantity   decimal.Decimal
	RemainingQuantity decimal.Decimal
	ReceivedAt        time.Time
	Status            string
	Version           int64 // CAS optimista sobre RemainingQuantity
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Draw descuenta qty del lote. Falla si qty no es positiva o excede lo disponible.
func (l *ReceiptLot) Draw(qty decimal.Decimal) error {
	if l.Status != LotStatusOpen {
		return fmt.Errorf("%w: lote %s no está abierto (%s)", domain.ErrConflict, l.LotNumber, l.Status)
	}
	if !qty.GreaterThan(decimal.Zero) || qty.GreaterThan(l.RemainingQuantity) {
		return fmt.Errorf("%w: lote %s: no se pueden retirar %s de %s", domain.ErrInvalidInput, l.LotNumber, qty, l.RemainingQuantity)
	}
	l.RemainingQuantity = l.RemainingQuantity.Sub(qty)
	if l.RemainingQuantity.IsZero() {
		l.Status = LotStatusDepleted
	}
	return nil
}

// Credit reintegra qty al lote (ajuste o reversa). Nunca supera InitialQuantity.
func (l *ReceiptLot) Credit(qty decimal.Decimal) error {
	if l.Status == LotStatusClosed {
		return fmt.Errorf("%w: lote %s cerrado", domain.ErrConflict, l.LotNumber)
	}
	if !qty.GreaterThan(decimal.Zero) || l.RemainingQuantity.Add(qty).GreaterThan(l.InitialQuantity) {
		return fmt.Errorf("%w: lote %s: reintegrar %s excede la cantidad inicial %s", domain.ErrInvalidInput, l.LotNumber, qty, l.InitialQuantity)
	}
	l.RemainingQuantity = l.RemainingQuantity.Add(qty)
	l.Status = LotStatusOpen
	return nil
}

// Close cierra un lote agotado; queda fuera de FIFO y de ajustes.
func (l *ReceiptLot) Close() error {
	if l.Status != LotStatusDepleted {
		return fmt.Errorf("%w: lote %s: solo un lote agotado puede cerrarse (%s)", domain.ErrConflict, l.LotNumber, l.Status)
	}
	l.Status = LotStatusClosed
	return nil
}
