package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados del bon de sortie.
const (
	SlipStatusDraft     = "DRAFT"
	SlipStatusConfirmed = "CONFIRMED"
	SlipStatusCancelled = "CANCELLED"
)

// IssuanceSlip bon de sortie: solicitud de salida multilínea hacia un taller.
// Se crea en DRAFT; al confirmar se asignan lotes por línea y las líneas quedan inmutables.
type IssuanceSlip struct {
	ID          string
	Number      string // único
	Workshop    string // taller / destino
	Reason      string
	IssueDate   time.Time
	Status      string
	TotalAmount decimal.Decimal // Σ cantidad × precio de los lotes consumidos
	Lines       []IssuanceLine
	ConfirmedAt *time.Time
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IssuanceLine línea del bon de sortie. Amount se fija al confirmar.
type IssuanceLine struct {
	ID        string
	SlipID    string
	LineNo    int
	ProductID string
	Quantity  decimal.Decimal
	Amount    decimal.Decimal
}

// IsDraft indica si el bon aún admite confirmación o cancelación.
func (s *IssuanceSlip) IsDraft() bool { return s.Status == SlipStatusDraft }
