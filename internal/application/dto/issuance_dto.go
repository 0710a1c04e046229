package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateIssuanceLineRequest línea solicitada del bon de sortie.
type CreateIssuanceLineRequest struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// CreateIssuanceRequest body para POST /api/issuances. Number vacío = se asigna automáticamente.
type CreateIssuanceRequest struct {
	Number    string                      `json:"number,omitempty"`
	Workshop  string                      `json:"workshop"`
	Reason    string                      `json:"reason"`
	IssueDate *time.Time                  `json:"issue_date,omitempty"`
	Lines     []CreateIssuanceLineRequest `json:"lines"`
}

// IssuanceLineResponse línea del bon con los lotes consumidos (solo tras confirmar).
type IssuanceLineResponse struct {
	LineNo           int             `json:"line_no"`
	ProductID        string          `json:"product_id"`
	ProductReference string          `json:"product_reference,omitempty"`
	ProductName      string          `json:"product_name,omitempty"`
	UnitMeasure      string          `json:"unit_measure,omitempty"`
	Quantity         decimal.Decimal `json:"quantity"`
	Amount           decimal.Decimal `json:"amount"`
	Draws            []LotDraw       `json:"draws,omitempty"`
}

// IssuanceResponse bon de sortie.
type IssuanceResponse struct {
	ID          string                 `json:"id"`
	Number      string                 `json:"number"`
	Workshop    string                 `json:"workshop"`
	Reason      string                 `json:"reason"`
	IssueDate   time.Time              `json:"issue_date"`
	Status      string                 `json:"status"`
	TotalAmount decimal.Decimal        `json:"total_amount"`
	Lines       []IssuanceLineResponse `json:"lines"`
	ConfirmedAt *time.Time             `json:"confirmed_at,omitempty"`
	CreatedBy   string                 `json:"created_by,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// ReorderSignalDTO resultado de la señal de reposición para un producto tocado.
type ReorderSignalDTO struct {
	ProductID     string          `json:"product_id"`
	CurrentStock  decimal.Decimal `json:"current_stock"`
	ReorderPoint  decimal.Decimal `json:"reorder_point"`
	ReorderStatus string          `json:"reorder_status"`
}

// IssuanceResult resultado de confirmar un bon: el bon confirmado y la señal de reposición
// de cada producto distinto afectado.
type IssuanceResult struct {
	Slip           IssuanceResponse   `json:"slip"`
	ReorderSignals []ReorderSignalDTO `json:"reorder_signals"`
}
