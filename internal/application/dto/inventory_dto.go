package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReceiveStockRequest body para POST /api/stock/receipts.
type ReceiveStockRequest struct {
	ProductID        string          `json:"product_id"`
	PurchaseOrderRef string          `json:"purchase_order_ref"`
	LotNumber        string          `json:"lot_number"`
	Quantity         decimal.Decimal `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	ReceivedAt       *time.Time      `json:"received_at,omitempty"` // vacío = ahora
}

// ReceivePurchaseOrderRequest body para POST /api/stock/purchase-orders/:id/receive.
type ReceivePurchaseOrderRequest struct {
	ReceivedAt *time.Time `json:"received_at,omitempty"`
}

// AdjustmentRequest body para POST /api/stock/adjustments.
type AdjustmentRequest struct {
	ProductID string          `json:"product_id"`
	LotID     string          `json:"lot_id,omitempty"`
	Direction string          `json:"direction"` // INCREASE | DECREASE
	Quantity  decimal.Decimal `json:"quantity"`
	Reason    string          `json:"reason"`
	Reference string          `json:"reference,omitempty"`
}

// LotSummary salida de un lote de recepción.
type LotSummary struct {
	ID                string          `json:"id"`
	ProductID         string          `json:"product_id"`
	PurchaseOrderRef  string          `json:"purchase_order_ref"`
	LotNumber         string          `json:"lot_number"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	InitialQuantity   decimal.Decimal `json:"initial_quantity"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
	ReceivedAt        time.Time       `json:"received_at"`
	Status            string          `json:"status"`
	ProductStock      decimal.Decimal `json:"product_stock"` // agregado del producto tras la operación
}

// LotDraw cantidad tomada de un lote.
type LotDraw struct {
	LotID     string          `json:"lot_id"`
	LotNumber string          `json:"lot_number"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Amount    decimal.Decimal `json:"amount"`
}

// AllocationResult resultado de una asignación FIFO (salida o ajuste a la baja).
type AllocationResult struct {
	ProductID     string          `json:"product_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	Amount        decimal.Decimal `json:"amount"`
	Draws         []LotDraw       `json:"draws"`
	NewStock      decimal.Decimal `json:"new_stock"`
	ReorderStatus string          `json:"reorder_status"`
}

// MovementResponse entrada del historial de movimientos.
type MovementResponse struct {
	ID         string          `json:"id"`
	Seq        int64           `json:"seq"`
	ProductID  string          `json:"product_id"`
	LotID      string          `json:"lot_id,omitempty"`
	Type       string          `json:"type"`
	Direction  string          `json:"direction"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Reference  string          `json:"reference"`
	Reason     string          `json:"reason"`
	OccurredAt time.Time       `json:"occurred_at"`
	CreatedBy  string          `json:"created_by,omitempty"`
}

// StockLevelResponse stock actual y señal de reposición de un producto.
type StockLevelResponse struct {
	ProductID     string          `json:"product_id"`
	CurrentStock  decimal.Decimal `json:"current_stock"`
	ReorderPoint  decimal.Decimal `json:"reorder_point"`
	ReorderStatus string          `json:"reorder_status"`
}

// StockValuationDTO valorización del stock remanente a precio de compra.
type StockValuationDTO struct {
	Quantity        decimal.Decimal `json:"quantity"`
	TotalValue      decimal.Decimal `json:"total_value"`
	AverageUnitCost decimal.Decimal `json:"average_unit_cost"`
}

// LotListResponse lotes de un producto en orden FIFO con su valorización.
type LotListResponse struct {
	ProductID string            `json:"product_id"`
	Lots      []LotSummary      `json:"lots"`
	Valuation StockValuationDTO `json:"valuation"`
}

// LotDrift diferencia entre el caché de un lote y lo derivado del ledger.
type LotDrift struct {
	LotID     string          `json:"lot_id"`
	LotNumber string          `json:"lot_number"`
	Cached    decimal.Decimal `json:"cached"`
	Derived   decimal.Decimal `json:"derived"`
}

// ReconcileReport comparación entre los tres registros del stock de un producto.
type ReconcileReport struct {
	ProductID   string          `json:"product_id"`
	CachedStock decimal.Decimal `json:"cached_stock"` // products.current_stock
	LotsTotal   decimal.Decimal `json:"lots_total"`   // Σ remaining de lotes
	LedgerTotal decimal.Decimal `json:"ledger_total"` // Σ movimientos con signo
	Movements   int             `json:"movements"`
	LotDrifts   []LotDrift      `json:"lot_drifts,omitempty"`
	Consistent  bool            `json:"consistent"`
}

// ReorderSuggestionDTO producto bajo su umbral de reposición con la cantidad sugerida de pedido.
type ReorderSuggestionDTO struct {
	ProductID          string          `json:"product_id"`
	Reference          string          `json:"reference"`
	ProductName        string          `json:"product_name"`
	UnitMeasure        string          `json:"unit_measure"`
	CurrentStock       decimal.Decimal `json:"current_stock"`
	ReorderPoint       decimal.Decimal `json:"reorder_point"`
	IdealStock         decimal.Decimal `json:"ideal_stock"`          // ReorderPoint * 1.5
	SuggestedOrderQty  decimal.Decimal `json:"suggested_order_qty"`  // IdealStock - CurrentStock
	LastUnitPrice      decimal.Decimal `json:"last_unit_price"`      // precio del lote más reciente
	EstimatedOrderCost decimal.Decimal `json:"estimated_order_cost"` // SuggestedOrderQty * LastUnitPrice
	Priority           int             `json:"priority"`             // 1 = más urgente
}

// AllocateRequest body para POST /api/stock/allocations (salida FIFO directa, sin bon).
type AllocateRequest struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	Reference string          `json:"reference"`
	Reason    string          `json:"reason"`
}

// InsufficientStockDetail cuerpo 409 cuando la cantidad disponible no alcanza.
type InsufficientStockDetail struct {
	Code      string          `json:"code"`
	Message   string          `json:"message"`
	ProductID string          `json:"product_id"`
	Requested decimal.Decimal `json:"requested"`
	Available decimal.Decimal `json:"available"`
}
