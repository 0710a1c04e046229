package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de la orden de compra a proveedor.
const (
	OrderStatusPending   = "PENDING"
	OrderStatusValidated = "VALIDATED"
	OrderStatusDelivered = "DELIVERED"
	OrderStatusCancelled = "CANCELLED"
)

// PurchaseOrder orden de compra a proveedor. Su recepción genera un lote por línea.
type PurchaseOrder struct {
	ID          string
	Number      string
	SupplierID  string
	OrderDate   time.Time
	Status      string
	Lines       []PurchaseOrderLine
	TotalAmount decimal.Decimal
	DeliveredAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PurchaseOrderLine línea de la orden.
type PurchaseOrderLine struct {
	LineNo    int
	ProductID string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

// LineTotal cantidad × precio unitario.
func (l PurchaseOrderLine) LineTotal() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice)
}
