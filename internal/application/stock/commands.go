package stock

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Bodega-api/internal/domain"
	"github.com/jhoicas/Bodega-api/internal/domain/entity"
	"github.com/jhoicas/Bodega-api/internal/domain/inventory"
)

// ReceiveCommand recepción de un lote. ReceivedAt cero = hora del reloj del ledger.
type ReceiveCommand struct {
	ProductID        string
	PurchaseOrderRef string
	LotNumber        string
	Quantity         decimal.Decimal
	UnitPrice        decimal.Decimal
	ReceivedAt       time.Time
	UserID           string
}

func (c ReceiveCommand) validate() error {
	switch {
	case strings.TrimSpace(c.ProductID) == "":
		return fmt.Errorf("%w: product_id requerido", domain.ErrInvalidInput)
	case strings.TrimSpace(c.LotNumber) == "":
		return fmt.Errorf("%w: lot_number requerido", domain.ErrInvalidInput)
	case !c.Quantity.IsPositive():
		return fmt.Errorf("%w: la cantidad recibida debe ser positiva", domain.ErrInvalidInput)
	case c.UnitPrice.IsNegative():
		return fmt.Errorf("%w: el precio unitario no puede ser negativo", domain.ErrInvalidInput)
	}
	if err := inventory.CheckScale("quantity", c.Quantity); err != nil {
		return err
	}
	return inventory.CheckScale("unit_price", c.UnitPrice)
}

// AllocationRequest salida FIFO de un producto. Type vacío = OUT.
type AllocationRequest struct {
	ProductID string
	Quantity  decimal.Decimal
	Reference string
	Reason    string
	UserID    string
	Type      string // OUT | ADJUSTMENT
}

func (r *AllocationRequest) normalize() error {
	if r.Type == "" {
		r.Type = entity.MovementTypeOUT
	}
	switch {
	case strings.TrimSpace(r.ProductID) == "":
		return fmt.Errorf("%w: product_id requerido", domain.ErrInvalidInput)
	case !r.Quantity.IsPositive():
		return fmt.Errorf("%w: la cantidad solicitada debe ser positiva", domain.ErrInvalidInput)
	case r.Type != entity.MovementTypeOUT && r.Type != entity.MovementTypeADJUSTMENT:
		return fmt.Errorf("%w: tipo de salida %q", domain.ErrInvalidInput, r.Type)
	}
	return inventory.CheckScale("quantity", r.Quantity)
}

// AdjustCommand corrección de stock. INCREASE exige lote; DECREASE sin lote consume FIFO.
type AdjustCommand struct {
	ProductID string
	LotID     string
	Direction string // INCREASE | DECREASE
	Quantity  decimal.Decimal
	Reason    string
	Reference string
	UserID    string
}

func (c AdjustCommand) validate() error {
	switch {
	case strings.TrimSpace(c.ProductID) == "":
		return fmt.Errorf("%w: product_id requerido", domain.ErrInvalidInput)
	case !c.Quantity.IsPositive():
		return fmt.Errorf("%w: la cantidad del ajuste debe ser positiva", domain.ErrInvalidInput)
	case strings.TrimSpace(c.Reason) == "":
		return fmt.Errorf("%w: el ajuste requiere motivo", domain.ErrInvalidInput)
	case c.Direction != entity.DirectionIncrease && c.Direction != entity.DirectionDecrease:
		return fmt.Errorf("%w: dirección %q", domain.ErrInvalidInput, c.Direction)
	case c.Direction == entity.DirectionIncrease && c.LotID == "":
		return fmt.Errorf("%w: un ajuste al alza debe indicar el lote", domain.ErrInvalidInput)
	}
	return inventory.CheckScale("quantity", c.Quantity)
}
