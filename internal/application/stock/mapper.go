package stock

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Bodega-api/internal/application/dto"
	"github.com/jhoicas/Bodega-api/internal/domain/entity"
	"github.com/jhoicas/Bodega-api/internal/domain/inventory"
)

func lotSummary(l *entity.ReceiptLot, productStock decimal.Decimal) dto.LotSummary {
	return dto.LotSummary{
		ID:                l.ID,
		ProductID:         l.ProductID,
		PurchaseOrderRef:  l.PurchaseOrderRef,
		LotNumber:         l.LotNumber,
		UnitPrice:         l.UnitPrice,
		InitialQuantity:   l.InitialQuantity,
		RemainingQuantity: l.RemainingQuantity,
		ReceivedAt:        l.ReceivedAt,
		Status:            l.Status,
		ProductStock:      productStock,
	}
}

// DrawsToDTO convierte las extracciones de lote a su forma de salida.
func DrawsToDTO(draws []inventory.Draw) []dto.LotDraw {
	out := make([]dto.LotDraw, 0, len(draws))
	for _, d := range draws {
		out = append(out, dto.LotDraw{
			LotID:     d.LotID,
			LotNumber: d.LotNumber,
			Quantity:  d.Quantity,
			UnitPrice: d.UnitPrice,
			Amount:    d.Amount(),
		})
	}
	return out
}

func allocationResult(a *Allocation) *dto.AllocationResult {
	return &dto.AllocationResult{
		ProductID:     a.Product.ID,
		Quantity:      a.Quantity(),
		Amount:        a.Amount(),
		Draws:         DrawsToDTO(a.Draws),
		NewStock:      a.Product.CurrentStock,
		ReorderStatus: string(inventory.Evaluate(a.Product.CurrentStock, a.Product.ReorderPoint)),
	}
}

// Signal señal de reposición de un producto.
func Signal(p *entity.Product) dto.ReorderSignalDTO {
	return dto.ReorderSignalDTO{
		ProductID:     p.ID,
		CurrentStock:  p.CurrentStock,
		ReorderPoint:  p.ReorderPoint,
		ReorderStatus: string(inventory.Evaluate(p.CurrentStock, p.ReorderPoint)),
	}
}

// MovementToDTO convierte un movimiento del ledger a su forma de salida.
func MovementToDTO(m *entity.StockMovement) dto.MovementResponse {
	return dto.MovementResponse{
		ID:         m.ID,
		Seq:        m.Seq,
		ProductID:  m.ProductID,
		LotID:      m.LotID,
		Type:       m.Type,
		Direction:  m.Direction,
		Quantity:   m.Quantity,
		UnitPrice:  m.UnitPrice,
		Reference:  m.Reference,
		Reason:     m.Reason,
		OccurredAt: m.OccurredAt,
		CreatedBy:  m.CreatedBy,
	}
}
