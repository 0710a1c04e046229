package inventory

import (
	"fmt"
	"sort"

	"github.com/jhoicas/Bodega-api/internal/domain"
	"github.com/jhoicas/Bodega-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Draw cantidad tomada de un lote durante una asignación.
type Draw struct {
	LotID     string
	LotNumber string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

// Amount valor de la extracción al precio de compra del lote.
func (d Draw) Amount() decimal.Decimal { return Amount(d.Quantity, d.UnitPrice) }

// TotalQuantity suma de cantidades extraídas.
func TotalQuantity(draws []Draw) decimal.Decimal {
	total := decimal.Zero
	for _, d := range draws {
		total = total.Add(d.Quantity)
	}
	return total
}

// TotalAmount suma de montos de las extracciones.
func TotalAmount(draws []Draw) decimal.Decimal {
	total := decimal.Zero
	for _, d := range draws {
		total = total.Add(d.Amount())
	}
	return total
}

// SortFIFO ordena los lotes por fecha de recepción y luego por ID (ambos ascendentes).
func SortFIFO(lots []*entity.ReceiptLot) {
	sort.SliceStable(lots, func(i, j int) bool {
		if !lots[i].ReceivedAt.Equal(lots[j].ReceivedAt) {
			return lots[i].ReceivedAt.Before(lots[j].ReceivedAt)
		}
		return lots[i].ID < lots[j].ID
	})
}

// Available suma el remanente de los lotes OPEN.
func Available(lots []*entity.ReceiptLot) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lots {
		if l.Status == entity.LotStatusOpen {
			total = total.Add(l.RemainingQuantity)
		}
	}
	return total
}

// PlanFIFO calcula qué cantidad tomar de cada lote para cubrir quantity, del más antiguo al más reciente.
// No modifica los lotes. Si el remanente total de lotes OPEN no alcanza devuelve *domain.InsufficientStockError
// y ningún plan parcial.
func PlanFIFO(productID string, lots []*entity.ReceiptLot, quantity decimal.Decimal) ([]Draw, error) {
	if !quantity.GreaterThan(decimal.Zero) {
		return nil, fmt.Errorf("%w: cantidad a asignar debe ser positiva", domain.ErrInvalidInput)
	}
	ordered := make([]*entity.ReceiptLot, 0, len(lots))
	for _, l := range lots {
		if l.ProductID == productID && l.Status == entity.LotStatusOpen && l.RemainingQuantity.GreaterThan(decimal.Zero) {
			ordered = append(ordered, l)
		}
	}
	available := Available(ordered)
	if available.LessThan(quantity) {
		return nil, &domain.InsufficientStockError{ProductID: productID, Requested: quantity, Available: available}
	}
	SortFIFO(ordered)

	draws := make([]Draw, 0, len(ordered))
	stillNeeded := quantity
	for _, l := range ordered {
		if stillNeeded.IsZero() {
			break
		}
		take := decimal.Min(l.RemainingQuantity, stillNeeded)
		draws = append(draws, Draw{
			LotID:     l.ID,
			LotNumber: l.LotNumber,
			Quantity:  take,
			UnitPrice: l.UnitPrice,
		})
		stillNeeded = stillNeeded.Sub(take)
	}
	return draws, nil
}
