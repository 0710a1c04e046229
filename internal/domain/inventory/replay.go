package inventory

import (
	"github.com/jhoicas/Bodega-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// LedgerState cantidades derivadas exclusivamente del historial de movimientos.
type LedgerState struct {
	LotRemaining map[string]decimal.Decimal // por LotID
	Unassigned   decimal.Decimal            // neto de movimientos sin lote
	Total        decimal.Decimal
	Movements    int
}

// Replay reconstruye remanentes por lote y total del producto a partir del ledger.
// El ledger es la fuente de verdad; lotes y producto son cachés que deben coincidir con esto.
func Replay(movements []*entity.StockMovement) LedgerState {
	st := LedgerState{
		LotRemaining: make(map[string]decimal.Decimal),
		Unassigned:   decimal.Zero,
		Total:        decimal.Zero,
	}
	for _, m := range movements {
		signed := m.SignedQuantity()
		if m.LotID != "" {
			st.LotRemaining[m.LotID] = st.LotRemaining[m.LotID].Add(signed)
		} else {
			st.Unassigned = st.Unassigned.Add(signed)
		}
		st.Total = st.Total.Add(signed)
		st.Movements++
	}
	return st
}
