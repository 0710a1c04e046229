package messaging

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Bodega-api/internal/domain/entity"
)

// Tipos de evento publicados.
const (
	EventTypeMovementRecorded = "stock.movement.recorded"
	EventTypeReorderBelow     = "stock.reorder.below_threshold"
)

// MovementRecordedEvent movimiento ya confirmado en el ledger.
type MovementRecordedEvent struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	Timestamp  time.Time       `json:"timestamp"`
	MovementID string          `json:"movement_id"`
	Seq        int64           `json:"seq"`
	ProductID  string          `json:"product_id"`
	LotID      string          `json:"lot_id,omitempty"`
	Type       string          `json:"type"`
	Direction  string          `json:"direction"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Reference  string          `json:"reference,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	CreatedBy  string          `json:"created_by,omitempty"`
}

func newMovementEvent(m *entity.StockMovement, now time.Time) MovementRecordedEvent {
	return MovementRecordedEvent{
		EventID:    "evt_" + m.ID,
		EventType:  EventTypeMovementRecorded,
		Timestamp:  now,
		MovementID: m.ID,
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
