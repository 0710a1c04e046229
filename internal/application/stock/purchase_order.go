package stock

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jhoicas/Bodega-api/internal/application/dto"
	"github.com/jhoicas/Bodega-api/internal/domain"
	"github.com/jhoicas/Bodega-api/internal/domain/entity"
	"github.com/jhoicas/Bodega-api/internal/domain/repository"
)

// LotNumberFor número de lote asignado a una línea de orden recibida.
func LotNumberFor(orderNumber string, lineNo int) string {
	return fmt.Sprintf("LOT-%s-%02d", orderNumber, lineNo)
}

// ReceivePurchaseOrder recibe una orden VALIDATED: un lote y un movimiento IN por línea,
// y la orden pasa a DELIVERED. Todo en una transacción.
func (l *Ledger) ReceivePurchaseOrder(ctx context.Context, orderID string, receivedAt time.Time, userID string) (out []dto.LotSummary, err error) {
	ctx, done := l.observe(ctx, "receive_purchase_order", attribute.String("order.id", orderID))
	defer func() { done(err) }()

	if receivedAt.IsZero() {
		receivedAt = l.clock.Now()
	}
	var eff *Effects
	err = l.tx.Run(ctx, func(ctx context.Context, tx repository.TxRepos) error {
		eff = NewEffects()
		out = out[:0]

		order, err := tx.Orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return fmt.Errorf("%w: orden de compra %s", domain.ErrNotFound, orderID)
		}
		if order.Status != entity.OrderStatusValidated {
			return fmt.Errorf("%w: la orden %s está %s, se esperaba %s",
				domain.ErrConflict, order.Number, order.Status, entity.OrderStatusValidated)
		}
		if len(order.Lines) == 0 {
			return fmt.Errorf("%w: la orden %s no tiene líneas", domain.ErrInvalidInput, order.Number)
		}

		lines := append([]entity.PurchaseOrderLine(nil), order.Lines...)
		sort.SliceStable(lines, func(i, j int) bool { return lines[i].LineNo < lines[j].LineNo })
		ids := make([]string, 0, len(lines))
		for _, ln := range lines {
			ids = append(ids, ln.ProductID)
		}
		if err := l.LockProducts(ctx, tx, ids); err != nil {
			return err
		}

		for _, ln := range lines {
			lot, p, err := l.receiveInTx(ctx, tx, ReceiveCommand{
				ProductID:        ln.ProductID,
				PurchaseOrderRef: order.Number,
				LotNumber:        LotNumberFor(order.Number, ln.LineNo),
				Quantity:         ln.Quantity,
				UnitPrice:        ln.UnitPrice,
				ReceivedAt:       receivedAt,
				UserID:           userID,
			}, eff)
			if err != nil {
				return fmt.Errorf("línea %d: %w", ln.LineNo, err)
			}
			out = append(out, lotSummary(lot, p.CurrentStock))
		}

		now := l.clock.Now()
		order.Status = entity.OrderStatusDelivered
		order.DeliveredAt = &now
		return tx.Orders.UpdateStatus(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	l.Propagate(ctx, eff)
	return out, nil
}
