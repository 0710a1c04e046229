package stock

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jhoicas/Bodega-api/internal/application/dto"
	"github.com/jhoicas/Bodega-api/internal/domain"
	"github.com/jhoicas/Bodega-api/internal/domain/entity"
	"github.com/jhoicas/Bodega-api/internal/domain/inventory"
	"github.com/jhoicas/Bodega-api/internal/domain/repository"
)

// Adjust registra una corrección como movimiento ADJUSTMENT. Siempre actúa sobre lotes para que
// Σ remaining siga igual al agregado: al alza reintegra al lote indicado (sin superar su cantidad
// inicial), a la baja descuenta del lote indicado o, sin lote, en orden FIFO.
func (l *Ledger) Adjust(ctx context.Context, cmd AdjustCommand) (out *dto.AllocationResult, err error) {
	ctx, done := l.observe(ctx, "adjust",
		attribute.String("product.id", cmd.ProductID),
		attribute.String("adjust.direction", cmd.Direction))
	defer func() { done(err) }()

	if err := cmd.validate(); err != nil {
		return nil, err
	}

	var (
		eff   *Effects
		alloc *Allocation
	)
	err = l.tx.Run(ctx, func(ctx context.Context, tx repository.TxRepos) error {
		eff = NewEffects()
		var (
			a   *Allocation
			err error
		)
		if cmd.Direction == entity.DirectionDecrease && cmd.LotID == "" {
			a, err = l.AllocateInTx(ctx, tx, AllocationRequest{
				ProductID: cmd.ProductID,
				Quantity:  cmd.Quantity,
				Reference: cmd.Reference,
				Reason:    cmd.Reason,
				UserID:    cmd.UserID,
				Type:      entity.MovementTypeADJUSTMENT,
			})
		} else {
			a, err = l.adjustLotInTx(ctx, tx, cmd)
		}
		if err != nil {
			return err
		}
		alloc = a
		eff.add(a.Product, cmd.Direction == entity.DirectionDecrease, a.Movements...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.Propagate(ctx, eff)
	return allocationResult(alloc), nil
}

func (l *Ledger) adjustLotInTx(ctx context.Context, tx repository.TxRepos, cmd AdjustCommand) (*Allocation, error) {
	p, err := l.lockProduct(ctx, tx, cmd.ProductID)
	if err != nil {
		return nil, err
	}
	lot, err := tx.Lots.GetByID(ctx, cmd.LotID)
	if err != nil {
		return nil, err
	}
	if lot == nil || lot.ProductID != p.ID {
		return nil, fmt.Errorf("%w: lote %s del producto %s", domain.ErrNotFound, cmd.LotID, p.Reference)
	}

	delta := cmd.Quantity
	if cmd.Direction == entity.DirectionIncrease {
		if err := lot.Credit(cmd.Quantity); err != nil {
			return nil, err
		}
	} else {
		if lot.Status == entity.LotStatusOpen && cmd.Quantity.GreaterThan(lot.RemainingQuantity) {
			return nil, &domain.InsufficientStockError{ProductID: p.ID, Requested: cmd.Quantity, Available: lot.RemainingQuantity}
		}
		if err := lot.Draw(cmd.Quantity); err != nil {
			return nil, err
		}
		delta = delta.Neg()
	}
	if err := tx.Lots.Update(ctx, lot); err != nil {
		return nil, err
	}

	mov := &entity.StockMovement{
		ProductID:  p.ID,
		LotID:      lot.ID,
		Type:       entity.MovementTypeADJUSTMENT,
		Direction:  cmd.Direction,
		Quantity:   cmd.Quantity,
		UnitPrice:  lot.UnitPrice,
		Reference:  cmd.Reference,
		Reason:     cmd.Reason,
		OccurredAt: l.clock.Now(),
		CreatedBy:  cmd.UserID,
	}
	if err := tx.Movements.Append(ctx, mov); err != nil {
		return nil, err
	}
	if _, err := l.applyDelta(ctx, tx, p, delta); err != nil {
		return nil, err
	}
	draw := inventory.Draw{LotID: lot.ID, LotNumber: lot.LotNumber, Quantity: cmd.Quantity, UnitPrice: lot.UnitPrice}
	return &Allocation{Product: p, Draws: []inventory.Draw{draw}, Movements: []*entity.StockMovement{mov}}, nil
}

// CloseLot cierra un lote agotado: deja de participar en FIFO y en ajustes.
func (l *Ledger) CloseLot(ctx context.Context, lotID string) (out *dto.LotSummary, err error) {
	ctx, done := l.observe(ctx, "close_lot", attribute.String("lot.id", lotID))
	defer func() { done(err) }()

	err = l.tx.Run(ctx, func(ctx context.Context, tx repository.TxRepos) error {
		lot, err := tx.Lots.GetByID(ctx, lotID)
		if err != nil {
			return err
		}
		if lot == nil {
			return fmt.Errorf("%w: lote %s", domain.ErrNotFound, lotID)
		}
		p, err := l.lockProduct(ctx, tx, lot.ProductID)
		if err != nil {
			return err
		}
		// Relectura con el producto bloqueado.
		if lot, err = tx.Lots.GetByID(ctx, lotID); err != nil {
			return err
		}
		if err := lot.Close(); err != nil {
			return err
		}
		if err := tx.Lots.Update(ctx, lot); err != nil {
			return err
		}
		s := lotSummary(lot, p.CurrentStock)
		out = &s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
