package stock

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jhoicas/Bodega-api/internal/application/dto"
	"github.com/jhoicas/Bodega-api/internal/domain/entity"
	"github.com/jhoicas/Bodega-api/internal/domain/inventory"
	"github.com/jhoicas/Bodega-api/internal/domain/repository"
	"github.com/jhoicas/Bodega-api/pkg/logger"
)

const reconcilePageSize = 100

// Reconcile reconstruye lotes y agregado a partir del historial de movimientos y los compara con
// los cachés. Solo lectura: toma el bloqueo del producto para leer un estado consistente.
func (l *Ledger) Reconcile(ctx context.Context, productID string) (out *dto.ReconcileReport, err error) {
	ctx, done := l.observe(ctx, "reconcile", attribute.String("product.id", productID))
	defer func() { done(err) }()

	err = l.tx.Run(ctx, func(ctx context.Context, tx repository.TxRepos) error {
		p, err := l.lockProduct(ctx, tx, productID)
		if err != nil {
			return err
		}
		lots, err := tx.Lots.ListByProduct(ctx, p.ID)
		if err != nil {
			return err
		}
		movs, err := tx.Movements.ListByProduct(ctx, p.ID, nil, nil)
		if err != nil {
			return err
		}
		out = buildReport(p, lots, movs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !out.Consistent {
		log := logger.WithContext(ctx, l.log)
		log.Error().
			Str("product_id", out.ProductID).
			Str("cached", out.CachedStock.String()).
			Str("lots", out.LotsTotal.String()).
			Str("ledger", out.LedgerTotal.String()).
			Int("lot_drifts", len(out.LotDrifts)).
			Msg("stock desalineado con el ledger")
	}
	return out, nil
}

// ReconcileAll concilia todos los productos, página por página.
func (l *Ledger) ReconcileAll(ctx context.Context) ([]*dto.ReconcileReport, error) {
	var reports []*dto.ReconcileReport
	for offset := 0; ; offset += reconcilePageSize {
		page, err := l.repos.Products.List(ctx, reconcilePageSize, offset)
		if err != nil {
			return reports, err
		}
		for _, p := range page {
			rep, err := l.Reconcile(ctx, p.ID)
			if err != nil {
				return reports, err
			}
			reports = append(reports, rep)
		}
		if len(page) < reconcilePageSize {
			return reports, nil
		}
	}
}

func buildReport(p *entity.Product, lots []*entity.ReceiptLot, movs []*entity.StockMovement) *dto.ReconcileReport {
	state := inventory.Replay(movs)
	rep := &dto.ReconcileReport{
		ProductID:   p.ID,
		CachedStock: p.CurrentStock,
		LedgerTotal: state.Total,
		Movements:   state.Movements,
	}
	for _, lot := range lots {
		rep.LotsTotal = rep.LotsTotal.Add(lot.RemainingQuantity)
		derived := state.LotRemaining[lot.ID]
		if !derived.Equal(lot.RemainingQuantity) {
			rep.LotDrifts = append(rep.LotDrifts, dto.LotDrift{
				LotID:     lot.ID,
				LotNumber: lot.LotNumber,
				Cached:    lot.RemainingQuantity,
				Derived:   derived,
			})
		}
	}
	rep.Consistent = len(rep.LotDrifts) == 0 &&
		rep.CachedStock.Equal(rep.LotsTotal) &&
		rep.LotsTotal.Equal(rep.LedgerTotal)
	return rep
}
