package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Bodega-api/internal/domain"
	"github.com/jhoicas/Bodega-api/internal/domain/entity"
	"github.com/jhoicas/Bodega-api/internal/domain/repository"
)

var (
	_ repository.ProductRepository       = (*productRepo)(nil)
	_ repository.ReceiptLotRepository    = (*lotRepo)(nil)
	_ repository.StockMovementRepository = (*movementRepo)(nil)
	_ repository.IssuanceSlipRepository  = (*slipRepo)(nil)
	_ repository.PurchaseOrderRepository = (*orderRepo)(nil)
)

// base comparte el almacén y la transacción (nil = autocommit).
type base struct {
	s *Store
	t *tx
}

func reposFor(s *Store, t *tx) repository.TxRepos {
	b := base{s: s, t: t}
	return repository.TxRepos{
		Products:  &productRepo{b},
		Lots:      &lotRepo{b},
		Movements: &movementRepo{b},
		Slips:     &slipRepo{b},
		Orders:    &orderRepo{b},
	}
}

func (b base) with(ctx context.Context, fn func(t *tx) error) error {
	if err := ctx.Err(); err != nil {
		return mapCtxErr(err)
	}
	if b.t != nil {
		return fn(b.t)
	}
	t := newTx(b.s)
	defer t.release()
	if err := fn(t); err != nil {
		return err
	}
	return t.commit()
}

// --- productos ---

type productRepo struct{ base }

func (r *productRepo) Create(ctx context.Context, p *entity.Product) error {
	return r.with(ctx, func(t *tx) error {
		p.ID = newID(p.ID)
		t.products[p.ID] = cloneProduct(p)
		t.newProds[p.ID] = true
		return nil
	})
}

func (r *productRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	var out *entity.Product
	err := r.with(ctx, func(t *tx) error {
		out = t.product(id)
		return nil
	})
	return out, err
}

func (r *productRepo) GetByReference(ctx context.Context, reference string) (*entity.Product, error) {
	var out *entity.Product
	err := r.with(ctx, func(t *tx) error {
		for _, p := range t.allProducts() {
			if p.Reference == reference {
				out = p
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *productRepo) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	var out *entity.Product
	err := r.with(ctx, func(t *tx) error {
		if err := t.lock(ctx, "product:"+id); err != nil {
			return err
		}
		out = t.product(id)
		return nil
	})
	return out, err
}

// UpdateStock y Deactivate escriben la fila completa al confirmar: ambos toman el bloqueo del producto.
func (r *productRepo) UpdateStock(ctx context.Context, id string, quantity decimal.Decimal) error {
	return r.with(ctx, func(t *tx) error {
		if err := t.lock(ctx, "product:"+id); err != nil {
			return err
		}
		p := t.product(id)
		if p == nil {
			return domain.ErrNotFound
		}
		p.CurrentStock = quantity
		p.UpdatedAt = time.Now()
		t.products[id] = p
		return nil
	})
}

func (r *productRepo) Deactivate(ctx context.Context, id string) error {
	return r.with(ctx, func(t *tx) error {
		if err := t.lock(ctx, "product:"+id); err != nil {
			return err
		}
		p := t.product(id)
		if p == nil {
			return domain.ErrNotFound
		}
		p.Active = false
		p.UpdatedAt = time.Now()
		t.products[id] = p
		return nil
	})
}

func (r *productRepo) List(ctx context.Context, limit, offset int) ([]*entity.Product, error) {
	var out []*entity.Product
	err := r.with(ctx, func(t *tx) error {
		all := t.allProducts()
		if offset >= len(all) {
			return nil
		}
		end := len(all)
		if limit > 0 && offset+limit < end {
			end = offset + limit
		}
		out = all[offset:end]
		return nil
	})
	return out, err
}

func (r *productRepo) ListBelowReorderPoint(ctx context.Context) ([]repository.ReorderCandidate, error) {
	var out []repository.ReorderCandidate
	err := r.with(ctx, func(t *tx) error {
		for _, p := range t.allProducts() {
			if !p.Active || !p.ReorderPoint.IsPositive() || !p.CurrentStock.LessThan(p.ReorderPoint) {
				continue
			}
			c := repository.ReorderCandidate{
				ProductID:    p.ID,
				Reference:    p.Reference,
				ProductName:  p.Name,
				UnitMeasure:  p.UnitMeasure,
				CurrentStock: p.CurrentStock,
				ReorderPoint: p.ReorderPoint,
			}
			if lots := t.lotsOf(p.ID); len(lots) > 0 {
				c.LastUnitPrice = lots[len(lots)-1].UnitPrice
			}
			out = append(out, c)
		}
		sort.SliceStable(out, func(i, j int) bool {
			di := out[i].ReorderPoint.Sub(out[i].CurrentStock)
			dj := out[j].ReorderPoint.Sub(out[j].CurrentStock)
			return di.GreaterThan(dj)
		})
		return nil
	})
	return out, err
}

// --- lotes ---

type lotRepo struct{ base }

func (r *lotRepo) Create(ctx context.Context, l *entity.ReceiptLot) error {
	return r.with(ctx, func(t *tx) error {
		for _, other := range t.lotsOf(l.ProductID) {
			if other.LotNumber == l.LotNumber {
				return fmt.Errorf("%w: lote %s", domain.ErrDuplicate, l.LotNumber)
			}
		}
		l.ID = newID(l.ID)
		c := *l
		t.lots[l.ID] = &c
		t.newLots[l.ID] = true
		return nil
	})
}

func (r *lotRepo) GetByID(ctx context.Context, id string) (*entity.ReceiptLot, error) {
	var out *entity.ReceiptLot
	err := r.with(ctx, func(t *tx) error {
		out = t.lot(id)
		return nil
	})
	return out, err
}

func (r *lotRepo) GetByLotNumber(ctx context.Context, productID, lotNumber string) (*entity.ReceiptLot, error) {
	var out *entity.ReceiptLot
	err := r.with(ctx, func(t *tx) error {
		for _, l := range t.lotsOf(productID) {
			if l.LotNumber == lotNumber {
				out = l
				return nil
			}
		}
		return nil
	})
	return out, err
}

// ListOpenForUpdate toma el bloqueo del producto: los lotes de un producto se serializan con él.
func (r *lotRepo) ListOpenForUpdate(ctx context.Context, productID string) ([]*entity.ReceiptLot, error) {
	var out []*entity.ReceiptLot
	err := r.with(ctx, func(t *tx) error {
		if err := t.lock(ctx, "product:"+productID); err != nil {
			return err
		}
		for _, l := range t.lotsOf(productID) {
			if l.Status == entity.LotStatusOpen {
				out = append(out, l)
			}
		}
		return nil
	})
	return out, err
}

func (r *lotRepo) ListByProduct(ctx context.Context, productID string) ([]*entity.ReceiptLot, error) {
	var out []*entity.ReceiptLot
	err := r.with(ctx, func(t *tx) error {
		out = t.lotsOf(productID)
		return nil
	})
	return out, err
}

func (r *lotRepo) Update(ctx context.Context, l *entity.ReceiptLot) error {
	return r.with(ctx, func(t *tx) error {
		cur := t.lot(l.ID)
		if cur == nil {
			return domain.ErrNotFound
		}
		if cur.Version != l.Version {
			return fmt.Errorf("%w: lote %s versión %d, esperada %d", domain.ErrConcurrencyConflict, l.LotNumber, cur.Version, l.Version)
		}
		if _, staged := t.lotBase[l.ID]; !staged && !t.newLots[l.ID] {
			t.lotBase[l.ID] = cur.Version
		}
		l.Version++
		l.UpdatedAt = time.Now()
		c := *l
		t.lots[l.ID] = &c
		return nil
	})
}

// --- movimientos ---

type movementRepo struct{ base }

func (r *movementRepo) Append(ctx context.Context, m *entity.StockMovement) error {
	return r.with(ctx, func(t *tx) error {
		m.ID = newID(m.ID)
		m.Seq = t.s.nextSeq()
		c := *m
		t.movements = append(t.movements, &c)
		return nil
	})
}

func (r *movementRepo) ListByProduct(ctx context.Context, productID string, from, to *time.Time) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	err := r.with(ctx, func(t *tx) error {
		for _, m := range t.allMovements() {
			if m.ProductID != productID {
				continue
			}
			if from != nil && m.OccurredAt.Before(*from) {
				continue
			}
			if to != nil && m.OccurredAt.After(*to) {
				continue
			}
			out = append(out, m)
		}
		sortMovements(out)
		return nil
	})
	return out, err
}

func (r *movementRepo) ListByReference(ctx context.Context, reference string) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	err := r.with(ctx, func(t *tx) error {
		for _, m := range t.allMovements() {
			if m.Reference == reference {
				out = append(out, m)
			}
		}
		sortMovements(out)
		return nil
	})
	return out, err
}

func sortMovements(ms []*entity.StockMovement) {
	sort.Slice(ms, func(i, j int) bool {
		if !ms[i].OccurredAt.Equal(ms[j].OccurredAt) {
			return ms[i].OccurredAt.Before(ms[j].OccurredAt)
		}
		return ms[i].Seq < ms[j].Seq
	})
}

// --- bons de sortie ---

type slipRepo struct{ base }

func (r *slipRepo) Create(ctx context.Context, sl *entity.IssuanceSlip) error {
	return r.with(ctx, func(t *tx) error {
		sl.ID = newID(sl.ID)
		for i := range sl.Lines {
			sl.Lines[i].ID = newID(sl.Lines[i].ID)
			sl.Lines[i].SlipID = sl.ID
		}
		t.slips[sl.ID] = cloneSlip(sl)
		t.newSlips[sl.ID] = true
		return nil
	})
}

func (r *slipRepo) GetByID(ctx context.Context, id string) (*entity.IssuanceSlip, error) {
	var out *entity.IssuanceSlip
	err := r.with(ctx, func(t *tx) error {
		out = t.slip(id)
		return nil
	})
	return out, err
}

func (r *slipRepo) GetByNumber(ctx context.Context, number string) (*entity.IssuanceSlip, error) {
	var out *entity.IssuanceSlip
	err := r.with(ctx, func(t *tx) error {
		out = t.slipByNumber(number)
		return nil
	})
	return out, err
}

func (r *slipRepo) GetForUpdate(ctx context.Context, id string) (*entity.IssuanceSlip, error) {
	var out *entity.IssuanceSlip
	err := r.with(ctx, func(t *tx) error {
		if err := t.lock(ctx, "slip:"+id); err != nil {
			return err
		}
		out = t.slip(id)
		return nil
	})
	return out, err
}

func (r *slipRepo) Update(ctx context.Context, sl *entity.IssuanceSlip) error {
	return r.with(ctx, func(t *tx) error {
		if t.slip(sl.ID) == nil {
			return domain.ErrNotFound
		}
		sl.UpdatedAt = time.Now()
		t.slips[sl.ID] = cloneSlip(sl)
		return nil
	})
}

// --- órdenes de compra ---

type orderRepo struct{ base }

func (r *orderRepo) Create(ctx context.Context, o *entity.PurchaseOrder) error {
	return r.with(ctx, func(t *tx) error {
		o.ID = newID(o.ID)
		t.orders[o.ID] = cloneOrder(o)
		t.newOrders[o.ID] = true
		return nil
	})
}

func (r *orderRepo) GetByID(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	var out *entity.PurchaseOrder
	err := r.with(ctx, func(t *tx) error {
		out = t.order(id)
		return nil
	})
	return out, err
}

func (r *orderRepo) GetForUpdate(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	var out *entity.PurchaseOrder
	err := r.with(ctx, func(t *tx) error {
		if err := t.lock(ctx, "order:"+id); err != nil {
			return err
		}
		out = t.order(id)
		return nil
	})
	return out, err
}

func (r *orderRepo) UpdateStatus(ctx context.Context, o *entity.PurchaseOrder) error {
	return r.with(ctx, func(t *tx) error {
		cur := t.order(o.ID)
		if cur == nil {
			return domain.ErrNotFound
		}
		cur.Status = o.Status
		cur.DeliveredAt = o.DeliveredAt
		cur.UpdatedAt = time.Now()
		t.orders[o.ID] = cur
		return nil
	})
}
