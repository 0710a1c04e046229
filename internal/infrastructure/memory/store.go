package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/jhoicas/Bodega-api/internal/application/txn"
	"github.com/jhoicas/Bodega-api/internal/domain"
	"github.com/jhoicas/Bodega-api/internal/domain/entity"
	"github.com/jhoicas/Bodega-api/internal/domain/repository"
)

var _ txn.Runner = (*Store)(nil)

// Store almacén transaccional en memoria. Cada transacción escribe sobre un área propia
// que se aplica al confirmar; los bloqueos de fila se modelan con un semáforo por clave
// que se libera al terminar la transacción.
type Store struct {
	mu        sync.Mutex
	products  map[string]*entity.Product
	lots      map[string]*entity.ReceiptLot
	movements []*entity.StockMovement
	slips     map[string]*entity.IssuanceSlip
	orders    map[string]*entity.PurchaseOrder
	seq       int64

	locksMu sync.Mutex
	locks   map[string]chan struct{}
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{
		products: make(map[string]*entity.Product),
		lots:     make(map[string]*entity.ReceiptLot),
		slips:    make(map[string]*entity.IssuanceSlip),
		orders:   make(map[string]*entity.PurchaseOrder),
		locks:    make(map[string]chan struct{}),
	}
}

// Repos devuelve repositorios en modo autocommit: cada llamada es su propia transacción.
func (s *Store) Repos() repository.TxRepos {
	return reposFor(s, nil)
}

// Run ejecuta fn en una transacción. Si fn falla no se aplica nada.
func (s *Store) Run(ctx context.Context, fn txn.Func) error {
	if err := ctx.Err(); err != nil {
		return mapCtxErr(err)
	}
	t := newTx(s)
	defer t.release()

	if err := fn(ctx, reposFor(s, t)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return mapCtxErr(err)
	}
	return t.commit()
}

func mapCtxErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrStorage, err)
}

// lockChan devuelve el semáforo de la clave (capacidad 1).
func (s *Store) lockChan(key string) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	ch, ok := s.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[key] = ch
	}
	return ch
}

func (s *Store) nextSeq() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// tx escrituras pendientes de una transacción.
type tx struct {
	s         *Store
	held      map[string]chan struct{}
	products  map[string]*entity.Product
	lots      map[string]*entity.ReceiptLot
	lotBase   map[string]int64 // versión vista en el almacén antes de escribir
	newLots   map[string]bool
	movements []*entity.StockMovement
	slips     map[string]*entity.IssuanceSlip
	newSlips  map[string]bool
	orders    map[string]*entity.PurchaseOrder
	newOrders map[string]bool
	newProds  map[string]bool
}

func newTx(s *Store) *tx {
	return &tx{
		s:         s,
		held:      make(map[string]chan struct{}),
		products:  make(map[string]*entity.Product),
		lots:      make(map[string]*entity.ReceiptLot),
		lotBase:   make(map[string]int64),
		newLots:   make(map[string]bool),
		slips:     make(map[string]*entity.IssuanceSlip),
		newSlips:  make(map[string]bool),
		orders:    make(map[string]*entity.PurchaseOrder),
		newOrders: make(map[string]bool),
		newProds:  make(map[string]bool),
	}
}

// lock toma el bloqueo de la clave hasta el fin de la transacción. Reentrante dentro de la misma tx.
func (t *tx) lock(ctx context.Context, key string) error {
	if _, ok := t.held[key]; ok {
		return nil
	}
	ch := t.s.lockChan(key)
	select {
	case ch <- struct{}{}:
		t.held[key] = ch
		return nil
	case <-ctx.Done():
		return mapCtxErr(ctx.Err())
	}
}

func (t *tx) release() {
	for k, ch := range t.held {
		<-ch
		delete(t.held, k)
	}
}

// commit valida versiones y unicidad contra el estado confirmado y aplica todo bajo un único mutex.
func (t *tx) commit() error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, base := range t.lotBase {
		if cur, ok := s.lots[id]; ok && cur.Version != base {
			return fmt.Errorf("%w: lote %s modificado por otra transacción", domain.ErrConcurrencyConflict, id)
		}
	}
	for id := range t.newProds {
		p := t.products[id]
		for _, other := range s.products {
			if other.Reference == p.Reference {
				return fmt.Errorf("%w: referencia %s", domain.ErrDuplicate, p.Reference)
			}
		}
	}
	for id := range t.newLots {
		l := t.lots[id]
		for _, other := range s.lots {
			if other.ProductID == l.ProductID && other.LotNumber == l.LotNumber {
				return fmt.Errorf("%w: lote %s", domain.ErrDuplicate, l.LotNumber)
			}
		}
	}
	for id := range t.newSlips {
		sl := t.slips[id]
		for _, other := range s.slips {
			if other.Number == sl.Number {
				return fmt.Errorf("%w: bon %s", domain.ErrDuplicate, sl.Number)
			}
		}
	}
	for id := range t.newOrders {
		o := t.orders[id]
		for _, other := range s.orders {
			if other.Number == o.Number {
				return fmt.Errorf("%w: orden %s", domain.ErrDuplicate, o.Number)
			}
		}
	}

	for id, p := range t.products {
		s.products[id] = p
	}
	for id, l := range t.lots {
		s.lots[id] = l
	}
	s.movements = append(s.movements, t.movements...)
	for id, sl := range t.slips {
		s.slips[id] = sl
	}
	for id, o := range t.orders {
		s.orders[id] = o
	}
	return nil
}

// --- lecturas combinadas (pendiente de la tx primero, luego confirmado) ---

func (t *tx) product(id string) *entity.Product {
	if p, ok := t.products[id]; ok {
		return cloneProduct(p)
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if p, ok := t.s.products[id]; ok {
		return cloneProduct(p)
	}
	return nil
}

func (t *tx) allProducts() []*entity.Product {
	t.s.mu.Lock()
	merged := make(map[string]*entity.Product, len(t.s.products))
	for id, p := range t.s.products {
		merged[id] = p
	}
	t.s.mu.Unlock()
	for id, p := range t.products {
		merged[id] = p
	}
	out := make([]*entity.Product, 0, len(merged))
	for _, p := range merged {
		out = append(out, cloneProduct(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Reference != out[j].Reference {
			return out[i].Reference < out[j].Reference
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (t *tx) lot(id string) *entity.ReceiptLot {
	if l, ok := t.lots[id]; ok {
		c := *l
		return &c
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if l, ok := t.s.lots[id]; ok {
		c := *l
		return &c
	}
	return nil
}

func (t *tx) lotsOf(productID string) []*entity.ReceiptLot {
	merged := make(map[string]*entity.ReceiptLot)
	t.s.mu.Lock()
	for id, l := range t.s.lots {
		if l.ProductID == productID {
			merged[id] = l
		}
	}
	t.s.mu.Unlock()
	for id, l := range t.lots {
		if l.ProductID == productID {
			merged[id] = l
		}
	}
	out := make([]*entity.ReceiptLot, 0, len(merged))
	for _, l := range merged {
		c := *l
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ReceivedAt.Equal(out[j].ReceivedAt) {
			return out[i].ReceivedAt.Before(out[j].ReceivedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (t *tx) allMovements() []*entity.StockMovement {
	t.s.mu.Lock()
	out := make([]*entity.StockMovement, 0, len(t.s.movements)+len(t.movements))
	for _, m := range t.s.movements {
		c := *m
		out = append(out, &c)
	}
	t.s.mu.Unlock()
	for _, m := range t.movements {
		c := *m
		out = append(out, &c)
	}
	return out
}

func (t *tx) slip(id string) *entity.IssuanceSlip {
	if sl, ok := t.slips[id]; ok {
		return cloneSlip(sl)
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if sl, ok := t.s.slips[id]; ok {
		return cloneSlip(sl)
	}
	return nil
}

func (t *tx) slipByNumber(number string) *entity.IssuanceSlip {
	for _, sl := range t.slips {
		if sl.Number == number {
			return cloneSlip(sl)
		}
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, sl := range t.s.slips {
		if sl.Number == number {
			return cloneSlip(sl)
		}
	}
	return nil
}

func (t *tx) order(id string) *entity.PurchaseOrder {
	if o, ok := t.orders[id]; ok {
		return cloneOrder(o)
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if o, ok := t.s.orders[id]; ok {
		return cloneOrder(o)
	}
	return nil
}

func newID(id string) string {
	if id == "" {
		return uuid.New().String()
	}
	return id
}

func cloneProduct(p *entity.Product) *entity.Product {
	c := *p
	return &c
}

func cloneSlip(sl *entity.IssuanceSlip) *entity.IssuanceSlip {
	c := *sl
	c.Lines = append([]entity.IssuanceLine(nil), sl.Lines...)
	if sl.ConfirmedAt != nil {
		at := *sl.ConfirmedAt
		c.ConfirmedAt = &at
	}
	return &c
}

func cloneOrder(o *entity.PurchaseOrder) *entity.PurchaseOrder {
	c := *o
	c.Lines = append([]entity.PurchaseOrderLine(nil), o.Lines...)
	if o.DeliveredAt != nil {
		at := *o.DeliveredAt
		c.DeliveredAt = &at
	}
	return &c
}
