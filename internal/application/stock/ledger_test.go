package stock_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Bodega-api/internal/application/stock"
	"github.com/jhoicas/Bodega-api/internal/application/txn"
	"github.com/jhoicas/Bodega-api/internal/domain"
	"github.com/jhoicas/Bodega-api/internal/domain/entity"
	"github.com/jhoicas/Bodega-api/internal/domain/inventory"
	"github.com/jhoicas/Bodega-api/internal/domain/repository"
	"github.com/jhoicas/Bodega-api/internal/infrastructure/memory"
)

var (
	day1 = time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	day2 = time.Date(2025, 4, 8, 9, 0, 0, 0, time.UTC)
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// recordingPublisher guarda lo publicado para inspección.
type recordingPublisher struct {
	mu        sync.Mutex
	movements []*entity.StockMovement
	alerts    []stock.ReorderAlert
}

func (p *recordingPublisher) PublishMovements(_ context.Context, ms []*entity.StockMovement) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.movements = append(p.movements, ms...)
	return nil
}

func (p *recordingPublisher) PublishReorderAlert(_ context.Context, a stock.ReorderAlert) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, a)
	return nil
}

type fixture struct {
	store  *memory.Store
	ledger *stock.Ledger
	events *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := memory.NewStore()
	pub := &recordingPublisher{}
	runner := txn.NewRetryRunner(s, txn.Policy{MaxAttempts: 3, Timeout: 2 * time.Second}, zerolog.Nop(), nil)
	l := stock.NewLedger(runner, s.Repos(),
		stock.WithClock(fixedClock{t: day2.Add(time.Hour)}),
		stock.WithPublisher(pub),
		stock.WithLogger(zerolog.Nop()),
	)
	return &fixture{store: s, ledger: l, events: pub}
}

func q(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func (f *fixture) product(t *testing.T, ref string, threshold int64) *entity.Product {
	t.Helper()
	p := &entity.Product{Reference: ref, Name: "Produit " + ref, UnitMeasure: "UND", ReorderPoint: q(threshold), Active: true}
	require.NoError(t, f.store.Repos().Products.Create(context.Background(), p))
	return p
}

func (f *fixture) receive(t *testing.T, productID, lotNumber string, qty, price int64, at time.Time) *stock.ReceiveCommand {
	t.Helper()
	cmd := stock.ReceiveCommand{
		ProductID: productID, PurchaseOrderRef: "CMD-1", LotNumber: lotNumber,
		Quantity: q(qty), UnitPrice: q(price), ReceivedAt: at,
	}
	_, err := f.ledger.ReceiveStock(context.Background(), cmd)
	require.NoError(t, err)
	return &cmd
}

// assertConserved verifica CurrentStock == Σ remaining y que el ledger re-derive ambos cachés.
func (f *fixture) assertConserved(t *testing.T, productID string) {
	t.Helper()
	rep, err := f.ledger.Reconcile(context.Background(), productID)
	require.NoError(t, err)
	assert.True(t, rep.Consistent, "cachés desalineados: %+v", rep)
	for _, lot := range f.lots(t, productID) {
		assert.False(t, lot.RemainingQuantity.IsNegative())
		assert.True(t, lot.RemainingQuantity.LessThanOrEqual(lot.InitialQuantity))
	}
}

func (f *fixture) lots(t *testing.T, productID string) []*entity.ReceiptLot {
	t.Helper()
	lots, err := f.store.Repos().Lots.ListByProduct(context.Background(), productID)
	require.NoError(t, err)
	return lots
}

func (f *fixture) stockOf(t *testing.T, productID string) decimal.Decimal {
	t.Helper()
	qty, err := f.ledger.GetCurrentStock(context.Background(), productID)
	require.NoError(t, err)
	return qty
}

// ---------------------------------------------------------------------------
// Recepción
// ---------------------------------------------------------------------------

func TestReceiveStock_CreaLoteMovimientoYAgregado(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "VIS-M8", 0)

	sum, err := f.ledger.ReceiveStock(context.Background(), stock.ReceiveCommand{
		ProductID: p.ID, PurchaseOrderRef: "CMD-7", LotNumber: "L1", Quantity: q(12), UnitPrice: q(3), ReceivedAt: day1,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.LotStatusOpen, sum.Status)
	assert.True(t, sum.RemainingQuantity.Equal(q(12)))
	assert.True(t, sum.ProductStock.Equal(q(12)))
	assert.True(t, f.stockOf(t, p.ID).Equal(q(12)))

	hist, err := f.ledger.GetMovementHistory(context.Background(), p.ID, nil, nil)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, entity.MovementTypeIN, hist[0].Type)
	assert.Equal(t, sum.ID, hist[0].LotID)
	assert.Equal(t, "CMD-7", hist[0].Reference)
	assert.Len(t, f.events.movements, 1)
	f.assertConserved(t, p.ID)
}

func TestReceiveStock_Validaciones(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "VIS-M8", 0)
	f.receive(t, p.ID, "L1", 5, 1, day1)
	ctx := context.Background()

	cases := []struct {
		name string
		cmd  stock.ReceiveCommand
	}{
		{"cantidad cero", stock.ReceiveCommand{ProductID: p.ID, LotNumber: "L2", Quantity: q(0)}},
		{"cantidad negativa", stock.ReceiveCommand{ProductID: p.ID, LotNumber: "L2", Quantity: q(-3)}},
		{"precio negativo", stock.ReceiveCommand{ProductID: p.ID, LotNumber: "L2", Quantity: q(1), UnitPrice: q(-1)}},
		{"sin número de lote", stock.ReceiveCommand{ProductID: p.ID, Quantity: q(1)}},
		{"lote duplicado", stock.ReceiveCommand{ProductID: p.ID, LotNumber: "L1", Quantity: q(1)}},
		{"cantidad con cinco decimales", stock.ReceiveCommand{ProductID: p.ID, LotNumber: "L2", Quantity: decimal.RequireFromString("1.00001")}},
		{"precio con cinco decimales", stock.ReceiveCommand{ProductID: p.ID, LotNumber: "L2", Quantity: q(1), UnitPrice: decimal.RequireFromString("0.12345")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.ledger.ReceiveStock(ctx, tc.cmd)
			require.Error(t, err)
			assert.True(t, domain.IsValidation(err), "se esperaba error de validación, fue %v", err)
		})
	}
	// Nada cambió.
	assert.True(t, f.stockOf(t, p.ID).Equal(q(5)))
	assert.Len(t, f.lots(t, p.ID), 1)
}

func TestReceiveStock_ProductoInexistenteEInactivo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ledger.ReceiveStock(ctx, stock.ReceiveCommand{ProductID: "nope", LotNumber: "L1", Quantity: q(1)})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	p := f.product(t, "OLD", 0)
	require.NoError(t, f.store.Repos().Products.Deactivate(ctx, p.ID))
	_, err = f.ledger.ReceiveStock(ctx, stock.ReceiveCommand{ProductID: p.ID, LotNumber: "L1", Quantity: q(1)})
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

// ---------------------------------------------------------------------------
// Asignación FIFO
// ---------------------------------------------------------------------------

// L1(d1, 5) y L2(d2, 5): asignar 7 toma 5 de L1 y 2 de L2 con dos movimientos OUT.
func TestAllocate_FIFODeterminista(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "VIS-M8", 0)
	f.receive(t, p.ID, "L2", 5, 12, day2)
	f.receive(t, p.ID, "L1", 5, 10, day1)

	res, err := f.ledger.Allocate(context.Background(), stock.AllocationRequest{
		ProductID: p.ID, Quantity: q(7), Reference: "BS-001", Reason: "atelier",
	})
	require.NoError(t, err)
	require.Len(t, res.Draws, 2)
	assert.Equal(t, "L1", res.Draws[0].LotNumber)
	assert.True(t, res.Draws[0].Quantity.Equal(q(5)))
	assert.Equal(t, "L2", res.Draws[1].LotNumber)
	assert.True(t, res.Draws[1].Quantity.Equal(q(2)))
	assert.True(t, res.Amount.Equal(q(5*10+2*12)))
	assert.True(t, res.NewStock.Equal(q(3)))

	byNumber := map[string]*entity.ReceiptLot{}
	for _, l := range f.lots(t, p.ID) {
		byNumber[l.LotNumber] = l
	}
	assert.Equal(t, entity.LotStatusDepleted, byNumber["L1"].Status)
	assert.True(t, byNumber["L1"].RemainingQuantity.IsZero())
	assert.True(t, byNumber["L2"].RemainingQuantity.Equal(q(3)))

	hist, err := f.ledger.GetMovementHistory(context.Background(), p.ID, nil, nil)
	require.NoError(t, err)
	require.Len(t, hist, 4)
	outs := hist[2:]
	assert.Equal(t, entity.MovementTypeOUT, outs[0].Type)
	assert.Equal(t, byNumber["L1"].ID, outs[0].LotID)
	assert.Equal(t, byNumber["L2"].ID, outs[1].LotID)
	assert.Equal(t, "BS-001", outs[1].Reference)
	f.assertConserved(t, p.ID)
}

// 15 disponibles, pedir 20: error tipado y ningún lote ni agregado cambia.
func TestAllocate_TodoONada(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "VIS-M8", 0)
	f.receive(t, p.ID, "L1", 5, 1, day1)
	f.receive(t, p.ID, "L2", 5, 1, day1.Add(time.Hour))
	f.receive(t, p.ID, "L3", 5, 1, day2)
	before := f.lots(t, p.ID)

	_, err := f.ledger.Allocate(context.Background(), stock.AllocationRequest{ProductID: p.ID, Quantity: q(20), Reference: "BS-9"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))
	var short *domain.InsufficientStockError
	require.True(t, errors.As(err, &short))
	assert.True(t, short.Available.Equal(q(15)))

	after := f.lots(t, p.ID)
	require.Len(t, after, len(before))
	for i := range before {
		assert.True(t, before[i].RemainingQuantity.Equal(after[i].RemainingQuantity))
		assert.Equal(t, before[i].Version, after[i].Version)
	}
	assert.True(t, f.stockOf(t, p.ID).Equal(q(15)))
	hist, _ := f.ledger.GetMovementHistory(context.Background(), p.ID, nil, nil)
	assert.Len(t, hist, 3, "no se registran movimientos de una asignación fallida")
}

// failingMovements deja pasar after movimientos del tipo failOn y falla en el siguiente.
type failingMovements struct {
	repository.StockMovementRepository
	failOn string
	after  int
	seen   int
}

func (m *failingMovements) Append(ctx context.Context, mov *entity.StockMovement) error {
	if mov.Type == m.failOn {
		if m.seen == m.after {
			return domain.ErrStorage
		}
		m.seen++
	}
	return m.StockMovementRepository.Append(ctx, mov)
}

// faultyRunner ejecuta sobre el runner real con los repositorios de la tx decorados.
type faultyRunner struct {
	inner txn.Runner
	wrap  func(repository.TxRepos) repository.TxRepos
}

func (r faultyRunner) Run(ctx context.Context, fn txn.Func) error {
	return r.inner.Run(ctx, func(ctx context.Context, tx repository.TxRepos) error {
		return fn(ctx, r.wrap(tx))
	})
}

// Una falla de almacenamiento a mitad de la asignación (tras actualizar lotes) no deja rastro.
func TestAllocate_FallaDeAlmacenamientoRevierteTodo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "VIS-8", 0)
	f.receive(t, p.ID, "L1", 5, 10, day1)
	f.receive(t, p.ID, "L2", 5, 20, day2)

	pub := &recordingPublisher{}
	runner := faultyRunner{inner: f.store, wrap: func(tx repository.TxRepos) repository.TxRepos {
		tx.Movements = &failingMovements{StockMovementRepository: tx.Movements, failOn: entity.MovementTypeOUT, after: 1}
		return tx
	}}
	faulty := stock.NewLedger(runner, f.store.Repos(), stock.WithPublisher(pub), stock.WithClock(fixedClock{t: day2.Add(time.Hour)}))

	_, err := faulty.Allocate(ctx, stock.AllocationRequest{ProductID: p.ID, Quantity: q(7), Reference: "BS-40"})
	require.ErrorIs(t, err, domain.ErrStorage)

	lots := f.lots(t, p.ID)
	require.Len(t, lots, 2)
	for _, lot := range lots {
		assert.True(t, lot.RemainingQuantity.Equal(q(5)), "lote %s: %s", lot.LotNumber, lot.RemainingQuantity)
		assert.Equal(t, entity.LotStatusOpen, lot.Status)
	}
	assert.True(t, f.stockOf(t, p.ID).Equal(q(10)))
	hist, err := f.ledger.GetMovementHistory(ctx, p.ID, nil, nil)
	require.NoError(t, err)
	assert.Len(t, hist, 2, "solo las dos entradas")
	assert.Empty(t, pub.movements, "nada se publica si la tx no confirma")
	f.assertConserved(t, p.ID)
}

func TestAllocate_CantidadInvalida(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "VIS-M8", 0)
	_, err := f.ledger.Allocate(context.Background(), stock.AllocationRequest{ProductID: p.ID, Quantity: q(0)})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	f.receive(t, p.ID, "L1", 5, 1, day1)
	_, err = f.ledger.Allocate(context.Background(), stock.AllocationRequest{ProductID: p.ID, Quantity: decimal.RequireFromString("0.00005")})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput), "más de 4 decimales: %v", err)
	assert.True(t, f.stockOf(t, p.ID).Equal(q(5)))
}

// Umbral 10, stock 12; salir 5 deja 7 → BELOW_THRESHOLD y alerta publicada.
func TestAllocate_SenalDeReposicion(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "GANTS", 10)
	f.receive(t, p.ID, "L1", 12, 2, day1)

	st, err := f.ledger.GetReorderStatus(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, inventory.ReorderOK, st)

	res, err := f.ledger.Allocate(context.Background(), stock.AllocationRequest{ProductID: p.ID, Quantity: q(5), Reference: "BS-2"})
	require.NoError(t, err)
	assert.Equal(t, string(inventory.ReorderBelowThreshold), res.ReorderStatus)

	st, err = f.ledger.GetReorderStatus(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, inventory.ReorderBelowThreshold, st)
	below, err := f.ledger.IsBelowReorderThreshold(context.Background(), p.ID)
	require.NoError(t, err)
	assert.True(t, below)

	require.Len(t, f.events.alerts, 1)
	assert.True(t, f.events.alerts[0].CurrentStock.Equal(q(7)))
}

// Dos asignaciones simultáneas que juntas exceden lo disponible: nunca ambas tienen éxito.
func TestAllocate_ConcurrenciaNuncaSobregira(t *testing.T) {
	for round := 0; round < 20; round++ {
		f := newFixture(t)
		p := f.product(t, "VIS-M8", 0)
		f.receive(t, p.ID, "L1", 6, 1, day1)
		f.receive(t, p.ID, "L2", 4, 1, day2)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		start := make(chan struct{})
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				_, errs[i] = f.ledger.Allocate(context.Background(), stock.AllocationRequest{ProductID: p.ID, Quantity: q(7), Reference: "BS"})
			}(i)
		}
		close(start)
		wg.Wait()

		ok := 0
		for _, err := range errs {
			if err == nil {
				ok++
				continue
			}
			assert.True(t, errors.Is(err, domain.ErrInsufficientStock) || errors.Is(err, domain.ErrConcurrencyConflict), "error inesperado: %v", err)
		}
		assert.Equal(t, 1, ok)
		assert.True(t, f.stockOf(t, p.ID).Equal(q(3)))
		f.assertConserved(t, p.ID)
	}
}

// Productos distintos no se bloquean entre sí.
func TestAllocate_ProductosDistintosNoSeBloquean(t *testing.T) {
	f := newFixture(t)
	a := f.product(t, "A", 0)
	b := f.product(t, "B", 0)
	f.receive(t, a.ID, "L1", 5, 1, day1)
	f.receive(t, b.ID, "L1", 5, 1, day1)

	locked := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- f.store.Run(context.Background(), func(ctx context.Context, tx repository.TxRepos) error {
			if _, err := tx.Products.GetForUpdate(ctx, a.ID); err != nil {
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := f.ledger.Allocate(ctx, stock.AllocationRequest{ProductID: b.ID, Quantity: q(2), Reference: "BS"})
	assert.NoError(t, err)

	close(release)
	require.NoError(t, <-done)
}

// ---------------------------------------------------------------------------
// Historial
// ---------------------------------------------------------------------------

func TestGetMovementHistory_InmutableYCronologico(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "VIS-M8", 0)
	f.receive(t, p.ID, "L1", 10, 1, day1)
	ctx := context.Background()

	first, err := f.ledger.GetMovementHistory(ctx, p.ID, nil, nil)
	require.NoError(t, err)
	require.Len(t, first, 1)
	snapshot := *first[0]

	for i := 0; i < 3; i++ {
		_, err := f.ledger.Allocate(ctx, stock.AllocationRequest{ProductID: p.ID, Quantity: q(2), Reference: "BS"})
		require.NoError(t, err)
	}
	all, err := f.ledger.GetMovementHistory(ctx, p.ID, nil, nil)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, snapshot, *all[0], "un movimiento previo no cambia")
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].OccurredAt.Before(all[i-1].OccurredAt))
		assert.Greater(t, all[i].Seq, all[i-1].Seq)
	}

	from, to := day2, day1
	_, err = f.ledger.GetMovementHistory(ctx, p.ID, &from, &to)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

// ---------------------------------------------------------------------------
// Ajustes y cierre de lotes
// ---------------------------------------------------------------------------

func TestAdjust_AlzaYBajaMantienenConservacion(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "VIS-M8", 0)
	f.receive(t, p.ID, "L1", 5, 10, day1)
	f.receive(t, p.ID, "L2", 5, 20, day2)
	ctx := context.Background()
	lots := f.lots(t, p.ID)
	l1 := lots[0]

	// Baja sin lote: FIFO, movimientos ADJUSTMENT.
	res, err := f.ledger.Adjust(ctx, stock.AdjustCommand{ProductID: p.ID, Direction: entity.DirectionDecrease, Quantity: q(6), Reason: "casse"})
	require.NoError(t, err)
	require.Len(t, res.Draws, 2)
	assert.True(t, f.stockOf(t, p.ID).Equal(q(4)))

	// Alza sobre lote agotado: vuelve a OPEN.
	_, err = f.ledger.Adjust(ctx, stock.AdjustCommand{ProductID: p.ID, LotID: l1.ID, Direction: entity.DirectionIncrease, Quantity: q(2), Reason: "inventaire"})
	require.NoError(t, err)
	got, _ := f.store.Repos().Lots.GetByID(ctx, l1.ID)
	assert.Equal(t, entity.LotStatusOpen, got.Status)
	assert.True(t, f.stockOf(t, p.ID).Equal(q(6)))

	// Alza que supera la cantidad inicial: rechazada.
	_, err = f.ledger.Adjust(ctx, stock.AdjustCommand{ProductID: p.ID, LotID: l1.ID, Direction: entity.DirectionIncrease, Quantity: q(9), Reason: "x"})
	assert.True(t, domain.IsValidation(err))

	// Baja sobre lote con más de lo que queda.
	_, err = f.ledger.Adjust(ctx, stock.AdjustCommand{ProductID: p.ID, LotID: l1.ID, Direction: entity.DirectionDecrease, Quantity: q(3), Reason: "x"})
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))

	// Alza sin lote: inválido.
	_, err = f.ledger.Adjust(ctx, stock.AdjustCommand{ProductID: p.ID, Direction: entity.DirectionIncrease, Quantity: q(1), Reason: "x"})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	hist, _ := f.ledger.GetMovementHistory(ctx, p.ID, nil, nil)
	adjustments := 0
	for _, m := range hist {
		if m.Type == entity.MovementTypeADJUSTMENT {
			adjustments++
		}
	}
	assert.Equal(t, 3, adjustments)
	f.assertConserved(t, p.ID)
}

func TestCloseLot(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "VIS-M8", 0)
	f.receive(t, p.ID, "L1", 3, 1, day1)
	ctx := context.Background()
	l1 := f.lots(t, p.ID)[0]

	_, err := f.ledger.CloseLot(ctx, l1.ID)
	assert.True(t, errors.Is(err, domain.ErrConflict), "un lote con remanente no se cierra")

	_, err = f.ledger.Allocate(ctx, stock.AllocationRequest{ProductID: p.ID, Quantity: q(3), Reference: "BS"})
	require.NoError(t, err)
	sum, err := f.ledger.CloseLot(ctx, l1.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.LotStatusClosed, sum.Status)

	_, err = f.ledger.Adjust(ctx, stock.AdjustCommand{ProductID: p.ID, LotID: l1.ID, Direction: entity.DirectionIncrease, Quantity: q(1), Reason: "x"})
	assert.True(t, errors.Is(err, domain.ErrConflict))
	f.assertConserved(t, p.ID)
}

// ---------------------------------------------------------------------------
// Conciliación, lotes y órdenes de compra
// ---------------------------------------------------------------------------

func TestReconcile_DetectaDesalineacion(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "VIS-M8", 0)
	f.receive(t, p.ID, "L1", 5, 1, day1)
	ctx := context.Background()

	// Corrupción directa del caché, fuera del ledger.
	require.NoError(t, f.store.Repos().Products.UpdateStock(ctx, p.ID, q(9)))

	rep, err := f.ledger.Reconcile(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, rep.Consistent)
	assert.True(t, rep.CachedStock.Equal(q(9)))
	assert.True(t, rep.LotsTotal.Equal(q(5)))
	assert.True(t, rep.LedgerTotal.Equal(q(5)))

	all, err := f.ledger.ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestListLots_OrdenFIFOYValorizacion(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "VIS-M8", 0)
	f.receive(t, p.ID, "L2", 30, 20, day2)
	f.receive(t, p.ID, "L1", 10, 10, day1)

	out, err := f.ledger.ListLots(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, out.Lots, 2)
	assert.Equal(t, "L1", out.Lots[0].LotNumber)
	assert.True(t, out.Valuation.TotalValue.Equal(q(700)))
	assert.True(t, out.Valuation.Quantity.Equal(q(40)))
}

func TestReceivePurchaseOrder(t *testing.T) {
	f := newFixture(t)
	a := f.product(t, "A", 0)
	b := f.product(t, "B", 0)
	ctx := context.Background()

	order := &entity.PurchaseOrder{
		Number: "CF-2025-001", SupplierID: "F1", Status: entity.OrderStatusPending,
		Lines: []entity.PurchaseOrderLine{
			{LineNo: 2, ProductID: b.ID, Quantity: q(4), UnitPrice: q(7)},
			{LineNo: 1, ProductID: a.ID, Quantity: q(10), UnitPrice: q(3)},
		},
	}
	require.NoError(t, f.store.Repos().Orders.Create(ctx, order))

	_, err := f.ledger.ReceivePurchaseOrder(ctx, order.ID, day1, "u1")
	assert.True(t, errors.Is(err, domain.ErrConflict), "una orden no validada no se recibe")

	order.Status = entity.OrderStatusValidated
	require.NoError(t, f.store.Repos().Orders.UpdateStatus(ctx, order))

	lots, err := f.ledger.ReceivePurchaseOrder(ctx, order.ID, day1, "u1")
	require.NoError(t, err)
	require.Len(t, lots, 2)
	assert.Equal(t, "LOT-CF-2025-001-01", lots[0].LotNumber)
	assert.Equal(t, "LOT-CF-2025-001-02", lots[1].LotNumber)
	assert.True(t, f.stockOf(t, a.ID).Equal(q(10)))
	assert.True(t, f.stockOf(t, b.ID).Equal(q(4)))

	got, _ := f.store.Repos().Orders.GetByID(ctx, order.ID)
	assert.Equal(t, entity.OrderStatusDelivered, got.Status)
	assert.NotNil(t, got.DeliveredAt)

	_, err = f.ledger.ReceivePurchaseOrder(ctx, order.ID, day1, "u1")
	assert.True(t, errors.Is(err, domain.ErrConflict), "una orden entregada no se recibe dos veces")
	f.assertConserved(t, a.ID)
	f.assertConserved(t, b.ID)
}

// Una línea inválida revierte las anteriores de la misma orden.
func TestReceivePurchaseOrder_Atomica(t *testing.T) {
	f := newFixture(t)
	a := f.product(t, "A", 0)
	ctx := context.Background()
	order := &entity.PurchaseOrder{
		Number: "CF-2", Status: entity.OrderStatusValidated,
		Lines: []entity.PurchaseOrderLine{
			{LineNo: 1, ProductID: a.ID, Quantity: q(10), UnitPrice: q(3)},
			{LineNo: 2, ProductID: "inexistente", Quantity: q(1), UnitPrice: q(1)},
		},
	}
	require.NoError(t, f.store.Repos().Orders.Create(ctx, order))

	_, err := f.ledger.ReceivePurchaseOrder(ctx, order.ID, day1, "u1")
	require.Error(t, err)
	assert.True(t, f.stockOf(t, a.ID).IsZero())
	assert.Empty(t, f.lots(t, a.ID))
}
