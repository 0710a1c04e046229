package stock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/Bodega-api/internal/application/dto"
	"github.com/jhoicas/Bodega-api/internal/application/txn"
	"github.com/jhoicas/Bodega-api/internal/domain"
	"github.com/jhoicas/Bodega-api/internal/domain/entity"
	"github.com/jhoicas/Bodega-api/internal/domain/inventory"
	"github.com/jhoicas/Bodega-api/internal/domain/repository"
	"github.com/jhoicas/Bodega-api/pkg/logger"
)

var tracer = otel.Tracer("bodega/stock")

// Ledger motor de stock: lotes de recepción, asignación FIFO, movimientos append-only
// y el agregado CurrentStock de cada producto. Toda operación que escribe corre en una
// única transacción: lote, movimiento y agregado se confirman juntos o no se confirman.
type Ledger struct {
	tx      txn.Runner
	repos   repository.TxRepos // lecturas fuera de transacción
	clock   Clock
	events  EventPublisher
	cache   StockCache
	metrics Metrics
	log     zerolog.Logger
}

// Option configura dependencias opcionales del Ledger.
type Option func(*Ledger)

func WithClock(c Clock) Option { return func(l *Ledger) { l.clock = c } }
func WithPublisher(p EventPublisher) Option { return func(l *Ledger) { l.events = p } }
func WithCache(c StockCache) Option { return func(l *Ledger) { l.cache = c } }
func WithMetrics(m Metrics) Option { return func(l *Ledger) { l.metrics = m } }
func WithLogger(log zerolog.Logger) Option { return func(l *Ledger) { l.log = log } }

// NewLedger construye el ledger. Sin opciones: reloj del sistema, sin eventos, sin caché, sin métricas.
func NewLedger(runner txn.Runner, repos repository.TxRepos, opts ...Option) *Ledger {
	l := &Ledger{
		tx:      runner,
		repos:   repos,
		clock:   SystemClock{},
		events:  NoopPublisher{},
		cache:   NoopCache{},
		metrics: NoopMetrics{},
		log:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Clock reloj usado para sellar movimientos.
func (l *Ledger) Clock() Clock { return l.clock }

// ReceiveStock crea un lote OPEN, agrega el movimiento IN e incrementa el stock del producto.
func (l *Ledger) ReceiveStock(ctx context.Context, cmd ReceiveCommand) (out *dto.LotSummary, err error) {
	ctx, done := l.observe(ctx, "receive_stock", attribute.String("product.id", cmd.ProductID))
	defer func() { done(err) }()

	if err := cmd.validate(); err != nil {
		return nil, err
	}
	if cmd.ReceivedAt.IsZero() {
		cmd.ReceivedAt = l.clock.Now()
	}

	var eff *Effects
	err = l.tx.Run(ctx, func(ctx context.Context, tx repository.TxRepos) error {
		eff = NewEffects()
		lot, p, err := l.receiveInTx(ctx, tx, cmd, eff)
		if err != nil {
			return err
		}
		s := lotSummary(lot, p.CurrentStock)
		out = &s
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.Propagate(ctx, eff)
	return out, nil
}

func (l *Ledger) receiveInTx(ctx context.Context, tx repository.TxRepos, cmd ReceiveCommand, eff *Effects) (*entity.ReceiptLot, *entity.Product, error) {
	if err := cmd.validate(); err != nil {
		return nil, nil, err
	}
	p, err := l.lockProduct(ctx, tx, cmd.ProductID)
	if err != nil {
		return nil, nil, err
	}
	if !p.Active {
		return nil, nil, fmt.Errorf("%w: producto %s inactivo", domain.ErrConflict, p.Reference)
	}
	existing, err := tx.Lots.GetByLotNumber(ctx, p.ID, cmd.LotNumber)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		return nil, nil, fmt.Errorf("%w: el lote %s ya existe para %s", domain.ErrDuplicate, cmd.LotNumber, p.Reference)
	}

	now := l.clock.Now()
	lot := &entity.ReceiptLot{
		ProductID:         p.ID,
		PurchaseOrderRef:  cmd.PurchaseOrderRef,
		LotNumber:         cmd.LotNumber,
		UnitPrice:         cmd.UnitPrice,
		InitialQuantity:   cmd.Quantity,
		RemainingQuantity: cmd.Quantity,
		ReceivedAt:        cmd.ReceivedAt,
		Status:            entity.LotStatusOpen,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := tx.Lots.Create(ctx, lot); err != nil {
		return nil, nil, err
	}
	mov := &entity.StockMovement{
		ProductID:  p.ID,
		LotID:      lot.ID,
		Type:       entity.MovementTypeIN,
		Direction:  entity.DirectionIncrease,
		Quantity:   cmd.Quantity,
		UnitPrice:  cmd.UnitPrice,
		Reference:  cmd.PurchaseOrderRef,
		Reason:     "Réception lot " + cmd.LotNumber,
		OccurredAt: now,
		CreatedBy:  cmd.UserID,
	}
	if err := tx.Movements.Append(ctx, mov); err != nil {
		return nil, nil, err
	}
	if _, err := l.applyDelta(ctx, tx, p, cmd.Quantity); err != nil {
		return nil, nil, err
	}
	eff.add(p, false, mov)
	return lot, p, nil
}

// Allocation resultado de una asignación dentro de una transacción.
type Allocation struct {
	Product   *entity.Product // estado tras descontar
	Draws     []inventory.Draw
	Movements []*entity.StockMovement
}

// Quantity total asignado.
func (a *Allocation) Quantity() decimal.Decimal { return inventory.TotalQuantity(a.Draws) }

// Amount valor de lo asignado a precio de cada lote.
func (a *Allocation) Amount() decimal.Decimal { return inventory.TotalAmount(a.Draws) }

// Allocate ejecuta una salida FIFO en su propia transacción.
func (l *Ledger) Allocate(ctx context.Context, req AllocationRequest) (out *dto.AllocationResult, err error) {
	ctx, done := l.observe(ctx, "allocate", attribute.String("product.id", req.ProductID))
	defer func() { done(err) }()

	if err := req.normalize(); err != nil {
		return nil, err
	}
	var (
		eff   *Effects
		alloc *Allocation
	)
	err = l.tx.Run(ctx, func(ctx context.Context, tx repository.TxRepos) error {
		eff = NewEffects()
		if err := rejectSlipReference(ctx, tx, req.Reference); err != nil {
			return err
		}
		a, err := l.AllocateInTx(ctx, tx, req)
		if err != nil {
			return err
		}
		alloc = a
		eff.AddAllocation(a)
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.Propagate(ctx, eff)
	return allocationResult(alloc), nil
}

// rejectSlipReference reserva el número de cada bon de sortie para los movimientos de su confirmación.
func rejectSlipReference(ctx context.Context, tx repository.TxRepos, reference string) error {
	if strings.TrimSpace(reference) == "" {
		return nil
	}
	sl, err := tx.Slips.GetByNumber(ctx, reference)
	if err != nil {
		return err
	}
	if sl != nil {
		return fmt.Errorf("%w: la referencia %s corresponde a un bon de sortie", domain.ErrConflict, reference)
	}
	return nil
}

// AllocateInTx asigna req.Quantity recorriendo los lotes OPEN en orden FIFO (fecha de recepción, ID).
// Usa la transacción del caller: si la cantidad disponible no alcanza devuelve
// *domain.InsufficientStockError sin haber escrito nada.
func (l *Ledger) AllocateInTx(ctx context.Context, tx repository.TxRepos, req AllocationRequest) (*Allocation, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}
	p, err := l.lockProduct(ctx, tx, req.ProductID)
	if err != nil {
		return nil, err
	}
	lots, err := tx.Lots.ListOpenForUpdate(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	draws, err := inventory.PlanFIFO(p.ID, lots, req.Quantity)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*entity.ReceiptLot, len(lots))
	for _, lot := range lots {
		byID[lot.ID] = lot
	}
	now := l.clock.Now()
	movs := make([]*entity.StockMovement, 0, len(draws))
	for _, d := range draws {
		lot := byID[d.LotID]
		if err := lot.Draw(d.Quantity); err != nil {
			return nil, err
		}
		if err := tx.Lots.Update(ctx, lot); err != nil {
			return nil, err
		}
		mov := &entity.StockMovement{
			ProductID:  p.ID,
			LotID:      lot.ID,
			Type:       req.Type,
			Direction:  entity.DirectionDecrease,
			Quantity:   d.Quantity,
			UnitPrice:  lot.UnitPrice,
			Reference:  req.Reference,
			Reason:     req.Reason,
			OccurredAt: now,
			CreatedBy:  req.UserID,
		}
		if err := tx.Movements.Append(ctx, mov); err != nil {
			return nil, err
		}
		movs = append(movs, mov)
	}
	if _, err := l.applyDelta(ctx, tx, p, inventory.TotalQuantity(draws).Neg()); err != nil {
		return nil, err
	}
	return &Allocation{Product: p, Draws: draws, Movements: movs}, nil
}

// LockProducts bloquea los productos en orden ascendente de ID (evita deadlocks entre
// operaciones multi-producto). Falla con ErrNotFound si alguno no existe.
func (l *Ledger) LockProducts(ctx context.Context, tx repository.TxRepos, ids []string) error {
	uniq := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		uniq[id] = struct{}{}
	}
	sorted := make([]string, 0, len(uniq))
	for id := range uniq {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)
	for _, id := range sorted {
		if _, err := l.lockProduct(ctx, tx, id); err != nil {
			return err
		}
	}
	return nil
}

func (l *Ledger) lockProduct(ctx context.Context, tx repository.TxRepos, id string) (*entity.Product, error) {
	p, err := tx.Products.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: producto %s", domain.ErrNotFound, id)
	}
	return p, nil
}

// applyDelta recalcula el agregado del producto dentro de la transacción del caller.
// Un resultado negativo indica que el caché ya no coincide con los lotes y aborta la transacción.
func (l *Ledger) applyDelta(ctx context.Context, tx repository.TxRepos, p *entity.Product, delta decimal.Decimal) (decimal.Decimal, error) {
	newQty := p.CurrentStock.Add(delta)
	if newQty.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: el stock de %s quedaría en %s", domain.ErrStorage, p.Reference, newQty)
	}
	if err := tx.Products.UpdateStock(ctx, p.ID, newQty); err != nil {
		return decimal.Zero, err
	}
	p.CurrentStock = newQty
	return newQty, nil
}

// GetMovementHistory historial cronológico del producto; from/to opcionales e inclusivos.
func (l *Ledger) GetMovementHistory(ctx context.Context, productID string, from, to *time.Time) (out []*entity.StockMovement, err error) {
	ctx, done := l.observe(ctx, "movement_history", attribute.String("product.id", productID))
	defer func() { done(err) }()

	if from != nil && to != nil && from.After(*to) {
		return nil, fmt.Errorf("%w: rango de fechas invertido", domain.ErrInvalidInput)
	}
	if _, err := l.product(ctx, productID); err != nil {
		return nil, err
	}
	return l.repos.Movements.ListByProduct(ctx, productID, from, to)
}

// GetCurrentStock stock actual del producto (pasa por el caché de lectura).
func (l *Ledger) GetCurrentStock(ctx context.Context, productID string) (decimal.Decimal, error) {
	log := logger.WithContext(ctx, l.log)
	cached, cacheErr := l.cache.Get(ctx, productID)
	if cacheErr != nil {
		log.Warn().Err(cacheErr).Str("product_id", productID).Msg("caché de stock no disponible")
	} else if cached.Hit {
		return cached.Quantity, nil
	}
	p, err := l.product(ctx, productID)
	if err != nil {
		return decimal.Zero, err
	}
	if cacheErr == nil {
		if err := l.cache.Set(ctx, productID, p.CurrentStock, cached.Generation); err != nil {
			log.Warn().Err(err).Str("product_id", productID).Msg("no se pudo cachear el stock")
		}
	}
	return p.CurrentStock, nil
}

// GetReorderStatus compara el stock actual con el umbral. Solo lectura.
func (l *Ledger) GetReorderStatus(ctx context.Context, productID string) (inventory.ReorderStatus, error) {
	p, err := l.product(ctx, productID)
	if err != nil {
		return "", err
	}
	return inventory.Evaluate(p.CurrentStock, p.ReorderPoint), nil
}

// IsBelowReorderThreshold atajo booleano de GetReorderStatus.
func (l *Ledger) IsBelowReorderThreshold(ctx context.Context, productID string) (bool, error) {
	st, err := l.GetReorderStatus(ctx, productID)
	return st == inventory.ReorderBelowThreshold, err
}

// GetStockLevel stock, umbral y señal en una sola lectura.
func (l *Ledger) GetStockLevel(ctx context.Context, productID string) (*dto.StockLevelResponse, error) {
	p, err := l.product(ctx, productID)
	if err != nil {
		return nil, err
	}
	sig := Signal(p)
	return &dto.StockLevelResponse{
		ProductID:     p.ID,
		CurrentStock:  p.CurrentStock,
		ReorderPoint:  p.ReorderPoint,
		ReorderStatus: sig.ReorderStatus,
	}, nil
}

// ListLots lotes del producto en orden FIFO con la valorización del remanente.
func (l *Ledger) ListLots(ctx context.Context, productID string) (*dto.LotListResponse, error) {
	p, err := l.product(ctx, productID)
	if err != nil {
		return nil, err
	}
	lots, err := l.repos.Lots.ListByProduct(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	inventory.SortFIFO(lots)
	out := &dto.LotListResponse{ProductID: p.ID, Lots: make([]dto.LotSummary, 0, len(lots))}
	for _, lot := range lots {
		out.Lots = append(out.Lots, lotSummary(lot, p.CurrentStock))
	}
	v := inventory.Valuation(lots)
	out.Valuation = dto.StockValuationDTO{
		Quantity:        v.Quantity,
		TotalValue:      v.TotalValue,
		AverageUnitCost: v.AverageUnitCost,
	}
	return out, nil
}

func (l *Ledger) product(ctx context.Context, id string) (*entity.Product, error) {
	p, err := l.repos.Products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: producto %s", domain.ErrNotFound, id)
	}
	return p, nil
}

// Propagate aplica los efectos posteriores al commit: invalida el caché, publica los
// movimientos y emite alertas de reposición para los productos cuyo stock disminuyó.
// Los errores se registran; la operación ya está confirmada.
func (l *Ledger) Propagate(ctx context.Context, eff *Effects) {
	if eff == nil {
		return
	}
	log := logger.WithContext(ctx, l.log)
	products := eff.Products()
	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	if len(ids) > 0 {
		if err := l.cache.Invalidate(ctx, ids...); err != nil {
			log.Warn().Err(err).Strs("product_ids", ids).Msg("no se pudo invalidar el caché de stock")
		}
	}
	if movs := eff.Movements(); len(movs) > 0 {
		if err := l.events.PublishMovements(ctx, movs); err != nil {
			log.Error().Err(err).Int("movements", len(movs)).Msg("publicación de movimientos fallida")
		}
	}
	for _, p := range products {
		if !eff.decreased[p.ID] {
			continue
		}
		st := inventory.Evaluate(p.CurrentStock, p.ReorderPoint)
		if st != inventory.ReorderBelowThreshold {
			continue
		}
		alert := ReorderAlert{
			ProductID:    p.ID,
			Reference:    p.Reference,
			ProductName:  p.Name,
			CurrentStock: p.CurrentStock,
			ReorderPoint: p.ReorderPoint,
			Status:       st,
			DetectedAt:   l.clock.Now(),
		}
		log.Info().Str("product_id", p.ID).Str("stock", p.CurrentStock.String()).
			Str("reorder_point", p.ReorderPoint.String()).Msg("producto bajo punto de reposición")
		if err := l.events.PublishReorderAlert(ctx, alert); err != nil {
			log.Error().Err(err).Str("product_id", p.ID).Msg("publicación de alerta de reposición fallida")
		}
	}
}

// observe abre un span, mide la duración y registra el resultado de la operación.
func (l *Ledger) observe(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := tracer.Start(ctx, "stock."+op, trace.WithAttributes(attrs...))
	start := time.Now()
	return ctx, func(err error) {
		outcome := Outcome(err)
		l.metrics.ObserveOperation(op, outcome, time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			log := logger.WithContext(ctx, l.log)
			ev := log.Warn()
			if outcome == "error" {
				ev = log.Error()
			}
			ev.Err(err).Str("op", op).Str("outcome", outcome).Msg("operación de stock rechazada")
		}
		span.End()
	}
}

// Outcome clasifica un error del ledger para métricas y logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case domain.IsValidation(err):
		return "validation"
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return "conflict"
	case errors.Is(err, domain.ErrTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrEmptySlip):
		return "rejected"
	}
	return "error"
}
