package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/Bodega-api/internal/domain/entity"
	"github.com/jhoicas/Bodega-api/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo ledger de movimientos sobre PostgreSQL. Solo INSERT y SELECT.
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

const movementColumns = `id, seq, product_id, lot_id, type, direction, quantity, unit_price, reference, reason, occurred_at, created_by`

// Append inserta el movimiento; seq lo asigna la secuencia de la tabla.
func (r *StockMovementRepo) Append(ctx context.Context, m *entity.StockMovement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	query := `
		INSERT INTO stock_movements (id, product_id, lot_id, type, direction, quantity, unit_price, reference, reason, occurred_at, created_by)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING seq`
	err := r.q.QueryRow(ctx, query,
		m.ID, m.ProductID, m.LotID, m.Type, m.Direction, m.Quantity, m.UnitPrice,
		m.Reference, m.Reason, m.OccurredAt, m.CreatedBy,
	).Scan(&m.Seq)
	if err != nil {
		return mapError("append stock movement", err)
	}
	return nil
}

// ListByProduct historial cronológico del producto; from/to inclusivos.
func (r *StockMovementRepo) ListByProduct(ctx context.Context, productID string, from, to *time.Time) ([]*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE product_id = $1`
	args := []any{productID}
	pos := 2
	if from != nil {
		query += fmt.Sprintf(" AND occurred_at >= $%d", pos)
		args = append(args, *from)
		pos++
	}
	if to != nil {
		query += fmt.Sprintf(" AND occurred_at <= $%d", pos)
		args = append(args, *to)
	}
	query += " ORDER BY occurred_at, seq"
	return r.list(ctx, "list movements by product", query, args...)
}

// ListByReference movimientos generados por un documento (bon de sortie, orden de compra).
func (r *StockMovementRepo) ListByReference(ctx context.Context, reference string) ([]*entity.StockMovement, error) {
	return r.list(ctx, "list movements by reference",
		`SELECT `+movementColumns+` FROM stock_movements WHERE reference = $1 ORDER BY occurred_at, seq`, reference)
}

func (r *StockMovementRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.StockMovement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()
	var list []*entity.StockMovement
	for rows.Next() {
		var m entity.StockMovement
		var lotID *string
		if err := rows.Scan(&m.ID, &m.Seq, &m.ProductID, &lotID, &m.Type, &m.Direction, &m.Quantity,
			&m.UnitPrice, &m.Reference, &m.Reason, &m.OccurredAt, &m.CreatedBy); err != nil {
			return nil, mapError(op, err)
		}
		if lotID != nil {
			m.LotID = *lotID
		}
		list = append(list, &m)
	}
	return list, mapError(op, rows.Err())
}
