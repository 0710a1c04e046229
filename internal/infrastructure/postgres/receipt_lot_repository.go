package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Bodega-api/internal/domain"
	"github.com/jhoicas/Bodega-api/internal/domain/entity"
	"github.com/jhoicas/Bodega-api/internal/domain/repository"
)

var _ repository.ReceiptLotRepository = (*ReceiptLotRepo)(nil)

// ReceiptLotRepo lotes de recepción sobre PostgreSQL. Los listados salen en orden FIFO.
type ReceiptLotRepo struct {
	q Querier
}

// NewReceiptLotRepository construye el adaptador. Pasar pool o tx (Querier).
func NewReceiptLotRepository(q Querier) *ReceiptLotRepo {
	return &ReceiptLotRepo{q: q}
}

const lotColumns = `id, product_id, purchase_order_ref, lot_number, unit_price, initial_quantity, remaining_quantity, received_at, status, version, created_at, updated_at`

func scanLot(row rowScanner) (*entity.ReceiptLot, error) {
	var l entity.ReceiptLot
	err := row.Scan(&l.ID, &l.ProductID, &l.PurchaseOrderRef, &l.LotNumber, &l.UnitPrice,
		&l.InitialQuantity, &l.RemainingQuantity, &l.ReceivedAt, &l.Status, &l.Version,
		&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Create inserta el lote. La unicidad (product_id, lot_number) la garantiza un índice único.
func (r *ReceiptLotRepo) Create(ctx context.Context, lot *entity.ReceiptLot) error {
	if lot.ID == "" {
		lot.ID = uuid.New().String()
	}
	query := `
		INSERT INTO receipt_lots (` + lotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		RETURNING created_at, updated_at`
	err := r.q.QueryRow(ctx, query,
		lot.ID, lot.ProductID, lot.PurchaseOrderRef, lot.LotNumber, lot.UnitPrice,
		lot.InitialQuantity, lot.RemainingQuantity, lot.ReceivedAt, lot.Status, lot.Version,
	).Scan(&lot.CreatedAt, &lot.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: lote %s", domain.ErrDuplicate, lot.LotNumber)
		}
		return mapError("insert receipt lot", err)
	}
	return nil
}

// GetByID obtiene un lote por ID.
func (r *ReceiptLotRepo) GetByID(ctx context.Context, id string) (*entity.ReceiptLot, error) {
	return r.getOne(ctx, "get lot", `SELECT `+lotColumns+` FROM receipt_lots WHERE id = $1`, id)
}

// GetByLotNumber obtiene el lote de un producto por su número.
func (r *ReceiptLotRepo) GetByLotNumber(ctx context.Context, productID, lotNumber string) (*entity.ReceiptLot, error) {
	return r.getOne(ctx, "get lot by number",
		`SELECT `+lotColumns+` FROM receipt_lots WHERE product_id = $1 AND lot_number = $2`, productID, lotNumber)
}

func (r *ReceiptLotRepo) getOne(ctx context.Context, op, query string, args ...any) (*entity.ReceiptLot, error) {
	l, err := scanLot(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError(op, err)
	}
	return l, nil
}

// ListOpenForUpdate lotes OPEN del producto en orden FIFO, bloqueados hasta el fin de la transacción.
func (r *ReceiptLotRepo) ListOpenForUpdate(ctx context.Context, productID string) ([]*entity.ReceiptLot, error) {
	return r.list(ctx, "list open lots", `
		SELECT `+lotColumns+` FROM receipt_lots
		WHERE product_id = $1 AND status = 'OPEN'
		ORDER BY received_at, id
		FOR UPDATE`, productID)
}

// ListByProduct todos los lotes del producto en orden FIFO.
func (r *ReceiptLotRepo) ListByProduct(ctx context.Context, productID string) ([]*entity.ReceiptLot, error) {
	return r.list(ctx, "list lots", `
		SELECT `+lotColumns+` FROM receipt_lots
		WHERE product_id = $1
		ORDER BY received_at, id`, productID)
}

func (r *ReceiptLotRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.ReceiptLot, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()
	var list []*entity.ReceiptLot
	for rows.Next() {
		l, err := scanLot(rows)
		if err != nil {
			return nil, mapError(op, err)
		}
		list = append(list, l)
	}
	return list, mapError(op, rows.Err())
}

// Update escribe cantidad restante y estado solo si la versión no cambió (CAS).
func (r *ReceiptLotRepo) Update(ctx context.Context, lot *entity.ReceiptLot) error {
	query := `
		UPDATE receipt_lots
		SET remaining_quantity = $1, status = $2, version = version + 1, updated_at = now()
		WHERE id = $3 AND version = $4`
	tag, err := r.q.Exec(ctx, query, lot.RemainingQuantity, lot.Status, lot.ID, lot.Version)
	if err != nil {
		return mapError("update receipt lot", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: lote %s versión %d", domain.ErrConcurrencyConflict, lot.LotNumber, lot.Version)
	}
	lot.Version++
	return nil
}
