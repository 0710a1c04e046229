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

var _ repository.PurchaseOrderRepository = (*PurchaseOrderRepo)(nil)

// PurchaseOrderRepo órdenes de compra sobre PostgreSQL (lo necesario para la recepción).
type PurchaseOrderRepo struct {
	q Querier
}

// NewPurchaseOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPurchaseOrderRepository(q Querier) *PurchaseOrderRepo {
	return &PurchaseOrderRepo{q: q}
}

const orderColumns = `id, number, supplier_id, order_date, status, total_amount, delivered_at, created_at, updated_at`

// Create inserta la orden con sus líneas.
func (r *PurchaseOrderRepo) Create(ctx context.Context, o *entity.PurchaseOrder) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO purchase_orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())`,
		o.ID, o.Number, o.SupplierID, o.OrderDate, o.Status, o.TotalAmount, o.DeliveredAt)
	for _, ln := range o.Lines {
		batch.Queue(`
			INSERT INTO purchase_order_lines (order_id, line_no, product_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5)`,
			o.ID, ln.LineNo, ln.ProductID, ln.Quantity, ln.UnitPrice)
	}
	br := r.q.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: orden %s", domain.ErrDuplicate, o.Number)
			}
			return mapError("insert purchase order", err)
		}
	}
	return mapError("insert purchase order", br.Close())
}

// GetByID obtiene la orden con sus líneas.
func (r *PurchaseOrderRepo) GetByID(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM purchase_orders WHERE id = $1`, id)
}

// GetForUpdate obtiene la orden y bloquea su cabecera.
func (r *PurchaseOrderRepo) GetForUpdate(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM purchase_orders WHERE id = $1 FOR UPDATE`, id)
}

func (r *PurchaseOrderRepo) get(ctx context.Context, query, id string) (*entity.PurchaseOrder, error) {
	var o entity.PurchaseOrder
	err := r.q.QueryRow(ctx, query, id).Scan(&o.ID, &o.Number, &o.SupplierID, &o.OrderDate, &o.Status,
		&o.TotalAmount, &o.DeliveredAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get purchase order", err)
	}
	rows, err := r.q.Query(ctx, `
		SELECT line_no, product_id, quantity, unit_price
		FROM purchase_order_lines WHERE order_id = $1 ORDER BY line_no`, id)
	if err != nil {
		return nil, mapError("list purchase order lines", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ln entity.PurchaseOrderLine
		if err := rows.Scan(&ln.LineNo, &ln.ProductID, &ln.Quantity, &ln.UnitPrice); err != nil {
			return nil, mapError("scan purchase order line", err)
		}
		o.Lines = append(o.Lines, ln)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list purchase order lines", err)
	}
	return &o, nil
}

// UpdateStatus persiste estado y fecha de entrega.
func (r *PurchaseOrderRepo) UpdateStatus(ctx context.Context, o *entity.PurchaseOrder) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE purchase_orders SET status = $1, delivered_at = $2, updated_at = now()
		WHERE id = $3`, o.Status, o.DeliveredAt, o.ID)
	if err != nil {
		return mapError("update purchase order", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update purchase order: %w", domain.ErrNotFound)
	}
	return nil
}
