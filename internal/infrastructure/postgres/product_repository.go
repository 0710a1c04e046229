package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Bodega-api/internal/domain"
	"github.com/jhoicas/Bodega-api/internal/domain/entity"
	"github.com/jhoicas/Bodega-api/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de persistencia para productos. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

const productColumns = `id, reference, name, description, category, unit_measure, current_stock, reorder_point, active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*entity.Product, error) {
	var p entity.Product
	err := row.Scan(&p.ID, &p.Reference, &p.Name, &p.Description, &p.Category, &p.UnitMeasure,
		&p.CurrentStock, &p.ReorderPoint, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create persiste un nuevo producto.
func (r *ProductRepo) Create(ctx context.Context, product *entity.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		RETURNING created_at, updated_at`
	err := r.q.QueryRow(ctx, query,
		product.ID, product.Reference, product.Name, product.Description, product.Category,
		product.UnitMeasure, product.CurrentStock, product.ReorderPoint, product.Active,
	).Scan(&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return mapError("insert product", err)
	}
	return nil
}

// GetByID obtiene un producto por ID.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	return r.getOne(ctx, "get product", `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
}

// GetByReference obtiene un producto por su referencia.
func (r *ProductRepo) GetByReference(ctx context.Context, reference string) (*entity.Product, error) {
	return r.getOne(ctx, "get product by reference", `SELECT `+productColumns+` FROM products WHERE reference = $1`, reference)
}

// GetForUpdate obtiene el producto y bloquea la fila (SELECT FOR UPDATE).
func (r *ProductRepo) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	return r.getOne(ctx, "get product for update", `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id)
}

func (r *ProductRepo) getOne(ctx context.Context, op, query string, arg string) (*entity.Product, error) {
	p, err := scanProduct(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError(op, err)
	}
	return p, nil
}

// UpdateStock reescribe el caché de stock del producto.
func (r *ProductRepo) UpdateStock(ctx context.Context, id string, quantity decimal.Decimal) error {
	tag, err := r.q.Exec(ctx, `UPDATE products SET current_stock = $1, updated_at = now() WHERE id = $2`, quantity, id)
	if err != nil {
		return mapError("update product stock", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update product stock: %w", domain.ErrNotFound)
	}
	return nil
}

// Deactivate marca el producto como inactivo.
func (r *ProductRepo) Deactivate(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `UPDATE products SET active = false, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return mapError("deactivate product", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("deactivate product: %w", domain.ErrNotFound)
	}
	return nil
}

// List lista productos ordenados por referencia.
func (r *ProductRepo) List(ctx context.Context, limit, offset int) ([]*entity.Product, error) {
	rows, err := r.q.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY reference LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, mapError("list products", err)
	}
	defer rows.Close()
	var list []*entity.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, mapError("scan product", err)
		}
		list = append(list, p)
	}
	return list, mapError("list products", rows.Err())
}

// ListBelowReorderPoint productos activos bajo su umbral, mayor déficit primero.
// LastUnitPrice sale del lote recibido más recientemente.
func (r *ProductRepo) ListBelowReorderPoint(ctx context.Context) ([]repository.ReorderCandidate, error) {
	query := `
		SELECT p.id, p.reference, p.name, p.unit_measure, p.current_stock, p.reorder_point,
		       COALESCE((
		           SELECT l.unit_price FROM receipt_lots l
		           WHERE l.product_id = p.id
		           ORDER BY l.received_at DESC, l.id DESC
		           LIMIT 1
		       ), 0)
		FROM products p
		WHERE p.active AND p.reorder_point > 0 AND p.current_stock < p.reorder_point
		ORDER BY (p.reorder_point - p.current_stock) DESC, p.reference`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, mapError("list below reorder point", err)
	}
	defer rows.Close()
	var list []repository.ReorderCandidate
	for rows.Next() {
		var c repository.ReorderCandidate
		if err := rows.Scan(&c.ProductID, &c.Reference, &c.ProductName, &c.UnitMeasure,
			&c.CurrentStock, &c.ReorderPoint, &c.LastUnitPrice); err != nil {
			return nil, mapError("scan reorder candidate", err)
		}
		list = append(list, c)
	}
	return list, mapError("list below reorder point", rows.Err())
}
