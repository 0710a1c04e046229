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

var _ repository.IssuanceSlipRepository = (*IssuanceSlipRepo)(nil)

// IssuanceSlipRepo bon de sortie (cabecera + líneas) sobre PostgreSQL.
type IssuanceSlipRepo struct {
	q Querier
}

// NewIssuanceSlipRepository construye el adaptador. Pasar pool o tx (Querier).
func NewIssuanceSlipRepository(q Querier) *IssuanceSlipRepo {
	return &IssuanceSlipRepo{q: q}
}

const slipColumns = `id, number, workshop, reason, issue_date, status, total_amount, confirmed_at, created_by, created_at, updated_at`

// Create inserta cabecera y líneas en un solo batch (transacción implícita si no hay una abierta).
func (r *IssuanceSlipRepo) Create(ctx context.Context, slip *entity.IssuanceSlip) error {
	if slip.ID == "" {
		slip.ID = uuid.New().String()
	}
	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO issuance_slips (`+slipColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())`,
		slip.ID, slip.Number, slip.Workshop, slip.Reason, slip.IssueDate, slip.Status,
		slip.TotalAmount, slip.ConfirmedAt, slip.CreatedBy)
	for i := range slip.Lines {
		ln := &slip.Lines[i]
		if ln.ID == "" {
			ln.ID = uuid.New().String()
		}
		ln.SlipID = slip.ID
		batch.Queue(`
			INSERT INTO issuance_lines (id, slip_id, line_no, product_id, quantity, amount)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			ln.ID, ln.SlipID, ln.LineNo, ln.ProductID, ln.Quantity, ln.Amount)
	}
	if err := r.execBatch(ctx, batch); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: bon %s", domain.ErrDuplicate, slip.Number)
		}
		return mapError("insert issuance slip", err)
	}
	return nil
}

// GetByID obtiene el bon con sus líneas.
func (r *IssuanceSlipRepo) GetByID(ctx context.Context, id string) (*entity.IssuanceSlip, error) {
	return r.get(ctx, `SELECT `+slipColumns+` FROM issuance_slips WHERE id = $1`, id)
}

// GetByNumber obtiene el bon por su número.
func (r *IssuanceSlipRepo) GetByNumber(ctx context.Context, number string) (*entity.IssuanceSlip, error) {
	return r.get(ctx, `SELECT `+slipColumns+` FROM issuance_slips WHERE number = $1`, number)
}

// GetForUpdate obtiene el bon y bloquea su cabecera.
func (r *IssuanceSlipRepo) GetForUpdate(ctx context.Context, id string) (*entity.IssuanceSlip, error) {
	return r.get(ctx, `SELECT `+slipColumns+` FROM issuance_slips WHERE id = $1 FOR UPDATE`, id)
}

func (r *IssuanceSlipRepo) get(ctx context.Context, query, arg string) (*entity.IssuanceSlip, error) {
	var s entity.IssuanceSlip
	err := r.q.QueryRow(ctx, query, arg).Scan(&s.ID, &s.Number, &s.Workshop, &s.Reason, &s.IssueDate,
		&s.Status, &s.TotalAmount, &s.ConfirmedAt, &s.CreatedBy, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get issuance slip", err)
	}

	rows, err := r.q.Query(ctx, `
		SELECT id, slip_id, line_no, product_id, quantity, amount
		FROM issuance_lines WHERE slip_id = $1 ORDER BY line_no`, s.ID)
	if err != nil {
		return nil, mapError("list issuance lines", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ln entity.IssuanceLine
		if err := rows.Scan(&ln.ID, &ln.SlipID, &ln.LineNo, &ln.ProductID, &ln.Quantity, &ln.Amount); err != nil {
			return nil, mapError("scan issuance line", err)
		}
		s.Lines = append(s.Lines, ln)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list issuance lines", err)
	}
	return &s, nil
}

// Update persiste estado, total, fecha de confirmación y el monto de cada línea.
func (r *IssuanceSlipRepo) Update(ctx context.Context, slip *entity.IssuanceSlip) error {
	batch := &pgx.Batch{}
	batch.Queue(`
		UPDATE issuance_slips
		SET status = $1, total_amount = $2, confirmed_at = $3, reason = $4, updated_at = now()
		WHERE id = $5`,
		slip.Status, slip.TotalAmount, slip.ConfirmedAt, slip.Reason, slip.ID)
	for _, ln := range slip.Lines {
		batch.Queue(`UPDATE issuance_lines SET amount = $1 WHERE slip_id = $2 AND line_no = $3`,
			ln.Amount, slip.ID, ln.LineNo)
	}
	return mapError("update issuance slip", r.execBatch(ctx, batch))
}

func (r *IssuanceSlipRepo) execBatch(ctx context.Context, batch *pgx.Batch) error {
	br := r.q.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return err
		}
	}
	return br.Close()
}
