package issuance_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Bodega-api/internal/application/dto"
	"github.com/jhoicas/Bodega-api/internal/application/issuance"
	"github.com/jhoicas/Bodega-api/internal/application/stock"
	"github.com/jhoicas/Bodega-api/internal/application/txn"
	"github.com/jhoicas/Bodega-api/internal/domain"
	"github.com/jhoicas/Bodega-api/internal/domain/entity"
	"github.com/jhoicas/Bodega-api/internal/infrastructure/memory"
)

var (
	day1 = time.Date(2025, 5, 2, 8, 0, 0, 0, time.UTC)
	day2 = time.Date(2025, 5, 9, 8, 0, 0, 0, time.UTC)
	now  = time.Date(2025, 5, 12, 10, 30, 0, 0, time.UTC)
)

type fixedClock struct{}

func (fixedClock) Now() time.Time { return now }

type fakePDF struct {
	got *dto.IssuanceResponse
}

func (f *fakePDF) GenerateIssuanceSlip(slip dto.IssuanceResponse) ([]byte, error) {
	f.got = &slip
	return []byte("%PDF-1.4"), nil
}

type fixture struct {
	store  *memory.Store
	ledger *stock.Ledger
	uc     *issuance.UseCase
	pdf    *fakePDF
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := memory.NewStore()
	runner := txn.NewRetryRunner(s, txn.Policy{MaxAttempts: 3, Timeout: 2 * time.Second}, zerolog.Nop(), nil)
	l := stock.NewLedger(runner, s.Repos(), stock.WithClock(fixedClock{}), stock.WithLogger(zerolog.Nop()))
	pdf := &fakePDF{}
	uc := issuance.NewUseCase(runner, s.Repos(), l, pdf, fixedClock{}, nil, zerolog.Nop())
	return &fixture{store: s, ledger: l, uc: uc, pdf: pdf}
}

func q(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func (f *fixture) product(t *testing.T, ref string, threshold int64) *entity.Product {
	t.Helper()
	p := &entity.Product{Reference: ref, Name: ref, UnitMeasure: "UND", ReorderPoint: q(threshold), Active: true}
	require.NoError(t, f.store.Repos().Products.Create(context.Background(), p))
	return p
}

func (f *fixture) receive(t *testing.T, productID, lot string, qty, price int64, at time.Time) {
	t.Helper()
	_, err := f.ledger.ReceiveStock(context.Background(), stock.ReceiveCommand{
		ProductID: productID, PurchaseOrderRef: "CMD-1", LotNumber: lot,
		Quantity: q(qty), UnitPrice: q(price), ReceivedAt: at,
	})
	require.NoError(t, err)
}

func (f *fixture) draft(t *testing.T, lines ...dto.CreateIssuanceLineRequest) *dto.IssuanceResponse {
	t.Helper()
	d, err := f.uc.CreateDraft(context.Background(), "user-1", dto.CreateIssuanceRequest{
		Workshop: "Atelier Mécanique", Reason: "Maintenance presse", Lines: lines,
	})
	require.NoError(t, err)
	return d
}

func line(productID string, qty int64) dto.CreateIssuanceLineRequest {
	return dto.CreateIssuanceLineRequest{ProductID: productID, Quantity: q(qty)}
}

func TestCreateDraft(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "GANTS", 0)

	d := f.draft(t, line(p.ID, 3))
	assert.Equal(t, entity.SlipStatusDraft, d.Status)
	assert.Regexp(t, `^BS-20250512-[0-9A-F]{8}$`, d.Number)
	require.Len(t, d.Lines, 1)
	assert.Equal(t, 1, d.Lines[0].LineNo)
	assert.True(t, d.TotalAmount.IsZero())
}

func TestCreateDraft_Validaciones(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "GANTS", 0)
	ctx := context.Background()

	tests := []struct {
		name string
		req  dto.CreateIssuanceRequest
		want error
	}{
		{"sin atelier", dto.CreateIssuanceRequest{Lines: []dto.CreateIssuanceLineRequest{line(p.ID, 1)}}, domain.ErrInvalidInput},
		{"cantidad cero", dto.CreateIssuanceRequest{Workshop: "A", Lines: []dto.CreateIssuanceLineRequest{line(p.ID, 0)}}, domain.ErrInvalidInput},
		{"producto repetido", dto.CreateIssuanceRequest{Workshop: "A", Lines: []dto.CreateIssuanceLineRequest{line(p.ID, 1), line(p.ID, 2)}}, domain.ErrInvalidInput},
		{"producto inexistente", dto.CreateIssuanceRequest{Workshop: "A", Lines: []dto.CreateIssuanceLineRequest{line("nope", 1)}}, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.uc.CreateDraft(ctx, "user-1", tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := f.uc.CreateDraft(ctx, "user-1", dto.CreateIssuanceRequest{Number: "BS-1", Workshop: "A"})
	require.NoError(t, err)
	_, err = f.uc.CreateDraft(ctx, "user-1", dto.CreateIssuanceRequest{Number: "BS-1", Workshop: "B"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestConfirmIssuance_AsignaFIFOPorLinea(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gants := f.product(t, "GANTS", 10)
	vis := f.product(t, "VIS-M8", 0)
	f.receive(t, gants.ID, "L1", 5, 10, day1)
	f.receive(t, gants.ID, "L2", 5, 20, day2)
	f.receive(t, vis.ID, "V1", 10, 2, day1)

	d := f.draft(t, line(gants.ID, 7), line(vis.ID, 3))
	res, err := f.uc.ConfirmIssuance(ctx, d.ID, "user-2")
	require.NoError(t, err)

	assert.Equal(t, entity.SlipStatusConfirmed, res.Slip.Status)
	require.NotNil(t, res.Slip.ConfirmedAt)
	assert.True(t, res.Slip.TotalAmount.Equal(q(96)), res.Slip.TotalAmount.String())

	require.Len(t, res.Slip.Lines, 2)
	l1 := res.Slip.Lines[0]
	assert.True(t, l1.Amount.Equal(q(90)))
	require.Len(t, l1.Draws, 2)
	assert.Equal(t, "L1", l1.Draws[0].LotNumber)
	assert.True(t, l1.Draws[0].Quantity.Equal(q(5)))
	assert.Equal(t, "L2", l1.Draws[1].LotNumber)
	assert.True(t, l1.Draws[1].Quantity.Equal(q(2)))
	assert.True(t, res.Slip.Lines[1].Amount.Equal(q(6)))

	require.Len(t, res.ReorderSignals, 2)
	for _, s := range res.ReorderSignals {
		if s.ProductID == gants.ID {
			assert.Equal(t, "BELOW_THRESHOLD", s.ReorderStatus)
			assert.True(t, s.CurrentStock.Equal(q(3)))
		}
	}

	movs, err := f.store.Repos().Movements.ListByReference(ctx, d.Number)
	require.NoError(t, err)
	assert.Len(t, movs, 3)
	for _, m := range movs {
		assert.Equal(t, entity.MovementTypeOUT, m.Type)
		assert.Equal(t, "Maintenance presse", m.Reason)
	}

	// la lectura reconstruye los lotes consumidos desde el ledger
	got, err := f.uc.GetIssuance(ctx, d.ID)
	require.NoError(t, err)
	assert.Len(t, got.Lines[0].Draws, 2)
	assert.True(t, got.Lines[1].Amount.Equal(q(6)))
}

func TestConfirmIssuance_TodoONada(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gants := f.product(t, "GANTS", 0)
	casques := f.product(t, "CASQUES", 0)
	f.receive(t, gants.ID, "L1", 10, 4, day1)
	f.receive(t, casques.ID, "C1", 2, 30, day1)

	d := f.draft(t, line(gants.ID, 4), line(casques.ID, 5))
	_, err := f.uc.ConfirmIssuance(ctx, d.ID, "user-2")

	var insuf *domain.InsufficientStockError
	require.True(t, errors.As(err, &insuf))
	assert.Equal(t, casques.ID, insuf.ProductID)
	assert.True(t, insuf.Available.Equal(q(2)))

	// la primera línea no dejó rastro
	gs, err := f.ledger.GetCurrentStock(ctx, gants.ID)
	require.NoError(t, err)
	assert.True(t, gs.Equal(q(10)))
	movs, err := f.store.Repos().Movements.ListByReference(ctx, d.Number)
	require.NoError(t, err)
	assert.Empty(t, movs)

	got, err := f.uc.GetIssuance(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SlipStatusDraft, got.Status)
	assert.True(t, got.Lines[0].Amount.IsZero())
}

func TestConfirmIssuance_Estados(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "GANTS", 0)
	f.receive(t, p.ID, "L1", 10, 4, day1)

	empty := f.draft(t)
	_, err := f.uc.ConfirmIssuance(ctx, empty.ID, "u")
	assert.ErrorIs(t, err, domain.ErrEmptySlip)

	_, err = f.uc.ConfirmIssuance(ctx, "no-existe", "u")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	d := f.draft(t, line(p.ID, 2))
	_, err = f.uc.ConfirmIssuance(ctx, d.ID, "u")
	require.NoError(t, err)
	_, err = f.uc.ConfirmIssuance(ctx, d.ID, "u")
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.ErrorIs(t, f.uc.CancelIssuanceDraft(ctx, d.ID), domain.ErrConflict)

	stockNow, err := f.ledger.GetCurrentStock(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, stockNow.Equal(q(8)), "una segunda confirmación no descuenta")
}

func TestCancelIssuanceDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "GANTS", 0)
	f.receive(t, p.ID, "L1", 10, 4, day1)

	d := f.draft(t, line(p.ID, 2))
	require.NoError(t, f.uc.CancelIssuanceDraft(ctx, d.ID))

	got, err := f.uc.GetIssuance(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SlipStatusCancelled, got.Status)

	_, err = f.uc.ConfirmIssuance(ctx, d.ID, "u")
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestDownloadSlipPDF(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "GANTS", 0)
	f.receive(t, p.ID, "L1", 10, 4, day1)
	d := f.draft(t, line(p.ID, 2))

	_, _, err := f.uc.DownloadSlipPDF(ctx, d.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = f.uc.ConfirmIssuance(ctx, d.ID, "u")
	require.NoError(t, err)

	b, name, err := f.uc.DownloadSlipPDF(ctx, d.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, b)
	assert.Equal(t, "bon-sortie-"+d.Number+".pdf", name)
	require.NotNil(t, f.pdf.got)
	assert.True(t, f.pdf.got.TotalAmount.Equal(q(8)))
	assert.Len(t, f.pdf.got.Lines[0].Draws, 1)
}

// El número de un bon queda reservado a los movimientos de su confirmación.
func TestIssuance_ReferenciaDelBonReservada(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gants := f.product(t, "GANTS", 0)
	vis := f.product(t, "VIS-M8", 0)
	f.receive(t, gants.ID, "L1", 10, 4, day1)
	f.receive(t, vis.ID, "V1", 10, 1, day1)

	d := f.draft(t, line(gants.ID, 2))
	_, err := f.uc.ConfirmIssuance(ctx, d.ID, "u")
	require.NoError(t, err)

	for _, id := range []string{gants.ID, vis.ID} {
		_, err = f.ledger.Allocate(ctx, stock.AllocationRequest{ProductID: id, Quantity: q(1), Reference: d.Number})
		assert.ErrorIs(t, err, domain.ErrConflict)
	}
	st, err := f.ledger.GetCurrentStock(ctx, vis.ID)
	require.NoError(t, err)
	assert.True(t, st.Equal(q(10)))

	// Un movimiento ajeno a las líneas con la misma referencia no entra en el desglose.
	require.NoError(t, f.store.Repos().Movements.Append(ctx, &entity.StockMovement{
		ProductID: vis.ID, Type: entity.MovementTypeOUT, Direction: entity.DirectionDecrease,
		Quantity: q(1), UnitPrice: q(1), Reference: d.Number, OccurredAt: now,
	}))
	got, err := f.uc.GetIssuance(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	require.Len(t, got.Lines[0].Draws, 1)
	assert.True(t, got.Lines[0].Draws[0].Quantity.Equal(q(2)))
	assert.True(t, got.TotalAmount.Equal(q(8)))

	// Y un bon no puede adoptar una referencia que ya tiene movimientos.
	_, err = f.ledger.Allocate(ctx, stock.AllocationRequest{ProductID: vis.ID, Quantity: q(1), Reference: "OT-77"})
	require.NoError(t, err)
	_, err = f.uc.CreateDraft(ctx, "user-1", dto.CreateIssuanceRequest{
		Number: "OT-77", Workshop: "A", Lines: []dto.CreateIssuanceLineRequest{line(vis.ID, 1)},
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
}
