package issuance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/Bodega-api/internal/application/dto"
	"github.com/jhoicas/Bodega-api/internal/application/stock"
	"github.com/jhoicas/Bodega-api/internal/application/txn"
	"github.com/jhoicas/Bodega-api/internal/domain"
	"github.com/jhoicas/Bodega-api/internal/domain/entity"
	"github.com/jhoicas/Bodega-api/internal/domain/inventory"
	"github.com/jhoicas/Bodega-api/internal/domain/repository"
	"github.com/jhoicas/Bodega-api/pkg/logger"
)

var tracer = otel.Tracer("bodega/issuance")

// UseCase flujo del bon de sortie: DRAFT → CONFIRMED | CANCELLED.
// Confirmar asigna todas las líneas en una sola transacción: o se confirma el bon completo o nada.
type UseCase struct {
	tx        txn.Runner
	repos     repository.TxRepos
	allocator Allocator
	pdf       PDFGenerator
	clock     stock.Clock
	metrics   stock.Metrics
	log       zerolog.Logger
}

// NewUseCase construye el caso de uso. pdf puede ser nil (la descarga queda deshabilitada).
func NewUseCase(
	runner txn.Runner,
	repos repository.TxRepos,
	allocator Allocator,
	pdf PDFGenerator,
	clock stock.Clock,
	metrics stock.Metrics,
	log zerolog.Logger,
) *UseCase {
	if clock == nil {
		clock = stock.SystemClock{}
	}
	if metrics == nil {
		metrics = stock.NoopMetrics{}
	}
	return &UseCase{tx: runner, repos: repos, allocator: allocator, pdf: pdf, clock: clock, metrics: metrics, log: log}
}

// CreateDraft registra un bon en DRAFT. Un producto aparece a lo sumo en una línea.
func (uc *UseCase) CreateDraft(ctx context.Context, userID string, in dto.CreateIssuanceRequest) (out *dto.IssuanceResponse, err error) {
	ctx, done := uc.observe(ctx, "create_draft")
	defer func() { done(err) }()

	if strings.TrimSpace(in.Workshop) == "" {
		return nil, fmt.Errorf("%w: atelier requerido", domain.ErrInvalidInput)
	}
	now := uc.clock.Now()
	slip := &entity.IssuanceSlip{
		ID:        uuid.New().String(),
		Number:    strings.TrimSpace(in.Number),
		Workshop:  in.Workshop,
		Reason:    in.Reason,
		IssueDate: now,
		Status:    entity.SlipStatusDraft,
		CreatedBy: userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.IssueDate != nil {
		slip.IssueDate = *in.IssueDate
	}
	if slip.Number == "" {
		slip.Number = newSlipNumber(now)
	} else {
		used, err := uc.repos.Movements.ListByReference(ctx, slip.Number)
		if err != nil {
			return nil, err
		}
		if len(used) > 0 {
			return nil, fmt.Errorf("%w: la referencia %s ya tiene movimientos de stock", domain.ErrConflict, slip.Number)
		}
	}

	seen := make(map[string]bool, len(in.Lines))
	for i, ln := range in.Lines {
		if ln.ProductID == "" || !ln.Quantity.IsPositive() {
			return nil, fmt.Errorf("%w: línea %d requiere producto y cantidad positiva", domain.ErrInvalidInput, i+1)
		}
		if err := inventory.CheckScale(fmt.Sprintf("quantity (línea %d)", i+1), ln.Quantity); err != nil {
			return nil, err
		}
		if seen[ln.ProductID] {
			return nil, fmt.Errorf("%w: el producto %s aparece en más de una línea", domain.ErrInvalidInput, ln.ProductID)
		}
		seen[ln.ProductID] = true
		p, err := uc.repos.Products.GetByID(ctx, ln.ProductID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, fmt.Errorf("%w: producto %s", domain.ErrNotFound, ln.ProductID)
		}
		slip.Lines = append(slip.Lines, entity.IssuanceLine{
			SlipID:    slip.ID,
			LineNo:    i + 1,
			ProductID: ln.ProductID,
			Quantity:  ln.Quantity,
			Amount:    decimal.Zero,
		})
	}

	if err := uc.repos.Slips.Create(ctx, slip); err != nil {
		return nil, err
	}
	resp := toResponse(slip, nil)
	uc.describeLines(ctx, &resp)
	return &resp, nil
}

// ConfirmIssuance asigna cada línea (en orden de línea) con referencia = número del bon.
// Si una línea no tiene stock suficiente se revierte el bon completo.
func (uc *UseCase) ConfirmIssuance(ctx context.Context, slipID, userID string) (out *dto.IssuanceResult, err error) {
	ctx, done := uc.observe(ctx, "confirm", attribute.String("slip.id", slipID))
	defer func() { done(err) }()

	var (
		eff   *stock.Effects
		slip  *entity.IssuanceSlip
		draws map[string][]dto.LotDraw
	)
	err = uc.tx.Run(ctx, func(ctx context.Context, tx repository.TxRepos) error {
		eff = stock.NewEffects()
		draws = make(map[string][]dto.LotDraw)

		s, err := lockDraft(ctx, tx, slipID)
		if err != nil {
			return err
		}
		if len(s.Lines) == 0 {
			return fmt.Errorf("%w: %s", domain.ErrEmptySlip, s.Number)
		}
		sort.SliceStable(s.Lines, func(i, j int) bool { return s.Lines[i].LineNo < s.Lines[j].LineNo })

		ids := make([]string, 0, len(s.Lines))
		for _, ln := range s.Lines {
			ids = append(ids, ln.ProductID)
		}
		if err := uc.allocator.LockProducts(ctx, tx, ids); err != nil {
			return err
		}

		reason := s.Reason
		if reason == "" {
			reason = "Bon de sortie " + s.Number + " - " + s.Workshop
		}
		total := decimal.Zero
		for i := range s.Lines {
			ln := &s.Lines[i]
			a, err := uc.allocator.AllocateInTx(ctx, tx, stock.AllocationRequest{
				ProductID: ln.ProductID,
				Quantity:  ln.Quantity,
				Reference: s.Number,
				Reason:    reason,
				UserID:    userID,
				Type:      entity.MovementTypeOUT,
			})
			if err != nil {
				return fmt.Errorf("línea %d: %w", ln.LineNo, err)
			}
			ln.Amount = a.Amount()
			total = total.Add(ln.Amount)
			draws[ln.ProductID] = stock.DrawsToDTO(a.Draws)
			eff.AddAllocation(a)
		}

		now := uc.clock.Now()
		s.Status = entity.SlipStatusConfirmed
		s.TotalAmount = total
		s.ConfirmedAt = &now
		if err := tx.Slips.Update(ctx, s); err != nil {
			return err
		}
		slip = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.allocator.Propagate(ctx, eff)

	res := &dto.IssuanceResult{Slip: toResponse(slip, draws)}
	uc.describeLines(ctx, &res.Slip)
	for _, p := range eff.Products() {
		res.ReorderSignals = append(res.ReorderSignals, stock.Signal(p))
	}
	log := logger.WithContext(ctx, uc.log)
	log.Info().
		Str("slip", slip.Number).
		Int("lines", len(slip.Lines)).
		Str("total", slip.TotalAmount.String()).
		Msg("bon de sortie confirmado")
	return res, nil
}

// CancelIssuanceDraft abandona un bon en DRAFT. Un bon confirmado no se cancela.
func (uc *UseCase) CancelIssuanceDraft(ctx context.Context, slipID string) (err error) {
	ctx, done := uc.observe(ctx, "cancel", attribute.String("slip.id", slipID))
	defer func() { done(err) }()

	return uc.tx.Run(ctx, func(ctx context.Context, tx repository.TxRepos) error {
		s, err := lockDraft(ctx, tx, slipID)
		if err != nil {
			return err
		}
		s.Status = entity.SlipStatusCancelled
		return tx.Slips.Update(ctx, s)
	})
}

// GetIssuance devuelve el bon; si está confirmado incluye los lotes consumidos por línea.
func (uc *UseCase) GetIssuance(ctx context.Context, slipID string) (*dto.IssuanceResponse, error) {
	s, err := uc.repos.Slips.GetByID(ctx, slipID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("%w: bon %s", domain.ErrNotFound, slipID)
	}
	var draws map[string][]dto.LotDraw
	if s.Status == entity.SlipStatusConfirmed {
		if draws, err = uc.drawsFromLedger(ctx, s); err != nil {
			return nil, err
		}
	}
	resp := toResponse(s, draws)
	uc.describeLines(ctx, &resp)
	return &resp, nil
}

// DownloadSlipPDF genera el PDF de un bon confirmado. Devuelve bytes y nombre de archivo.
func (uc *UseCase) DownloadSlipPDF(ctx context.Context, slipID string) ([]byte, string, error) {
	if uc.pdf == nil {
		return nil, "", errors.New("generador PDF no configurado")
	}
	resp, err := uc.GetIssuance(ctx, slipID)
	if err != nil {
		return nil, "", err
	}
	if resp.Status != entity.SlipStatusConfirmed {
		return nil, "", fmt.Errorf("%w: solo un bon confirmado tiene documento", domain.ErrConflict)
	}
	b, err := uc.pdf.GenerateIssuanceSlip(*resp)
	if err != nil {
		return nil, "", fmt.Errorf("generar PDF: %w", err)
	}
	return b, "bon-sortie-" + resp.Number + ".pdf", nil
}

// drawsFromLedger reconstruye los lotes consumidos a partir de los movimientos OUT del bon,
// limitados a los productos de sus líneas.
func (uc *UseCase) drawsFromLedger(ctx context.Context, s *entity.IssuanceSlip) (map[string][]dto.LotDraw, error) {
	movs, err := uc.repos.Movements.ListByReference(ctx, s.Number)
	if err != nil {
		return nil, err
	}
	lines := make(map[string]bool, len(s.Lines))
	for _, ln := range s.Lines {
		lines[ln.ProductID] = true
	}
	out := make(map[string][]dto.LotDraw)
	for _, m := range movs {
		if m.Type != entity.MovementTypeOUT || !lines[m.ProductID] {
			continue
		}
		lotNumber := m.LotID
		if lot, err := uc.repos.Lots.GetByID(ctx, m.LotID); err == nil && lot != nil {
			lotNumber = lot.LotNumber
		}
		out[m.ProductID] = append(out[m.ProductID], dto.LotDraw{
			LotID:     m.LotID,
			LotNumber: lotNumber,
			Quantity:  m.Quantity,
			UnitPrice: m.UnitPrice,
			Amount:    inventory.Amount(m.Quantity, m.UnitPrice),
		})
	}
	return out, nil
}

// describeLines completa referencia, nombre y unidad de cada línea. Solo informativo.
func (uc *UseCase) describeLines(ctx context.Context, resp *dto.IssuanceResponse) {
	for i := range resp.Lines {
		ln := &resp.Lines[i]
		p, err := uc.repos.Products.GetByID(ctx, ln.ProductID)
		if err != nil || p == nil {
			log := logger.WithContext(ctx, uc.log)
			log.Debug().Err(err).Str("product_id", ln.ProductID).Msg("producto no resuelto")
			continue
		}
		ln.ProductReference = p.Reference
		ln.ProductName = p.Name
		ln.UnitMeasure = p.UnitMeasure
	}
}

func lockDraft(ctx context.Context, tx repository.TxRepos, slipID string) (*entity.IssuanceSlip, error) {
	s, err := tx.Slips.GetForUpdate(ctx, slipID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("%w: bon %s", domain.ErrNotFound, slipID)
	}
	if !s.IsDraft() {
		return nil, fmt.Errorf("%w: el bon %s está %s", domain.ErrConflict, s.Number, s.Status)
	}
	return s, nil
}

func newSlipNumber(now time.Time) string {
	return fmt.Sprintf("BS-%s-%s", now.Format("20060102"), strings.ToUpper(uuid.New().String()[:8]))
}

func toResponse(s *entity.IssuanceSlip, draws map[string][]dto.LotDraw) dto.IssuanceResponse {
	resp := dto.IssuanceResponse{
		ID:          s.ID,
		Number:      s.Number,
		Workshop:    s.Workshop,
		Reason:      s.Reason,
		IssueDate:   s.IssueDate,
		Status:      s.Status,
		TotalAmount: s.TotalAmount,
		ConfirmedAt: s.ConfirmedAt,
		CreatedBy:   s.CreatedBy,
		CreatedAt:   s.CreatedAt,
		Lines:       make([]dto.IssuanceLineResponse, 0, len(s.Lines)),
	}
	for _, ln := range s.Lines {
		resp.Lines = append(resp.Lines, dto.IssuanceLineResponse{
			LineNo:    ln.LineNo,
			ProductID: ln.ProductID,
			Quantity:  ln.Quantity,
			Amount:    ln.Amount,
			Draws:     draws[ln.ProductID],
		})
	}
	return resp
}

func (uc *UseCase) observe(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := tracer.Start(ctx, "issuance."+op, trace.WithAttributes(attrs...))
	start := time.Now()
	return ctx, func(err error) {
		outcome := stock.Outcome(err)
		uc.metrics.ObserveOperation("issuance_"+op, outcome, time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			log := logger.WithContext(ctx, uc.log)
			log.Warn().Err(err).Str("op", op).Str("outcome", outcome).
				Msg("operación de bon de sortie rechazada")
		}
		span.End()
	}
}
