package stock

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/jhoicas/Bodega-api/internal/application/dto"
	"github.com/jhoicas/Bodega-api/internal/domain/inventory"
	"github.com/jhoicas/Bodega-api/internal/domain/repository"
	"github.com/jhoicas/Bodega-api/pkg/logger"
)

// ReorderReportUseCase genera la lista de reposición: productos bajo su umbral con la cantidad
// sugerida de pedido y el costo estimado al último precio de compra.
type ReorderReportUseCase struct {
	productRepo repository.ProductRepository
	events      EventPublisher
	clock       Clock
	log         zerolog.Logger
}

// NewReorderReportUseCase construye el caso de uso de reposición.
func NewReorderReportUseCase(productRepo repository.ProductRepository, events EventPublisher, clock Clock, log zerolog.Logger) *ReorderReportUseCase {
	if events == nil {
		events = NoopPublisher{}
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &ReorderReportUseCase{productRepo: productRepo, events: events, clock: clock, log: log}
}

// Generate devuelve las sugerencias ordenadas por déficit relativo (la más urgente primero).
func (uc *ReorderReportUseCase) Generate(ctx context.Context) ([]dto.ReorderSuggestionDTO, error) {
	rawItems, err := uc.productRepo.ListBelowReorderPoint(ctx)
	if err != nil {
		return nil, err
	}
	if len(rawItems) == 0 {
		return []dto.ReorderSuggestionDTO{}, nil
	}

	suggestions := make([]dto.ReorderSuggestionDTO, 0, len(rawItems))
	for _, item := range rawItems {
		suggestedQty := inventory.SuggestedOrderQty(item.CurrentStock, item.ReorderPoint)
		suggestions = append(suggestions, dto.ReorderSuggestionDTO{
			ProductID:          item.ProductID,
			Reference:          item.Reference,
			ProductName:        item.ProductName,
			UnitMeasure:        item.UnitMeasure,
			CurrentStock:       item.CurrentStock,
			ReorderPoint:       item.ReorderPoint,
			IdealStock:         item.CurrentStock.Add(suggestedQty),
			SuggestedOrderQty:  suggestedQty,
			LastUnitPrice:      item.LastUnitPrice,
			EstimatedOrderCost: suggestedQty.Mul(item.LastUnitPrice),
		})
	}

	// Mayor déficit relativo primero; a igualdad, mayor déficit absoluto.
	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		ra := a.ReorderPoint.Sub(a.CurrentStock).Div(a.ReorderPoint)
		rb := b.ReorderPoint.Sub(b.CurrentStock).Div(b.ReorderPoint)
		if !ra.Equal(rb) {
			return ra.GreaterThan(rb)
		}
		return a.ReorderPoint.Sub(a.CurrentStock).GreaterThan(b.ReorderPoint.Sub(b.CurrentStock))
	})

	for i := range suggestions {
		suggestions[i].Priority = i + 1
	}
	return suggestions, nil
}

// PublishAlerts emite una alerta de reposición por cada producto bajo su umbral.
// Devuelve cuántas alertas se publicaron.
func (uc *ReorderReportUseCase) PublishAlerts(ctx context.Context) (int, error) {
	items, err := uc.Generate(ctx)
	if err != nil {
		return 0, err
	}
	log := logger.WithContext(ctx, uc.log)
	now := uc.clock.Now()
	sent := 0
	for _, it := range items {
		alert := ReorderAlert{
			ProductID:    it.ProductID,
			Reference:    it.Reference,
			ProductName:  it.ProductName,
			CurrentStock: it.CurrentStock,
			ReorderPoint: it.ReorderPoint,
			Status:       inventory.ReorderBelowThreshold,
			DetectedAt:   now,
		}
		if err := uc.events.PublishReorderAlert(ctx, alert); err != nil {
			log.Error().Err(err).Str("product_id", it.ProductID).Msg("alerta de reposición no publicada")
			continue
		}
		sent++
	}
	log.Info().Int("below_threshold", len(items)).Int("published", sent).Msg("escaneo de reposición terminado")
	return sent, nil
}
