package messaging

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jhoicas/Bodega-api/internal/application/stock"
	"github.com/jhoicas/Bodega-api/internal/domain/entity"
	"github.com/jhoicas/Bodega-api/pkg/logger"
)

var _ stock.EventPublisher = (*LogPublisher)(nil)

// LogPublisher escribe los eventos en el log. Se usa cuando Kafka está deshabilitado.
type LogPublisher struct {
	log zerolog.Logger
}

// NewLogPublisher construye el publicador.
func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) PublishMovements(ctx context.Context, movements []*entity.StockMovement) error {
	l := logger.WithContext(ctx, p.log)
	for _, m := range movements {
		l.Debug().
			Str("event_type", EventTypeMovementRecorded).
			Str("product_id", m.ProductID).
			Str("lot_id", m.LotID).
			Str("type", m.Type).
			Str("direction", m.Direction).
			Str("quantity", m.Quantity.String()).
			Str("reference", m.Reference).
			Int64("seq", m.Seq).
			Msg("movimiento registrado")
	}
	return nil
}

func (p *LogPublisher) PublishReorderAlert(ctx context.Context, alert stock.ReorderAlert) error {
	log := logger.WithContext(ctx, p.log)
	log.Warn().
		Str("event_type", EventTypeReorderBelow).
		Str("product_id", alert.ProductID).
		Str("reference", alert.Reference).
		Str("current_stock", alert.CurrentStock.String()).
		Str("reorder_point", alert.ReorderPoint.String()).
		Msg("producto bajo su umbral de reposición")
	return nil
}
