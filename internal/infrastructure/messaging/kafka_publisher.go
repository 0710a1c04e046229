package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/Bodega-api/internal/application/stock"
	"github.com/jhoicas/Bodega-api/internal/domain/entity"
	"github.com/jhoicas/Bodega-api/pkg/config"
	"github.com/jhoicas/Bodega-api/pkg/logger"
)

var _ stock.EventPublisher = (*KafkaPublisher)(nil)

var tracer = otel.Tracer("bodega/kafka-publisher")

// KafkaPublisher publica movimientos confirmados y alertas de reposición.
// La clave del mensaje es el ID de producto: los eventos de un producto conservan su orden.
type KafkaPublisher struct {
	producer       sarama.SyncProducer
	movementsTopic string
	reorderTopic   string
	log            zerolog.Logger
}

// NewSyncProducer crea el productor sarama con acks de todas las réplicas.
func NewSyncProducer(brokers []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.Retry.Max = 3
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	cfg.Producer.Compression = sarama.CompressionSnappy

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("crear productor Kafka: %w", err)
	}
	return producer, nil
}

// NewKafkaPublisher construye el publicador sobre un productor ya creado.
func NewKafkaPublisher(producer sarama.SyncProducer, cfg config.KafkaConfig, log zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		producer:       producer,
		movementsTopic: cfg.MovementsTopic,
		reorderTopic:   cfg.ReorderTopic,
		log:            log,
	}
}

// PublishMovements envía un mensaje por movimiento en un solo lote.
func (p *KafkaPublisher) PublishMovements(ctx context.Context, movements []*entity.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}
	ctx, span := p.startSpan(ctx, p.movementsTopic, EventTypeMovementRecorded,
		attribute.Int("messaging.batch.message_count", len(movements)))
	defer span.End()

	now := time.Now().UTC()
	msgs := make([]*sarama.ProducerMessage, 0, len(movements))
	for _, m := range movements {
		ev := newMovementEvent(m, now)
		msg, err := p.message(ctx, p.movementsTopic, m.ProductID, ev.EventType, ev.EventID, ev)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "marshal")
			return err
		}
		msgs = append(msgs, msg)
	}
	if err := p.producer.SendMessages(msgs); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send")
		return fmt.Errorf("publicar movimientos: %w", err)
	}
	log := logger.WithContext(ctx, p.log)
	log.Debug().
		Str("topic", p.movementsTopic).
		Int("count", len(msgs)).
		Msg("movimientos publicados")
	return nil
}

// PublishReorderAlert envía la alerta de un producto bajo su umbral.
func (p *KafkaPublisher) PublishReorderAlert(ctx context.Context, alert stock.ReorderAlert) error {
	ctx, span := p.startSpan(ctx, p.reorderTopic, EventTypeReorderBelow,
		attribute.String("product.id", alert.ProductID))
	defer span.End()

	eventID := fmt.Sprintf("evt_%s_%d", alert.ProductID, alert.DetectedAt.UnixNano())
	msg, err := p.message(ctx, p.reorderTopic, alert.ProductID, EventTypeReorderBelow, eventID, alert)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "marshal")
		return err
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send")
		return fmt.Errorf("publicar alerta de reposición: %w", err)
	}
	span.SetAttributes(
		attribute.Int("messaging.kafka.partition", int(partition)),
		attribute.Int64("messaging.kafka.offset", offset),
	)
	log := logger.WithContext(ctx, p.log)
	log.Info().
		Str("topic", p.reorderTopic).
		Str("product_id", alert.ProductID).
		Str("current_stock", alert.CurrentStock.String()).
		Msg("alerta de reposición publicada")
	return nil
}

// Close cierra el productor.
func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

func (p *KafkaPublisher) startSpan(ctx context.Context, topic, eventType string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	base := []attribute.KeyValue{
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination", topic),
		attribute.String("event.type", eventType),
	}
	return tracer.Start(ctx, "kafka.publish."+eventType,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(append(base, attrs...)...),
	)
}

// message serializa payload e inyecta el contexto de traza en las cabeceras.
func (p *KafkaPublisher) message(ctx context.Context, topic, key, eventType, eventID string, payload any) (*sarama.ProducerMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("serializar %s: %w", eventType, err)
	}
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	headers := []sarama.RecordHeader{
		{Key: []byte("event_type"), Value: []byte(eventType)},
		{Key: []byte("event_id"), Value: []byte(eventID)},
	}
	for k, v := range carrier {
		headers = append(headers, sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
	}
	return &sarama.ProducerMessage{
		Topic:   topic,
		Key:     sarama.StringEncoder(key),
		Value:   sarama.ByteEncoder(body),
		Headers: headers,
	}, nil
}
