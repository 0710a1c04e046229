// Package app arma el grafo de dependencias compartido por la API y stockctl.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Bodega-api/internal/application/issuance"
	"github.com/jhoicas/Bodega-api/internal/application/stock"
	"github.com/jhoicas/Bodega-api/internal/application/txn"
	"github.com/jhoicas/Bodega-api/internal/application/usecase"
	"github.com/jhoicas/Bodega-api/internal/domain/repository"
	"github.com/jhoicas/Bodega-api/internal/infrastructure/cache"
	"github.com/jhoicas/Bodega-api/internal/infrastructure/memory"
	"github.com/jhoicas/Bodega-api/internal/infrastructure/messaging"
	"github.com/jhoicas/Bodega-api/internal/infrastructure/metrics"
	infrapdf "github.com/jhoicas/Bodega-api/internal/infrastructure/pdf"
	"github.com/jhoicas/Bodega-api/internal/infrastructure/postgres"
	"github.com/jhoicas/Bodega-api/internal/infrastructure/scheduler"
	"github.com/jhoicas/Bodega-api/pkg/config"
	"github.com/jhoicas/Bodega-api/pkg/tracing"
)

// Container casos de uso listos para usar y los recursos que hay que cerrar al salir.
type Container struct {
	Config   *config.Config
	Log      zerolog.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.LedgerMetrics
	Runner   txn.Runner
	Repos    repository.TxRepos
	Ledger   *stock.Ledger
	Products *usecase.ProductUseCase
	Reorder  *stock.ReorderReportUseCase
	Issuance *issuance.UseCase

	closers []func(context.Context) error
}

// storage runner transaccional más repositorios en autocommit.
type storage interface {
	txn.Runner
	Repos() repository.TxRepos
}

// Build conecta almacén, caché, eventos, métricas y trazas según la configuración.
// Ante un error libera lo que ya se había abierto.
func Build(ctx context.Context, cfg *config.Config, log zerolog.Logger) (_ *Container, err error) {
	c := &Container{Config: cfg, Log: log}
	defer func() {
		if err != nil {
			_ = c.Close(context.WithoutCancel(ctx))
		}
	}()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, shutdownTracing)

	c.Registry = prometheus.NewRegistry()
	c.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	c.Metrics = metrics.NewLedgerMetrics(c.Registry)

	var store storage
	switch cfg.Storage.Driver {
	case "memory":
		log.Warn().Msg("almacén en memoria: los datos se pierden al reiniciar")
		store = memory.NewStore()
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		c.closers = append(c.closers, func(context.Context) error { pool.Close(); return nil })
		store = postgres.NewTxRunner(pool, cfg.Stock.LockTimeout)
	}
	c.Repos = store.Repos()
	c.Runner = txn.NewRetryRunner(store, txn.Policy{
		MaxAttempts: cfg.Stock.MaxAttempts,
		Timeout:     cfg.Stock.TxTimeout,
		Backoff:     cfg.Stock.RetryBackoff,
	}, log, func(_ int, err error) { c.Metrics.ObserveRetry(stock.Outcome(err)) })

	opts := []stock.Option{
		stock.WithLogger(log),
		stock.WithMetrics(c.Metrics),
	}

	if cfg.Redis.Enabled {
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, func(context.Context) error { return client.Close() })
		opts = append(opts, stock.WithCache(cache.NewRedisStockCache(client, cfg.Redis.TTL)))
	}

	var events stock.EventPublisher = messaging.NewLogPublisher(log)
	if cfg.Kafka.Enabled {
		producer, err := messaging.NewSyncProducer(cfg.Kafka.Brokers)
		if err != nil {
			return nil, err
		}
		kp := messaging.NewKafkaPublisher(producer, cfg.Kafka, log)
		c.closers = append(c.closers, func(context.Context) error { return kp.Close() })
		events = kp
	}
	opts = append(opts, stock.WithPublisher(events))

	clock := stock.SystemClock{}
	c.Ledger = stock.NewLedger(c.Runner, c.Repos, opts...)
	c.Products = usecase.NewProductUseCase(c.Repos.Products)
	c.Reorder = stock.NewReorderReportUseCase(c.Repos.Products, events, clock, log)
	c.Issuance = issuance.NewUseCase(c.Runner, c.Repos, c.Ledger,
		infrapdf.NewMarotoPDFGenerator(cfg.App.Warehouse), clock, c.Metrics, log)
	return c, nil
}

// Scheduler tareas de conciliación y reposición con los horarios configurados.
func (c *Container) Scheduler() (*scheduler.Scheduler, error) {
	s := scheduler.New(c.Log, c.Config.Stock.TxTimeout*10)
	if err := s.Register(scheduler.ReconcileJob(c.Config.Cron.ReconcileSchedule, c.Ledger)); err != nil {
		return nil, err
	}
	if err := s.Register(scheduler.ReorderJob(c.Config.Cron.ReorderSchedule, c.Reorder)); err != nil {
		return nil, err
	}
	return s, nil
}

// Close libera los recursos en orden inverso a su apertura.
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
