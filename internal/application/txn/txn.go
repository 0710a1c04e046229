package txn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/Bodega-api/internal/domain"
	"github.com/jhoicas/Bodega-api/internal/domain/repository"
	"github.com/jhoicas/Bodega-api/pkg/logger"
)

var tracer = otel.Tracer("bodega/txn")

// Func cuerpo de una transacción. Todo lo escrito a través de tx se confirma o se descarta en bloque.
type Func func(ctx context.Context, tx repository.TxRepos) error

// Runner ejecuta fn dentro de una transacción del almacén (Begin, Commit o Rollback).
// Las implementaciones traducen errores del driver a los sentinelas de domain.
type Runner interface {
	Run(ctx context.Context, fn Func) error
}

// Policy límites de reintento de una transacción.
type Policy struct {
	MaxAttempts int           // >= 1
	Timeout     time.Duration // por intento; 0 = sin límite propio
	Backoff     time.Duration // espera lineal: Backoff * intento
}

// DefaultPolicy valores usados cuando la configuración no define otros.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, Timeout: 5 * time.Second, Backoff: 50 * time.Millisecond}
}

// RetryRunner decora un Runner: cada intento corre con su propio timeout y los errores
// reintentables (conflicto de concurrencia, timeout) se reintentan hasta MaxAttempts.
type RetryRunner struct {
	inner   Runner
	policy  Policy
	log     zerolog.Logger
	onRetry func(attempt int, err error)
}

// NewRetryRunner construye el decorador. onRetry puede ser nil.
func NewRetryRunner(inner Runner, policy Policy, log zerolog.Logger, onRetry func(attempt int, err error)) *RetryRunner {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &RetryRunner{inner: inner, policy: policy, log: log, onRetry: onRetry}
}

// Run ejecuta fn con reintentos. El error final conserva el sentinela del último intento.
func (r *RetryRunner) Run(ctx context.Context, fn Func) error {
	var err error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		err = r.attempt(ctx, attempt, fn)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			// El caller abandonó: no se reintenta.
			return fmt.Errorf("%w: %w", mapContextErr(ctx.Err()), err)
		}
		if !domain.IsRetryable(err) || attempt == r.policy.MaxAttempts {
			break
		}
		if r.onRetry != nil {
			r.onRetry(attempt, err)
		}
		log := logger.WithContext(ctx, r.log)
		log.Warn().Err(err).Int("attempt", attempt).Msg("transacción reintentada")
		if err := sleep(ctx, r.policy.Backoff*time.Duration(attempt)); err != nil {
			return err
		}
	}
	if domain.IsRetryable(err) && r.policy.MaxAttempts > 1 {
		return fmt.Errorf("agotados %d intentos: %w", r.policy.MaxAttempts, err)
	}
	return err
}

func (r *RetryRunner) attempt(ctx context.Context, n int, fn Func) error {
	ctx, span := tracer.Start(ctx, "txn.attempt", trace.WithAttributes(attribute.Int("txn.attempt", n)))
	defer span.End()

	if r.policy.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.policy.Timeout)
		defer cancel()
	}

	err := r.inner.Run(ctx, fn)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrTimeout) {
		err = fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func mapContextErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrTimeout
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return mapContextErr(ctx.Err())
	}
}
