package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Bodega-api/internal/application/dto"
)

// Job tarea programada.
type Job struct {
	Name     string
	Schedule string
	Run      func(ctx context.Context) error
}

// Scheduler envuelve robfig/cron: una ejecución a la vez por tarea y recuperación de panics.
type Scheduler struct {
	c       *cron.Cron
	log     zerolog.Logger
	timeout time.Duration

	mu   sync.Mutex
	jobs map[string]Job
}

// New construye el scheduler. timeout acota cada ejecución (0 = sin límite).
func New(log zerolog.Logger, timeout time.Duration) *Scheduler {
	cl := cronLogger{log: log}
	return &Scheduler{
		c:       cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		log:     log,
		timeout: timeout,
		jobs:    make(map[string]Job),
	}
}

// Register agrega una tarea. Falla si el nombre se repite o la expresión es inválida.
func (s *Scheduler) Register(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.Name]; ok {
		return fmt.Errorf("scheduler: tarea duplicada %s", job.Name)
	}
	if _, err := s.c.AddFunc(job.Schedule, func() { _ = s.run(context.Background(), job) }); err != nil {
		return fmt.Errorf("scheduler: tarea %s (%q): %w", job.Name, job.Schedule, err)
	}
	s.jobs[job.Name] = job
	return nil
}

// RunNow ejecuta una tarea registrada de inmediato (CLI).
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("scheduler: tarea desconocida %s", name)
	}
	return s.run(ctx, job)
}

// Jobs nombres de las tareas registradas, ordenados.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for n := range s.jobs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Start arranca el scheduler en segundo plano.
func (s *Scheduler) Start() { s.c.Start() }

// Stop detiene el scheduler; el contexto devuelto termina cuando acaban las tareas en curso.
func (s *Scheduler) Stop() context.Context { return s.c.Stop() }

func (s *Scheduler) run(ctx context.Context, job Job) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	start := time.Now()
	err := job.Run(ctx)
	ev := s.log.Info()
	if err != nil {
		ev = s.log.Error().Err(err)
	}
	ev.Str("job", job.Name).Dur("elapsed", time.Since(start)).Msg("tarea programada ejecutada")
	return err
}

// Reconciler lo que necesita la tarea de reconciliación.
type Reconciler interface {
	ReconcileAll(ctx context.Context) ([]*dto.ReconcileReport, error)
}

// AlertPublisher lo que necesita la tarea de reposición.
type AlertPublisher interface {
	PublishAlerts(ctx context.Context) (int, error)
}

// Nombres de las tareas del ledger.
const (
	JobReconcile = "reconcile"
	JobReorder   = "reorder"
)

// ReconcileJob recorre todos los productos y falla si alguno tiene caché desalineado.
func ReconcileJob(schedule string, r Reconciler) Job {
	return Job{
		Name:     JobReconcile,
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			reports, err := r.ReconcileAll(ctx)
			if err != nil {
				return err
			}
			drifted := 0
			for _, rep := range reports {
				if !rep.Consistent {
					drifted++
				}
			}
			if drifted > 0 {
				return fmt.Errorf("reconciliación: %d de %d productos con diferencias", drifted, len(reports))
			}
			return nil
		},
	}
}

// ReorderJob publica una alerta por cada producto bajo su umbral.
func ReorderJob(schedule string, p AlertPublisher) Job {
	return Job{
		Name:     JobReorder,
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			_, err := p.PublishAlerts(ctx)
			return err
		},
	}
}

// cronLogger adapta zerolog a cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
