package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Bodega-api/internal/application/dto"
)

type fakeReconciler struct {
	reports []*dto.ReconcileReport
	err     error
}

func (f fakeReconciler) ReconcileAll(context.Context) ([]*dto.ReconcileReport, error) {
	return f.reports, f.err
}

type fakeAlerts struct{ calls int }

func (f *fakeAlerts) PublishAlerts(context.Context) (int, error) {
	f.calls++
	return 2, nil
}

func TestRegister(t *testing.T) {
	s := New(zerolog.Nop(), time.Second)
	require.NoError(t, s.Register(ReorderJob("@every 1h", &fakeAlerts{})))
	require.NoError(t, s.Register(ReconcileJob("0 2 * * *", fakeReconciler{})))

	assert.Equal(t, []string{JobReconcile, JobReorder}, s.Jobs())
	assert.Error(t, s.Register(ReorderJob("@every 1h", &fakeAlerts{})), "duplicada")
	assert.Error(t, s.Register(Job{Name: "mala", Schedule: "cada rato", Run: func(context.Context) error { return nil }}))
}

func TestRunNow(t *testing.T) {
	s := New(zerolog.Nop(), time.Second)
	alerts := &fakeAlerts{}
	require.NoError(t, s.Register(ReorderJob("@every 1h", alerts)))

	require.NoError(t, s.RunNow(context.Background(), JobReorder))
	assert.Equal(t, 1, alerts.calls)
	assert.Error(t, s.RunNow(context.Background(), "otra"))
}

func TestReconcileJob(t *testing.T) {
	ok := ReconcileJob("@daily", fakeReconciler{reports: []*dto.ReconcileReport{{Consistent: true}}})
	assert.NoError(t, ok.Run(context.Background()))

	drift := ReconcileJob("@daily", fakeReconciler{reports: []*dto.ReconcileReport{{Consistent: true}, {Consistent: false}}})
	assert.ErrorContains(t, drift.Run(context.Background()), "1 de 2")

	boom := errors.New("boom")
	failing := ReconcileJob("@daily", fakeReconciler{err: boom})
	assert.ErrorIs(t, failing.Run(context.Background()), boom)
}
