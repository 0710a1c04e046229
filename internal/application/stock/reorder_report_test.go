package stock_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Bodega-api/internal/application/stock"
	"github.com/jhoicas/Bodega-api/internal/domain/inventory"
)

func TestReorderReport_SugerenciasYAlertas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	gants := f.product(t, "GANTS", 10)
	f.receive(t, gants.ID, "L1", 4, 2, day1)
	f.receive(t, gants.ID, "L2", 3, 5, day2) // último precio: 5
	casques := f.product(t, "CASQUES", 20)
	f.receive(t, casques.ID, "L1", 19, 30, day1)
	ok := f.product(t, "VIS", 5)
	f.receive(t, ok.ID, "L1", 8, 1, day1)

	uc := stock.NewReorderReportUseCase(f.store.Repos().Products, f.events, fixedClock{t: day2}, zerolog.Nop())
	items, err := uc.Generate(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)

	// GANTS: 7/10 (30 % de déficit) antes que CASQUES: 19/20 (5 %).
	assert.Equal(t, "GANTS", items[0].Reference)
	assert.Equal(t, 1, items[0].Priority)
	assert.True(t, items[0].SuggestedOrderQty.Equal(q(8)), "15 - 7")
	assert.True(t, items[0].LastUnitPrice.Equal(q(5)))
	assert.True(t, items[0].EstimatedOrderCost.Equal(q(40)))
	assert.Equal(t, "CASQUES", items[1].Reference)

	sent, err := uc.PublishAlerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	require.Len(t, f.events.alerts, 2)
	assert.Equal(t, inventory.ReorderBelowThreshold, f.events.alerts[0].Status)
}
