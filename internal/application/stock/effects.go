package stock

import (
	"sort"

	"github.com/jhoicas/Bodega-api/internal/domain/entity"
)

// Effects hechos de una transacción confirmada que se propagan después del commit
// (caché, eventos, señal de reposición). Se reconstruye en cada intento de la transacción.
type Effects struct {
	products  map[string]*entity.Product
	decreased map[string]bool
	movements []*entity.StockMovement
}

// NewEffects crea un acumulador vacío.
func NewEffects() *Effects {
	return &Effects{
		products:  make(map[string]*entity.Product),
		decreased: make(map[string]bool),
	}
}

func (e *Effects) add(p *entity.Product, decreased bool, movs ...*entity.StockMovement) {
	c := *p
	e.products[p.ID] = &c
	if decreased {
		e.decreased[p.ID] = true
	}
	e.movements = append(e.movements, movs...)
}

// AddAllocation registra una asignación hecha con AllocateInTx.
func (e *Effects) AddAllocation(a *Allocation) {
	e.add(a.Product, true, a.Movements...)
}

// Products snapshots posteriores a la operación, por ID ascendente.
func (e *Effects) Products() []*entity.Product {
	out := make([]*entity.Product, 0, len(e.products))
	for _, p := range e.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Movements movimientos agregados en la transacción, en orden de escritura.
func (e *Effects) Movements() []*entity.StockMovement { return e.movements }
