// Package pdf genera el documento imprimible del bon de sortie.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Almacén          │  N° Bon + Fecha                 │
//	│  ─────────────────────────────────────────────────────────  │
//	│  DESTINO: Atelier / Motivo / Confirmado                     │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Ref | Producto | Cant | Importe                     │
//	│         └ lote | cant | precio unitario                      │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTAL valorizado                                           │
//	│  FIRMAS: Magasinier / Chef d'atelier                        │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Bodega-api/internal/application/dto"
	"github.com/jhoicas/Bodega-api/internal/application/issuance"
)

var _ issuance.PDFGenerator = (*MarotoPDFGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoPDFGenerator implementa issuance.PDFGenerator usando Maroto v2.
type MarotoPDFGenerator struct {
	warehouse string
}

// NewMarotoPDFGenerator construye el generador. warehouse es el nombre impreso en la cabecera.
func NewMarotoPDFGenerator(warehouse string) *MarotoPDFGenerator {
	return &MarotoPDFGenerator{warehouse: nonEmpty(warehouse, "Magasin central")}
}

// GenerateIssuanceSlip genera el PDF del bon y devuelve sus bytes.
func (g *MarotoPDFGenerator) GenerateIssuanceSlip(slip dto.IssuanceResponse) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Bon de sortie "+slip.Number, true).
		WithAuthor(g.warehouse, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(g.warehouse, slip))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(destinationRow(slip))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	for _, ln := range slip.Lines {
		m.AddRows(lineRows(ln)...)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalRow(slip.TotalAmount))
	m.AddRows(row.New(12))
	m.AddRows(signatureRow())

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(warehouse string, slip dto.IssuanceResponse) core.Row {
	return row.New(18).Add(
		col.New(7).Add(
			text.New(warehouse, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Sortie de stock vers atelier", props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("BON DE SORTIE", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New(slip.Number, props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
			text.New("Date: "+slip.IssueDate.Format("02/01/2006"), props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

func destinationRow(slip dto.IssuanceResponse) core.Row {
	confirmed := "—"
	if slip.ConfirmedAt != nil {
		confirmed = slip.ConfirmedAt.Format("02/01/2006 15:04")
	}
	return row.New(14).Add(
		col.New(12).Add(
			text.New("DESTINATION", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(slip.Workshop, props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 6,
			}),
			text.New(fmt.Sprintf("Motif: %s   |   Confirmé le: %s   |   Statut: %s",
				nonEmpty(slip.Reason, "—"), confirmed, slip.Status,
			), props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("N°", 1, align.Center),
		h("Référence", 2, align.Left),
		h("Désignation", 4, align.Left),
		h("Quantité", 2, align.Right),
		h("Montant", 3, align.Right),
	)
}

// lineRows: la línea del bon seguida de una sub-fila por lote consumido.
func lineRows(ln dto.IssuanceLineResponse) []core.Row {
	name := nonEmpty(ln.ProductName, ln.ProductID)
	qty := ln.Quantity.String()
	if ln.UnitMeasure != "" {
		qty += " " + ln.UnitMeasure
	}
	rows := []core.Row{row.New(7).Add(
		col.New(1).Add(text.New(fmt.Sprint(ln.LineNo), props.Text{Size: 8, Align: align.Center, Top: 1})),
		col.New(2).Add(text.New(nonEmpty(ln.ProductReference, "—"), props.Text{Size: 8, Top: 1, Left: 1})),
		col.New(4).Add(text.New(name, props.Text{Size: 8, Top: 1, Left: 1})),
		col.New(2).Add(text.New(qty, props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		col.New(3).Add(text.New(formatMoney(ln.Amount), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
	)}
	for _, d := range ln.Draws {
		rows = append(rows, row.New(5).Add(
			col.New(3),
			col.New(4).Add(text.New("lot "+d.LotNumber, props.Text{Size: 7, Top: 0.5, Left: 3, Color: colorGray})),
			col.New(2).Add(text.New(d.Quantity.String(), props.Text{Size: 7, Align: align.Right, Top: 0.5, Right: 1, Color: colorGray})),
			col.New(3).Add(text.New("à "+formatMoney(d.UnitPrice), props.Text{Size: 7, Align: align.Right, Top: 0.5, Right: 1, Color: colorGray})),
		))
	}
	return rows
}

func totalRow(total decimal.Decimal) core.Row {
	return row.New(10).Add(
		col.New(6),
		col.New(3).Add(text.New("TOTAL VALORISÉ:", props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 2, Top: 2,
		})),
		col.New(3).Add(text.New(formatMoney(total), props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 1, Top: 2,
		})),
	)
}

func signatureRow() core.Row {
	sig := func(label string) core.Col {
		return col.New(6).Add(
			text.New(label, props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Center}),
			text.New("____________________________", props.Text{Size: 8, Align: align.Center, Top: 14, Color: colorGray}),
		)
	}
	return row.New(22).Add(sig("Magasinier"), sig("Chef d'atelier"))
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// formatMoney dos decimales con separador de miles.
// Ej: 25000 → "25.000,00", 1234.5 → "1.234,50"
func formatMoney(d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")
	n := len(intPart)
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(intPart) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return sign + string(buf) + "," + frac
}
