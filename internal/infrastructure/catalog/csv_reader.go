// Package catalog lee catálogos de productos exportados desde hojas de cálculo.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/Bodega-api/internal/application/dto"
)

// Encabezados reconocidos (sin distinguir mayúsculas). reference y name son obligatorios.
var columns = []string{"reference", "name", "description", "category", "unit_measure", "reorder_point"}

// Options formato del archivo.
type Options struct {
	Latin1    bool // ISO-8859-1 (exportaciones de Excel en francés/español)
	Separator rune // 0 = autodetectar entre ';' y ','
}

// RowError fila rechazada; la lectura continúa con las demás.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string { return fmt.Sprintf("línea %d: %v", e.Line, e.Err) }

// ReadProducts convierte el CSV en solicitudes de alta. Devuelve las filas válidas y los errores por fila.
func ReadProducts(r io.Reader, opts Options) ([]dto.CreateProductRequest, []RowError, error) {
	if opts.Latin1 {
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("catalog: leer: %w", err)
	}
	text := strings.TrimPrefix(string(raw), "\uFEFF")

	cr := csv.NewReader(strings.NewReader(text))
	cr.Comma = opts.Separator
	if cr.Comma == 0 {
		cr.Comma = detectSeparator(text)
	}
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("catalog: archivo vacío")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("catalog: encabezado: %w", err)
	}
	idx, err := indexHeader(header)
	if err != nil {
		return nil, nil, err
	}

	var (
		out     []dto.CreateProductRequest
		rowErrs []RowError
	)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Err: err})
			continue
		}
		if blank(rec) {
			continue
		}
		req, err := toRequest(rec, idx)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Err: err})
			continue
		}
		out = append(out, req)
	}
	return out, rowErrs, nil
}

func detectSeparator(text string) rune {
	first, _, _ := strings.Cut(text, "\n")
	if strings.Count(first, ";") > strings.Count(first, ",") {
		return ';'
	}
	return ','
}

func indexHeader(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range columns[:2] {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("catalog: falta la columna %q", required)
		}
	}
	return idx, nil
}

func toRequest(rec []string, idx map[string]int) (dto.CreateProductRequest, error) {
	field := func(name string) string {
		i, ok := idx[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	req := dto.CreateProductRequest{
		Reference:   field("reference"),
		Name:        field("name"),
		Description: field("description"),
		Category:    field("category"),
		UnitMeasure: field("unit_measure"),
	}
	if req.Reference == "" || req.Name == "" {
		return req, fmt.Errorf("reference y name son obligatorios")
	}
	if s := field("reorder_point"); s != "" {
		// Coma decimal en exportaciones europeas.
		d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
		if err != nil {
			return req, fmt.Errorf("reorder_point %q: %w", s, err)
		}
		req.ReorderPoint = d
	}
	return req, nil
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
