// Package pdf genera el reporte PDF del listado de documentos tributarios.
//
// Layout de la página A4 apaisada:
//
//	┌──────────────────────────────────────────────────────────────────┐
//	│  HEADER: título del reporte          │  fecha de emisión / total  │
//	│  ──────────────────────────────────────────────────────────────  │
//	│  TABLA: Fecha | Tipo | Folio | RUT | Razón social | Total | Estado │
//	│  ──────────────────────────────────────────────────────────────  │
//	│  TOTALES: cantidad por estado / suma de totales                    │
//	└──────────────────────────────────────────────────────────────────┘
package pdf

import (
	"fmt"
	"sort"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/sgidt-documentos/internal/application/documents"
	"github.com/jhoicas/sgidt-documentos/internal/domain/entity"
	"github.com/jhoicas/sgidt-documentos/pkg/clfmt"
)

var _ documents.ReportGenerator = (*MarotoPDFGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorSuccess = &props.Color{Red: 25, Green: 135, Blue: 84}
	colorWarning = &props.Color{Red: 180, Green: 120, Blue: 0}
	colorError   = &props.Color{Red: 190, Green: 30, Blue: 45}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoPDFGenerator implementa documents.ReportGenerator usando Maroto v2.
type MarotoPDFGenerator struct {
	empresa string
	now     func() time.Time
}

// NewMarotoPDFGenerator construye el generador; empresa aparece como autor del PDF.
func NewMarotoPDFGenerator(empresa string) *MarotoPDFGenerator {
	return &MarotoPDFGenerator{empresa: empresa, now: time.Now}
}

// GenerateDocumentReport genera el PDF y devuelve sus bytes.
func (g *MarotoPDFGenerator) GenerateDocumentReport(title string, docs []*entity.Document) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithOrientation(orientation.Horizontal).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 8}).
		WithTitle(title, true).
		WithAuthor(g.empresa, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(title, g.now(), len(docs)))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(tableHeaderRow())
	m.AddRows(tableRows(docs)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRows(docs)...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar reporte: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(title string, now time.Time, n int) core.Row {
	return row.New(16).Add(
		col.New(8).Add(
			text.New(title, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
		),
		col.New(4).Add(
			text.New("Emitido: "+now.Format("02-01-2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 2, Color: colorGray,
			}),
			text.New(resultLabel(n), props.Text{
				Style: fontstyle.Bold, Size: 9, Align: align.Right, Top: 8,
			}),
		),
	)
}

func resultLabel(n int) string {
	switch n {
	case 0:
		return "Sin resultados"
	case 1:
		return "1 resultado"
	default:
		return fmt.Sprintf("%d resultados", n)
	}
}

type column struct {
	label string
	size  int
	align align.Type
}

var columns = []column{
	{"Fecha", 1, align.Left},
	{"Tipo", 2, align.Left},
	{"Folio", 1, align.Left},
	{"RUT proveedor", 2, align.Left},
	{"Razón social", 3, align.Left},
	{"Total", 2, align.Right},
	{"Estado", 1, align.Center},
}

func tableHeaderRow() core.Row {
	cols := make([]core.Col, 0, len(columns))
	for _, c := range columns {
		cols = append(cols, col.New(c.size).Add(text.New(c.label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: c.align, Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		})))
	}
	return row.New(8).Add(cols...)
}

func tableRows(docs []*entity.Document) []core.Row {
	rows := make([]core.Row, 0, len(docs))
	for _, d := range docs {
		fecha := clfmt.Placeholder
		if d.FechaEmision != nil {
			fecha = clfmt.Date(*d.FechaEmision)
		}
		var total *decimal.Decimal
		if d.Total.Valid {
			total = &d.Total.Decimal
		}
		values := []string{
			fecha,
			clfmt.OrDash(d.TipoDocumento),
			clfmt.OrDash(d.Folio),
			clfmt.OrDash(d.RutProveedor),
			clfmt.OrDash(d.RazonSocialProveedor),
			clfmt.Money(total),
			string(d.Estado),
		}
		cols := make([]core.Col, 0, len(columns))
		for i, c := range columns {
			p := props.Text{Size: 8, Align: c.align, Top: 1, Left: 1, Right: 1}
			if i == len(columns)-1 {
				p.Style = fontstyle.Bold
				p.Color = badgeColor(d.Estado)
			}
			cols = append(cols, col.New(c.size).Add(text.New(values[i], p)))
		}
		rows = append(rows, row.New(6).Add(cols...))
	}
	return rows
}

func badgeColor(e entity.Estado) *props.Color {
	switch e.Badge() {
	case "success":
		return colorSuccess
	case "warning":
		return colorWarning
	default:
		return colorError
	}
}

func totalsRows(docs []*entity.Document) []core.Row {
	porEstado := map[string]int{}
	sum := decimal.Zero
	for _, d := range docs {
		porEstado[string(d.Estado)]++
		if d.Total.Valid {
			sum = sum.Add(d.Total.Decimal)
		}
	}
	estados := make([]string, 0, len(porEstado))
	for e := range porEstado {
		estados = append(estados, e)
	}
	sort.Strings(estados)

	var rows []core.Row
	for _, e := range estados {
		rows = append(rows, row.New(5).Add(
			col.New(9),
			col.New(2).Add(text.New(e+":", props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right, Right: 2})),
			col.New(1).Add(text.New(fmt.Sprintf("%d", porEstado[e]), props.Text{Size: 8, Align: align.Right, Right: 1})),
		))
	}
	rows = append(rows, row.New(7).Add(
		col.New(9),
		col.New(2).Add(text.New("TOTAL:", props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 2, Top: 1})),
		col.New(1).Add(text.New(clfmt.Money(&sum), props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 1, Top: 1})),
	))
	return rows
}
