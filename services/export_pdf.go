package services

import (
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

var (
	pdfGray      = &props.Color{Red: 80, Green: 80, Blue: 80}
	pdfLightGray = &props.Color{Red: 140, Green: 140, Blue: 140}
)

// GeneratePDF renders a quotation with maroto and returns the PDF bytes.
func GeneratePDF(data ExportData) ([]byte, error) {
	cfg := config.NewBuilder().
		WithOrientation(orientation.Horizontal).
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).
		WithTopMargin(10).
		WithRightMargin(10).
		WithPageNumber(props.PageNumber{
			Pattern: "Página {current} de {total}",
			Place:   props.RightBottom,
			Size:    7,
			Color:   &props.Color{Red: 120, Green: 120, Blue: 120},
		}).
		Build()

	m := maroto.New(cfg)

	addHeader(m, data)
	addTableHeader(m)
	for i, r := range data.Rows {
		addTableRow(m, r, i%2 == 1)
	}
	addSummary(m, data.Totals)
	addFooter(m, data)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return doc.GetBytes(), nil
}

// addHeader adds the title, correlative, date and client block.
func addHeader(m core.Maroto, data ExportData) {
	m.AddRows(
		row.New(12).Add(
			col.New(12).Add(
				text.New(data.Title, props.Text{
					Size:  16,
					Style: fontstyle.Bold,
					Align: align.Center,
				}),
			),
		),
	)

	small := props.Text{Size: 9, Align: align.Left, Color: pdfGray}
	right := small
	right.Align = align.Right

	m.AddRows(
		row.New(6).Add(
			col.New(6).Add(text.New("Correlativo: "+data.Correlativo, small)),
			col.New(6).Add(text.New("Fecha: "+data.CreatedDate, right)),
		),
		row.New(6).Add(
			col.New(6).Add(text.New("Cliente: "+data.Proyecto.Cliente, small)),
			col.New(6).Add(text.New("Ingeniero: "+data.Proyecto.IngenieroEncargado, right)),
		),
	)
	if data.Proyecto.DireccionProyecto != "" {
		m.AddRows(row.New(6).Add(
			col.New(12).Add(text.New("Dirección: "+data.Proyecto.DireccionProyecto, small)),
		))
	}

	m.AddRows(row.New(4))
}

// pdfColumns is the 12-unit grid shared by header and body rows.
var pdfColumns = []struct {
	title string
	width int
	align align.Type
}{
	{"#", 1, align.Center},
	{"Código", 1, align.Left},
	{"Descripción", 3, align.Left},
	{"Unidad", 1, align.Center},
	{"Familia", 2, align.Left},
	{"Cantidad", 1, align.Right},
	{"Costo unit.", 1, align.Right},
	{"Total", 2, align.Right},
}

func addTableHeader(m core.Maroto) {
	headerCell := &props.Cell{BackgroundColor: &props.Color{Red: 33, Green: 37, Blue: 41}}

	r := row.New(8)
	for _, c := range pdfColumns {
		r.Add(col.New(c.width).Add(
			text.New(c.title, props.Text{
				Size:  8,
				Style: fontstyle.Bold,
				Align: c.align,
				Color: &props.Color{Red: 255, Green: 255, Blue: 255},
			}),
		).WithStyle(headerCell))
	}
	m.AddRows(r)
}

// addTableRow adds one material line. Alternate rows get a light band.
func addTableRow(m core.Maroto, r ExportRow, banded bool) {
	values := []string{
		fmt.Sprintf("%d", r.Index),
		r.Codigo,
		r.Nombre,
		r.Unidad,
		r.Familia,
		FormatCantidad(r.Cantidad),
		FormatMoneda(r.CostoUnitario),
		FormatMoneda(r.Total),
	}

	var cell *props.Cell
	if banded {
		cell = &props.Cell{BackgroundColor: &props.Color{Red: 245, Green: 245, Blue: 245}}
	}

	line := row.New(7)
	for i, c := range pdfColumns {
		column := col.New(c.width).Add(text.New(values[i], props.Text{Size: 7, Align: c.align}))
		if cell != nil {
			column = column.WithStyle(cell)
		}
		line.Add(column)
	}
	m.AddRows(line)
}

// addSummary adds cost, margin and grand total at the bottom.
func addSummary(m core.Maroto, totals QuotationTotals) {
	m.AddRows(row.New(6))

	summaryCell := &props.Cell{BackgroundColor: &props.Color{Red: 240, Green: 240, Blue: 240}}
	style := props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}

	lines := []struct{ label, value string }{
		{"Total costo", FormatMoneda(totals.TotalCosto)},
		{fmt.Sprintf("Margen (%s)", FormatPct(totals.MargenPct)), FormatMoneda(totals.Margen)},
		{"Total cotizado", FormatMoneda(totals.TotalCotizado)},
	}
	for _, l := range lines {
		m.AddRows(
			row.New(8).Add(
				col.New(8).Add(text.New(l.label, style)).WithStyle(summaryCell),
				col.New(4).Add(text.New(l.value, style)).WithStyle(summaryCell),
			),
		)
	}
}

func addFooter(m core.Maroto, data ExportData) {
	m.AddRows(row.New(6))
	m.AddRows(
		row.New(6).Add(
			col.New(12).Add(
				text.New(
					fmt.Sprintf("Generado el %s", data.CreatedDate),
					props.Text{Size: 7, Align: align.Left, Color: pdfLightGray},
				),
			),
		),
	)
}
