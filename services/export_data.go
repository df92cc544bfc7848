package services

import (
	"sort"

	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
)

// ExportRow is one priced material line of a quotation export.
type ExportRow struct {
	Index         int
	Codigo        string
	Nombre        string
	Unidad        string
	Familia       string
	Cantidad      decimal.Decimal
	CostoUnitario decimal.Decimal
	Total         decimal.Decimal
}

// ExportData holds everything the Excel and PDF writers render.
type ExportData struct {
	Title       string
	Correlativo string
	CreatedDate string
	Proyecto    ProyectoDatos
	Rows        []ExportRow
	Totals      QuotationTotals
}

// NewExportData lays out a quotation's materials grouped by family, then
// code. Codes missing from the catalog keep their code as description.
func NewExportData(record *core.Record, datos *CotizacionDatos, catalog *Catalog) ExportData {
	data := ExportData{
		Title:       record.GetString("nombre"),
		Correlativo: record.GetString("correlativo"),
		CreatedDate: record.GetDateTime("created").Time().Format("2006-01-02"),
		Proyecto:    datos.ProyectoDatos,
		Totals:      CalcQuotationTotals(datos.Materiales, catalog),
		Rows:        make([]ExportRow, 0, len(datos.Materiales)),
	}

	for code, m := range datos.Materiales {
		row := ExportRow{
			Codigo:        code,
			Nombre:        code,
			Cantidad:      m.Cantidad,
			CostoUnitario: m.CostoUnitario,
			Total:         m.Total(),
		}
		if mat, ok := catalog.Material(code); ok {
			row.Nombre = mat.Nombre
			row.Unidad = mat.Unidad
			row.Familia = mat.Familia
		}
		data.Rows = append(data.Rows, row)
	}
	sort.Slice(data.Rows, func(i, j int) bool {
		a, b := data.Rows[i], data.Rows[j]
		if a.Familia != b.Familia {
			return a.Familia < b.Familia
		}
		return a.Codigo < b.Codigo
	})
	for i := range data.Rows {
		data.Rows[i].Index = i + 1
	}
	return data
}

// BuildExportData loads a quotation and the current catalog for export.
func BuildExportData(app core.App, cotizacionID string) (ExportData, error) {
	record, datos, err := LoadCotizacionDatos(app, cotizacionID)
	if err != nil {
		return ExportData{}, err
	}
	catalog, err := LoadCatalog(app)
	if err != nil {
		return ExportData{}, err
	}
	return NewExportData(record, datos, catalog), nil
}
