package services

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Cotizacion"

// exportHeaderRow is the row holding column headers; data follows it.
const exportHeaderRow = 7

// GenerateExcel renders a quotation as a single-sheet workbook and returns
// the file contents.
func GenerateExcel(data ExportData) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}
	sheet := exportSheet

	columns := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	lastCol := columns[len(columns)-1]

	widths := []float64{6, 16, 42, 8, 16, 12, 16, 18}
	for i, col := range columns {
		if err := f.SetColWidth(sheet, col, col, widths[i]); err != nil {
			return nil, fmt.Errorf("set col width %s: %w", col, err)
		}
	}

	// ── Styles ──────────────────────────────────────────────────────────

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 16},
	})
	if err != nil {
		return nil, fmt.Errorf("create title style: %w", err)
	}

	subtitleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Size: 11},
	})
	if err != nil {
		return nil, fmt.Errorf("create subtitle style: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#333333"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	textStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Size: 10},
		Border: thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create text style: %w", err)
	}

	// Built-in format 4 is "#,##0.00".
	numberStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Size: 10},
		Border: thinBorders(),
		NumFmt: 4,
	})
	if err != nil {
		return nil, fmt.Errorf("create number style: %w", err)
	}

	summaryLabelStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Alignment: &excelize.Alignment{Horizontal: "right"},
	})
	if err != nil {
		return nil, fmt.Errorf("create summary label style: %w", err)
	}

	summaryValueStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Size: 11},
		NumFmt: 4,
	})
	if err != nil {
		return nil, fmt.Errorf("create summary value style: %w", err)
	}

	// ── Header block (rows 1-5) ─────────────────────────────────────────

	header := []struct {
		value string
		style int
	}{
		{data.Title, titleStyle},
		{"Correlativo: " + data.Correlativo, subtitleStyle},
		{"Fecha: " + data.CreatedDate, subtitleStyle},
		{"Cliente: " + data.Proyecto.Cliente, subtitleStyle},
		{"Dirección: " + data.Proyecto.DireccionProyecto, subtitleStyle},
	}
	for i, h := range header {
		first := fmt.Sprintf("A%d", i+1)
		last := fmt.Sprintf("%s%d", lastCol, i+1)
		if err := f.MergeCell(sheet, first, last); err != nil {
			return nil, fmt.Errorf("merge header row %d: %w", i+1, err)
		}
		f.SetCellValue(sheet, first, sanitizeExcelCell(h.value))
		f.SetCellStyle(sheet, first, last, h.style)
	}

	// ── Column headers ──────────────────────────────────────────────────

	headers := []string{"#", "Código", "Descripción", "Unidad", "Familia", "Cantidad", "Costo unitario", "Total"}
	for i, h := range headers {
		f.SetCellValue(sheet, fmt.Sprintf("%s%d", columns[i], exportHeaderRow), h)
	}
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", exportHeaderRow), fmt.Sprintf("%s%d", lastCol, exportHeaderRow), headerStyle)

	// ── Data rows ───────────────────────────────────────────────────────

	row := exportHeaderRow + 1
	for _, r := range data.Rows {
		rowStr := fmt.Sprintf("%d", row)

		f.SetCellValue(sheet, "A"+rowStr, r.Index)
		f.SetCellValue(sheet, "B"+rowStr, sanitizeExcelCell(r.Codigo))
		f.SetCellValue(sheet, "C"+rowStr, sanitizeExcelCell(r.Nombre))
		f.SetCellValue(sheet, "D"+rowStr, sanitizeExcelCell(r.Unidad))
		f.SetCellValue(sheet, "E"+rowStr, sanitizeExcelCell(r.Familia))
		f.SetCellStyle(sheet, "A"+rowStr, "E"+rowStr, textStyle)

		f.SetCellValue(sheet, "F"+rowStr, r.Cantidad.InexactFloat64())
		f.SetCellValue(sheet, "G"+rowStr, r.CostoUnitario.InexactFloat64())
		f.SetCellValue(sheet, "H"+rowStr, r.Total.InexactFloat64())
		f.SetCellStyle(sheet, "F"+rowStr, lastCol+rowStr, numberStyle)

		row++
	}

	// ── Summary rows ────────────────────────────────────────────────────

	row++
	summary := []struct {
		label string
		value float64
	}{
		{"Total costo:", data.Totals.TotalCosto.InexactFloat64()},
		{fmt.Sprintf("Margen (%s):", FormatPct(data.Totals.MargenPct)), data.Totals.Margen.InexactFloat64()},
		{"Total cotizado:", data.Totals.TotalCotizado.InexactFloat64()},
	}
	for _, s := range summary {
		rowStr := fmt.Sprintf("%d", row)
		f.SetCellValue(sheet, "G"+rowStr, s.label)
		f.SetCellStyle(sheet, "G"+rowStr, "G"+rowStr, summaryLabelStyle)
		f.SetCellValue(sheet, "H"+rowStr, s.value)
		f.SetCellStyle(sheet, "H"+rowStr, "H"+rowStr, summaryValueStyle)
		row++
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

// sanitizeExcelCell prevents formula injection by prefixing dangerous leading
// characters with a single quote. Excel interprets cells starting with =, +, -,
// @, \t or \r as formulas, which can be abused for code execution or data theft.
func sanitizeExcelCell(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r', '|':
		return "'" + s
	}
	return s
}

// thinBorders returns a slice of excelize.Border for thin borders on all four sides.
func thinBorders() []excelize.Border {
	sides := []string{"left", "top", "bottom", "right"}
	borders := make([]excelize.Border, len(sides))
	for i, side := range sides {
		borders[i] = excelize.Border{
			Type:  side,
			Color: "#000000",
			Style: 1, // thin
		}
	}
	return borders
}
