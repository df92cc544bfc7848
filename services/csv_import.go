package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ImportKind selects which catalog table a file loads.
type ImportKind string

const (
	ImportMateriales     ImportKind = "materiales"
	ImportEquipos        ImportKind = "equipos"
	ImportReglasEquipo   ImportKind = "reglas-em"
	ImportReglasMaterial ImportKind = "reglas-mm"
)

// ImportKinds lists the kinds in CLI order.
var ImportKinds = []ImportKind{ImportMateriales, ImportEquipos, ImportReglasEquipo, ImportReglasMaterial}

// importColumns is the positional column layout of each kind.
var importColumns = map[ImportKind][]string{
	ImportMateriales:     {"codigo", "nombre", "unidad", "familia", "sistema", "costo_unitario"},
	ImportEquipos:        {"nombre", "modelo", "descripcion", "sistema", "capacidad", "mca", "mfa"},
	ImportReglasEquipo:   {"cantidad", "equipo", "material"},
	ImportReglasMaterial: {"cantidad", "material_origen", "material"},
}

var requiredColumns = map[ImportKind][]string{
	ImportMateriales:     {"codigo", "nombre"},
	ImportEquipos:        {"nombre", "modelo"},
	ImportReglasEquipo:   {"cantidad", "equipo", "material"},
	ImportReglasMaterial: {"cantidad", "material_origen", "material"},
}

var numericColumns = map[string]bool{
	"costo_unitario": true,
	"capacidad":      true,
	"mca":            true,
	"mfa":            true,
	"cantidad":       true,
}

// ParseImportKind validates a kind name.
func ParseImportKind(s string) (ImportKind, error) {
	k := ImportKind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := importColumns[k]; !ok {
		return "", fmt.Errorf("unknown import kind %q (want materiales, equipos, reglas-em or reglas-mm)", s)
	}
	return k, nil
}

// ValidationError represents a single field-level error on one row.
type ValidationError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// CatalogRow is a parsed data row keyed by column name. Line is the
// 1-indexed file line.
type CatalogRow struct {
	Line   int
	Values map[string]string
}

// ValidationResult is returned after parsing and validating an uploaded file.
type ValidationResult struct {
	Kind      ImportKind        `json:"kind"`
	TotalRows int               `json:"total_rows"`
	ValidRows int               `json:"valid_rows"`
	ErrorRows int               `json:"error_rows"`
	Errors    []ValidationError `json:"errors"`
	// Rows holds only the rows without errors.
	Rows []CatalogRow `json:"-"`
}

// ParseCatalogFile reads a ';'-delimited CSV or the first sheet of an
// XLSX and returns the header and data rows.
func ParseCatalogFile(file io.Reader, fileName string) ([]string, [][]string, error) {
	lower := strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(lower, ".csv"):
		return parseCSV(file)
	case strings.HasSuffix(lower, ".xlsx"):
		return parseExcel(file)
	default:
		return nil, nil, fmt.Errorf("unsupported file format: must be .csv or .xlsx")
	}
}

// parseCSV reads a CSV file and returns headers + data rows.
func parseCSV(file io.Reader) ([]string, [][]string, error) {
	reader := csv.NewReader(file)
	reader.Comma = ';'
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	allRows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(allRows) < 2 {
		return nil, nil, fmt.Errorf("file must contain a header row and at least one data row")
	}

	return allRows[0], allRows[1:], nil
}

// parseExcel reads an xlsx file and returns headers + data rows from the first sheet.
func parseExcel(file io.Reader) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil, fmt.Errorf("file must contain a header row and at least one data row")
	}

	return rows[0], rows[1:], nil
}

// ValidateCatalogRows maps columns by position and checks required and
// numeric fields. Blank lines are ignored.
func ValidateCatalogRows(kind ImportKind, dataRows [][]string) *ValidationResult {
	columns := importColumns[kind]
	result := &ValidationResult{Kind: kind, Rows: make([]CatalogRow, 0, len(dataRows))}

	for rowIdx, row := range dataRows {
		line := rowIdx + 2 // 1-indexed, +1 for header row
		if isBlankRow(row) {
			continue
		}
		result.TotalRows++

		values := make(map[string]string, len(columns))
		for i, col := range columns {
			if i < len(row) {
				values[col] = strings.TrimSpace(row[i])
			}
		}

		var rowErrors []ValidationError
		for _, col := range requiredColumns[kind] {
			if values[col] == "" {
				rowErrors = append(rowErrors, ValidationError{Row: line, Field: col, Message: col + " is required"})
			}
		}
		for _, col := range columns {
			v := values[col]
			if v == "" || !numericColumns[col] {
				continue
			}
			q, ok := parseQuantity(v)
			if !ok {
				rowErrors = append(rowErrors, ValidationError{Row: line, Field: col, Message: fmt.Sprintf("%s must be a non-negative number, got %q", col, v)})
			} else if col == "cantidad" && !q.IsPositive() {
				rowErrors = append(rowErrors, ValidationError{Row: line, Field: col, Message: "cantidad must be greater than zero"})
			}
		}
		if kind == ImportReglasMaterial && values["material_origen"] != "" && values["material_origen"] == values["material"] {
			rowErrors = append(rowErrors, ValidationError{Row: line, Field: "material", Message: "a material cannot expand into itself"})
		}

		if len(rowErrors) > 0 {
			result.Errors = append(result.Errors, rowErrors...)
			result.ErrorRows++
			continue
		}
		result.Rows = append(result.Rows, CatalogRow{Line: line, Values: values})
	}

	result.ValidRows = len(result.Rows)
	return result
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// GenerateErrorReport creates a downloadable .xlsx file from validation errors.
func GenerateErrorReport(errors []ValidationError) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Errores"
	f.SetSheetName(f.GetSheetName(0), sheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DC2626"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border:    thinBorders(),
	})

	f.SetCellValue(sheet, "A1", "Fila")
	f.SetCellValue(sheet, "B1", "Campo")
	f.SetCellValue(sheet, "C1", "Error")
	f.SetCellStyle(sheet, "A1", "C1", headerStyle)
	f.SetColWidth(sheet, "A", "A", 8)
	f.SetColWidth(sheet, "B", "B", 22)
	f.SetColWidth(sheet, "C", "C", 55)

	for i, e := range errors {
		row := fmt.Sprintf("%d", i+2)
		f.SetCellValue(sheet, "A"+row, e.Row)
		f.SetCellValue(sheet, "B"+row, e.Field)
		f.SetCellValue(sheet, "C"+row, e.Message)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write error report: %w", err)
	}
	return buf.Bytes(), nil
}
