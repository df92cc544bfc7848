package services

import (
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"cotizador/testhelpers"
)

func TestParseImportKind(t *testing.T) {
	for _, k := range []string{"materiales", "EQUIPOS", " reglas-em ", "reglas-mm"} {
		if _, err := ParseImportKind(k); err != nil {
			t.Errorf("ParseImportKind(%q) error = %v", k, err)
		}
	}
	if _, err := ParseImportKind("clientes"); err == nil {
		t.Error("unknown kind should fail")
	}
}

func TestParseCatalogFile_CSV(t *testing.T) {
	csvData := "codigo;nombre;unidad;familia;sistema;costo\nTUB-1;Tubo 1/4;m;tuberia;VRF;12,5\n"
	headers, rows, err := ParseCatalogFile(strings.NewReader(csvData), "materiales.CSV")
	if err != nil {
		t.Fatalf("ParseCatalogFile() error = %v", err)
	}
	if len(headers) != 6 || len(rows) != 1 {
		t.Fatalf("headers=%d rows=%d", len(headers), len(rows))
	}
	if rows[0][5] != "12,5" {
		t.Errorf("cost cell = %q, want 12,5", rows[0][5])
	}
}

func TestParseCatalogFile_XLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	f.SetSheetRow(sheet, "A1", &[]string{"cantidad", "equipo", "material"})
	f.SetSheetRow(sheet, "A2", &[]string{"2", "E", "TUB"})
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	_, rows, err := ParseCatalogFile(bytesReader(buf.Bytes()), "reglas.xlsx")
	if err != nil {
		t.Fatalf("ParseCatalogFile() error = %v", err)
	}
	if len(rows) != 1 || rows[0][1] != "E" {
		t.Errorf("rows = %v", rows)
	}
}

func TestParseCatalogFile_Errors(t *testing.T) {
	if _, _, err := ParseCatalogFile(strings.NewReader("x"), "data.txt"); err == nil {
		t.Error("unsupported extension should fail")
	}
	if _, _, err := ParseCatalogFile(strings.NewReader("only;header\n"), "a.csv"); err == nil {
		t.Error("header-only file should fail")
	}
}

func TestValidateCatalogRows(t *testing.T) {
	res := ValidateCatalogRows(ImportMateriales, [][]string{
		{"TUB-1", "Tubo", "m", "TUBERIA", "VRF", "10"},
		{"", "Sin código", "m", "TUBERIA", "VRF", "10"},
		{"TUB-2", "Tubo", "m", "TUBERIA", "VRF", "caro"},
		{"", "", "", "", "", ""},
		{"TUB-3", "Tubo corto"},
	})
	if res.TotalRows != 4 {
		t.Errorf("TotalRows = %d, want 4 (blank skipped)", res.TotalRows)
	}
	if res.ValidRows != 2 || res.ErrorRows != 2 {
		t.Errorf("valid=%d errors=%d, want 2/2", res.ValidRows, res.ErrorRows)
	}
	if len(res.Errors) != 2 || res.Errors[0].Row != 3 || res.Errors[1].Field != "costo_unitario" {
		t.Errorf("errors = %+v", res.Errors)
	}
}

func TestValidateCatalogRows_Rules(t *testing.T) {
	res := ValidateCatalogRows(ImportReglasMaterial, [][]string{
		{"1", "A", "B"},
		{"0", "A", "C"},
		{"1", "A", "A"},
	})
	if res.ValidRows != 1 || res.ErrorRows != 2 {
		t.Errorf("valid=%d errors=%d, want 1/2: %+v", res.ValidRows, res.ErrorRows, res.Errors)
	}
}

func TestCommitCatalogImport_MaterialesUpsert(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	testhelpers.CreateTestMaterial(t, app, "TUB-1", "TUBERIA", 1)

	val := ValidateCatalogRows(ImportMateriales, [][]string{
		{"TUB-1", "Tubo actualizado", "m", " tuberia ", "VRF", "12,5"},
		{"ANC-1", "Anclaje", "un", "anclaje", "VRF", "3"},
	})
	res, err := CommitCatalogImport(app, ImportMateriales, val.Rows)
	if err != nil {
		t.Fatalf("CommitCatalogImport() error = %v", err)
	}
	if res.Imported != 2 || res.Failed != 0 {
		t.Errorf("imported=%d failed=%d", res.Imported, res.Failed)
	}

	n, _ := app.CountRecords("materiales")
	if n != 2 {
		t.Errorf("materiales = %d, want 2", n)
	}
	rec, err := app.FindFirstRecordByData("materiales", "codigo", "TUB-1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.GetString("nombre") != "Tubo actualizado" || rec.GetFloat("costo_unitario") != 12.5 || rec.GetString("familia") != "TUBERIA" {
		t.Errorf("TUB-1 not updated: %s %v %s", rec.GetString("nombre"), rec.GetFloat("costo_unitario"), rec.GetString("familia"))
	}
}

func TestCommitCatalogImport_RulesGroupedPerOrigin(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	val := ValidateCatalogRows(ImportReglasEquipo, [][]string{
		{"2", "E1", "TUB"},
		{"1", "E2", "ANC"},
		{"3", "E1", "ANC"},
		{"1", "E1", "TUB"},
	})
	res, err := CommitCatalogImport(app, ImportReglasEquipo, val.Rows)
	if err != nil {
		t.Fatalf("CommitCatalogImport() error = %v", err)
	}
	if res.Imported != 4 {
		t.Errorf("imported = %d, want 4", res.Imported)
	}

	rs, err := LoadRuleSet(app, RuleEquipoMaterial)
	if err != nil {
		t.Fatal(err)
	}
	if len(rs) != 2 {
		t.Fatalf("origins = %d, want 2", len(rs))
	}
	e1 := rs.Lookup("E1")
	if len(e1) != 2 || e1[0].Codigo != "TUB" || !e1[0].Cantidad.Equal(dec("3")) || e1[1].Codigo != "ANC" {
		t.Errorf("E1 lines = %+v", e1)
	}

	// reimport replaces the origin's lines
	val = ValidateCatalogRows(ImportReglasEquipo, [][]string{{"5", "E1", "DRE"}})
	if _, err := CommitCatalogImport(app, ImportReglasEquipo, val.Rows); err != nil {
		t.Fatal(err)
	}
	rs, _ = LoadRuleSet(app, RuleEquipoMaterial)
	if e1 := rs.Lookup("E1"); len(e1) != 1 || e1[0].Codigo != "DRE" {
		t.Errorf("E1 after reimport = %+v", e1)
	}
}

func TestGenerateErrorReport(t *testing.T) {
	data, err := GenerateErrorReport([]ValidationError{
		{Row: 3, Field: "codigo", Message: "codigo is required"},
	})
	if err != nil {
		t.Fatalf("GenerateErrorReport() error = %v", err)
	}
	f, err := excelize.OpenReader(bytesReader(data))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	got, _ := f.GetCellValue("Errores", "C2")
	if got != "codigo is required" {
		t.Errorf("C2 = %q", got)
	}
}
